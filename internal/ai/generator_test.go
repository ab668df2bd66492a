package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/ai"
)

type draft struct {
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want draft
	}{
		{"plain", `{"name":"Neon Pick","rarity":"rare"}`, draft{"Neon Pick", "rare"}},
		{"fenced", "```json\n{\"name\":\"Neon Pick\",\"rarity\":\"epic\"}\n```", draft{"Neon Pick", "epic"}},
		{"bare fence", "```\n{\"name\":\"A\",\"rarity\":\"common\"}\n```", draft{"A", "common"}},
		{"leading prose", "Here you go:\n{\"name\":\"B\",\"rarity\":\"legendary\"} trailing", draft{"B", "legendary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got draft
			require.NoError(t, ai.DecodeJSON(tt.raw, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	t.Parallel()

	var out draft
	assert.ErrorIs(t, ai.DecodeJSON("   ", &out), ai.ErrEmptyResponse)
	assert.Error(t, ai.DecodeJSON("no json here", &out))
	assert.Error(t, ai.DecodeJSON(`{"name": `, &out))
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	var g ai.Generator = ai.Disabled{}
	_, err := g.GenerateText(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ai.ErrDisabled)
	assert.ErrorIs(t, g.GenerateJSON(context.Background(), "", "hi", &draft{}), ai.ErrDisabled)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := ai.NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
