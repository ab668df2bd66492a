package band_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bandhub/bandhub/internal/band"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Radiohead", "radiohead"},
		{"spaces", "The Black Keys", "the-black-keys"},
		{"punctuation collapses", "  AC/DC!!  Live ", "ac-dc-live"},
		{"unicode dropped", "Sigur Rós", "sigur-r-s"},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, band.Slugify(tt.in))
		})
	}
}
