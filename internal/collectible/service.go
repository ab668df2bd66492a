package collectible

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/ai"
	"github.com/bandhub/bandhub/internal/metrics"
	"github.com/bandhub/bandhub/internal/quota"
)

// ErrGenerationFailed is returned when the model call or its output was unusable.
var ErrGenerationFailed = errors.New("collectible generation failed")

const systemPrompt = `You design digital fan collectibles for independent bands.
Respond with a single JSON object with the keys "name", "description", "rarity",
"imagePrompt" and "attributes". "rarity" is one of common, rare, epic, legendary.
"attributes" is an object of short string traits. Keep the description under 60 words.`

// GenerateRequest describes the collectible a user wants.
type GenerateRequest struct {
	Theme    string
	Style    string
	BandName string
}

// Service generates collectible drafts within the user's daily quota.
type Service struct {
	gen        ai.Generator
	limiter    quota.Limiter
	dailyLimit int
}

// NewService creates a collectible Service.
func NewService(gen ai.Generator, limiter quota.Limiter, dailyLimit int) *Service {
	return &Service{gen: gen, limiter: limiter, dailyLimit: dailyLimit}
}

// Generate consumes one unit of quota and asks the model for a draft. The unit
// is refunded when generation fails. Returns the draft and the remaining quota.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*Draft, int, error) {
	remaining, err := s.limiter.Consume(ctx, quota.FeatureCollectible, userID, s.dailyLimit)
	if err != nil {
		return nil, 0, err
	}

	draft, err := s.generate(ctx, req)
	if err != nil {
		metrics.RecordGeneration(quota.FeatureCollectible, "error")
		if refundErr := s.limiter.Refund(ctx, quota.FeatureCollectible, userID); refundErr != nil {
			err = errors.Join(err, refundErr)
		}
		return nil, remaining + 1, err
	}

	metrics.RecordGeneration(quota.FeatureCollectible, "ok")
	return draft, remaining, nil
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (*Draft, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s\n", req.Theme)
	if req.BandName != "" {
		fmt.Fprintf(&b, "Band: %s\n", req.BandName)
	}
	if req.Style != "" {
		fmt.Fprintf(&b, "Visual style: %s\n", req.Style)
	}

	var d Draft
	if err := s.gen.GenerateJSON(ctx, systemPrompt, b.String(), &d); err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil, fmt.Errorf("%w: model returned no name", ErrGenerationFailed)
	}
	d.Description = strings.TrimSpace(d.Description)
	d.Rarity = NormalizeRarity(d.Rarity)
	if d.Attributes == nil {
		d.Attributes = map[string]string{}
	}
	return &d, nil
}
