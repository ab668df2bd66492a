package course

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
var ErrGenerationFailed = errors.New("course generation failed")

const systemPrompt = `You are a music educator writing short online courses for musicians.
Respond with a single JSON object: {"title": string, "summary": string,
"modules": [{"title": string, "lessons": [{"title": string, "content": string}]}]}.
Lesson content is practical, written in Markdown, and at most 250 words.`

// GenerateRequest describes the course a user wants.
type GenerateRequest struct {
	Topic   string
	Level   string
	Lessons int
}

// Service generates course drafts within the user's daily quota.
type Service struct {
	gen        ai.Generator
	limiter    quota.Limiter
	dailyLimit int
}

// NewService creates a course Service.
func NewService(gen ai.Generator, limiter quota.Limiter, dailyLimit int) *Service {
	return &Service{gen: gen, limiter: limiter, dailyLimit: dailyLimit}
}

// Generate consumes one unit of quota and asks the model for a course outline
// with content. The unit is refunded when generation fails.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*Draft, int, error) {
	remaining, err := s.limiter.Consume(ctx, quota.FeatureCourse, userID, s.dailyLimit)
	if err != nil {
		return nil, 0, err
	}

	draft, err := s.generate(ctx, req)
	if err != nil {
		metrics.RecordGeneration(quota.FeatureCourse, "error")
		if refundErr := s.limiter.Refund(ctx, quota.FeatureCourse, userID); refundErr != nil {
			err = errors.Join(err, refundErr)
		}
		return nil, remaining + 1, err
	}

	metrics.RecordGeneration(quota.FeatureCourse, "ok")
	return draft, remaining, nil
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (*Draft, error) {
	prompt := fmt.Sprintf("Topic: %s\nLevel: %s\nWrite exactly %d lessons in total, grouped into modules.",
		req.Topic, req.Level, req.Lessons)

	var d Draft
	if err := s.gen.GenerateJSON(ctx, systemPrompt, prompt, &d); err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		d.Title = req.Topic
	}
	d.Summary = strings.TrimSpace(d.Summary)

	modules := d.Modules[:0]
	for _, m := range d.Modules {
		if len(m.Lessons) == 0 {
			continue
		}
		modules = append(modules, m)
	}
	d.Modules = modules

	if LessonCount(d.Modules) == 0 {
		return nil, fmt.Errorf("%w: model returned no lessons", ErrGenerationFailed)
	}
	return &d, nil
}
