package course_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/course"
	"github.com/bandhub/bandhub/internal/quota"
)

type fakeGenerator struct {
	raw    string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.raw, f.err
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, _, prompt string, out any) error {
	f.prompt = prompt
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.raw), out)
}

const validCourse = `{
	"title": "Groove Foundations",
	"summary": "Lock in with the drummer.",
	"modules": [
		{"title": "Timing", "lessons": [{"title": "Metronome", "content": "Play on 2 and 4."}]},
		{"title": "Empty", "lessons": []},
		{"title": "Feel", "lessons": [{"title": "Swing", "content": "Triplets."}, {"title": "Push", "content": "Anticipate."}]}
	]
}`

func TestService_Generate(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{raw: validCourse}
	svc := course.NewService(gen, quota.NewMemoryLimiter(nil), 3)

	draft, remaining, err := svc.Generate(context.Background(), uuid.New(), course.GenerateRequest{
		Topic: "bass grooves", Level: course.LevelBeginner, Lessons: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
	assert.Equal(t, "Groove Foundations", draft.Title)
	require.Len(t, draft.Modules, 2)
	assert.Equal(t, 3, course.LessonCount(draft.Modules))
	assert.Contains(t, gen.prompt, "exactly 3 lessons")
	assert.Contains(t, gen.prompt, "beginner")
}

func TestService_Generate_TitleFallsBackToTopic(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{raw: `{"modules":[{"title":"M","lessons":[{"title":"L","content":"C"}]}]}`}
	svc := course.NewService(gen, quota.NewMemoryLimiter(nil), 3)

	draft, _, err := svc.Generate(context.Background(), uuid.New(), course.GenerateRequest{Topic: "Ear training", Level: "advanced", Lessons: 3})
	require.NoError(t, err)
	assert.Equal(t, "Ear training", draft.Title)
}

func TestService_Generate_NoLessonsRefunds(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{raw: `{"title":"Empty","modules":[]}`}
	limiter := quota.NewMemoryLimiter(nil)
	svc := course.NewService(gen, limiter, 1)
	user := uuid.New()

	_, _, err := svc.Generate(context.Background(), user, course.GenerateRequest{Topic: "x", Level: "beginner", Lessons: 3})
	assert.ErrorIs(t, err, course.ErrGenerationFailed)

	remaining, err := limiter.Consume(context.Background(), quota.FeatureCourse, user, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestService_Generate_UpstreamError(t *testing.T) {
	t.Parallel()

	svc := course.NewService(&fakeGenerator{err: errors.New("503")}, quota.NewMemoryLimiter(nil), 1)
	_, _, err := svc.Generate(context.Background(), uuid.New(), course.GenerateRequest{Topic: "x", Level: "beginner", Lessons: 3})
	assert.ErrorIs(t, err, course.ErrGenerationFailed)
}

func TestService_Generate_QuotaExceeded(t *testing.T) {
	t.Parallel()

	svc := course.NewService(&fakeGenerator{raw: validCourse}, quota.NewMemoryLimiter(nil), 0)
	_, _, err := svc.Generate(context.Background(), uuid.New(), course.GenerateRequest{Topic: "x", Level: "beginner", Lessons: 3})
	assert.ErrorIs(t, err, quota.ErrExceeded)
}
