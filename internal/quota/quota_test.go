package quota_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/quota"
)

func TestKey(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("7f1c0e4e-1a7c-4a39-9d7c-0f3f7a0b9e11")
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "quota:course:7f1c0e4e-1a7c-4a39-9d7c-0f3f7a0b9e11:20240310", quota.Key(quota.FeatureCourse, id, at))
}

func TestMemoryLimiter_ConsumeUntilExceeded(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := quota.NewMemoryLimiter(func() time.Time { return now })
	ctx := context.Background()
	user := uuid.New()

	remaining, err := l.Consume(ctx, quota.FeatureCollectible, user, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = l.Consume(ctx, quota.FeatureCollectible, user, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = l.Consume(ctx, quota.FeatureCollectible, user, 2)
	assert.ErrorIs(t, err, quota.ErrExceeded)

	// Other features and users are independent.
	_, err = l.Consume(ctx, quota.FeatureCourse, user, 2)
	assert.NoError(t, err)
	_, err = l.Consume(ctx, quota.FeatureCollectible, uuid.New(), 2)
	assert.NoError(t, err)
}

func TestMemoryLimiter_RefundAndRollover(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	l := quota.NewMemoryLimiter(func() time.Time { return now })
	ctx := context.Background()
	user := uuid.New()

	_, err := l.Consume(ctx, quota.FeatureCourse, user, 1)
	require.NoError(t, err)
	_, err = l.Consume(ctx, quota.FeatureCourse, user, 1)
	require.ErrorIs(t, err, quota.ErrExceeded)

	require.NoError(t, l.Refund(ctx, quota.FeatureCourse, user))
	_, err = l.Consume(ctx, quota.FeatureCourse, user, 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	remaining, err := l.Consume(ctx, quota.FeatureCourse, user, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6380/0"
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: cannot reach test redis: %v", err)
	}

	l := quota.NewRedisLimiter(client)
	user := uuid.New()

	remaining, err := l.Consume(ctx, quota.FeatureCollectible, user, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	_, err = l.Consume(ctx, quota.FeatureCollectible, user, 2)
	require.NoError(t, err)
	_, err = l.Consume(ctx, quota.FeatureCollectible, user, 2)
	assert.ErrorIs(t, err, quota.ErrExceeded)

	require.NoError(t, l.Refund(ctx, quota.FeatureCollectible, user))
	remaining, err = l.Consume(ctx, quota.FeatureCollectible, user, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ttl, err := client.TTL(ctx, quota.Key(quota.FeatureCollectible, user, time.Now())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
