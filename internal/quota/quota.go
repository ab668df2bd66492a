// Package quota enforces daily per-user usage limits for AI features.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrExceeded is returned when the daily limit for a feature has been reached.
var ErrExceeded = errors.New("daily quota exceeded")

// Features with daily limits.
const (
	FeatureCollectible = "collectible"
	FeatureCourse      = "course"
)

// Limiter counts usage per feature, user and UTC day.
type Limiter interface {
	// Consume records one use and returns how many remain today.
	Consume(ctx context.Context, feature string, userID uuid.UUID, limit int) (int, error)
	// Refund gives back one use, e.g. when the generation failed.
	Refund(ctx context.Context, feature string, userID uuid.UUID) error
}

// Key returns the counter key for a feature, user and day.
func Key(feature string, userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", feature, userID, now.UTC().Format("20060102"))
}

// untilMidnight returns the time left in the current UTC day.
func untilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
