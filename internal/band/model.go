package band

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Band represents a row in the bands table together with its EPK member list.
type Band struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Slug         string
	Genre        string
	Location     string
	Bio          string
	ImageURL     string
	WebsiteURL   string
	SpotifyURL   string
	InstagramURL string
	ContactEmail string
	PressQuote   string
	Published    bool
	Members      []Member
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Member represents a row in the band_members table.
type Member struct {
	ID         uuid.UUID
	BandID     uuid.UUID
	UserID     *uuid.UUID
	Name       string
	Instrument string
	CreatedAt  time.Time
}

// UpdateFields holds owner-editable EPK fields. Nil fields are not updated.
type UpdateFields struct {
	Name         *string
	Genre        *string
	Location     *string
	Bio          *string
	ImageURL     *string
	WebsiteURL   *string
	SpotifyURL   *string
	InstagramURL *string
	ContactEmail *string
	PressQuote   *string
	Published    *bool
}

// DailyViews is the number of EPK page views on one UTC day.
type DailyViews struct {
	Day   time.Time
	Views int
}

// ViewStats summarizes EPK page views over a window.
type ViewStats struct {
	Total int
	Daily []DailyViews
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a band name: lower-case alphanumerics
// separated by single hyphens.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}
