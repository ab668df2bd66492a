package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// Experience levels a musician can declare.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
	LevelProfessional = "professional"
)

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Profile represents a row in the musician_profiles table.
type Profile struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	DisplayName     string
	Instruments     []string
	Genres          []string
	Location        string
	ExperienceLevel string
	Bio             string
	LookingFor      string
	Available       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProfileUpdate holds user-editable profile fields. Nil fields are not updated.
type ProfileUpdate struct {
	DisplayName     *string
	Instruments     []string
	Genres          []string
	Location        *string
	ExperienceLevel *string
	Bio             *string
	LookingFor      *string
	Available       *bool
}

// SearchFilter holds optional filters and pagination for profile search.
type SearchFilter struct {
	Instrument *string
	Genre      *string
	Location   *string // partial match (ILIKE)
	Available  *bool
	ExcludeID  *uuid.UUID // the searcher's own user
	Page       int        // default 1
	Limit      int        // default 20
}

// SearchResult holds one page of profiles.
type SearchResult struct {
	Profiles []Profile
	Total    int
	Page     int
	Limit    int
}

// Invitation represents a row in the band_invitations table.
// BandName, ProfileName and ProfileUserID are populated from joins on read.
type Invitation struct {
	ID            uuid.UUID
	BandID        uuid.UUID
	BandName      string
	ProfileID     uuid.UUID
	ProfileName   string
	ProfileUserID uuid.UUID
	Instrument    string
	Message       string
	Status        string
	CreatedAt     time.Time
	RespondedAt   *time.Time
}

// Message represents a row in the chat_messages table.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Body        string
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// Conversation summarizes the chat between the caller and one other user.
type Conversation struct {
	PartnerID   uuid.UUID
	PartnerName string
	LastMessage Message
	Unread      int
}
