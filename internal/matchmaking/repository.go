package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProfileNotFound is returned when a musician profile is not found.
var ErrProfileNotFound = errors.New("profile not found")

// ErrProfileExists is returned when the user already has a musician profile.
var ErrProfileExists = errors.New("profile already exists")

// ErrInvitationNotFound is returned when an invitation is not found.
var ErrInvitationNotFound = errors.New("invitation not found")

// ErrDuplicateInvitation is returned when a pending invitation already exists for the pair.
var ErrDuplicateInvitation = errors.New("a pending invitation already exists")

// ErrInvitationClosed is returned when responding to an invitation that is no longer pending.
var ErrInvitationClosed = errors.New("invitation is no longer pending")

// ErrRecipientNotFound is returned when a chat message targets an unknown user.
var ErrRecipientNotFound = errors.New("recipient not found")

// ProfileRepository provides operations on the musician_profiles table.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, fields ProfileUpdate) (*Profile, error)
	Search(ctx context.Context, filter SearchFilter) (*SearchResult, error)
}

// InvitationRepository provides operations on the band_invitations table.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID) ([]Invitation, error)
	ListForBand(ctx context.Context, bandID uuid.UUID) ([]Invitation, error)
	// Respond moves a pending invitation to accepted or declined. Accepting also
	// adds the musician to the band's member list in the same transaction.
	Respond(ctx context.Context, id uuid.UUID, status string) (*Invitation, error)
}

// MessageRepository provides operations on the chat_messages table.
type MessageRepository interface {
	Send(ctx context.Context, m *Message) error
	// Conversation returns messages between two users created after since, oldest first.
	Conversation(ctx context.Context, userID, partnerID uuid.UUID, since time.Time, limit int) ([]Message, error)
	MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) error
	ListConversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error)
}
