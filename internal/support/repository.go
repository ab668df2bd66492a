package support

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a support session is not found.
var ErrSessionNotFound = errors.New("support session not found")

// ErrSessionClosed is returned when modifying a resolved session.
var ErrSessionClosed = errors.New("support session is resolved")

// Repository provides operations on the support_sessions and support_messages tables.
type Repository interface {
	// CreateSession inserts a session together with its first user message.
	CreateSession(ctx context.Context, s *Session, firstMessage string) (*Message, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	// ListEscalated returns escalated sessions, longest waiting first.
	ListEscalated(ctx context.Context) ([]Session, error)
	// AddMessage appends a message. Fails with ErrSessionClosed on resolved sessions.
	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	// Escalate moves an open session to escalated. Already escalated sessions are returned unchanged.
	Escalate(ctx context.Context, id uuid.UUID) (*Session, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID) (*Session, error)
}
