package support

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	StatusOpen      = "open"
	StatusEscalated = "escalated"
	StatusResolved  = "resolved"
)

// Message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
	SenderAgent     = "agent"
)

// Session represents a row in the support_sessions table.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Subject     string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	EscalatedAt *time.Time
	ResolvedAt  *time.Time
	ResolvedBy  *uuid.UUID
}

// Message represents a row in the support_messages table.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Sender    string
	Body      string
	CreatedAt time.Time
}
