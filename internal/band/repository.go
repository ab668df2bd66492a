package band

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrBandNotFound is returned when a band record is not found.
var ErrBandNotFound = errors.New("band not found")

// ErrDuplicateSlug is returned when another band already uses the slug.
var ErrDuplicateSlug = errors.New("band slug already exists")

// ErrBandHasVault is returned when deleting a band that still backs a vault.
var ErrBandHasVault = errors.New("band has a vault")

// ErrMemberNotFound is returned when a band member record is not found.
var ErrMemberNotFound = errors.New("band member not found")

// Repository provides CRUD operations on bands, their members and EPK views.
type Repository interface {
	Create(ctx context.Context, b *Band) error
	GetByID(ctx context.Context, id uuid.UUID) (*Band, error)
	GetBySlug(ctx context.Context, slug string) (*Band, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Band, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Band, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, bandID, memberID uuid.UUID) error

	RecordView(ctx context.Context, bandID uuid.UUID, referrer string) error
	ViewStats(ctx context.Context, bandID uuid.UUID, since time.Time) (*ViewStats, error)
}
