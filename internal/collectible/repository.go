package collectible

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCollectibleNotFound is returned when a collectible is not found.
var ErrCollectibleNotFound = errors.New("collectible not found")

// Repository provides operations on the collectibles table.
type Repository interface {
	Create(ctx context.Context, c *Collectible) error
	GetByID(ctx context.Context, id uuid.UUID) (*Collectible, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Collectible, error)
	// Delete removes a collectible owned by ownerID.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
