package course

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCourseNotFound is returned when a course is not found.
var ErrCourseNotFound = errors.New("course not found")

// Repository provides operations on the courses table.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Course, error)
	ListPublished(ctx context.Context) ([]Course, error)
	// Update modifies a course owned by ownerID.
	Update(ctx context.Context, id, ownerID uuid.UUID, fields UpdateFields) (*Course, error)
	// Delete removes a course owned by ownerID.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
