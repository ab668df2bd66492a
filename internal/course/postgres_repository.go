package course

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const columns = `id, owner_id, title, topic, level, summary, modules, published, created_at, updated_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Topic, &c.Level, &c.Summary,
		&c.Modules, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("scanning course row: %w", err)
	}
	if c.Modules == nil {
		c.Modules = []Module{}
	}
	return &c, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Course, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	courses := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}
	return courses, nil
}

// Create inserts a course.
func (r *PostgresRepository) Create(ctx context.Context, c *Course) error {
	if c.Modules == nil {
		c.Modules = []Module{}
	}

	query := `
		INSERT INTO courses (owner_id, title, topic, level, summary, modules, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.OwnerID, c.Title, c.Topic, c.Level, c.Summary, c.Modules, c.Published,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

// GetByID retrieves a course by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM courses WHERE id = $1`, id))
}

// ListByOwner retrieves a user's courses, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Course, error) {
	return r.list(ctx, `SELECT `+columns+` FROM courses WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

// ListPublished retrieves every published course, newest first.
func (r *PostgresRepository) ListPublished(ctx context.Context) ([]Course, error) {
	return r.list(ctx, `SELECT `+columns+` FROM courses WHERE published ORDER BY created_at DESC`)
}

// Update modifies non-nil fields on a course owned by ownerID.
func (r *PostgresRepository) Update(ctx context.Context, id, ownerID uuid.UUID, fields UpdateFields) (*Course, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if fields.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argIdx))
		args = append(args, *fields.Title)
		argIdx++
	}
	if fields.Summary != nil {
		setClauses = append(setClauses, fmt.Sprintf("summary = $%d", argIdx))
		args = append(args, *fields.Summary)
		argIdx++
	}
	if fields.Published != nil {
		setClauses = append(setClauses, fmt.Sprintf("published = $%d", argIdx))
		args = append(args, *fields.Published)
		argIdx++
	}

	if len(setClauses) == 0 {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c.OwnerID != ownerID {
			return nil, ErrCourseNotFound
		}
		return c, nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, ownerID)

	query := fmt.Sprintf(`
		UPDATE courses
		SET %s
		WHERE id = $%d AND owner_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, columns)

	return scanCourse(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes a course owned by ownerID.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}
