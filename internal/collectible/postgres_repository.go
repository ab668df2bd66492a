package collectible

import (
	"context"
	"errors"
	"fmt"

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

const columns = `id, owner_id, band_id, name, description, rarity, image_prompt, attributes, created_at`

func scanCollectible(row pgx.Row) (*Collectible, error) {
	var c Collectible
	err := row.Scan(&c.ID, &c.OwnerID, &c.BandID, &c.Name, &c.Description, &c.Rarity,
		&c.ImagePrompt, &c.Attributes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectibleNotFound
		}
		return nil, fmt.Errorf("scanning collectible row: %w", err)
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	return &c, nil
}

// Create inserts a collectible.
func (r *PostgresRepository) Create(ctx context.Context, c *Collectible) error {
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}

	query := `
		INSERT INTO collectibles (owner_id, band_id, name, description, rarity, image_prompt, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		c.OwnerID, c.BandID, c.Name, c.Description, c.Rarity, c.ImagePrompt, c.Attributes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting collectible: %w", err)
	}
	return nil
}

// GetByID retrieves a collectible by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Collectible, error) {
	query := `SELECT ` + columns + ` FROM collectibles WHERE id = $1`
	return scanCollectible(r.pool.QueryRow(ctx, query, id))
}

// ListByOwner retrieves a user's collectibles, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Collectible, error) {
	query := `SELECT ` + columns + ` FROM collectibles WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing collectibles: %w", err)
	}
	defer rows.Close()

	items := []Collectible{}
	for rows.Next() {
		c, err := scanCollectible(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collectible rows: %w", err)
	}
	return items, nil
}

// Delete removes a collectible owned by ownerID.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM collectibles WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting collectible: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectibleNotFound
	}
	return nil
}
