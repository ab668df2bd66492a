package band

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const bandColumns = `id, owner_id, name, slug, genre, location, bio, image_url, website_url,
	spotify_url, instagram_url, contact_email, press_quote, published, created_at, updated_at`

func scanBand(row pgx.Row) (*Band, error) {
	var b Band
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Slug, &b.Genre, &b.Location, &b.Bio,
		&b.ImageURL, &b.WebsiteURL, &b.SpotifyURL, &b.InstagramURL,
		&b.ContactEmail, &b.PressQuote, &b.Published, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBandNotFound
		}
		return nil, fmt.Errorf("scanning band row: %w", err)
	}
	return &b, nil
}

// Create inserts a new band record.
func (r *PostgresRepository) Create(ctx context.Context, b *Band) error {
	query := `
		INSERT INTO bands (owner_id, name, slug, genre, location, bio, image_url, website_url,
		                   spotify_url, instagram_url, contact_email, press_quote, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		b.OwnerID, b.Name, b.Slug, b.Genre, b.Location, b.Bio, b.ImageURL, b.WebsiteURL,
		b.SpotifyURL, b.InstagramURL, b.ContactEmail, b.PressQuote, b.Published,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("inserting band: %w", err)
	}

	if b.Members == nil {
		b.Members = []Member{}
	}
	return nil
}

// GetByID retrieves a single band by its UUID, including members.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE id = $1`
	b, err := scanBand(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return r.withMembers(ctx, b)
}

// GetBySlug retrieves a single band by its slug, including members.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE slug = $1`
	b, err := scanBand(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, err
	}
	return r.withMembers(ctx, b)
}

// ListByOwner retrieves the bands owned by a user, newest first. Members are not loaded.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing bands: %w", err)
	}
	defer rows.Close()

	var bands []Band
	for rows.Next() {
		b, err := scanBand(rows)
		if err != nil {
			return nil, err
		}
		bands = append(bands, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating band rows: %w", err)
	}

	if bands == nil {
		bands = []Band{}
	}
	return bands, nil
}

// Update modifies non-nil EPK fields on a band.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Band, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.Name != nil {
		set("name", *fields.Name)
	}
	if fields.Genre != nil {
		set("genre", *fields.Genre)
	}
	if fields.Location != nil {
		set("location", *fields.Location)
	}
	if fields.Bio != nil {
		set("bio", *fields.Bio)
	}
	if fields.ImageURL != nil {
		set("image_url", *fields.ImageURL)
	}
	if fields.WebsiteURL != nil {
		set("website_url", *fields.WebsiteURL)
	}
	if fields.SpotifyURL != nil {
		set("spotify_url", *fields.SpotifyURL)
	}
	if fields.InstagramURL != nil {
		set("instagram_url", *fields.InstagramURL)
	}
	if fields.ContactEmail != nil {
		set("contact_email", *fields.ContactEmail)
	}
	if fields.PressQuote != nil {
		set("press_quote", *fields.PressQuote)
	}
	if fields.Published != nil {
		set("published", *fields.Published)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE bands
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, bandColumns)

	b, err := scanBand(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return r.withMembers(ctx, b)
}

// Delete removes a band. Returns ErrBandHasVault if a vault still references it.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM bands WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrBandHasVault
		}
		return fmt.Errorf("deleting band: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBandNotFound
	}
	return nil
}

// AddMember inserts a member into a band's EPK lineup.
func (r *PostgresRepository) AddMember(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO band_members (band_id, user_id, name, instrument)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, m.BandID, m.UserID, m.Name, m.Instrument).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrBandNotFound
		}
		return fmt.Errorf("inserting band member: %w", err)
	}
	return nil
}

// RemoveMember deletes a member from a band.
func (r *PostgresRepository) RemoveMember(ctx context.Context, bandID, memberID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM band_members WHERE id = $1 AND band_id = $2`, memberID, bandID)
	if err != nil {
		return fmt.Errorf("deleting band member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// RecordView stores one EPK page view.
func (r *PostgresRepository) RecordView(ctx context.Context, bandID uuid.UUID, referrer string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO epk_views (band_id, referrer) VALUES ($1, $2)`, bandID, referrer)
	if err != nil {
		return fmt.Errorf("recording epk view: %w", err)
	}
	return nil
}

// ViewStats returns EPK view counts per UTC day since the given time.
func (r *PostgresRepository) ViewStats(ctx context.Context, bandID uuid.UUID, since time.Time) (*ViewStats, error) {
	query := `
		SELECT date_trunc('day', viewed_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM epk_views
		WHERE band_id = $1 AND viewed_at >= $2
		GROUP BY day
		ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, query, bandID, since)
	if err != nil {
		return nil, fmt.Errorf("querying epk views: %w", err)
	}
	defer rows.Close()

	stats := &ViewStats{Daily: []DailyViews{}}
	for rows.Next() {
		var d DailyViews
		if err := rows.Scan(&d.Day, &d.Views); err != nil {
			return nil, fmt.Errorf("scanning epk view row: %w", err)
		}
		stats.Total += d.Views
		stats.Daily = append(stats.Daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating epk view rows: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) withMembers(ctx context.Context, b *Band) (*Band, error) {
	query := `
		SELECT id, band_id, user_id, name, instrument, created_at
		FROM band_members
		WHERE band_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, b.ID)
	if err != nil {
		return nil, fmt.Errorf("listing band members: %w", err)
	}
	defer rows.Close()

	b.Members = []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.BandID, &m.UserID, &m.Name, &m.Instrument, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning band member row: %w", err)
		}
		b.Members = append(b.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating band member rows: %w", err)
	}
	return b, nil
}
