package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProfileRepository implements ProfileRepository using pgxpool.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository backed by the given connection pool.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

const profileColumns = `id, user_id, display_name, instruments, genres, location, experience_level,
	bio, looking_for, available, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.UserID, &p.DisplayName, &p.Instruments, &p.Genres, &p.Location,
		&p.ExperienceLevel, &p.Bio, &p.LookingFor, &p.Available, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scanning profile row: %w", err)
	}
	return &p, nil
}

// normalizeTags lower-cases and de-duplicates tag lists so array lookups are exact.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Create inserts a musician profile. Returns ErrProfileExists if the user already has one.
func (r *PostgresProfileRepository) Create(ctx context.Context, p *Profile) error {
	p.Instruments = normalizeTags(p.Instruments)
	p.Genres = normalizeTags(p.Genres)
	if p.ExperienceLevel == "" {
		p.ExperienceLevel = LevelIntermediate
	}

	query := `
		INSERT INTO musician_profiles (user_id, display_name, instruments, genres, location,
		                               experience_level, bio, looking_for, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.UserID, p.DisplayName, p.Instruments, p.Genres, p.Location,
		p.ExperienceLevel, p.Bio, p.LookingFor, p.Available,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProfileExists
		}
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by its UUID.
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM musician_profiles WHERE id = $1`
	return scanProfile(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID retrieves the profile owned by a user.
func (r *PostgresProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM musician_profiles WHERE user_id = $1`
	return scanProfile(r.pool.QueryRow(ctx, query, userID))
}

// Update modifies non-nil fields on the user's profile.
func (r *PostgresProfileRepository) Update(ctx context.Context, userID uuid.UUID, fields ProfileUpdate) (*Profile, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.DisplayName != nil {
		set("display_name", *fields.DisplayName)
	}
	if fields.Instruments != nil {
		set("instruments", normalizeTags(fields.Instruments))
	}
	if fields.Genres != nil {
		set("genres", normalizeTags(fields.Genres))
	}
	if fields.Location != nil {
		set("location", *fields.Location)
	}
	if fields.ExperienceLevel != nil {
		set("experience_level", *fields.ExperienceLevel)
	}
	if fields.Bio != nil {
		set("bio", *fields.Bio)
	}
	if fields.LookingFor != nil {
		set("looking_for", *fields.LookingFor)
	}
	if fields.Available != nil {
		set("available", *fields.Available)
	}

	if len(setClauses) == 0 {
		return r.GetByUserID(ctx, userID)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID)

	query := fmt.Sprintf(`
		UPDATE musician_profiles
		SET %s
		WHERE user_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, profileColumns)

	return scanProfile(r.pool.QueryRow(ctx, query, args...))
}

// Search retrieves a filtered, paginated list of profiles, most recently updated first.
func (r *PostgresProfileRepository) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.Instrument != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(instruments)", argIdx))
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.Instrument)))
		argIdx++
	}
	if filter.Genre != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(genres)", argIdx))
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.Genre)))
		argIdx++
	}
	if filter.Location != nil {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", argIdx))
		args = append(args, "%"+*filter.Location+"%")
		argIdx++
	}
	if filter.Available != nil {
		conditions = append(conditions, fmt.Sprintf("available = $%d", argIdx))
		args = append(args, *filter.Available)
		argIdx++
	}
	if filter.ExcludeID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id <> $%d", argIdx))
		args = append(args, *filter.ExcludeID)
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM musician_profiles %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting profiles: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM musician_profiles
		%s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`, profileColumns, whereClause, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}

	return &SearchResult{
		Profiles: profiles,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}, nil
}
