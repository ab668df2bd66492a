// Package admin provides platform-wide aggregates for the admin dashboard.
package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counts holds row counts across the platform.
type Counts struct {
	Users              int
	Fans               int
	Artists            int
	Admins             int
	Bands              int
	PublishedBands     int
	Profiles           int
	OpenInvitations    int
	Collectibles       int
	Courses            int
	PublishedCourses   int
	OpenSupport        int
	EscalatedSupport   int
	PendingWithdrawals int
	Vaults             int
}

// StatsRepository computes dashboard counts.
type StatsRepository interface {
	Counts(ctx context.Context) (*Counts, error)
}

// PostgresStatsRepository implements StatsRepository using pgxpool.
type PostgresStatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository backed by the given connection pool.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &PostgresStatsRepository{pool: pool}
}

// Counts gathers every dashboard count in a single round trip.
func (r *PostgresStatsRepository) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role = 'fan'),
			(SELECT COUNT(*) FROM users WHERE role = 'artist'),
			(SELECT COUNT(*) FROM users WHERE role = 'admin'),
			(SELECT COUNT(*) FROM bands),
			(SELECT COUNT(*) FROM bands WHERE published),
			(SELECT COUNT(*) FROM musician_profiles),
			(SELECT COUNT(*) FROM band_invitations WHERE status = 'pending'),
			(SELECT COUNT(*) FROM collectibles),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM courses WHERE published),
			(SELECT COUNT(*) FROM support_sessions WHERE status = 'open'),
			(SELECT COUNT(*) FROM support_sessions WHERE status = 'escalated'),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM vaults)`,
	).Scan(
		&c.Users, &c.Fans, &c.Artists, &c.Admins,
		&c.Bands, &c.PublishedBands, &c.Profiles, &c.OpenInvitations,
		&c.Collectibles, &c.Courses, &c.PublishedCourses,
		&c.OpenSupport, &c.EscalatedSupport, &c.PendingWithdrawals, &c.Vaults,
	)
	if err != nil {
		return nil, fmt.Errorf("counting dashboard stats: %w", err)
	}
	return &c, nil
}
