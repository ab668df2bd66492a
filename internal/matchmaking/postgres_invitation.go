package matchmaking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInvitationRepository implements InvitationRepository using pgxpool.
type PostgresInvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository backed by the given connection pool.
func NewInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &PostgresInvitationRepository{pool: pool}
}

const invitationColumns = `i.id, i.band_id, b.name, i.profile_id, p.display_name, p.user_id,
	i.instrument, i.message, i.status, i.created_at, i.responded_at`

const invitationFrom = `FROM band_invitations i
	JOIN bands b ON b.id = i.band_id
	JOIN musician_profiles p ON p.id = i.profile_id`

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(
		&inv.ID, &inv.BandID, &inv.BandName, &inv.ProfileID, &inv.ProfileName, &inv.ProfileUserID,
		&inv.Instrument, &inv.Message, &inv.Status, &inv.CreatedAt, &inv.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("scanning invitation row: %w", err)
	}
	return &inv, nil
}

// Create inserts a pending invitation.
func (r *PostgresInvitationRepository) Create(ctx context.Context, inv *Invitation) error {
	query := `
		INSERT INTO band_invitations (band_id, profile_id, instrument, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, inv.BandID, inv.ProfileID, inv.Instrument, inv.Message).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicateInvitation
			case "23503":
				return ErrProfileNotFound
			}
		}
		return fmt.Errorf("inserting invitation: %w", err)
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching created invitation: %w", err)
	}
	*inv = *created
	return nil
}

// GetByID retrieves an invitation with band and profile names.
func (r *PostgresInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.id = $1`, invitationColumns, invitationFrom)
	return scanInvitation(r.pool.QueryRow(ctx, query, id))
}

// ListForProfile retrieves invitations received by a profile, newest first.
func (r *PostgresInvitationRepository) ListForProfile(ctx context.Context, profileID uuid.UUID) ([]Invitation, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.profile_id = $1 ORDER BY i.created_at DESC`, invitationColumns, invitationFrom)
	return r.list(ctx, query, profileID)
}

// ListForBand retrieves invitations sent by a band, newest first.
func (r *PostgresInvitationRepository) ListForBand(ctx context.Context, bandID uuid.UUID) ([]Invitation, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.band_id = $1 ORDER BY i.created_at DESC`, invitationColumns, invitationFrom)
	return r.list(ctx, query, bandID)
}

func (r *PostgresInvitationRepository) list(ctx context.Context, query string, arg any) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	invitations := []Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invitation rows: %w", err)
	}
	return invitations, nil
}

// Respond transitions a pending invitation. Accepting inserts a band member row
// for the musician in the same transaction.
func (r *PostgresInvitationRepository) Respond(ctx context.Context, id uuid.UUID, status string) (*Invitation, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var bandID, profileID uuid.UUID
		var instrument string
		err := tx.QueryRow(ctx, `
			UPDATE band_invitations
			SET status = $1, responded_at = NOW()
			WHERE id = $2 AND status = 'pending'
			RETURNING band_id, profile_id, instrument`, status, id,
		).Scan(&bandID, &profileID, &instrument)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				var exists bool
				if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM band_invitations WHERE id = $1)", id).Scan(&exists); err != nil {
					return fmt.Errorf("checking invitation existence: %w", err)
				}
				if !exists {
					return ErrInvitationNotFound
				}
				return ErrInvitationClosed
			}
			return fmt.Errorf("updating invitation: %w", err)
		}

		if status != InvitationAccepted {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO band_members (band_id, user_id, name, instrument)
			SELECT $1, p.user_id, p.display_name,
			       COALESCE(NULLIF($3, ''), p.instruments[1], '')
			FROM musician_profiles p
			WHERE p.id = $2`, bandID, profileID, instrument)
		if err != nil {
			return fmt.Errorf("adding band member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}
