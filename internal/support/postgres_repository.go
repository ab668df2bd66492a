package support

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

const sessionColumns = `id, user_id, subject, status, created_at, updated_at, escalated_at, resolved_at, resolved_by`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Subject, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		&s.EscalatedAt, &s.ResolvedAt, &s.ResolvedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning support session row: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) listSessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing support sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating support session rows: %w", err)
	}
	return sessions, nil
}

// CreateSession inserts a session and its first user message in one transaction.
func (r *PostgresRepository) CreateSession(ctx context.Context, s *Session, firstMessage string) (*Message, error) {
	msg := &Message{Sender: SenderUser, Body: firstMessage}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO support_sessions (user_id, subject)
			VALUES ($1, $2)
			RETURNING `+sessionColumns, s.UserID, s.Subject,
		).Scan(&s.ID, &s.UserID, &s.Subject, &s.Status, &s.CreatedAt, &s.UpdatedAt,
			&s.EscalatedAt, &s.ResolvedAt, &s.ResolvedBy)
		if err != nil {
			return fmt.Errorf("inserting support session: %w", err)
		}

		msg.SessionID = s.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO support_messages (session_id, sender, body)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`, s.ID, msg.Sender, msg.Body,
		).Scan(&msg.ID, &msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting support message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetSession retrieves a session by its UUID.
func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM support_sessions WHERE id = $1`, id))
}

// ListByUser retrieves a user's sessions, most recently active first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return r.listSessions(ctx, `SELECT `+sessionColumns+` FROM support_sessions
		WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
}

// ListEscalated retrieves escalated sessions, longest waiting first.
func (r *PostgresRepository) ListEscalated(ctx context.Context) ([]Session, error) {
	return r.listSessions(ctx, `SELECT `+sessionColumns+` FROM support_sessions
		WHERE status = 'escalated' ORDER BY escalated_at ASC`)
}

// AddMessage appends a message to a session that is not resolved.
func (r *PostgresRepository) AddMessage(ctx context.Context, m *Message) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, "SELECT status FROM support_sessions WHERE id = $1 FOR UPDATE", m.SessionID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("locking support session: %w", err)
		}
		if status == StatusResolved {
			return ErrSessionClosed
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO support_messages (session_id, sender, body)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`, m.SessionID, m.Sender, m.Body,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting support message: %w", err)
		}

		if _, err := tx.Exec(ctx, "UPDATE support_sessions SET updated_at = NOW() WHERE id = $1", m.SessionID); err != nil {
			return fmt.Errorf("touching support session: %w", err)
		}
		return nil
	})
}

// ListMessages retrieves a session's messages, oldest first.
func (r *PostgresRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, sender, body, created_at
		FROM support_messages
		WHERE session_id = $1
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing support messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning support message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating support message rows: %w", err)
	}
	return messages, nil
}

// transition applies a guarded status update and explains a miss.
func (r *PostgresRepository) transition(ctx context.Context, id uuid.UUID, query string, args ...any) (*Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	current, err := r.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusResolved {
		return nil, ErrSessionClosed
	}
	return current, nil
}

// Escalate moves an open session to escalated.
func (r *PostgresRepository) Escalate(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.transition(ctx, id, `
		UPDATE support_sessions
		SET status = 'escalated', escalated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING `+sessionColumns, id)
}

// Resolve closes an open or escalated session.
func (r *PostgresRepository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID) (*Session, error) {
	return r.transition(ctx, id, `
		UPDATE support_sessions
		SET status = 'resolved', resolved_at = NOW(), resolved_by = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'resolved'
		RETURNING `+sessionColumns, id, resolvedBy)
}
