package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMessageRepository implements MessageRepository using pgxpool.
type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository backed by the given connection pool.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// Send inserts a chat message.
func (r *PostgresMessageRepository) Send(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO chat_messages (sender_id, recipient_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, m.SenderID, m.RecipientID, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrRecipientNotFound
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// Conversation returns up to limit messages exchanged by two users after since, oldest first.
func (r *PostgresMessageRepository) Conversation(ctx context.Context, userID, partnerID uuid.UUID, since time.Time, limit int) ([]Message, error) {
	if limit < 1 || limit > 200 {
		limit = 200
	}

	query := `
		SELECT id, sender_id, recipient_id, body, created_at, read_at
		FROM chat_messages
		WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
		  AND created_at > $3
		ORDER BY created_at ASC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, userID, partnerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// MarkRead marks every unread message from sender to recipient as read.
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat_messages
		SET read_at = NOW()
		WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`, recipientID, senderID)
	if err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}
	return nil
}

// ListConversations returns one entry per chat partner with the latest message
// and the number of unread messages addressed to userID, most recent first.
func (r *PostgresMessageRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	query := `
		WITH partner_messages AS (
			SELECT m.*,
			       CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS partner_id
			FROM chat_messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		), latest AS (
			SELECT DISTINCT ON (partner_id) *
			FROM partner_messages
			ORDER BY partner_id, created_at DESC
		)
		SELECT l.partner_id, u.name, l.id, l.sender_id, l.recipient_id, l.body, l.created_at, l.read_at,
		       (SELECT COUNT(*) FROM partner_messages pm
		        WHERE pm.partner_id = l.partner_id AND pm.recipient_id = $1 AND pm.read_at IS NULL)
		FROM latest l
		JOIN users u ON u.id = l.partner_id
		ORDER BY l.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		err := rows.Scan(
			&c.PartnerID, &c.PartnerName,
			&c.LastMessage.ID, &c.LastMessage.SenderID, &c.LastMessage.RecipientID,
			&c.LastMessage.Body, &c.LastMessage.CreatedAt, &c.LastMessage.ReadAt,
			&c.Unread,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}
