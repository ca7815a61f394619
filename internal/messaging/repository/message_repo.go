package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `
m.id, m.sender_id, s.username, m.recipient_id, r.username, m.project_id, COALESCE(p.title, ''),
m.subject, m.body, m.is_read, m.read_at, m.created_at`

const messageFrom = `
FROM messages m
JOIN users s ON s.id = m.sender_id
JOIN users r ON r.id = m.recipient_id
LEFT JOIN projects p ON p.id = m.project_id`

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.SenderUsername, &m.RecipientID, &m.RecipientUsername, &m.ProjectID, &m.ProjectTitle,
		&m.Subject, &m.Body, &m.IsRead, &m.ReadAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return m, domain.ErrMessageNotFound
	}
	return m, err
}

func (r *MessageRepository) query(ctx context.Context, where, tail string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, "SELECT"+messageColumns+messageFrom+" WHERE "+where+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 20)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) Create(ctx context.Context, m domain.Message) (domain.Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	const q = `
INSERT INTO messages (id, sender_id, recipient_id, project_id, subject, body)
VALUES ($1, $2, $3, $4, $5, $6);`
	if _, err := r.db.Exec(ctx, q, m.ID, m.SenderID, m.RecipientID, m.ProjectID, m.Subject, m.Body); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return r.GetByID(ctx, m.ID)
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	return scanMessage(r.db.QueryRow(ctx, "SELECT"+messageColumns+messageFrom+" WHERE m.id = $1", id))
}

// MarkRead flips an unread message addressed to recipient. It reports
// whether this call made the transition; read_at is set only once.
func (r *MessageRepository) MarkRead(ctx context.Context, id, recipient uuid.UUID) (bool, error) {
	const q = `
UPDATE messages SET is_read = TRUE, read_at = now()
WHERE id = $1 AND recipient_id = $2 AND NOT is_read;`
	tag, err := r.db.Exec(ctx, q, id, recipient)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func inboxCondition(q domain.InboxQuery) string {
	switch q.Filter {
	case domain.FilterSent:
		return "m.sender_id = $1"
	case domain.FilterUnread:
		return "m.recipient_id = $1 AND NOT m.is_read"
	case domain.FilterRead:
		return "m.recipient_id = $1 AND m.is_read"
	}
	return "m.recipient_id = $1"
}

// ListInbox returns one page of the user's messages for the filter, newest
// first, and the total.
func (r *MessageRepository) ListInbox(ctx context.Context, q domain.InboxQuery) ([]domain.Message, int, error) {
	cond := inboxCondition(q)
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages m WHERE "+cond, q.UserID).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	out, err := r.query(ctx, cond, "ORDER BY m.created_at DESC, m.id LIMIT $2 OFFSET $3", q.UserID, limit, q.Offset)
	return out, total, err
}

func (r *MessageRepository) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND NOT is_read;`, recipient).Scan(&n)
	return n, err
}

func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// ListRecentFor returns the latest messages the user sent or received.
func (r *MessageRepository) ListRecentFor(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Message, error) {
	return r.query(ctx, "m.sender_id = $1 OR m.recipient_id = $1", "ORDER BY m.created_at DESC LIMIT $2", userID, limit)
}

func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	return r.query(ctx, "TRUE", "ORDER BY m.created_at DESC LIMIT $1", limit)
}

func (r *MessageRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages;`).Scan(&n)
	return n, err
}
