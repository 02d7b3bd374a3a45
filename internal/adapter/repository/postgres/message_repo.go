package postgres

import (
	"context"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/jmoiron/sqlx"
)

type MessageRepository struct {
	db *sqlx.DB
}

type messageRow struct {
	Seq            int64     `db:"seq"`
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}

// Append inserts m and sets m.Seq from the sequence, which orders the log.
// The conversation row stays locked until commit, so appends to one
// conversation draw and commit their seq in the same order and a reader
// paging with after_seq cannot skip a late commit.
func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("MessageRepository.Append.Begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, m.ConversationID); err != nil {
		return mapError("MessageRepository.Append.Lock", err)
	}

	const q = `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq`
	if err = tx.QueryRowxContext(ctx, q, m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt).Scan(&m.Seq); err != nil {
		return mapError("MessageRepository.Append", err)
	}
	if err = tx.Commit(); err != nil {
		return mapError("MessageRepository.Append.Commit", err)
	}
	return nil
}

// List returns messages after f.AfterSeq in ascending seq order. A zero
// limit returns the rest of the log.
func (r *MessageRepository) List(ctx context.Context, conversationID string, f domain.MessageFilter) ([]*domain.Message, error) {
	const q = `
		SELECT seq, id, conversation_id, sender_id, body, created_at
		FROM messages
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT NULLIF($3::int, 0)`
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, q, conversationID, f.AfterSeq, f.Limit); err != nil {
		return nil, mapError("MessageRepository.List", err)
	}
	msgs := make([]*domain.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, &domain.Message{
			ID:             row.ID,
			Seq:            row.Seq,
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			Body:           row.Body,
			CreatedAt:      row.CreatedAt,
		})
	}
	return msgs, nil
}
