package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ConversationRepository struct {
	db *sqlx.DB
}

type conversationRow struct {
	ID           string    `db:"id"`
	ListingID    string    `db:"listing_id"`
	ParticipantA string    `db:"participant_a"`
	ParticipantB string    `db:"participant_b"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r conversationRow) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:           r.ID,
		ListingID:    r.ListingID,
		ParticipantA: r.ParticipantA,
		ParticipantB: r.ParticipantB,
		CreatedAt:    r.CreatedAt,
	}
}

// Create inserts c. The unique (listing_id, participant_a, participant_b)
// constraint reports a concurrent first contact as ErrConversationExists.
func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	const q = `
		INSERT INTO conversations (id, listing_id, participant_a, participant_b, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.ListingID, c.ParticipantA, c.ParticipantB, c.CreatedAt)
	return mapError("ConversationRepository.Create", err)
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const q = `
		SELECT id, listing_id, participant_a, participant_b, created_at
		FROM conversations
		WHERE id = $1`
	var row conversationRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, mapError("ConversationRepository.GetByID", err)
	}
	return row.toDomain(), nil
}

func (r *ConversationRepository) FindByPair(ctx context.Context, listingID, a, b string) (*domain.Conversation, error) {
	const q = `
		SELECT id, listing_id, participant_a, participant_b, created_at
		FROM conversations
		WHERE listing_id = $1 AND participant_a = $2 AND participant_b = $3`
	var row conversationRow
	if err := r.db.GetContext(ctx, &row, q, listingID, a, b); err != nil {
		return nil, mapError("ConversationRepository.FindByPair", err)
	}
	return row.toDomain(), nil
}

type summaryRow struct {
	ID             string         `db:"id"`
	ListingID      string         `db:"listing_id"`
	ParticipantA   string         `db:"participant_a"`
	ParticipantB   string         `db:"participant_b"`
	CreatedAt      time.Time      `db:"created_at"`
	OtherID        string         `db:"other_id"`
	OtherFullName  string         `db:"other_full_name"`
	OtherUsername  sql.NullString `db:"other_username"`
	OtherAvatarURL string         `db:"other_avatar_url"`
	ListingTitle   string         `db:"listing_title"`
	ListingPrice   int64          `db:"listing_price"`
	ListingCurr    string         `db:"listing_currency"`
	ListingCover   string         `db:"listing_cover"`
	ListingRemoved bool           `db:"listing_removed"`
	LastSenderID   sql.NullString `db:"last_sender_id"`
	LastBody       sql.NullString `db:"last_body"`
	LastCreatedAt  sql.NullTime   `db:"last_created_at"`
}

// ListSummaries returns userID's conversations with the counterpart profile,
// a listing preview and the last message, most recent activity first.
func (r *ConversationRepository) ListSummaries(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	const q = `
		SELECT
			c.id, c.listing_id, c.participant_a, c.participant_b, c.created_at,
			p.id AS other_id, p.full_name AS other_full_name, p.username AS other_username,
			p.avatar_url AS other_avatar_url,
			l.title AS listing_title, l.price AS listing_price, l.currency AS listing_currency,
			COALESCE(l.images[1], '') AS listing_cover,
			l.deleted_at IS NOT NULL AS listing_removed,
			m.sender_id AS last_sender_id, m.body AS last_body, m.created_at AS last_created_at
		FROM conversations c
		JOIN listings l ON l.id = c.listing_id
		JOIN profiles p ON p.id = CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END
		LEFT JOIN LATERAL (
			SELECT sender_id, body, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY seq DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC`

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, mapError("ConversationRepository.ListSummaries", err)
	}

	out := make([]*domain.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		sum := &domain.ConversationSummary{
			Conversation: domain.Conversation{
				ID:           row.ID,
				ListingID:    row.ListingID,
				ParticipantA: row.ParticipantA,
				ParticipantB: row.ParticipantB,
				CreatedAt:    row.CreatedAt,
			},
			Other: domain.Profile{
				ID:        row.OtherID,
				FullName:  row.OtherFullName,
				Username:  row.OtherUsername.String,
				AvatarURL: row.OtherAvatarURL,
			},
			Listing: domain.ListingPreview{
				ID:         row.ListingID,
				Title:      row.ListingTitle,
				Price:      row.ListingPrice,
				Currency:   row.ListingCurr,
				CoverImage: row.ListingCover,
				Removed:    row.ListingRemoved,
			},
		}
		if row.LastCreatedAt.Valid {
			sum.LastMessage = &domain.MessagePreview{
				SenderID:  row.LastSenderID.String,
				Body:      row.LastBody.String,
				CreatedAt: row.LastCreatedAt.Time,
			}
		}
		out = append(out, sum)
	}
	return out, nil
}
