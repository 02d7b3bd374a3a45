package postgres

import (
	"context"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ReviewRepository struct {
	db *sqlx.DB
}

const reviewColumns = `id, listing_id, reviewer_id, rating, comment, created_at, updated_at`

type reviewRow struct {
	ID         string    `db:"id"`
	ListingID  string    `db:"listing_id"`
	ReviewerID string    `db:"reviewer_id"`
	Rating     int       `db:"rating"`
	Comment    string    `db:"comment"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r reviewRow) toDomain() *domain.Review {
	return &domain.Review{
		ID:         r.ID,
		ListingID:  r.ListingID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	const q = `
		INSERT INTO listing_reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q, rv.ID, rv.ListingID, rv.ReviewerID, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	return mapError("ReviewRepository.Create", err)
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var row reviewRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` FROM listing_reviews WHERE id = $1`, id); err != nil {
		return nil, mapError("ReviewRepository.GetByID", err)
	}
	return row.toDomain(), nil
}

func (r *ReviewRepository) ExistsForReviewer(ctx context.Context, listingID, reviewerID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM listing_reviews WHERE listing_id = $1 AND reviewer_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, listingID, reviewerID); err != nil {
		return false, mapError("ReviewRepository.ExistsForReviewer", err)
	}
	return exists, nil
}

// UpdateByReviewer applies patch to review id only when reviewerID wrote it.
func (r *ReviewRepository) UpdateByReviewer(ctx context.Context, id, reviewerID string, patch domain.ReviewPatch) (*domain.Review, error) {
	const q = `
		UPDATE listing_reviews SET
			rating     = COALESCE($3::smallint, rating),
			comment    = COALESCE($4::text, comment),
			updated_at = now()
		WHERE id = $1 AND reviewer_id = $2
		RETURNING ` + reviewColumns
	var row reviewRow
	if err := r.db.QueryRowxContext(ctx, q, id, reviewerID, patch.Rating, patch.Comment).StructScan(&row); err != nil {
		return nil, mapError("ReviewRepository.UpdateByReviewer", err)
	}
	return row.toDomain(), nil
}

func (r *ReviewRepository) DeleteByReviewer(ctx context.Context, id, reviewerID string) (*domain.Review, error) {
	q := `DELETE FROM listing_reviews WHERE id = $1 AND reviewer_id = $2 RETURNING ` + reviewColumns
	var row reviewRow
	if err := r.db.QueryRowxContext(ctx, q, id, reviewerID).StructScan(&row); err != nil {
		return nil, mapError("ReviewRepository.DeleteByReviewer", err)
	}
	return row.toDomain(), nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID string, page, limit int) ([]*domain.Review, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listing_reviews WHERE listing_id = $1`, listingID); err != nil {
		return nil, 0, mapError("ReviewRepository.ListByListing.Count", err)
	}

	const q = `
		SELECT ` + reviewColumns + `
		FROM listing_reviews
		WHERE listing_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, q, listingID, limit, (page-1)*limit); err != nil {
		return nil, 0, mapError("ReviewRepository.ListByListing", err)
	}
	reviews := make([]*domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toDomain())
	}
	return reviews, total, nil
}

// RatingStats returns the unrounded mean and the number of reviews.
func (r *ReviewRepository) RatingStats(ctx context.Context, listingID string) (float64, int, error) {
	const q = `
		SELECT COALESCE(AVG(rating), 0)::float8 AS mean, COUNT(*) AS count
		FROM listing_reviews
		WHERE listing_id = $1`
	var stats struct {
		Mean  float64 `db:"mean"`
		Count int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &stats, q, listingID); err != nil {
		return 0, 0, mapError("ReviewRepository.RatingStats", err)
	}
	return stats.Mean, stats.Count, nil
}
