package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ListingRepository struct {
	db *sqlx.DB
}

const listingColumns = `id, owner_id, title, description, price, currency, category,
	quartier, arrondissement, phone, images, is_guest, created_at, updated_at`

type listingRow struct {
	ID             string         `db:"id"`
	OwnerID        sql.NullString `db:"owner_id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	Price          int64          `db:"price"`
	Currency       string         `db:"currency"`
	Category       string         `db:"category"`
	Quartier       string         `db:"quartier"`
	Arrondissement string         `db:"arrondissement"`
	Phone          string         `db:"phone"`
	Images         pq.StringArray `db:"images"`
	IsGuest        bool           `db:"is_guest"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r listingRow) toDomain() *domain.Listing {
	images := []string(r.Images)
	if images == nil {
		images = []string{}
	}
	return &domain.Listing{
		ID:             r.ID,
		OwnerID:        r.OwnerID.String,
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		Currency:       r.Currency,
		Category:       domain.Category(r.Category),
		Quartier:       r.Quartier,
		Arrondissement: r.Arrondissement,
		Phone:          r.Phone,
		Images:         images,
		IsGuest:        r.IsGuest,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	const q = `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.Currency, string(l.Category),
		l.Quartier, l.Arrondissement, l.Phone, pq.StringArray(l.Images), l.IsGuest, l.CreatedAt, l.UpdatedAt,
	)
	return mapError("ListingRepository.Create", err)
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND deleted_at IS NULL`
	var row listingRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, mapError("ListingRepository.GetByID", err)
	}
	return row.toDomain(), nil
}

// searchWhere builds the WHERE clause shared by the page and count queries.
// Removed listings never match.
func searchWhere(f domain.ListingFilter) (string, []interface{}) {
	var (
		clauses = []string{"deleted_at IS NULL"}
		args    []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Quartier != "" {
		add("lower(quartier) = lower($%d)", f.Quartier)
	}
	if f.Arrondissement != "" {
		add("lower(arrondissement) = lower($%d)", f.Arrondissement)
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *ListingRepository) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, int64, error) {
	where, args := searchWhere(f)

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings`+where, args...); err != nil {
		return nil, 0, mapError("ListingRepository.Search.Count", err)
	}

	n := len(args)
	q := `SELECT ` + listingColumns + ` FROM listings` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, f.Limit, f.Offset())

	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, mapError("ListingRepository.Search", err)
	}
	listings := make([]*domain.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, row.toDomain())
	}
	return listings, total, nil
}

// Update rewrites the editable details. Only the owner's non-guest row matches.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	const q = `
		UPDATE listings SET
			title = $3, description = $4, price = $5, currency = $6, category = $7,
			quartier = $8, arrondissement = $9, phone = $10, updated_at = $11
		WHERE id = $1 AND owner_id = $2 AND NOT is_guest AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.Currency, string(l.Category),
		l.Quartier, l.Arrondissement, l.Phone, l.UpdatedAt,
	)
	return affectedOne("ListingRepository.Update", res, err)
}

// Delete marks the listing removed. Its conversations and reviews keep
// pointing at the row.
func (r *ListingRepository) Delete(ctx context.Context, id, ownerID string) error {
	const q = `
		UPDATE listings SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND NOT is_guest AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	return affectedOne("ListingRepository.Delete", res, err)
}

func (r *ListingRepository) AppendImage(ctx context.Context, id, ownerID, url string) error {
	const q = `
		UPDATE listings SET images = array_append(images, $3), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND NOT is_guest AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, ownerID, url)
	return affectedOne("ListingRepository.AppendImage", res, err)
}

// affectedOne turns a filtered write that matched no row into ErrNotFound.
func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
