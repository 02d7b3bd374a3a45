package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ProfileRepository struct {
	db *sqlx.DB
}

type profileRow struct {
	ID        string         `db:"id"`
	FullName  string         `db:"full_name"`
	Username  sql.NullString `db:"username"`
	AvatarURL string         `db:"avatar_url"`
	Email     string         `db:"email"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        r.ID,
		FullName:  r.FullName,
		Username:  r.Username.String,
		AvatarURL: r.AvatarURL,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const q = `
		SELECT id, full_name, username, avatar_url, email, created_at, updated_at
		FROM profiles
		WHERE id = $1`
	var row profileRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, mapError("ProfileRepository.GetByID", err)
	}
	return row.toDomain(), nil
}

// Upsert writes the editable fields. An empty email keeps the stored one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	const q = `
		INSERT INTO profiles (id, full_name, username, avatar_url, email, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			full_name  = EXCLUDED.full_name,
			username   = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			email      = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.FullName, p.Username, p.AvatarURL, p.Email, p.CreatedAt, p.UpdatedAt)
	return mapError("ProfileRepository.Upsert", err)
}

func (r *ProfileRepository) EnsureExists(ctx context.Context, id, email string) error {
	const q = `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, id, email)
	return mapError("ProfileRepository.EnsureExists", err)
}
