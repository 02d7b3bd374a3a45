// Package postgres is the primary store backend: sqlx over lib/pq with the
// schema applied by golang-migrate from embedded migrations.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	constraintConversationPair = "conversations_pair_key"
	constraintOneReview        = "listing_reviews_one_per_reviewer"
	constraintUsername         = "profiles_username_key"
)

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, dsn string, log *logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	log.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrate applies every pending migration. A database already at the latest
// version is not an error.
func Migrate(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	drv, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		drv.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("Database schema is up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// NewStore exposes db through the domain repository interfaces.
func NewStore(db *sqlx.DB) *domain.Store {
	return &domain.Store{
		Profiles:      &ProfileRepository{db: db},
		Listings:      &ListingRepository{db: db},
		Conversations: &ConversationRepository{db: db},
		Messages:      &MessageRepository{db: db},
		Reviews:       &ReviewRepository{db: db},
		Ping:          db.PingContext,
		Close:         db.Close,
	}
}

// mapError translates driver errors into domain errors. Unrecognized errors
// are wrapped with the operation name and left for the caller to classify.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case constraintConversationPair:
				return domain.ErrConversationExists
			case constraintOneReview:
				return domain.ErrDuplicateReview
			case constraintUsername:
				return domain.ErrUsernameTaken
			}
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced entity does not exist", domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Constraint)
		case "53300", "57P01", "57P02", "57P03":
			return fmt.Errorf("%w: %s", domain.ErrUnavailable, pqErr.Message)
		}
		if pqErr.Code.Class() == "08" { // connection_exception
			return fmt.Errorf("%w: %s", domain.ErrUnavailable, pqErr.Message)
		}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
