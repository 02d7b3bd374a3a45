package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"go.uber.org/zap"
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// storeGuard bounds store calls with a timeout and turns infrastructure
// failures into ErrUnavailable or ErrUnknown. Domain errors pass through.
type storeGuard struct {
	timeout time.Duration
	logger  *logger.Logger
}

func newStoreGuard(timeout time.Duration, log *logger.Logger) storeGuard {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return storeGuard{timeout: timeout, logger: log}
}

func (g storeGuard) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, g.timeout)
}

// fail classifies err from operation op on entityID.
func (g storeGuard) fail(op, entityID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrConversationExists):
		return err
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		g.logger.Warn("Store unavailable", zap.String("operation", op), zap.String("entity_id", entityID), zap.Error(err))
		return fmt.Errorf("%w: %s", domain.ErrUnavailable, op)
	default:
		g.logger.Error("Store operation failed", zap.String("operation", op), zap.String("entity_id", entityID), zap.Error(err))
		return fmt.Errorf("%w: %s", domain.ErrUnknown, op)
	}
}

// publish emits an event; failures are logged and never fail the operation.
func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, subject string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, data); err != nil {
		log.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
