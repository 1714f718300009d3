package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"

	pkgerrors "github.com/pkg/errors"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidMessage = errors.New("invalid message: message cannot be nil")
	ErrInvalidEventID = errors.New("invalid event ID: cannot be empty")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// isTransient reports driver-level faults worth another attempt.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return isTransientSQLState(pgErr.Field('C'))
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// isTransientSQLState covers serialization failures, deadlocks, connection
// exceptions and operator intervention.
func isTransientSQLState(code string) bool {
	switch {
	case code == "40001", code == "40P01":
		return true
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"):
		return true
	}
	return false
}

// withRetry runs fn up to maxRetries times while it fails transiently.
// Only idempotent operations go through here.
func withRetry(ctx context.Context, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return classify(op, err)
			}
			logger.Warn("retrying store operation",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries),
			)
		}

		lastErr = fn(ctx)
		if lastErr == nil || !isTransient(lastErr) {
			break
		}
	}
	return classify(op, lastErr)
}

// classify turns a driver error into the taxonomy the services understand:
// named conditions pass through, transient faults and timeouts become
// StoreUnavailable, everything else is wrapped with the operation name.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if isTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.ErrStoreUnavailable(pkgerrors.Wrap(err, op))
	}

	return pkgerrors.Wrap(err, op)
}
