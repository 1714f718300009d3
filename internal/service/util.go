package service

import (
	"context"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
)

const (
	serviceRetries    = 3
	serviceRetryDelay = 50 * time.Millisecond
)

// retryTransient reruns fn while it fails with a retryable condition. Only
// idempotent operations may go through here.
func retryTransient(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < serviceRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(time.Duration(attempt) * serviceRetryDelay):
			}
		}
		if err = fn(); err == nil || !apperr.IsRetryable(err) {
			return err
		}
	}
	return err
}
