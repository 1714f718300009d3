package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWithRetry_RetriesTransientOnly(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return apperr.ErrRequestNotFound
	})
	assert.ErrorIs(t, err, apperr.ErrRequestNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustedIsUnavailable(t *testing.T) {
	err := withRetry(context.Background(), zap.NewNop(), "op", func(ctx context.Context) error {
		return driver.ErrBadConn
	})
	assert.True(t, apperr.IsRetryable(err))
	assert.ErrorIs(t, err, driver.ErrBadConn)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(classify("op", context.DeadlineExceeded)))
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(classify("op", errors.New("boom"))))
	assert.ErrorIs(t, classify("op", apperr.ErrAlreadyConnected), apperr.ErrAlreadyConnected)
}

func TestIsTransientSQLState(t *testing.T) {
	assert.True(t, isTransientSQLState("40001"))
	assert.True(t, isTransientSQLState("08006"))
	assert.True(t, isTransientSQLState("57P01"))
	assert.False(t, isTransientSQLState("23505"))
}
