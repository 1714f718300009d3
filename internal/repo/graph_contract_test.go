package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runGraphContract exercises a ConnectionRepository backend. Users "alice",
// "bob" and "carol" must already exist in whatever the backend needs.
func runGraphContract(t *testing.T, newRepo func(t *testing.T) ConnectionRepository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("request then accept", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.CreateRequest(ctx, "alice", "bob", now))
		assertStatus(t, r, "alice", "bob", model.StatusPendingOutgoing)
		assertStatus(t, r, "bob", "alice", model.StatusPendingIncoming)

		reqs, err := r.ListRequests(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, "alice", reqs[0].From)

		require.NoError(t, r.AcceptRequest(ctx, "bob", "alice"))
		assertStatus(t, r, "alice", "bob", model.StatusConnected)
		assertStatus(t, r, "bob", "alice", model.StatusConnected)

		conns, err := r.ListConnections(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, conns)

		reqs, err = r.ListRequests(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("duplicate and reciprocal requests are rejected", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.CreateRequest(ctx, "alice", "bob", now))
		assert.ErrorIs(t, r.CreateRequest(ctx, "alice", "bob", now), apperr.ErrDuplicateRequest)
		assert.ErrorIs(t, r.CreateRequest(ctx, "bob", "alice", now), apperr.ErrReciprocalRequestExists)

		reqs, err := r.ListRequests(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, reqs, 1)
	})

	t.Run("request to a connected user", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.CreateRequest(ctx, "alice", "bob", now))
		require.NoError(t, r.AcceptRequest(ctx, "bob", "alice"))
		assert.ErrorIs(t, r.CreateRequest(ctx, "bob", "alice", now), apperr.ErrAlreadyConnected)
		assert.ErrorIs(t, r.CreateRequest(ctx, "alice", "bob", now), apperr.ErrAlreadyConnected)
	})

	t.Run("accept and reject need a pending request", func(t *testing.T) {
		r := newRepo(t)

		assert.ErrorIs(t, r.AcceptRequest(ctx, "bob", "alice"), apperr.ErrRequestNotFound)
		assert.ErrorIs(t, r.DeleteRequest(ctx, "bob", "alice"), apperr.ErrRequestNotFound)

		require.NoError(t, r.CreateRequest(ctx, "alice", "bob", now))
		// Only the receiver can accept.
		assert.ErrorIs(t, r.AcceptRequest(ctx, "alice", "bob"), apperr.ErrRequestNotFound)

		require.NoError(t, r.DeleteRequest(ctx, "bob", "alice"))
		assertStatus(t, r, "alice", "bob", model.StatusNone)
		assert.ErrorIs(t, r.AcceptRequest(ctx, "bob", "alice"), apperr.ErrRequestNotFound)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.CreateRequest(ctx, "alice", "carol", now))
		require.NoError(t, r.AcceptRequest(ctx, "carol", "alice"))

		require.NoError(t, r.DeleteConnection(ctx, "carol", "alice"))
		assertStatus(t, r, "alice", "carol", model.StatusNone)
		require.NoError(t, r.DeleteConnection(ctx, "carol", "alice"))

		// The pair can start over.
		require.NoError(t, r.CreateRequest(ctx, "carol", "alice", now))
		assertStatus(t, r, "alice", "carol", model.StatusPendingIncoming)
	})

	t.Run("concurrent duplicate requests persist once", func(t *testing.T) {
		r := newRepo(t)

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = r.CreateRequest(ctx, "alice", "bob", now)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)
		}
		assert.Equal(t, 1, succeeded)

		reqs, err := r.ListRequests(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, reqs, 1)
	})

	t.Run("concurrent accepts connect once", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.CreateRequest(ctx, "alice", "bob", now))

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = r.AcceptRequest(ctx, "bob", "alice")
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrRequestNotFound)
		}
		assert.Equal(t, 1, succeeded)

		assertStatus(t, r, "alice", "bob", model.StatusConnected)
		got, err := r.ListConnections(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, got)
		got, err = r.ListConnections(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, got)
		reqs, err := r.ListRequests(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("connections list sorted", func(t *testing.T) {
		r := newRepo(t)
		for _, other := range []string{"carol", "bob"} {
			require.NoError(t, r.CreateRequest(ctx, "alice", other, now))
			require.NoError(t, r.AcceptRequest(ctx, other, "alice"))
		}

		got, err := r.ListConnections(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "carol"}, got)
	})

	t.Run("crossing requests leave one pending direction", func(t *testing.T) {
		r := newRepo(t)

		var wg sync.WaitGroup
		var errAB, errBA error
		wg.Add(2)
		go func() { defer wg.Done(); errAB = r.CreateRequest(ctx, "alice", "bob", now) }()
		go func() { defer wg.Done(); errBA = r.CreateRequest(ctx, "bob", "alice", now) }()
		wg.Wait()

		if errAB == nil {
			assert.ErrorIs(t, errBA, apperr.ErrReciprocalRequestExists)
			assertStatus(t, r, "alice", "bob", model.StatusPendingOutgoing)
		} else {
			assert.NoError(t, errBA)
			assert.ErrorIs(t, errAB, apperr.ErrReciprocalRequestExists)
			assertStatus(t, r, "alice", "bob", model.StatusPendingIncoming)
		}
	})
}

func assertStatus(t *testing.T, r ConnectionRepository, a, b string, want model.ConnectionStatus) {
	t.Helper()
	got, err := r.Status(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, want, got, "status(%s, %s)", a, b)
}

func seedIdentities(t *testing.T, store IdentityStore) {
	t.Helper()
	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := store.EnsureUser(context.Background(), model.Identity{
			ID:          id,
			DisplayName: id,
			Email:       id + "@example.com",
			Username:    id,
		})
		require.NoError(t, err)
	}
}
