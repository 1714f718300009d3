package chatclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	approuters "github.com/priyesh-kurmi/eventhive-sub000/internal/app_routers"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/auth"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "chatclient-secret"

type stack struct {
	api string
	ws  string
}

func newStack(t *testing.T) stack {
	t.Helper()
	c, err := configuration.BuildContainer(&configuration.Config{
		Graph:  configuration.BackendConfig{Backend: configuration.BackendMemory},
		Store:  configuration.BackendConfig{Backend: configuration.BackendMemory},
		Auth:   configuration.AuthConfig{JwtSecret: secret},
		Server: configuration.ServerConfig{SocketRoute: "ws"},
		Logger: configuration.LoggerConfig{Level: "error"},
	})
	require.NoError(t, err)

	api := httptest.NewServer(approuters.NewRouter(c))
	ws := httptest.NewServer(c.SocketHandler)
	t.Cleanup(func() {
		api.Close()
		ws.Close()
		_ = c.Close()
	})
	return stack{api: api.URL, ws: "ws" + strings.TrimPrefix(ws.URL, "http")}
}

func (s stack) client(t *testing.T, userID string) *Client {
	t.Helper()
	tok, err := auth.IssueToken([]byte(secret), model.Identity{ID: userID, DisplayName: userID}, time.Hour)
	require.NoError(t, err)
	c := New(s.api, s.ws, tok)
	// The first call registers the user.
	_, err = c.Connections(context.Background())
	require.NoError(t, err)
	return c
}

func TestClient_ConnectAndMessage(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	alice, bob := s.client(t, "alice"), s.client(t, "bob")

	_, err := alice.SendDirectMessage(ctx, "bob", "hi")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "NotConnected", apiErr.Condition)

	require.NoError(t, alice.RequestConnection(ctx, "bob"))
	reqs, err := bob.IncomingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.NoError(t, bob.AcceptConnection(ctx, "alice"))

	status, err := alice.Status(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConnected, status)

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	got := make(chan event.WsEvent, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- bob.Watch(watchCtx, fanout.DirectRoom("alice", "bob"), func(ev event.WsEvent) {
			select {
			case got <- ev:
			default:
			}
		})
	}()

	// The socket joins asynchronously; resend until the watcher sees one.
	require.Eventually(t, func() bool {
		if _, err := alice.SendDirectMessage(ctx, "bob", "hello"); err != nil {
			return false
		}
		select {
		case ev := <-got:
			return ev.Event == event.EventDirectMessage
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	stop()
	assert.NoError(t, <-watchErr)

	msgs, err := bob.DirectHistory(ctx, "alice", model.Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)

	convs, err := alice.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "bob", convs[0].CounterpartID)

	require.NoError(t, alice.RemoveConnection(ctx, "bob"))
	require.NoError(t, alice.RemoveConnection(ctx, "bob"))
}

func TestClient_WatchRefused(t *testing.T) {
	s := newStack(t)
	carol := s.client(t, "carol")

	err := carol.Watch(context.Background(), fanout.DirectRoom("alice", "bob"), func(event.WsEvent) {})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestPageQuery(t *testing.T) {
	assert.Equal(t, "", pageQuery(model.Page{}))
	assert.Equal(t, "?before=10&limit=5", pageQuery(model.Page{Before: 10, Limit: 5}))
	assert.Equal(t, "?limit=5", pageQuery(model.Page{Limit: 5}))
}
