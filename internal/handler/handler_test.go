package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/auth"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/hub"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("handler-test-secret")

type apiEnv struct {
	router *gin.Engine
	events *repo.MemoryEventRepository
	socket *SocketHandler
	hub    *hub.Hub
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	identities := repo.NewMemoryIdentityStore()
	messages := repo.NewMemoryMessageRepository()
	events := repo.NewMemoryEventRepository()
	gateway := fanout.NewGateway(fanout.NewMemoryTransport(), time.Second, logger)

	connections := service.NewConnectionService(identities, identities, logger)
	messaging := service.NewMessagingService(connections,
		service.NewMessageStore(messages, nil, logger),
		service.NewConversationService(messages, identities, logger),
		events, gateway, logger)
	h := hub.NewHub(gateway, messaging, nil, logger)
	t.Cleanup(h.Stop)

	authn := NewAuthenticator(testSecret, identities, logger)
	conns := NewConnectionHandler(connections, logger)
	msgs := NewMessageHandler(messaging, logger)

	r := gin.New()
	api := r.Group("/api", authn.Middleware())
	api.POST("/connection/request", conns.Request)
	api.POST("/connection/accept", conns.Accept)
	api.POST("/connection/reject", conns.Reject)
	api.POST("/connection/remove", conns.Remove)
	api.GET("/connection/status", conns.Status)
	api.GET("/connection/list", conns.List)
	api.GET("/connection/requests", conns.Requests)
	api.POST("/event/:eventId/message", msgs.SendEventMessage)
	api.GET("/event/:eventId/history", msgs.EventHistory)
	api.POST("/direct/:userId/message", msgs.SendDirectMessage)
	api.GET("/direct/:userId/history", msgs.DirectHistory)
	api.GET("/conversations", msgs.Conversations)
	api.GET("/monitor/stats", NewMonitorHandler(hub.NewMonitorService(h)).GetHubStats)

	env := &apiEnv{
		router: r,
		events: events,
		socket: NewSocketHandler(authn, messaging, h, logger),
		hub:    h,
	}
	// First authenticated request creates the user record.
	for _, id := range []string{"alice", "bob", "carol"} {
		env.call(t, id, http.MethodGet, "/api/connection/list", nil)
	}
	return env
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, model.Identity{ID: userID, DisplayName: strings.ToUpper(userID[:1]) + userID[1:]}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) call(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[errorResponse](t, w).Error
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	env := newAPIEnv(t)

	w := env.call(t, "", http.MethodGet, "/api/connection/list", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthenticated", errorOf(t, w))

	req := httptest.NewRequest(http.MethodGet, "/api/connection/list", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_QueryTokenFallback(t *testing.T) {
	env := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/connection/list?token="+token(t, "alice"), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConnectionFlow(t *testing.T) {
	env := newAPIEnv(t)

	w := env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{"targetId": "bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{"targetId": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DuplicateRequest", errorOf(t, w))

	w = env.call(t, "bob", http.MethodPost, "/api/connection/request", gin.H{"targetId": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ReciprocalRequestExists", errorOf(t, w))

	w = env.call(t, "bob", http.MethodGet, "/api/connection/status?with=alice", nil)
	assert.Equal(t, "pendingIncoming", decode[map[string]string](t, w)["status"])

	w = env.call(t, "bob", http.MethodGet, "/api/connection/requests", nil)
	reqs := decode[map[string][]model.ConnectionRequest](t, w)["requests"]
	require.Len(t, reqs, 1)
	assert.Equal(t, "alice", reqs[0].From)

	w = env.call(t, "bob", http.MethodPost, "/api/connection/accept", gin.H{"requesterId": "alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.call(t, "alice", http.MethodGet, "/api/connection/list", nil)
	conns := decode[map[string][]model.UserSummary](t, w)["connections"]
	require.Len(t, conns, 1)
	assert.Equal(t, "bob", conns[0].ID)

	w = env.call(t, "bob", http.MethodPost, "/api/connection/accept", gin.H{"requesterId": "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RequestNotFound", errorOf(t, w))

	w = env.call(t, "alice", http.MethodPost, "/api/connection/remove", gin.H{"otherId": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.call(t, "alice", http.MethodPost, "/api/connection/remove", gin.H{"otherId": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.call(t, "alice", http.MethodGet, "/api/connection/status?with=bob", nil)
	assert.Equal(t, "none", decode[map[string]string](t, w)["status"])
}

func TestConnection_Validation(t *testing.T) {
	env := newAPIEnv(t)

	w := env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MissingID", errorOf(t, w))

	w = env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{"targetId": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SelfConnection", errorOf(t, w))

	w = env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{"targetId": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UserNotFound", errorOf(t, w))

	w = env.call(t, "alice", http.MethodPost, "/api/connection/reject", gin.H{"requesterId": "carol"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventMessages(t *testing.T) {
	env := newAPIEnv(t)
	env.events.AddAttendees("ev1", "alice", "bob")

	w := env.call(t, "carol", http.MethodPost, "/api/event/ev1/message", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NotAttendee", errorOf(t, w))

	w = env.call(t, "alice", http.MethodPost, "/api/event/ev1/message", gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EmptyContent", errorOf(t, w))

	for _, content := range []string{"one", "two", "three"} {
		w = env.call(t, "alice", http.MethodPost, "/api/event/ev1/message", gin.H{"content": content})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	sent := decode[model.EventMessage](t, w)
	assert.Equal(t, "Alice", sent.SenderName)

	w = env.call(t, "bob", http.MethodGet, "/api/event/ev1/history", nil)
	msgs := decode[map[string][]model.EventMessage](t, w)["messages"]
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)

	w = env.call(t, "bob", http.MethodGet, "/api/event/ev1/history?limit=2", nil)
	msgs = decode[map[string][]model.EventMessage](t, w)["messages"]
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)

	w = env.call(t, "bob", http.MethodGet, "/api/event/ev1/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.call(t, "carol", http.MethodGet, "/api/event/ev1/history", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDirectMessagesAndConversations(t *testing.T) {
	env := newAPIEnv(t)

	w := env.call(t, "alice", http.MethodPost, "/api/direct/bob/message", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NotConnected", errorOf(t, w))

	env.call(t, "alice", http.MethodPost, "/api/connection/request", gin.H{"targetId": "bob"})
	env.call(t, "bob", http.MethodPost, "/api/connection/accept", gin.H{"requesterId": "alice"})

	w = env.call(t, "alice", http.MethodPost, "/api/direct/bob/message", gin.H{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.call(t, "alice", http.MethodPost, "/api/direct/bob/message", gin.H{"content": "you there?"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.call(t, "bob", http.MethodGet, "/api/conversations", nil)
	convs := decode[map[string][]model.ConversationSummary](t, w)["conversations"]
	require.Len(t, convs, 1)
	assert.Equal(t, "alice", convs[0].CounterpartID)
	assert.Equal(t, "Alice", convs[0].CounterpartName)
	assert.Equal(t, "you there?", convs[0].LastMessage)
	assert.Equal(t, 2, convs[0].UnreadCount)

	w = env.call(t, "bob", http.MethodGet, "/api/direct/alice/history", nil)
	msgs := decode[map[string][]model.DirectMessage](t, w)["messages"]
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi bob", msgs[0].Content)

	w = env.call(t, "bob", http.MethodGet, "/api/conversations", nil)
	convs = decode[map[string][]model.ConversationSummary](t, w)["conversations"]
	assert.Zero(t, convs[0].UnreadCount)

	w = env.call(t, "carol", http.MethodGet, "/api/conversations", nil)
	assert.Empty(t, decode[map[string][]model.ConversationSummary](t, w)["conversations"])
}

func TestMonitorStats(t *testing.T) {
	env := newAPIEnv(t)
	w := env.call(t, "alice", http.MethodGet, "/api/monitor/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.MonitorResponse](t, w)
	assert.Zero(t, stats.Connections.TotalConnected)
}

func TestSocketHandler_RefusesBeforeUpgrade(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.socket)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?room=event:ev1", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?room=event:ev1&token="+token(t, "alice"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?room=bogus&token="+token(t, "alice"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSocketHandler_JoinsAuthorizedRoom(t *testing.T) {
	env := newAPIEnv(t)
	env.events.AddAttendees("ev1", "alice", "bob")
	srv := httptest.NewServer(env.socket)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?room=event:ev1&token="+token(t, "bob"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return env.hub.RoomCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := env.call(t, "alice", http.MethodPost, "/api/event/ev1/message", gin.H{"content": "hello room"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev event.WsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, event.EventEventMessage, ev.Event)
	assert.Equal(t, "event:ev1", ev.Room)

	var msg model.EventMessage
	require.NoError(t, json.Unmarshal(ev.Message, &msg))
	assert.Equal(t, "hello room", msg.Content)
}
