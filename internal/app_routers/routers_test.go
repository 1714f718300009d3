package approuters

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/auth"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *configuration.Container {
	t.Helper()
	c, err := configuration.BuildContainer(&configuration.Config{
		Graph:  configuration.BackendConfig{Backend: configuration.BackendMemory},
		Store:  configuration.BackendConfig{Backend: configuration.BackendMemory},
		Auth:   configuration.AuthConfig{JwtSecret: "router-secret"},
		Server: configuration.ServerConfig{SocketRoute: "ws", AllowedOrigins: []string{"http://localhost:4200"}},
		Logger: configuration.LoggerConfig{Development: true, Level: "error"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewRouter_Routes(t *testing.T) {
	c := newContainer(t)
	router := NewRouter(c)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := auth.IssueToken([]byte("router-secret"), model.Identity{ID: "alice", DisplayName: "Alice"}, time.Minute)
	require.NoError(t, err)

	for _, path := range []string{"/api/conversations", "/api/connection/list", "/api/connection/requests", "/api/monitor/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/direct/bob/message", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NotConnected", body["error"])
}

func TestSocketServer_RefusesWithoutToken(t *testing.T) {
	c := newContainer(t)
	srv := httptest.NewServer(createSocketServer(c).Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ws?room=event:e1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
