package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/auth"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

var errUnauthenticated = apperr.Unauthorized("missing or invalid session token")

// Authenticator resolves the caller of a request from its session token and
// keeps the user record in step with the token's profile fields.
type Authenticator struct {
	secret []byte
	users  repo.UserRepository
	logger *zap.Logger
}

func NewAuthenticator(secret []byte, users repo.UserRepository, logger *zap.Logger) *Authenticator {
	return &Authenticator{secret: secret, users: users, logger: logger}
}

// Authenticate reads the bearer header, falling back to the token query
// parameter for websocket clients that cannot set headers.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (model.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return model.Identity{}, errUnauthenticated
	}
	identity, err := auth.ParseToken(a.secret, token)
	if err != nil {
		a.logger.Debug("token rejected", zap.Error(err))
		return model.Identity{}, errUnauthenticated
	}
	if _, err := a.users.EnsureUser(ctx, identity); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

// Middleware aborts unauthenticated requests and stores the identity for
// CurrentIdentity.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			writeError(c, a.logger, err)
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) model.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(model.Identity)
	return identity
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
