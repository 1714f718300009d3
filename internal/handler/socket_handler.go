package handler

import (
	"encoding/json"
	"net/http"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/hub"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"go.uber.org/zap"
)

// SocketHandler authenticates, authorizes the requested room and only then
// upgrades. A refused join never opens a socket.
type SocketHandler struct {
	auth      *Authenticator
	messaging service.MessagingService
	hub       *hub.Hub
	logger    *zap.Logger
}

func NewSocketHandler(auth *Authenticator, messaging service.MessagingService, h *hub.Hub, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{auth: auth, messaging: messaging, hub: h, logger: logger}
}

func (s *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		s.refuse(w, err)
		return
	}
	roomKey := r.URL.Query().Get("room")
	if roomKey == "" {
		s.refuse(w, apperr.ErrInvalidRoom)
		return
	}
	room, err := s.messaging.AuthorizeRoom(r.Context(), identity.ID, roomKey)
	if err != nil {
		s.refuse(w, err)
		return
	}
	s.hub.ServeWS(w, r, identity, room.Key())
}

func (s *SocketHandler) refuse(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	s.logger.Debug("socket join refused", zap.String("condition", appErr.Condition), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorResponse{Error: appErr.Condition, Message: appErr.Message})
}
