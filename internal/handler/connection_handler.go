package handler

import (
	"net/http"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConnectionHandler interface {
	Request(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Remove(c *gin.Context)
	Status(c *gin.Context)
	List(c *gin.Context)
	Requests(c *gin.Context)
}

type connectionHandler struct {
	service service.ConnectionService
	logger  *zap.Logger
}

func NewConnectionHandler(service service.ConnectionService, logger *zap.Logger) ConnectionHandler {
	return &connectionHandler{service: service, logger: logger}
}

type targetRequest struct {
	TargetID string `json:"targetId" binding:"required"`
}

type requesterRequest struct {
	RequesterID string `json:"requesterId" binding:"required"`
}

type otherRequest struct {
	OtherID string `json:"otherId" binding:"required"`
}

func (h *connectionHandler) Request(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrMissingID)
		return
	}
	me := CurrentIdentity(c)
	if err := h.service.RequestConnection(c.Request.Context(), me.ID, req.TargetID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "pendingOutgoing"})
}

func (h *connectionHandler) Accept(c *gin.Context) {
	var req requesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrMissingID)
		return
	}
	me := CurrentIdentity(c)
	if err := h.service.AcceptConnection(c.Request.Context(), me.ID, req.RequesterID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (h *connectionHandler) Reject(c *gin.Context) {
	var req requesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrMissingID)
		return
	}
	me := CurrentIdentity(c)
	if err := h.service.RejectConnection(c.Request.Context(), me.ID, req.RequesterID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "none"})
}

// Remove succeeds whether or not the pair was connected.
func (h *connectionHandler) Remove(c *gin.Context) {
	var req otherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrMissingID)
		return
	}
	me := CurrentIdentity(c)
	if err := h.service.RemoveConnection(c.Request.Context(), me.ID, req.OtherID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "none"})
}

func (h *connectionHandler) Status(c *gin.Context) {
	me := CurrentIdentity(c)
	status, err := h.service.ConnectionStatus(c.Request.Context(), me.ID, c.Query("with"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *connectionHandler) List(c *gin.Context) {
	me := CurrentIdentity(c)
	connections, err := h.service.ListConnections(c.Request.Context(), me.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": connections})
}

func (h *connectionHandler) Requests(c *gin.Context) {
	me := CurrentIdentity(c)
	requests, err := h.service.ListIncomingRequests(c.Request.Context(), me.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
