package handler

import (
	"net/http"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageHandler interface {
	SendEventMessage(c *gin.Context)
	EventHistory(c *gin.Context)
	SendDirectMessage(c *gin.Context)
	DirectHistory(c *gin.Context)
	Conversations(c *gin.Context)
}

type messageHandler struct {
	service service.MessagingService
	logger  *zap.Logger
}

func NewMessageHandler(service service.MessagingService, logger *zap.Logger) MessageHandler {
	return &messageHandler{service: service, logger: logger}
}

type contentRequest struct {
	Content string `json:"content"`
}

var errBadPage = apperr.InvalidArg("InvalidPage", "before and limit must be non-negative integers")

func bindPage(c *gin.Context) (model.Page, error) {
	var page model.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		return model.Page{}, errBadPage
	}
	if page.Before < 0 || page.Limit < 0 {
		return model.Page{}, errBadPage
	}
	return page, nil
}

func (h *messageHandler) SendEventMessage(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrEmptyContent)
		return
	}
	msg, err := h.service.SendEventMessage(c.Request.Context(), CurrentIdentity(c), c.Param("eventId"), req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *messageHandler) EventHistory(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	msgs, err := h.service.EventHistory(c.Request.Context(), CurrentIdentity(c).ID, c.Param("eventId"), page)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.EventMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *messageHandler) SendDirectMessage(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.ErrEmptyContent)
		return
	}
	msg, err := h.service.SendDirectMessage(c.Request.Context(), CurrentIdentity(c), c.Param("userId"), req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// DirectHistory also marks the counterpart's messages to the caller as read.
func (h *messageHandler) DirectHistory(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	msgs, err := h.service.DirectHistory(c.Request.Context(), CurrentIdentity(c).ID, c.Param("userId"), page)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.DirectMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *messageHandler) Conversations(c *gin.Context) {
	convs, err := h.service.Conversations(c.Request.Context(), CurrentIdentity(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
