package handler

import (
	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError answers with the condition name and the status of its class.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperr.From(err)
	status := appErr.Code.HTTPStatus()
	if status >= 500 {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("condition", appErr.Condition),
			zap.Error(err),
		)
	}
	c.JSON(status, errorResponse{Error: appErr.Condition, Message: appErr.Message})
}
