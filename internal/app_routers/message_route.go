package approuters

import (
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"

	"github.com/gin-gonic/gin"
)

func MessageRouters(api *gin.RouterGroup, container *configuration.Container) {
	h := container.MessageHandler

	eventRoute := api.Group("/event/:eventId")
	{
		eventRoute.POST("/message", h.SendEventMessage)
		eventRoute.GET("/history", h.EventHistory)
	}

	directRoute := api.Group("/direct/:userId")
	{
		directRoute.POST("/message", h.SendDirectMessage)
		directRoute.GET("/history", h.DirectHistory)
	}

	api.GET("/conversations", h.Conversations)
}
