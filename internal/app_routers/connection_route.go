package approuters

import (
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ConnectionRouters(api *gin.RouterGroup, container *configuration.Container) {
	h := container.ConnectionHandler
	connectionRoute := api.Group("/connection")
	{
		connectionRoute.POST("/request", h.Request)
		connectionRoute.POST("/accept", h.Accept)
		connectionRoute.POST("/reject", h.Reject)
		connectionRoute.POST("/remove", h.Remove)
		connectionRoute.GET("/status", h.Status)
		connectionRoute.GET("/list", h.List)
		connectionRoute.GET("/requests", h.Requests)
	}
}
