package approuters

import (
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"

	"github.com/gin-gonic/gin"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(api *gin.RouterGroup, container *configuration.Container) {
	monitorGroup := api.Group("/monitor")
	{
		// GET /api/monitor/stats - Get hub statistics
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
