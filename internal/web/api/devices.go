package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powermesh/internal/dispatch"
	"powermesh/internal/web/middleware"
	webModels "powermesh/internal/web/models"
)

// RegisterDeviceRoutes mounts the direct device command passthrough, sharing
// the dispatcher the engine uses for set_device actions.
func RegisterDeviceRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, dispatcher *dispatch.Dispatcher) {
	devices := r.Group("/devices")
	devices.Use(middleware.RequireAuth())
	{
		devices.POST("/:id/set", func(c *gin.Context) {
			var req webModels.SetDeviceRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			if err := dispatcher.SetDevice(c.Param("id"), *req.On); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish command"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"device_id": c.Param("id"), "on": *req.On})
		})
	}
}
