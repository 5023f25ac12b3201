package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"powermesh/internal/db"
	"powermesh/internal/web/middleware"
)

func timeRange(c *gin.Context) (deviceID string, from, to int64, ok bool) {
	deviceID = c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return "", 0, 0, false
	}
	from, err := strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a ms epoch"})
		return "", 0, 0, false
	}
	to, err = strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a ms epoch"})
		return "", 0, 0, false
	}
	return deviceID, from, to, true
}

// RegisterTelemetryRoutes mounts the read-only telemetry query surface and
// alert listing/acknowledgment.
func RegisterTelemetryRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, dbConn *db.DB) {
	telemetry := r.Group("/telemetry")
	telemetry.Use(middleware.RequireAuth())
	{
		telemetry.GET("/power", func(c *gin.Context) {
			deviceID, from, to, ok := timeRange(c)
			if !ok {
				return
			}
			readings, err := dbConn.PowerRange(c, c.GetString("home_id"), deviceID, from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch readings"})
				return
			}
			c.JSON(http.StatusOK, readings)
		})

		telemetry.GET("/energy", func(c *gin.Context) {
			deviceID, from, to, ok := timeRange(c)
			if !ok {
				return
			}
			readings, err := dbConn.EnergyRange(c, c.GetString("home_id"), deviceID, from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch readings"})
				return
			}
			c.JSON(http.StatusOK, readings)
		})

		telemetry.GET("/daily", func(c *gin.Context) {
			deviceID := c.Query("device_id")
			fromDay := c.Query("from")
			toDay := c.Query("to")
			if deviceID == "" || fromDay == "" || toDay == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "device_id, from and to are required"})
				return
			}
			stats, err := dbConn.DailyStats(c, c.GetString("home_id"), deviceID, fromDay, toDay)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch daily stats"})
				return
			}
			c.JSON(http.StatusOK, stats)
		})
	}

	alerts := r.Group("/alerts")
	alerts.Use(middleware.RequireAuth())
	{
		alerts.GET("", func(c *gin.Context) {
			limit := 100
			if raw := c.Query("limit"); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil && n > 0 {
					limit = n
				}
			}
			unacked := c.Query("unacked") == "true"
			list, err := dbConn.ListAlerts(c, c.GetString("home_id"), unacked, limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
				return
			}
			c.JSON(http.StatusOK, list)
		})

		alerts.POST("/:id/ack", func(c *gin.Context) {
			if err := dbConn.AcknowledgeAlert(c, c.GetString("home_id"), c.Param("id")); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "Alert acknowledged"})
		})
	}
}
