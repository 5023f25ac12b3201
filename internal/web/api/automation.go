package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"powermesh/internal/db"
	"powermesh/internal/models"
	"powermesh/internal/web/middleware"
	webModels "powermesh/internal/web/models"
)

// RegisterAutomationRoutes mounts the rule CRUD surface. All routes are
// scoped to the authenticated owner's user_id and resolved home_id; the
// engine picks changes up on its next tick.
func RegisterAutomationRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, dbConn *db.DB) {
	automations := r.Group("/automations")
	automations.Use(middleware.RequireAuth())
	{
		automations.GET("/rules", func(c *gin.Context) {
			userID := c.GetString("user_id")
			homeID := c.GetString("home_id")
			rules, err := dbConn.RulesByUser(c, userID, homeID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
				return
			}
			c.JSON(http.StatusOK, rules)
		})

		automations.GET("/rules/:id", func(c *gin.Context) {
			userID := c.GetString("user_id")
			rule, err := dbConn.GetRule(c, c.Param("id"), userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rule"})
				return
			}
			if rule == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
				return
			}
			c.JSON(http.StatusOK, rule)
		})

		automations.PUT("/rules", func(c *gin.Context) {
			userID := c.GetString("user_id")
			homeID := c.GetString("home_id")

			var req webModels.UpsertRuleRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}

			rule := models.Rule{
				ID:         req.ID,
				UserID:     userID,
				HomeID:     homeID,
				Name:       req.Name,
				Enabled:    req.Enabled,
				Conditions: req.Conditions,
				Actions:    req.Actions,
				CreatedAt:  time.Now(),
			}
			if rule.ID == "" {
				rule.ID = uuid.NewString()
			}
			if err := rule.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := dbConn.UpsertRule(c, rule); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rule"})
				return
			}
			c.JSON(http.StatusOK, rule)
		})

		automations.PATCH("/rules/:id/toggle", func(c *gin.Context) {
			userID := c.GetString("user_id")

			var req webModels.ToggleRuleRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}

			if err := dbConn.SetRuleEnabled(c, c.Param("id"), userID, *req.Enabled); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "enabled": *req.Enabled})
		})

		automations.DELETE("/rules/:id", func(c *gin.Context) {
			userID := c.GetString("user_id")
			if err := dbConn.DeleteRule(c, c.Param("id"), userID); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "Rule deleted successfully"})
		})

		automations.DELETE("/rules", func(c *gin.Context) {
			userID := c.GetString("user_id")
			homeID := c.GetString("home_id")
			deleted, err := dbConn.DeleteRulesByUser(c, userID, homeID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rules"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"deleted": deleted})
		})
	}
}
