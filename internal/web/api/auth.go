package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powermesh/auth"
	webModels "powermesh/internal/web/models"
)

// RegisterAuthRoutes mounts login/register. New users are bound to this
// deployment's home.
func RegisterAuthRoutes(r *gin.Engine, authModule *auth.AuthModule, homeID string) {
	routes := r.Group("/auth")
	{
		routes.POST("/register", func(c *gin.Context) {
			var req webModels.CredentialsRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := authModule.Register(c, req.Username, req.Password, homeID)
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"token": token})
		})

		routes.POST("/login", func(c *gin.Context) {
			var req webModels.CredentialsRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := authModule.Login(c, req.Username, req.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}
}
