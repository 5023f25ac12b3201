package web

import (
	"github.com/gin-gonic/gin"

	"powermesh/auth"
	"powermesh/internal/db"
	"powermesh/internal/dispatch"
	"powermesh/internal/web/api"
	"powermesh/internal/web/middleware"
)

// WebServer serves the REST API consumed by the dashboard.
type WebServer struct {
	router *gin.Engine
}

// NewWebServer wires the API routes.
func NewWebServer(dbConn *db.DB, dispatcher *dispatch.Dispatcher, jwtSecret, homeID string) *WebServer {
	router := gin.Default()

	authModule := auth.NewAuthModule(dbConn.Pool(), jwtSecret)
	middlewareManager := middleware.NewMiddlewareManager(authModule)

	api.RegisterAuthRoutes(router, authModule, homeID)
	api.RegisterAutomationRoutes(router, middlewareManager, dbConn)
	api.RegisterTelemetryRoutes(router, middlewareManager, dbConn)
	api.RegisterDeviceRoutes(router, middlewareManager, dispatcher)

	return &WebServer{router: router}
}

// Start runs the HTTP server.
func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
