package middleware

import (
	"powermesh/auth"
)

// MiddlewareManager bundles request middleware around the auth module.
type MiddlewareManager struct {
	auth *auth.AuthModule
}

// NewMiddlewareManager creates a middleware manager.
func NewMiddlewareManager(auth *auth.AuthModule) *MiddlewareManager {
	return &MiddlewareManager{auth: auth}
}
