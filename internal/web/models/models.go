package models

import "powermesh/internal/models"

// UpsertRuleRequest creates or replaces a rule. ID is optional; one is
// generated when absent.
type UpsertRuleRequest struct {
	ID         string             `json:"id"`
	Name       string             `json:"name" binding:"required"`
	Enabled    bool               `json:"enabled"`
	Conditions []models.Condition `json:"conditions" binding:"required"`
	Actions    []models.Action    `json:"actions" binding:"required"`
}

// ToggleRuleRequest flips a rule's enabled flag.
type ToggleRuleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetDeviceRequest commands a device on or off.
type SetDeviceRequest struct {
	On *bool `json:"on" binding:"required"`
}

// CredentialsRequest carries login/register credentials.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
