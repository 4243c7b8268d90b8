package handlers

import (
	"context"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version    string
	configured func() bool
}

// NewHealthHandler creates a new health handler. configured reports whether
// the remote store has credentials.
func NewHealthHandler(version string, configured func() bool) *HealthHandler {
	return &HealthHandler{version: version, configured: configured}
}

// HealthResponse reports liveness and store configuration.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	StoreConfigured bool   `json:"storeConfigured"`
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, _ struct{}) (*HealthResponse, error) {
	return &HealthResponse{
		Status:          "ok",
		Version:         h.version,
		StoreConfigured: h.configured(),
	}, nil
}
