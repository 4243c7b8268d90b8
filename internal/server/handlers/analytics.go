// Handles visit tracking and analytics reads.

package handlers

import (
	"context"
	"log/slog"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/models"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/storage"
)

// AnalyticsHandler handles analytics requests.
type AnalyticsHandler struct {
	analytics *storage.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics *storage.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// TrackRequest records one visit to a route.
type TrackRequest struct {
	Path string `json:"path"`
}

// TrackResponse acknowledges a tracking request.
type TrackResponse struct {
	Success bool `json:"success"`
}

// Track records a visit. It always succeeds from the caller's perspective;
// a visitor's page load must never fail over a busy store, so write errors
// (Conflict included) are logged and dropped.
func (h *AnalyticsHandler) Track(ctx context.Context, req TrackRequest) (*TrackResponse, error) {
	if req.Path == "" {
		return nil, apierrors.MissingField("path")
	}
	if err := h.analytics.TrackVisit(ctx, req.Path, reqctx.CountryCode(ctx)); err != nil {
		slog.WarnContext(ctx, "Visit not recorded", "path", req.Path, "err", err)
	}
	return &TrackResponse{Success: true}, nil
}

// Get returns the analytics document for the admin dashboard.
func (h *AnalyticsHandler) Get(ctx context.Context, _ struct{}) (*models.AnalyticsData, error) {
	if reqctx.Session(ctx) == nil {
		return nil, apierrors.Unauthorized()
	}
	return h.analytics.Get(ctx)
}
