// Package server assembles the HTTP API over the storage services.
package server

import (
	"net/http"
	"time"

	"github.com/maruel/ghcms/internal/server/handlers"
	"github.com/maruel/ghcms/internal/server/ipgeo"
	"github.com/maruel/ghcms/internal/server/ratelimit"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/server/session"
	"github.com/maruel/ghcms/internal/storage"
)

// Services groups the storage services the router exposes.
type Services struct {
	Content   *storage.ContentService
	Media     *storage.MediaService
	Analytics *storage.AnalyticsService
	Profiles  *storage.ProfileService
	Store     storage.DocumentStore
	Sessions  *session.Registry
}

// Config holds router-level settings.
type Config struct {
	Version   string
	JWTSecret string
	Tunables  *storage.Config
	Geo       *ipgeo.Resolver // nil disables geolocation
	StaticDir string          // "" disables static file serving
}

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *Services, cfg *Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := handlers.NewAuthHandler(svc.Profiles, svc.Sessions, cfg.JWTSecret,
		time.Duration(cfg.Tunables.SessionTTLHours)*time.Hour)
	contentHandler := handlers.NewContentHandler(svc.Content)
	mediaHandler := handlers.NewMediaHandler(svc.Media, cfg.Tunables.MaxUploadBytes)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	healthHandler := handlers.NewHealthHandler(cfg.Version, svc.Store.Configured)

	mux.Handle("GET /api/health", Wrap(healthHandler.Health))

	mux.Handle("GET /api/json/{name}", Wrap(contentHandler.Get))
	mux.Handle("PUT /api/json/{name}", Wrap(contentHandler.Update))

	mux.Handle("GET /api/media", Wrap(mediaHandler.List))
	mux.HandleFunc("POST /api/upload-image", mediaHandler.Upload)

	// Credential endpoints share one IP-keyed bucket so a brute forcer cannot
	// shop between them.
	authLimiter := ratelimit.NewLimiter(cfg.Tunables.LoginPerMinute, time.Minute, cfg.Tunables.LoginBurst)
	mux.Handle("POST /api/auth/setup", limit(authLimiter, Wrap(authHandler.Setup)))
	mux.Handle("POST /api/auth/login", limit(authLimiter, Wrap(authHandler.Login)))
	mux.Handle("POST /api/auth/change-password", limit(authLimiter, Wrap(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", Wrap(authHandler.Logout))

	mux.Handle("POST /api/analytics/track", Wrap(analyticsHandler.Track))
	mux.Handle("GET /api/analytics", Wrap(analyticsHandler.Get))

	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	var handler http.Handler = mux
	handler = visitTrackingMiddleware(svc.Analytics)(handler)
	handler = sessionMiddleware(svc.Sessions, []byte(cfg.JWTSecret))(handler)
	handler = metadataMiddleware(cfg.Geo)(handler)
	return handler
}

// limit rejects requests over the per-IP budget with 429 before they reach
// the handler.
func limit(l *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := l.Allow("ip:" + reqctx.ClientIP(r.Context()))
		ratelimit.WriteHeaders(w, res)
		if !res.Allowed {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
