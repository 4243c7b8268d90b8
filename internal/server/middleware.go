package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ksid"

	"github.com/maruel/ghcms/internal/server/ipgeo"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/server/session"
	"github.com/maruel/ghcms/internal/storage"
)

// metadataMiddleware records client IP, User-Agent and (when a geo database
// is loaded) the country code in the request context.
func metadataMiddleware(geo *ipgeo.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := reqctx.GetClientIP(r)
			ctx := reqctx.WithClientIP(r.Context(), ip)
			ctx = reqctx.WithUserAgent(ctx, r.UserAgent())
			if geo != nil {
				ctx = reqctx.WithCountryCode(ctx, geo.CountryCode(ip))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionMiddleware resolves the Bearer token to a live session and puts it
// in the request context. Requests without an Authorization header stay
// anonymous; protected handlers reject those themselves. A presented but
// invalid or revoked token is rejected here.
func sessionMiddleware(sessions *session.Registry, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := resolveSession(authHeader, sessions, jwtSecret)
			if err != nil {
				writeError(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(reqctx.WithSession(r.Context(), s)))
		})
	}
}

func resolveSession(authHeader string, sessions *session.Registry, jwtSecret []byte) (*session.Session, error) {
	scheme, tokenString, found := strings.Cut(authHeader, " ")
	if !found || scheme != "Bearer" {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid authorization header")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid claims")
	}
	sidStr, ok := claims["sid"].(string)
	if !ok {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Token has no session")
	}
	sid, err := ksid.Parse(sidStr)
	if err != nil {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid session ID")
	}
	s := sessions.Get(sid)
	if s == nil {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Session expired or revoked")
	}
	return s, nil
}

// trackTimeout bounds the detached tracking write.
const trackTimeout = 10 * time.Second

// visitTrackingMiddleware records a visit for every GET of a page-like route.
// The write runs detached from the request so a slow store never delays the
// page, and failures (Conflict under load included) are logged and lost.
func visitTrackingMiddleware(analytics *storage.AnalyticsService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && isPageRoute(r.URL.Path) {
				route := r.URL.Path
				ctx := context.WithoutCancel(r.Context())
				go func() {
					ctx, cancel := context.WithTimeout(ctx, trackTimeout)
					defer cancel()
					if err := analytics.TrackVisit(ctx, route, reqctx.CountryCode(ctx)); err != nil {
						slog.WarnContext(ctx, "Visit not recorded", "route", route, "err", err)
					}
				}()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isPageRoute reports whether a path looks like a page a visitor reads, as
// opposed to an API call or a static file.
func isPageRoute(p string) bool {
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/assets/") || strings.HasPrefix(p, "/uploads/") {
		return false
	}
	return path.Ext(p) == ""
}
