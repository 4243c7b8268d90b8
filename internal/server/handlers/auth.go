// Handles admin setup, login, password change and logout.

package handlers

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/server/session"
	"github.com/maruel/ghcms/internal/storage"
)

// AuthHandler handles authentication requests for the single admin account.
type AuthHandler struct {
	profiles  *storage.ProfileService
	sessions  *session.Registry
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(profiles *storage.ProfileService, sessions *session.Registry, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		profiles:  profiles,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// SetupRequest creates the admin profile.
type SetupRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates the admin. There is a single account, so no
// username is taken; enumeration is structurally impossible.
type LoginRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest rotates the admin password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse carries the session token after setup or login.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// StatusResponse is the generic success envelope for auth mutations.
type StatusResponse struct {
	Success bool `json:"success"`
}

// Setup creates the admin profile and logs the new admin in.
func (h *AuthHandler) Setup(ctx context.Context, req SetupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apierrors.MissingField("username or password")
	}
	profile, err := h.profiles.Setup(ctx, req.FullName, req.Username, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return h.issueToken(ctx, profile.Admin.Username)
}

// Login verifies the password and returns a session token.
func (h *AuthHandler) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Password == "" {
		return nil, apierrors.MissingField("password")
	}
	if err := h.profiles.Login(ctx, req.Password); err != nil {
		return nil, err
	}
	profile, err := h.profiles.Get(ctx)
	if err != nil {
		return nil, err
	}
	return h.issueToken(ctx, profile.Admin.Username)
}

// ChangePassword rotates the password of the authenticated admin.
func (h *AuthHandler) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*StatusResponse, error) {
	if reqctx.Session(ctx) == nil {
		return nil, apierrors.Unauthorized()
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return nil, apierrors.MissingField("currentPassword or newPassword")
	}
	if err := h.profiles.ChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, err
	}
	return &StatusResponse{Success: true}, nil
}

// Logout destroys the session behind the presented token. The JWT itself
// stays syntactically valid but no longer resolves to a session.
func (h *AuthHandler) Logout(ctx context.Context, _ struct{}) (*StatusResponse, error) {
	s := reqctx.Session(ctx)
	if s == nil {
		return nil, apierrors.Unauthorized()
	}
	h.sessions.Delete(s.ID)
	return &StatusResponse{Success: true}, nil
}

// issueToken creates a session and signs a JWT referencing it.
func (h *AuthHandler) issueToken(ctx context.Context, username string) (*AuthResponse, error) {
	s := h.sessions.Create(username, reqctx.ClientIP(ctx), reqctx.UserAgent(ctx), h.tokenTTL)
	claims := jwt.MapClaims{
		"sub": username,
		"sid": s.ID.String(),
		"exp": s.ExpiresAt.Unix(),
		"iat": s.CreatedAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		h.sessions.Delete(s.ID)
		return nil, apierrors.InternalWithError("Failed to generate token", err)
	}
	return &AuthResponse{Token: token, Username: username}, nil
}
