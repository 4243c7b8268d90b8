// Manages the admin credential record stored in data/profile.json.

package storage

import (
	"context"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ProfileService is the credential store for the single admin identity.
//
// Lifecycle: Uninitialized (no completed setup) then Active (setupComplete
// and a password hash set). A missing or malformed profile document reads as
// Uninitialized, never as an error. Store failures keep their own kinds
// (CONFLICT, STORE_UNAVAILABLE) so callers can tell "wrong password" from
// "couldn't reach the store".
type ProfileService struct {
	store DocumentStore
}

// NewProfileService creates a new profile service.
func NewProfileService(store DocumentStore) *ProfileService {
	return &ProfileService{store: store}
}

// Get reads the profile document, returning the Uninitialized default when
// it is absent or does not decode.
func (s *ProfileService) Get(ctx context.Context) (*models.ProfileData, error) {
	doc, err := s.store.Get(ctx, models.ProfileFile)
	if err != nil {
		return nil, err
	}
	profile := &models.ProfileData{}
	decodeDocument(doc, profile)
	return profile, nil
}

// Setup hashes the password and writes a complete profile document. The
// store itself permits re-running setup over an Active profile; enforcing
// "setup only once" is the caller's policy.
func (s *ProfileService) Setup(ctx context.Context, fullName, username, email, password string) (*models.ProfileData, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to hash password", err)
	}

	profile := &models.ProfileData{
		SetupComplete: true,
		Admin: models.AdminProfile{
			FullName:       fullName,
			Username:       username,
			Email:          email,
			HashedPassword: string(hash),
		},
	}
	if _, err := s.store.Put(ctx, models.ProfileFile, profile, "Setup admin profile and password."); err != nil {
		return nil, err
	}
	return profile, nil
}

// Login verifies the password against the stored hash. The hash never
// leaves this package and the failure message never distinguishes a wrong
// password from an unknown account.
func (s *ProfileService) Login(ctx context.Context, password string) error {
	profile, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if !profile.SetupComplete {
		return apierrors.NewAPIError(404, apierrors.ErrNotConfigured, "Profile not found or not set up. Please complete initial setup.")
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.Admin.HashedPassword), []byte(password)) != nil {
		return apierrors.NewAPIError(401, apierrors.ErrUnauthorized, "Invalid credentials")
	}
	return nil
}

// ChangePassword verifies the current password, then writes the profile
// back with only the hash replaced; identity fields are preserved as read.
func (s *ProfileService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	profile, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if !profile.SetupComplete {
		return apierrors.NewAPIError(404, apierrors.ErrNotConfigured, "Profile not found or not set up")
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.Admin.HashedPassword), []byte(currentPassword)) != nil {
		return apierrors.NewAPIError(401, apierrors.ErrUnauthorized, "Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apierrors.InternalWithError("Failed to hash password", err)
	}
	updated := *profile
	updated.Admin.HashedPassword = string(hash)
	if _, err := s.store.Put(ctx, models.ProfileFile, &updated, "Changed admin password."); err != nil {
		return err
	}
	return nil
}
