package storage

import (
	"errors"
	"testing"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/models"
)

func TestProfileLifecycle(t *testing.T) {
	store := newMemStore()
	svc := NewProfileService(store)
	ctx := t.Context()

	// Uninitialized: login reports setup required, not an internal error.
	err := svc.Login(ctx, "anything")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) || ews.StatusCode() != 404 {
		t.Fatalf("login before setup = %v, want 404", err)
	}

	profile, err := svc.Setup(ctx, "Alice Admin", "alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !profile.SetupComplete {
		t.Error("SetupComplete not set")
	}
	if profile.Admin.HashedPassword == "secret1" || profile.Admin.HashedPassword == "" {
		t.Error("password stored in plaintext or missing")
	}

	if err := svc.Login(ctx, "secret1"); err != nil {
		t.Errorf("login with correct password failed: %v", err)
	}

	err = svc.Login(ctx, "wrong")
	if !errors.As(err, &ews) || ews.StatusCode() != 401 {
		t.Fatalf("login with wrong password = %v, want 401", err)
	}
	if ews.Error() != "Invalid credentials" {
		t.Errorf("message = %q, must not leak hash or identity details", ews.Error())
	}

	if err := svc.ChangePassword(ctx, "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := svc.Login(ctx, "secret1"); err == nil {
		t.Error("old password still accepted")
	}
	if err := svc.Login(ctx, "secret2"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// Identity fields survive the password change.
	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Admin.Username != "alice" || got.Admin.Email != "alice@example.com" || got.Admin.FullName != "Alice Admin" {
		t.Errorf("identity fields changed: %+v", got.Admin)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc := NewProfileService(newMemStore())
	ctx := t.Context()
	if _, err := svc.Setup(ctx, "A", "a", "a@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	err := svc.ChangePassword(ctx, "nope", "secret2")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) || ews.StatusCode() != 401 {
		t.Fatalf("err = %v, want 401", err)
	}
	if err := svc.Login(ctx, "secret1"); err != nil {
		t.Error("password changed despite failed verification")
	}
}

func TestProfileMalformedDocument(t *testing.T) {
	store := newMemStore()
	store.seed(t, models.ProfileFile, `"just a string"`)
	svc := NewProfileService(store)

	profile, err := svc.Get(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if profile.SetupComplete {
		t.Error("malformed document reads as Active, want Uninitialized")
	}
}
