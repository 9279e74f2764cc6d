package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/floorsync/floorsync/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.SeedUsers(); err != nil {
		t.Fatalf("SeedUsers failed: %v", err)
	}
	return NewManager(s)
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)

	user, err := m.Authenticate("operator1", "operator123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.Username != "operator1" {
		t.Errorf("Expected operator1, got %s", user.Username)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Authenticate("operator1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Authenticate("ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	m := newTestManager(t)

	user, err := m.Lookup("supervisor1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if user == nil || user.Name != "Bob Supervisor" {
		t.Errorf("Unexpected user: %+v", user)
	}

	user, err = m.Lookup("ghost")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if user != nil {
		t.Error("Expected nil for unknown username")
	}
}
