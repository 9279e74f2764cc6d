// Package auth provides credential checks over the local user store.
//
// FloorSync keeps a small seeded account table so supervisors and
// operators can sign in while the device is offline. The login UI
// itself lives outside this repository; it only consumes Authenticate
// and the user lookup.
package auth

import (
	"errors"
	"fmt"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/floorsync/floorsync/internal/store"
)

// ErrInvalidCredentials is returned when the username is unknown or
// the password does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Manager handles authentication against the local user table.
type Manager struct {
	store *store.Store
}

// NewManager creates a new auth manager.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Authenticate verifies a username/password pair and returns the user.
func (m *Manager) Authenticate(username, password string) (*models.User, error) {
	user, err := m.store.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.Password != password {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the user with the given username, or nil if absent.
func (m *Manager) Lookup(username string) (*models.User, error) {
	return m.store.GetUserByUsername(username)
}
