package domain

import (
	"errors"
	"time"
)

// User is a local user record resolved from an external OAuth identity.
// (Provider, ProviderID) is the composite-unique pair identifying that identity.
type User struct {
	ID         string
	Name       string
	Email      string
	Provider   string
	ProviderID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Provider == "" {
		return errors.New("provider is required")
	}
	if u.ProviderID == "" {
		return errors.New("provider id is required")
	}
	return nil
}
