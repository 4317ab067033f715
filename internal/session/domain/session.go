package domain

import (
	"time"

	"session-control-plane/internal/device"
)

// Session is one authenticated device's right to mint new access tokens.
// TokenHash holds the bcrypt hash of the current refresh token; the plaintext
// token is never persisted.
type Session struct {
	ID         string
	UserID     string
	DeviceID   string // stable per logical device, reused across rotations
	TokenHash  string
	DeviceName string
	DeviceType device.Type
	UserAgent  string
	IPAddress  string
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Usable reports whether the session may still mint tokens at the given instant.
func (s *Session) Usable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Summary is the client-facing projection of a session. The token hash is
// deliberately absent.
type Summary struct {
	ID         string      `json:"id"`
	DeviceID   string      `json:"deviceId"`
	DeviceName string      `json:"deviceName"`
	DeviceType device.Type `json:"deviceType"`
	IPAddress  string      `json:"ipAddress"`
	CreatedAt  time.Time   `json:"createdAt"`
	LastUsedAt time.Time   `json:"lastUsedAt"`
}

// Summarize returns the client-facing projection of s.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:         s.ID,
		DeviceID:   s.DeviceID,
		DeviceName: s.DeviceName,
		DeviceType: s.DeviceType,
		IPAddress:  s.IPAddress,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
	}
}
