// Package service implements the session lifecycle: issuing token pairs,
// rotating them on refresh, and terminating sessions per device or user.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"session-control-plane/internal/device"
	"session-control-plane/internal/security"
	sessiondomain "session-control-plane/internal/session/domain"
	userdomain "session-control-plane/internal/user/domain"
)

// Sentinel errors for the session manager; the HTTP layer maps them to status codes.
var (
	// ErrInvalidRefreshToken covers signature mismatch, malformed or expired
	// candidates, and candidates with no matching active session. The caller
	// must re-authenticate; rotation is never retried transparently.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrNotFound is returned when an operation targets an id with no live record.
	ErrNotFound = errors.New("not found")
)

// TokenPair is the outcome of issuing or rotating a session.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	DeviceID        string
}

// RequestMeta carries the inbound request attributes relevant to a rotation.
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// UserRepo is the minimal user repository needed by the manager.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByProviderIdentity(ctx context.Context, provider, providerID string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionRepo is the minimal session repository needed by the manager.
type SessionRepo interface {
	Replace(ctx context.Context, s *sessiondomain.Session) error
	Rotate(ctx context.Context, supersededID string, s *sessiondomain.Session) (bool, error)
	ListUsable(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error)
	DeactivateIfActive(ctx context.Context, id string) (bool, error)
	DeactivateByUserAndDevice(ctx context.Context, userID, deviceID string) error
	DeactivateAllByUser(ctx context.Context, userID, exceptDeviceID string) error
}

// Manager orchestrates the credential lifecycle for authenticated devices.
type Manager struct {
	users    UserRepo
	sessions SessionRepo
	tokens   *security.TokenProvider
	hasher   *security.TokenHasher
}

// NewManager returns a Manager with the given dependencies.
func NewManager(users UserRepo, sessions SessionRepo, tokens *security.TokenProvider, hasher *security.TokenHasher) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
	}
}

// ResolveUser finds or creates the local user for a gateway-resolved external
// identity. Profile fields are only written on first resolution.
func (m *Manager) ResolveUser(ctx context.Context, provider, providerID, name, email string) (*userdomain.User, error) {
	u, err := m.users.GetByProviderIdentity(ctx, provider, providerID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	now := time.Now().UTC()
	u = &userdomain.User{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      email,
		Provider:   provider,
		ProviderID: providerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := m.users.Create(ctx, u); err != nil {
		// Two first logins for the same identity can race find-then-create
		// into the unique (provider, provider_id) constraint. The loser
		// re-reads and returns the winner's row.
		existing, lookupErr := m.users.GetByProviderIdentity(ctx, provider, providerID)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return u, nil
}

// Issue mints a token pair for the user's device and upserts the device's
// session row. Any prior active row for the same device id is deactivated in
// the same transaction as the insert, so the two writes cannot be observed
// independently.
func (m *Manager) Issue(ctx context.Context, user *userdomain.User, dev device.Info) (*TokenPair, error) {
	if user == nil || user.ID == "" {
		return nil, ErrNotFound
	}
	return m.issueForDevice(ctx, user.ID, dev)
}

func (m *Manager) issueForDevice(ctx context.Context, userID string, dev device.Info) (*TokenPair, error) {
	pair, sess, err := m.mint(userID, dev)
	if err != nil {
		return nil, err
	}
	if err := m.sessions.Replace(ctx, sess); err != nil {
		return nil, err
	}
	return pair, nil
}

// mint signs a fresh token pair and builds the session row to persist for it.
// Nothing is written here; the caller chooses the storage write.
func (m *Manager) mint(userID string, dev device.Info) (*TokenPair, *sessiondomain.Session, error) {
	refreshToken, refreshExp, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, nil, err
	}
	accessToken, accessExp, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return nil, nil, err
	}
	hash, err := m.hasher.Hash(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		DeviceID:   dev.ID,
		TokenHash:  hash,
		DeviceName: dev.Name,
		DeviceType: dev.Type,
		UserAgent:  dev.UserAgent,
		IPAddress:  dev.IPAddress,
		IsActive:   true,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  refreshExp,
	}
	pair := &TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
		DeviceID:        dev.ID,
	}
	return pair, sess, nil
}

// Rotate validates the candidate refresh token, finds the matching active
// session by hash comparison, and replaces the pair for the same device id.
// The old refresh token becomes unusable the moment the matched row loses its
// active flag; of two concurrent rotations with the same candidate at most one
// wins.
func (m *Manager) Rotate(ctx context.Context, candidate string, meta RequestMeta) (*TokenPair, error) {
	if candidate == "" {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := m.tokens.VerifyRefresh(candidate)
	if err != nil {
		// Expired and malformed candidates never reach the storage scan.
		return nil, ErrInvalidRefreshToken
	}

	matched, err := m.findByCandidate(ctx, userID, candidate)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, ErrInvalidRefreshToken
	}

	pair, sess, err := m.mint(userID, rotatedDevice(matched, meta))
	if err != nil {
		return nil, err
	}
	// Flip and insert are one storage transaction: a concurrent rotation with
	// the same candidate loses the flip and writes nothing, and a failed
	// insert rolls the flip back so the old token stays usable.
	won, err := m.sessions.Rotate(ctx, matched.ID, sess)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrInvalidRefreshToken
	}
	return pair, nil
}

// rotatedDevice carries the matched row's device identity forward, refreshing
// name and type only when the inbound request presents a user agent. Fields
// the request leaves empty keep their stored values.
func rotatedDevice(matched *sessiondomain.Session, meta RequestMeta) device.Info {
	ua, ip := matched.UserAgent, matched.IPAddress
	if meta.UserAgent != "" {
		ua = meta.UserAgent
	}
	if meta.IPAddress != "" {
		ip = meta.IPAddress
	}
	if meta.UserAgent != "" {
		return device.Derive(matched.DeviceID, ua, ip)
	}
	return device.Info{
		ID:        matched.DeviceID,
		Name:      matched.DeviceName,
		Type:      matched.DeviceType,
		UserAgent: ua,
		IPAddress: ip,
	}
}

// Terminate deactivates the session matching the candidate refresh token.
// It never fails observably: the user's logout intent is satisfied whether or
// not a server-side record existed.
func (m *Manager) Terminate(ctx context.Context, candidate string) {
	if candidate == "" {
		return
	}
	userID, err := m.tokens.VerifyRefresh(candidate)
	if err != nil {
		return
	}
	matched, err := m.findByCandidate(ctx, userID, candidate)
	if err != nil || matched == nil {
		return
	}
	_, _ = m.sessions.DeactivateIfActive(ctx, matched.ID)
}

// findByCandidate scans the user's active, unexpired sessions for the row
// whose stored hash matches the candidate. A linear scan is required: the
// hash is salted per call, so there is no value to look up by.
func (m *Manager) findByCandidate(ctx context.Context, userID, candidate string) (*sessiondomain.Session, error) {
	list, err := m.sessions.ListUsable(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		if m.hasher.Matches(candidate, s.TokenHash) {
			return s, nil
		}
	}
	return nil, nil
}

// ListActive returns the user's active, unexpired sessions, most recently used
// first, with the token hash excluded from the projection.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]sessiondomain.Summary, error) {
	list, err := m.sessions.ListUsable(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]sessiondomain.Summary, len(list))
	for i, s := range list {
		out[i] = s.Summarize()
	}
	return out, nil
}

// TerminateDevice deactivates all active rows for the (user, device) pair.
// Idempotent: zero matches is not an error.
func (m *Manager) TerminateDevice(ctx context.Context, userID, deviceID string) error {
	return m.sessions.DeactivateByUserAndDevice(ctx, userID, deviceID)
}

// TerminateAll deactivates all of the user's active rows, optionally sparing
// one device id ("log out everywhere else").
func (m *Manager) TerminateAll(ctx context.Context, userID, exceptDeviceID string) error {
	return m.sessions.DeactivateAllByUser(ctx, userID, exceptDeviceID)
}
