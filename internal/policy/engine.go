// Package policy implements the background session hygiene rules: reaper
// sweeps, the per-user device cap, the suspicious-activity heuristic, forced
// logout and the security stats snapshot.
package policy

import (
	"context"
	"fmt"
	"log"
	"time"

	"session-control-plane/internal/audit"
	auditdomain "session-control-plane/internal/audit/domain"
	"session-control-plane/internal/session/domain"
	"session-control-plane/internal/session/repository"
)

const (
	// A user whose sessions span this many distinct addresses inside
	// suspiciousWindow is flagged.
	suspiciousIPThreshold = 3
	suspiciousWindow      = time.Hour
)

// SessionStore is the slice of the session repository the engine needs.
type SessionStore interface {
	ListUsable(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	DeactivateByIDs(ctx context.Context, ids []string) error
	DeactivateAllByUser(ctx context.Context, userID, exceptDeviceID string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListUserIDsOverLimit(ctx context.Context, max int, now time.Time) ([]string, error)
	CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error)
	SecurityCounts(ctx context.Context, now time.Time) (*repository.SecurityCounts, error)
}

// SecurityStats is the aggregate snapshot exposed to operators.
type SecurityStats struct {
	ActiveSessions    int64     `json:"activeSessions"`
	ActiveUsers       int64     `json:"activeUsers"`
	ExpiredUndeleted  int64     `json:"expiredUndeleted"`
	MultiAddressUsers int64     `json:"multiAddressUsers"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// Engine evaluates and enforces session policies against the store.
type Engine struct {
	sessions   SessionStore
	audit      audit.Recorder
	maxDevices int
	maxIdleAge time.Duration
}

// NewEngine returns an Engine enforcing the given device cap and idle age.
func NewEngine(sessions SessionStore, rec audit.Recorder, maxDevices int, maxIdleAge time.Duration) *Engine {
	return &Engine{
		sessions:   sessions,
		audit:      rec,
		maxDevices: maxDevices,
		maxIdleAge: maxIdleAge,
	}
}

// SweepExpired hard-deletes sessions past their expiry. Failures are logged,
// never propagated; the next run retries the same rows.
func (e *Engine) SweepExpired(ctx context.Context) {
	n, err := e.sessions.DeleteExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("policy: expired sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("policy: expired sweep removed %d sessions", n)
	}
}

// SweepIdle hard-deletes sessions untouched for longer than the idle age,
// active or not. Failures are logged, never propagated.
func (e *Engine) SweepIdle(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-e.maxIdleAge)
	n, err := e.sessions.DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		log.Printf("policy: idle sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("policy: idle sweep removed %d sessions", n)
	}
}

// EnforceDeviceLimit deactivates the least recently used sessions of every
// user holding more than the device cap, down to the cap. Evictions are
// audited per user. Failures are logged, never propagated.
func (e *Engine) EnforceDeviceLimit(ctx context.Context) {
	now := time.Now().UTC()
	userIDs, err := e.sessions.ListUserIDsOverLimit(ctx, e.maxDevices, now)
	if err != nil {
		log.Printf("policy: device limit scan failed: %v", err)
		return
	}
	for _, userID := range userIDs {
		if err := e.enforceUserLimit(ctx, userID, now); err != nil {
			log.Printf("policy: device limit enforcement for user %s failed: %v", userID, err)
		}
	}
}

func (e *Engine) enforceUserLimit(ctx context.Context, userID string, now time.Time) error {
	list, err := e.sessions.ListUsable(ctx, userID, now)
	if err != nil {
		return err
	}
	if len(list) <= e.maxDevices {
		return nil
	}
	// ListUsable orders most recently used first, so everything past the cap
	// is the LRU tail.
	excess := list[e.maxDevices:]
	ids := make([]string, len(excess))
	for i, s := range excess {
		ids[i] = s.ID
	}
	if err := e.sessions.DeactivateByIDs(ctx, ids); err != nil {
		return err
	}
	if e.audit != nil {
		e.audit.Record(ctx, userID, auditdomain.ActionDeviceLimitEvicted,
			"active session count exceeded device limit",
			fmt.Sprintf(`{"evicted":%d,"limit":%d}`, len(ids), e.maxDevices))
	}
	log.Printf("policy: evicted %d sessions for user %s over device limit %d", len(ids), userID, e.maxDevices)
	return nil
}

// DetectSuspiciousActivity reports whether the user's sessions created in the
// trailing hour span three or more distinct addresses. Read-only; a storage
// failure degrades to false.
func (e *Engine) DetectSuspiciousActivity(ctx context.Context, userID string) bool {
	since := time.Now().UTC().Add(-suspiciousWindow)
	n, err := e.sessions.CountDistinctIPsSince(ctx, userID, since)
	if err != nil {
		log.Printf("policy: suspicious activity check for user %s failed: %v", userID, err)
		return false
	}
	return n >= suspiciousIPThreshold
}

// ForceLogout deactivates every active session of the user and records the
// reason in the audit trail. The deactivation error surfaces; the audit write
// is best-effort.
func (e *Engine) ForceLogout(ctx context.Context, userID, reason string) error {
	if err := e.sessions.DeactivateAllByUser(ctx, userID, ""); err != nil {
		return err
	}
	if e.audit != nil {
		e.audit.Record(ctx, userID, auditdomain.ActionForceLogout, reason, "")
	}
	return nil
}

// SecurityStats returns the aggregate snapshot, or nil when the store cannot
// produce it. Never returns an error.
func (e *Engine) SecurityStats(ctx context.Context) *SecurityStats {
	counts, err := e.sessions.SecurityCounts(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("policy: security stats failed: %v", err)
		return nil
	}
	return &SecurityStats{
		ActiveSessions:    counts.ActiveSessions,
		ActiveUsers:       counts.ActiveUsers,
		ExpiredUndeleted:  counts.ExpiredUndeleted,
		MultiAddressUsers: counts.MultiAddressUsers,
		GeneratedAt:       time.Now().UTC(),
	}
}
