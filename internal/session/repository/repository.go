package repository

import (
	"context"
	"time"

	"session-control-plane/internal/session/domain"
)

// SecurityCounts is an aggregate snapshot over the sessions table.
type SecurityCounts struct {
	ActiveSessions    int64 // active and unexpired rows
	ActiveUsers       int64 // distinct users among those rows
	ExpiredUndeleted  int64 // rows past expiry that no sweep has removed yet
	MultiAddressUsers int64 // users whose last-24h creations span >2 distinct addresses
}

// Repository defines persistence for sessions.
type Repository interface {
	// Replace deactivates any active row for (s.UserID, s.DeviceID) and inserts s,
	// atomically, so two rows for one device are never simultaneously active.
	Replace(ctx context.Context, s *domain.Session) error
	// ListUsable returns the user's active, unexpired sessions ordered by
	// last_used_at descending.
	ListUsable(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// Rotate deactivates the superseded row only if it is still active and, in
	// the same transaction, inserts the replacement. Reports whether this call
	// won the flip; false means a concurrent rotation already consumed the
	// token. A failed insert rolls the flip back, so the device is never left
	// deactivated without a replacement.
	Rotate(ctx context.Context, supersededID string, s *domain.Session) (bool, error)
	// DeactivateIfActive flips is_active on the row only if it is still active.
	// Reports whether this call won the flip.
	DeactivateIfActive(ctx context.Context, id string) (bool, error)
	// DeactivateByIDs flips is_active on every listed row.
	DeactivateByIDs(ctx context.Context, ids []string) error
	// DeactivateByUserAndDevice flips is_active on all active rows for the pair.
	// Zero matches is not an error.
	DeactivateByUserAndDevice(ctx context.Context, userID, deviceID string) error
	// DeactivateAllByUser flips is_active on all of the user's active rows,
	// optionally sparing one device id (empty string spares none).
	DeactivateAllByUser(ctx context.Context, userID, exceptDeviceID string) error
	// DeleteExpiredBefore hard-deletes rows with expires_at before the cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteIdleBefore hard-deletes rows with last_used_at before the cutoff,
	// regardless of active flag or expiry.
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// ListUserIDsOverLimit returns users holding more than max active, unexpired sessions.
	ListUserIDsOverLimit(ctx context.Context, max int, now time.Time) ([]string, error)
	// CountDistinctIPsSince counts distinct originating addresses across the
	// user's sessions created at or after the cutoff, regardless of active flag.
	CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error)
	// SecurityCounts returns the aggregate snapshot used by security stats.
	SecurityCounts(ctx context.Context, now time.Time) (*SecurityCounts, error)
}
