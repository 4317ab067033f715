package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"session-control-plane/internal/device"
	"session-control-plane/internal/session/domain"
)

type PostgresRepository struct {
	pool *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(pool *sql.DB) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, user_id, device_id, token_hash, device_name, device_type,
	user_agent, ip_address, is_active, created_at, last_used_at, expires_at`

// Replace deactivates any active row for (s.UserID, s.DeviceID) and inserts s
// within a single transaction. A failure rolls back both writes so the device
// is never left deactivated without a replacement.
func (r *PostgresRepository) Replace(ctx context.Context, s *domain.Session) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessions: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE
		 WHERE user_id = $1 AND device_id = $2 AND is_active`,
		s.UserID, s.DeviceID)
	if err != nil {
		return fmt.Errorf("sessions: deactivate prior: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.UserID, s.DeviceID, s.TokenHash, s.DeviceName, string(s.DeviceType),
		nullIfEmpty(s.UserAgent), nullIfEmpty(s.IPAddress), s.IsActive,
		s.CreatedAt, s.LastUsedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("sessions: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sessions: commit replace: %w", err)
	}
	return nil
}

// ListUsable returns the user's active, unexpired sessions, most recently used first.
func (r *PostgresRepository) ListUsable(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.pool.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND is_active AND expires_at > $2
		 ORDER BY last_used_at DESC`,
		userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Rotate deactivates the superseded row and inserts its replacement within a
// single transaction. The is_active guard makes concurrent rotations with the
// same token race for one winner; losing returns (false, nil) with nothing
// written. Rolling back on a failed insert also undoes the flip, so a
// transient failure leaves the old token usable instead of stranding the
// device.
func (r *PostgresRepository) Rotate(ctx context.Context, supersededID string, s *domain.Session) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sessions: begin rotate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, last_used_at = $2
		 WHERE id = $1 AND is_active`,
		supersededID, s.LastUsedAt)
	if err != nil {
		return false, fmt.Errorf("sessions: deactivate superseded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.UserID, s.DeviceID, s.TokenHash, s.DeviceName, string(s.DeviceType),
		nullIfEmpty(s.UserAgent), nullIfEmpty(s.IPAddress), s.IsActive,
		s.CreatedAt, s.LastUsedAt, s.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("sessions: insert replacement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sessions: commit rotate: %w", err)
	}
	return true, nil
}

// DeactivateIfActive flips is_active on the row only when it is still active.
func (r *PostgresRepository) DeactivateIfActive(ctx context.Context, id string) (bool, error) {
	res, err := r.pool.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeactivateByIDs flips is_active on every listed row.
func (r *PostgresRepository) DeactivateByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	_, err := r.pool.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	return err
}

// DeactivateByUserAndDevice flips is_active on all active rows for the pair. Idempotent.
func (r *PostgresRepository) DeactivateByUserAndDevice(ctx context.Context, userID, deviceID string) error {
	_, err := r.pool.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE
		 WHERE user_id = $1 AND device_id = $2 AND is_active`,
		userID, deviceID)
	return err
}

// DeactivateAllByUser flips is_active on the user's active rows, sparing
// exceptDeviceID when non-empty.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID, exceptDeviceID string) error {
	if exceptDeviceID == "" {
		_, err := r.pool.ExecContext(ctx,
			`UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
		return err
	}
	_, err := r.pool.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE
		 WHERE user_id = $1 AND device_id <> $2 AND is_active`,
		userID, exceptDeviceID)
	return err
}

// DeleteExpiredBefore hard-deletes rows whose expiry passed before the cutoff.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.pool.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteIdleBefore hard-deletes rows not used since the cutoff, regardless of
// active flag or expiry.
func (r *PostgresRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.pool.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_used_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUserIDsOverLimit returns users holding more than max active, unexpired sessions.
func (r *PostgresRepository) ListUserIDsOverLimit(ctx context.Context, max int, now time.Time) ([]string, error) {
	rows, err := r.pool.QueryContext(ctx,
		`SELECT user_id FROM sessions
		 WHERE is_active AND expires_at > $2
		 GROUP BY user_id
		 HAVING COUNT(*) > $1`,
		max, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountDistinctIPsSince counts distinct originating addresses across the user's
// sessions created at or after the cutoff.
func (r *PostgresRepository) CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM sessions
		 WHERE user_id = $1 AND created_at >= $2 AND ip_address IS NOT NULL`,
		userID, since).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SecurityCounts returns the aggregate counters used by security stats.
func (r *PostgresRepository) SecurityCounts(ctx context.Context, now time.Time) (*SecurityCounts, error) {
	c := &SecurityCounts{}

	err := r.pool.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM sessions
		 WHERE is_active AND expires_at > $1`, now).
		Scan(&c.ActiveSessions, &c.ActiveUsers)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE expires_at < $1`, now).
		Scan(&c.ExpiredUndeleted)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
		   SELECT user_id FROM sessions
		   WHERE created_at >= $1
		   GROUP BY user_id
		   HAVING COUNT(DISTINCT ip_address) > 2
		 ) AS flagged`, now.Add(-24*time.Hour)).
		Scan(&c.MultiAddressUsers)
	if err != nil {
		return nil, err
	}

	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s         domain.Session
		userAgent sql.NullString
		ipAddress sql.NullString
		devType   string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.TokenHash, &s.DeviceName, &devType,
		&userAgent, &ipAddress, &s.IsActive, &s.CreatedAt, &s.LastUsedAt, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	s.DeviceType = device.Type(devType)
	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String
	return &s, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
