// Package audit records security-relevant events for later review.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"session-control-plane/internal/audit/domain"
	auditrepo "session-control-plane/internal/audit/repository"
)

// Recorder writes a single audit event. Used by the policy engine's forced
// logout and eviction paths. Record is best-effort: failures are logged and do
// not affect the caller.
type Recorder interface {
	Record(ctx context.Context, userID, action, reason, metadata string)
}

// Logger implements Recorder using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Recorder that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, userID, action, reason, metadata string) {
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s for user %s: %v", action, userID, err)
	}
}
