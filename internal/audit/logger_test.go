package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"session-control-plane/internal/audit/domain"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	fail    bool
}

func (r *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if r.fail {
		return errors.New("insert failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e2 := *entry
	r.entries = append(r.entries, &e2)
	return nil
}

func (r *memAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestLogger_RecordPersistsEntry(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo)

	l.Record(context.Background(), "u1", domain.ActionForceLogout, "reported compromise", `{"by":"support"}`)

	entries, err := repo.ListByUser(context.Background(), "u1", 50)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("entry id not assigned")
	}
	if e.Action != domain.ActionForceLogout || e.Reason != "reported compromise" {
		t.Errorf("entry = %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry timestamp not set")
	}
}

func TestLogger_RecordIsBestEffort(t *testing.T) {
	l := NewLogger(&memAuditRepo{fail: true})
	// Must not panic or block on a failing store.
	l.Record(context.Background(), "u1", domain.ActionDeviceLimitEvicted, "over cap", "")

	var nilLogger *Logger = NewLogger(nil)
	nilLogger.Record(context.Background(), "u1", domain.ActionForceLogout, "", "")
}
