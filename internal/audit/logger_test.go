package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (Logger, string) {
	t.Helper()
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")

	logger, err := NewLogger(&Config{
		AuditLogPath: auditPath,
		AppLogPath:   filepath.Join(dir, "app.log"),
		MaxSize:      1,
		MaxBackups:   1,
		MaxAge:       1,
		LogLevel:     "debug",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger, auditPath
}

func TestAuditTrailWritesEvents(t *testing.T) {
	logger, path := newTestLogger(t)
	ctx := WithCorrelationID(context.Background(), "req-123")

	if err := logger.LogAttackStarted(ctx, 42, 7); err != nil {
		t.Fatalf("LogAttackStarted: %v", err)
	}
	if err := logger.LogVocabularyTagAdded(ctx, "triggers", "crowded train"); err != nil {
		t.Fatalf("LogVocabularyTagAdded: %v", err)
	}
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, string(EventAttackStarted)) {
		t.Errorf("audit log missing %s event:\n%s", EventAttackStarted, out)
	}
	if !strings.Contains(out, string(EventVocabularyTagAdded)) {
		t.Errorf("audit log missing %s event:\n%s", EventVocabularyTagAdded, out)
	}
	if !strings.Contains(out, "req-123") {
		t.Error("audit events must carry the correlation ID from the context")
	}
	if !strings.Contains(out, "crowded train") {
		t.Error("vocabulary events must record the tag")
	}
}

func TestEventBuilder(t *testing.T) {
	err := os.ErrPermission
	event := NewEvent(EventSnapshotSaveFailed).
		WithCorrelationID("abc").
		WithAttack(7).
		WithError(err)

	if event.Result != ResultFailure {
		t.Error("WithError must mark the event failed")
	}
	if event.Error != err.Error() {
		t.Errorf("expected error %q, got %q", err.Error(), event.Error)
	}
	if event.Timestamp.IsZero() {
		t.Error("events must be timestamped at creation")
	}

	ok := NewEvent(EventAttackEnded).WithError(nil)
	if ok.Result != ResultSuccess {
		t.Error("nil error must keep the event successful")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelationID(ctx); got != "" {
		t.Errorf("expected empty correlation ID, got %q", got)
	}
	ctx = WithCorrelationID(ctx, "xyz")
	if got := GetCorrelationID(ctx); got != "xyz" {
		t.Errorf("expected xyz, got %q", got)
	}
}
