package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/attacklog/attacklog/internal/config"
)

func newTestManager(t *testing.T) config.Manager {
	t.Helper()
	dir := t.TempDir()
	yaml := `
database:
  path: ` + filepath.Join(dir, "attacklog.db") + `
logging:
  app_log_path: ` + filepath.Join(dir, "app.log") + `
  audit_log_path: ` + filepath.Join(dir, "audit.log") + `
`
	path := filepath.Join(dir, "attacklog.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return mgr
}

func TestNewServerInitializesComponents(t *testing.T) {
	srv, err := NewServer(newTestManager(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.database.Close()
	defer srv.auditLogger.Close()

	if srv.store == nil || srv.engine == nil || srv.hub == nil {
		t.Error("expected all components initialized")
	}
	if srv.IsRunning() {
		t.Error("server must not report running before Start")
	}
	if srv.store.ActiveAttack() != nil {
		t.Error("fresh database must yield no active attack")
	}
	if len(srv.store.Triggers()) != 5 {
		t.Error("fresh database must seed the starter trigger vocabulary")
	}
}

func TestNewServerRequiresManager(t *testing.T) {
	if _, err := NewServer(nil); err == nil {
		t.Error("expected error for nil config manager")
	}
}

func TestStopWithoutStart(t *testing.T) {
	srv, err := NewServer(newTestManager(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.database.Close()
	defer srv.auditLogger.Close()

	if err := srv.Stop(); err == nil {
		t.Error("Stop before Start must fail")
	}
}

func TestServerStatePersistsAcrossRestart(t *testing.T) {
	mgr := newTestManager(t)

	srv1, err := NewServer(mgr)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv1.store.AddVocabularyTag("triggers", "crowded train"); err != nil {
		t.Fatalf("AddVocabularyTag: %v", err)
	}
	if err := srv1.database.SaveSnapshot(context.Background(), srv1.store.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	srv1.database.Close()
	srv1.auditLogger.Close()

	srv2, err := NewServer(mgr)
	if err != nil {
		t.Fatalf("NewServer (restart): %v", err)
	}
	defer srv2.database.Close()
	defer srv2.auditLogger.Close()

	triggers := srv2.store.Triggers()
	if triggers[len(triggers)-1] != "crowded train" {
		t.Errorf("vocabulary must survive a restart, got %v", triggers)
	}
}
