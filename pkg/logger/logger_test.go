package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuditWriterDefaults(t *testing.T) {
	w := newAuditWriter(AuditConfig{Path: filepath.Join(t.TempDir(), "audit.log")})
	if w.MaxSize != 100 || w.MaxBackups != 7 {
		t.Fatalf("unexpected defaults: size=%d backups=%d", w.MaxSize, w.MaxBackups)
	}
	w = newAuditWriter(AuditConfig{Path: "x.log", MaxSizeMB: 5, MaxBackups: 2})
	if w.MaxSize != 5 || w.MaxBackups != 2 {
		t.Fatalf("explicit limits overwritten: size=%d backups=%d", w.MaxSize, w.MaxBackups)
	}
}

func TestInitWritesAuditToFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "decisions.log")

	err := Init(Config{
		Level:       "debug",
		OutputPaths: []string{"discard"},
		Audit:       AuditConfig{Enabled: true, Path: auditPath},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = Sync()
		_ = Init(Config{OutputPaths: []string{"discard"}})
	})

	Audit().Info("agent decision recorded", "agent_id", "agent-7")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	content, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(content), `"agent_id":"agent-7"`) {
		t.Fatalf("audit entry missing: %s", content)
	}
}

func TestInitRejectsEmptyAuditPath(t *testing.T) {
	if err := Init(Config{OutputPaths: []string{"discard"}, Audit: AuditConfig{Enabled: true}}); err == nil {
		t.Fatalf("expected error for empty audit path")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING").String() != "WARN" {
		t.Fatalf("unexpected level for WARNING")
	}
	if parseLevel("bogus").String() != "INFO" {
		t.Fatalf("unexpected default level")
	}
}
