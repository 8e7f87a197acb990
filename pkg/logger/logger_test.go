package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesAuditRecords(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "console.log")

	if err := Init(Config{
		Level:       "debug",
		OutputPaths: []string{filepath.Join(dir, "app.log")},
		Audit:       AuditConfig{Enabled: true, Path: auditPath},
	}); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(func() { _ = Sync() })

	Audit().Info("console run started", "total_steps", 7)
	Named("runner").Debug("step applied")

	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	content, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(content), `"stream":"audit"`) || !strings.Contains(string(content), "console run started") {
		t.Fatalf("unexpected audit content: %s", content)
	}

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read app log: %v", err)
	}
	if !strings.Contains(string(app), `"component":"runner"`) {
		t.Fatalf("expected component attribute, got: %s", app)
	}
}

func TestSizeRotatorRollsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := newSizeRotator(path, 1, 2)
	if err != nil {
		t.Fatalf("new rotator: %v", err)
	}
	w.maxSize = 16
	defer w.Close()

	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected at most two backups")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
