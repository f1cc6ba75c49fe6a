package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = slog.LevelError
	cfg.Backup.Path = filepath.Join(dir, "backups")
	cfg.SQLite.Path = filepath.Join(dir, "raido.db")
	cfg.Sync.ImageDir = filepath.Join(dir, "images")
	return cfg
}

func TestInitRuntime_BuildsWorkingEngine(t *testing.T) {
	cfg := testConfig(t)

	rt, err := initRuntime(cfg, false, io.Discard)
	if err != nil {
		t.Fatalf("initRuntime: %v", err)
	}
	defer rt.close()

	if rt.broker != nil {
		t.Error("one-shot runtime started a broker")
	}
	if _, err := os.Stat(cfg.Backup.Path); err != nil {
		t.Errorf("backup dir not created: %v", err)
	}

	content := "---\ntitle: Imported Note\n---\nBody text.\n"
	if err := os.WriteFile(filepath.Join(cfg.Backup.Path, "2024-03-01_Imported_Note.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	report := rt.engine.Sweep(context.Background(), 2, true)
	if report.Processed != 1 || report.Created != 1 || report.Errors != 0 {
		t.Errorf("report = processed:%d created:%d errors:%d, want 1/1/0",
			report.Processed, report.Created, report.Errors)
	}
}

func TestInitRuntime_ServeModeStartsBroker(t *testing.T) {
	cfg := testConfig(t)

	rt, err := initRuntime(cfg, true, io.Discard)
	if err != nil {
		t.Fatalf("initRuntime: %v", err)
	}
	defer rt.close()

	if rt.broker == nil {
		t.Fatal("serve runtime missing SSE broker")
	}
}
