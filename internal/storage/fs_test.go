package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempBackupDir(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteNewAndRead(t *testing.T) {
	s := tempBackupDir(t)
	content := []byte("---\nDocument Backup\n---\n\nbody\n")
	if err := s.WriteNew("20240301_Note_120000.md", content); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	got, err := s.Read("20240301_Note_120000.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteNewCreatesSubdirs(t *testing.T) {
	s := tempBackupDir(t)
	if err := s.WriteNew("archive/2024/deep.md", []byte("deep")); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	got, err := s.Read("archive/2024/deep.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteNewRefusesOverwrite(t *testing.T) {
	s := tempBackupDir(t)
	if err := s.WriteNew("once.md", []byte("first")); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	if err := s.WriteNew("once.md", []byte("second")); err == nil {
		t.Fatal("expected error overwriting existing backup")
	}
	got, _ := s.Read("once.md")
	if string(got) != "first" {
		t.Errorf("original content clobbered: %q", got)
	}
}

func TestExists(t *testing.T) {
	s := tempBackupDir(t)
	if s.Exists("missing.md") {
		t.Error("Exists reported a missing file")
	}
	_ = s.WriteNew("present.md", []byte("x"))
	if !s.Exists("present.md") {
		t.Error("Exists missed a written file")
	}
}

func TestList(t *testing.T) {
	s := tempBackupDir(t)
	_ = s.WriteNew("a.md", []byte("a"))
	_ = s.WriteNew("sub/b.md", []byte("b"))
	if err := os.WriteFile(filepath.Join(s.root, "readme.txt"), []byte("not md"), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.ModTime.IsZero() || item.Size == 0 {
			t.Errorf("metadata incomplete: %+v", item)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempBackupDir(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.WriteNew(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists accepted path %q", p)
		}
	}
}

func TestWriteNewLeavesNoTempFiles(t *testing.T) {
	s := tempBackupDir(t)
	if err := s.WriteNew("clean.md", []byte("content")); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/raido-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "raido-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
