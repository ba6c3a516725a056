package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/fileutil"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")
	if err := os.WriteFile(src, []byte("clip-bytes"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "clip-bytes" {
		t.Fatalf("dst = %q", data)
	}

	if err := fileutil.CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatal("missing source should fail")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("stat: %v", err)
	}
	// Idempotent on an existing directory.
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir again: %v", err)
	}
}

func TestFileChecks(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	os.WriteFile(empty, nil, 0o644)
	os.WriteFile(full, []byte("x"), 0o644)

	if !fileutil.FileExists(empty) || !fileutil.FileExists(full) {
		t.Fatal("FileExists should see both files")
	}
	if fileutil.FileExists(dir) {
		t.Fatal("directories are not regular files")
	}
	if fileutil.NonEmptyFile(empty) {
		t.Fatal("empty file should not count as non-empty")
	}
	if !fileutil.NonEmptyFile(full) {
		t.Fatal("non-empty file misreported")
	}
	if fileutil.NonEmptyFile(filepath.Join(dir, "missing")) {
		t.Fatal("missing file misreported")
	}
}

func TestSiblingPath(t *testing.T) {
	got := fileutil.SiblingPath(filepath.Join("out", "clip.mp4"), "refined")
	if got != filepath.Join("out", "clip.refined.mp4") {
		t.Fatalf("SiblingPath = %q", got)
	}
	if got := fileutil.SiblingPath("clip", "graded"); got != "clip.graded" {
		t.Fatalf("extensionless = %q", got)
	}
}
