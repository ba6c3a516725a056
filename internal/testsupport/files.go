package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile drops a stand-in clip or image of the given size at path,
// creating parent directories as needed. Sizes <= 0 still produce one byte
// so the file passes non-empty checks.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x5a}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
