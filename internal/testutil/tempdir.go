package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempFile returns the path of a not yet existing file named name inside a
// directory removed when the test ends.
func TempFile(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// WriteTempFile writes data to a fresh temporary file and returns its path.
func WriteTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := TempFile(t, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
