package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes an executable /bin/sh script into a fresh temp dir and returns its path.
// The script receives the evaluator arguments: $1 is the test type, $2 the asset path.
func WriteScript(t testing.TB, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evaluator.sh")
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write evaluator script: %v", err)
	}
	return path
}

// WriteAsset creates a file standing in for an uploaded video and returns its path
func WriteAsset(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return path
}
