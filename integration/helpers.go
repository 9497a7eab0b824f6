//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// WriteManifest writes a repos manifest into a temp dir and returns its path
func WriteManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repos.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	return path
}

// SeedRepoCheckout creates a fake canonical checkout with one source and
// one test file under reposDir
func SeedRepoCheckout(t *testing.T, reposDir, name string) string {
	t.Helper()
	dir := filepath.Join(reposDir, name)
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("Failed to seed checkout: %v", err)
	}
	os.WriteFile(filepath.Join(srcDir, "foo.ts"), []byte("export function add(a, b) { return a + b }\n"), 0644)
	os.WriteFile(filepath.Join(srcDir, "foo.test.ts"), []byte("test('add', () => {})\n"), 0644)
	return dir
}
