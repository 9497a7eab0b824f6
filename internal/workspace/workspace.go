package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager creates and disposes of per-task workspaces. Canonical
// workspaces live under reposDir keyed by repo short name; ephemeral
// workspaces are siblings named "{repoName}-{uniqueID}".
type Manager struct {
	reposDir string

	mu      sync.Mutex
	created map[string]struct{}
}

// NewManager creates a workspace manager rooted at reposDir
func NewManager(reposDir string) *Manager {
	return &Manager{
		reposDir: reposDir,
		created:  make(map[string]struct{}),
	}
}

// CanonicalPath returns the canonical workspace directory for a repo name
func (m *Manager) CanonicalPath(repoName string) string {
	return filepath.Join(m.reposDir, repoName)
}

// Create recursively copies the canonical workspace for repoName into a
// fresh directory suffixed with uniqueID, and returns the new path. The
// new workspace is exclusively owned by the task execution that created it.
func (m *Manager) Create(repoName, uniqueID string) (string, error) {
	src := m.CanonicalPath(repoName)
	dst := filepath.Join(m.reposDir, fmt.Sprintf("%s-%s", repoName, uniqueID))

	if err := copyDir(src, dst); err != nil {
		return "", fmt.Errorf("copying workspace %s: %w", src, err)
	}

	m.mu.Lock()
	m.created[dst] = struct{}{}
	m.mu.Unlock()

	return dst, nil
}

// Remove deletes an ephemeral workspace. Only paths this manager handed
// out from Create are eligible: a name check alone would let a canonical
// checkout with a hyphenated short name through.
func (m *Manager) Remove(path string) error {
	rel, err := filepath.Rel(m.reposDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %q: outside repos dir", path)
	}

	m.mu.Lock()
	_, ok := m.created[path]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("refusing to remove %q: not an ephemeral workspace", path)
	}

	if err := os.RemoveAll(path); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.created, path)
	m.mu.Unlock()
	return nil
}

// TestPath derives the co-located test file path from a source path by
// swapping the extension for a ".test" + extension suffix:
// "src/foo.ts" -> "src/foo.test.ts".
func TestPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)
	return base + ".test" + ext
}

func copyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
