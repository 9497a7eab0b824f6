package sync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/workspace"
)

type fakeRepoStore struct {
	upserted []*domain.RepoRecord
}

func (f *fakeRepoStore) UpsertRepo(repo *domain.RepoRecord) error {
	f.upserted = append(f.upserted, repo)
	return nil
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repos.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `repos:
  - id: widgets
    url: https://github.com/acme/widgets.git
  - id: gadgets
    url: git@github.com:acme/gadgets.git
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Repos) != 2 {
		t.Fatalf("Repos = %d, want 2", len(m.Repos))
	}
	if m.Repos[0].ID != "widgets" || m.Repos[1].URL != "git@github.com:acme/gadgets.git" {
		t.Errorf("unexpected entries: %+v", m.Repos)
	}
}

func TestLoadManifest_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing id", "repos:\n  - url: https://github.com/a/b.git\n", "missing id"},
		{"missing url", "repos:\n  - id: widgets\n", "missing url"},
		{"invalid yaml", "repos: [", "parse manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.content)
			_, err := LoadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSync_UpsertsAndClonesMissing(t *testing.T) {
	reposDir := t.TempDir()
	mgr := workspace.NewManager(reposDir)

	// gadgets already checked out, widgets is not
	if err := os.MkdirAll(mgr.CanonicalPath("gadgets"), 0755); err != nil {
		t.Fatal(err)
	}

	path := writeManifest(t, `repos:
  - id: r-widgets
    url: https://github.com/acme/widgets.git
  - id: r-gadgets
    url: https://github.com/acme/gadgets.git
`)

	store := &fakeRepoStore{}
	syncer := New(path, store, mgr)

	var cloned []string
	syncer.clone = func(url, dir string) error {
		cloned = append(cloned, url)
		return os.MkdirAll(dir, 0755)
	}

	if err := syncer.Sync(); err != nil {
		t.Fatal(err)
	}

	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d repos, want 2", len(store.upserted))
	}
	if len(cloned) != 1 || !strings.Contains(cloned[0], "widgets") {
		t.Errorf("cloned = %v, want only widgets", cloned)
	}
}

func TestSync_SkipsBadURL(t *testing.T) {
	reposDir := t.TempDir()
	mgr := workspace.NewManager(reposDir)

	path := writeManifest(t, `repos:
  - id: broken
    url: "https://github.com/"
  - id: ok
    url: https://github.com/acme/widgets.git
`)

	store := &fakeRepoStore{}
	syncer := New(path, store, mgr)
	syncer.clone = func(url, dir string) error { return os.MkdirAll(dir, 0755) }

	err := syncer.Sync()
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want error naming the broken repo", err)
	}

	// The good entry still made it through
	if len(store.upserted) != 1 || store.upserted[0].ID != "ok" {
		t.Errorf("upserted = %+v, want only the ok repo", store.upserted)
	}
}

func TestSync_MissingManifest(t *testing.T) {
	store := &fakeRepoStore{}
	syncer := New(filepath.Join(t.TempDir(), "nope.yaml"), store, workspace.NewManager(t.TempDir()))

	if err := syncer.Sync(); err == nil {
		t.Error("expected error for missing manifest")
	}
}
