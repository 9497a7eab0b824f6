package sync

import (
	"fmt"
	"os"
	"os/exec"

	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/test-enhancer/internal/domain"
)

// Manifest is the on-disk list of repositories to track.
type Manifest struct {
	Repos []ManifestRepo `yaml:"repos"`
}

// ManifestRepo is one tracked repository entry.
type ManifestRepo struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// RepoStore is the persistence surface the syncer needs.
type RepoStore interface {
	UpsertRepo(repo *domain.RepoRecord) error
}

// Workspaces resolves canonical checkout paths.
type Workspaces interface {
	CanonicalPath(repoName string) string
}

// Syncer loads the repos manifest into the store and makes sure a
// canonical checkout exists for each entry.
type Syncer struct {
	manifestPath string
	store        RepoStore
	workspaces   Workspaces

	// clone is swappable for tests
	clone func(url, dir string) error
}

// New creates a Syncer for the given manifest file.
func New(manifestPath string, store RepoStore, workspaces Workspaces) *Syncer {
	return &Syncer{
		manifestPath: manifestPath,
		store:        store,
		workspaces:   workspaces,
		clone:        gitClone,
	}
}

// LoadManifest reads and parses the manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i, repo := range m.Repos {
		if repo.ID == "" {
			return nil, fmt.Errorf("manifest repo %d: missing id", i)
		}
		if repo.URL == "" {
			return nil, fmt.Errorf("manifest repo %q: missing url", repo.ID)
		}
	}
	return &m, nil
}

// Sync upserts every manifest entry into the store and clones any
// missing canonical checkout. Entries with unusable URLs are skipped
// with an error listing them.
func (s *Syncer) Sync() error {
	m, err := LoadManifest(s.manifestPath)
	if err != nil {
		return err
	}

	var firstErr error
	for _, entry := range m.Repos {
		record := &domain.RepoRecord{ID: entry.ID, URL: entry.URL}

		name, err := record.ShortName()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("repo %q: %w", entry.ID, err)
			}
			continue
		}

		if err := s.store.UpsertRepo(record); err != nil {
			return fmt.Errorf("upsert repo %q: %w", entry.ID, err)
		}

		dir := s.workspaces.CanonicalPath(name)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := s.clone(entry.URL, dir); err != nil {
				return fmt.Errorf("clone repo %q: %w", entry.ID, err)
			}
		}
	}
	return firstErr
}

func gitClone(url, dir string) error {
	cmd := exec.Command("git", "clone", url, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s: %s: %w", url, string(out), err)
	}
	return nil
}
