package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RepoRecord represents a registered repository
type RepoRecord struct {
	ID        string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShortName derives the canonical short repository name from the URL:
// the last path segment with any .git suffix stripped.
// "https://github.com/acme/widgets.git" -> "widgets".
func (r *RepoRecord) ShortName() (string, error) {
	raw := r.URL

	// scp-style remotes (git@host:owner/repo.git) are not valid URLs;
	// rewrite them before parsing.
	if at := strings.Index(raw, "@"); at >= 0 && !strings.Contains(raw, "://") {
		if colon := strings.Index(raw[at:], ":"); colon >= 0 {
			raw = "ssh://" + raw[:at+colon] + "/" + raw[at+colon+1:]
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing repo url %q: %w", r.URL, err)
	}

	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	segments := strings.Split(path, "/")
	name := segments[len(segments)-1]
	if name == "" {
		return "", fmt.Errorf("repo url %q has no repository name", r.URL)
	}

	return name, nil
}
