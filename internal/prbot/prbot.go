package prbot

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/hochfrequenz/test-enhancer/internal/vcs"
)

const prBodyTemplate = `## Summary
AI-enhanced tests for %s

## Changes
Regenerated the co-located test file with additional coverage suggestions.

## Branch
%s

---
Automated test enhancement
`

// PRBot creates pull requests for enhancement branches using the gh CLI
type PRBot struct{}

// New creates a new PRBot
func New() *PRBot {
	return &PRBot{}
}

// BuildPRBody constructs the PR body for an enhanced file
func BuildPRBody(filePath, uniqueID string) string {
	return fmt.Sprintf(prBodyTemplate, filePath, vcs.BranchName(uniqueID))
}

// Submit creates a pull request for the branch pushed from workspacePath.
// Returns the PR URL on success.
func (p *PRBot) Submit(workspacePath, filePath, uniqueID string) (string, error) {
	branch := vcs.BranchName(uniqueID)
	title := fmt.Sprintf("test: enhance tests for %s", filePath)

	cmd := exec.Command("gh", "pr", "create",
		"--title", title,
		"--body", BuildPRBody(filePath, uniqueID),
		"--head", branch,
	)
	cmd.Dir = workspacePath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh pr create: %s: %w", out, err)
	}

	return strings.TrimSpace(string(out)), nil
}
