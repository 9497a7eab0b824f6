package vcs

import (
	"fmt"
	"os/exec"
)

// BranchPrefix is the fixed prefix for enhancement branches
const BranchPrefix = "enhance/tests-"

// BranchName returns the branch name for a unique task execution id
func BranchName(uniqueID string) string {
	return BranchPrefix + uniqueID
}

// Git runs git commands inside a single workspace
type Git struct {
	dir string
}

// New creates a Git bound to a workspace directory
func New(dir string) *Git {
	return &Git{dir: dir}
}

// CreateBranch creates and checks out a new branch
func (g *Git) CreateBranch(branch string) error {
	return g.run("checkout", "-b", branch)
}

// CommitAndPush stages all changes, commits with the given message, and
// pushes the branch. The three commands are one all-or-nothing unit: the
// first failure aborts the rest, and no sub-step is retried.
func (g *Git) CommitAndPush(branch, message string) error {
	if err := g.run("add", "-A"); err != nil {
		return err
	}
	if err := g.run("commit", "-m", message); err != nil {
		return err
	}
	return g.run("push", "-u", "origin", branch)
}

func (g *Git) run(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %s: %w", args[0], out, err)
	}
	return nil
}
