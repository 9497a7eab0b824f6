package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestBranchName(t *testing.T) {
	if got := BranchName("abc123"); got != "enhance/tests-abc123" {
		t.Errorf("BranchName = %q, want enhance/tests-abc123", got)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"add", "-A"},
		{"commit", "-m", "initial"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}

	return dir
}

func TestGit_CreateBranch(t *testing.T) {
	dir := initRepo(t)
	g := New(dir)

	if err := g.CreateBranch("enhance/tests-abc123"); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(out)); got != "enhance/tests-abc123" {
		t.Errorf("current branch = %q, want enhance/tests-abc123", got)
	}

	// Creating the same branch again is a non-zero exit
	if err := g.CreateBranch("enhance/tests-abc123"); err == nil {
		t.Error("duplicate branch creation should fail")
	}
}

func TestGit_CommitAndPush_FailsWithoutRemote(t *testing.T) {
	dir := initRepo(t)
	g := New(dir)

	if err := g.CreateBranch("enhance/tests-abc123"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src.test.ts"), []byte("test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// No origin configured: add and commit succeed, push fails, the whole
	// unit reports failure.
	err := g.CommitAndPush("enhance/tests-abc123", "Enhance tests for src.ts")
	if err == nil {
		t.Fatal("push without a remote should fail")
	}
	if !strings.Contains(err.Error(), "git push") {
		t.Errorf("error should identify the failing command, got %v", err)
	}

	// The commit landed before the push failed; no rollback happens.
	cmd := exec.Command("git", "log", "--oneline")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Enhance tests for src.ts") {
		t.Error("commit should exist even though push failed")
	}
}

func TestGit_CommitAndPush(t *testing.T) {
	dir := initRepo(t)

	// Bare remote so push can succeed
	remote := t.TempDir()
	cmd := exec.Command("git", "init", "--bare", remote)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init --bare: %s: %v", out, err)
	}
	cmd = exec.Command("git", "remote", "add", "origin", remote)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git remote add: %s: %v", out, err)
	}

	g := New(dir)
	if err := g.CreateBranch("enhance/tests-abc123"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src.test.ts"), []byte("test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := g.CommitAndPush("enhance/tests-abc123", "Enhance tests for src.ts"); err != nil {
		t.Fatal(err)
	}

	cmd = exec.Command("git", "branch", "-r")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "origin/enhance/tests-abc123") {
		t.Errorf("remote branch missing, got %q", out)
	}
}
