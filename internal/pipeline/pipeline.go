// Package pipeline implements the ordered, fail-fast enhancement sequence:
// resolve repo, copy workspace, branch, generate suggestions, commit, push,
// open a PR. Any stage failure aborts the remaining stages; completed side
// effects are not rolled back.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/test-enhancer/internal/ai"
	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/events"
	"github.com/hochfrequenz/test-enhancer/internal/vcs"
	"github.com/hochfrequenz/test-enhancer/internal/workspace"
)

// RepoStore resolves the repository a task belongs to
type RepoStore interface {
	GetRepo(id string) (*domain.RepoRecord, error)
}

// Submitter opens a pull request for a pushed enhancement branch
type Submitter interface {
	Submit(workspacePath, filePath, uniqueID string) (string, error)
}

// Git is the version-control surface the pipeline needs from a workspace
type Git interface {
	CreateBranch(branch string) error
	CommitAndPush(branch, message string) error
}

// Publisher receives progress events as the pipeline advances
type Publisher func(ev events.PushEvent)

// Result describes a successful pipeline run
type Result struct {
	UniqueID      string
	RepoName      string
	WorkspacePath string
	Branch        string
	PRURL         string
}

// Pipeline drives one task through the enhancement sequence
type Pipeline struct {
	repos      RepoStore
	workspaces *workspace.Manager
	adapter    ai.Adapter
	submitter  Submitter
	publish    Publisher
	retain     bool

	// Seams for tests
	newGit func(dir string) Git
	newID  func() string
}

// Options configures optional pipeline behavior
type Options struct {
	// RetainWorkspaces keeps ephemeral workspaces on disk after a run
	// instead of removing them.
	RetainWorkspaces bool
}

// New creates a Pipeline
func New(repos RepoStore, workspaces *workspace.Manager, adapter ai.Adapter, submitter Submitter, publish Publisher, opts Options) *Pipeline {
	if publish == nil {
		publish = func(events.PushEvent) {}
	}
	return &Pipeline{
		repos:      repos,
		workspaces: workspaces,
		adapter:    adapter,
		submitter:  submitter,
		publish:    publish,
		retain:     opts.RetainWorkspaces,
		newGit:     func(dir string) Git { return vcs.New(dir) },
		newID:      uuid.NewString,
	}
}

// run carries the state threaded through the stages of one execution
type run struct {
	task     *domain.TaskRecord
	uniqueID string

	repo        *domain.RepoRecord
	repoName    string
	wsPath      string
	branch      string
	sourcePath  string
	testPath    string
	source      string
	test        string
	suggestions string
	prURL       string
}

type stage struct {
	name string
	kind ErrKind
	fn   func(ctx context.Context, r *run) error
}

// Run executes every stage in order, short-circuiting on the first failure.
func (p *Pipeline) Run(ctx context.Context, task *domain.TaskRecord) (*Result, error) {
	r := &run{task: task, uniqueID: p.newID()}

	stages := []stage{
		{"resolve-repo", ErrRepoNotFound, p.resolveRepo},
		{"derive-repo-name", ErrInvalidRepoURL, p.deriveRepoName},
		{"copy-workspace", ErrWorkspace, p.copyWorkspace},
		{"create-branch", ErrVCS, p.createBranch},
		{"read-files", ErrFileNotFound, p.readFiles},
		{"generate-suggestions", ErrGeneration, p.generateSuggestions},
		{"write-test-file", ErrWorkspace, p.writeTestFile},
		{"commit-and-push", ErrVCS, p.commitAndPush},
		{"submit-pr", ErrPRSubmission, p.submitPR},
	}

	defer p.dispose(r)

	for _, s := range stages {
		if err := s.fn(ctx, r); err != nil {
			return nil, &Error{Kind: s.kind, Stage: s.name, Err: err}
		}
	}

	return &Result{
		UniqueID:      r.uniqueID,
		RepoName:      r.repoName,
		WorkspacePath: r.wsPath,
		Branch:        r.branch,
		PRURL:         r.prURL,
	}, nil
}

func (p *Pipeline) resolveRepo(ctx context.Context, r *run) error {
	repo, err := p.repos.GetRepo(r.task.RepoID)
	if err != nil {
		return fmt.Errorf("repo %s: %w", r.task.RepoID, err)
	}
	r.repo = repo
	return nil
}

func (p *Pipeline) deriveRepoName(ctx context.Context, r *run) error {
	name, err := r.repo.ShortName()
	if err != nil {
		return err
	}
	r.repoName = name
	return nil
}

func (p *Pipeline) copyWorkspace(ctx context.Context, r *run) error {
	p.progress(r, events.TypeSetupRepo, "copying canonical workspace")

	path, err := p.workspaces.Create(r.repoName, r.uniqueID)
	if err != nil {
		return err
	}
	r.wsPath = path
	return nil
}

func (p *Pipeline) createBranch(ctx context.Context, r *run) error {
	r.branch = vcs.BranchName(r.uniqueID)
	return p.newGit(r.wsPath).CreateBranch(r.branch)
}

func (p *Pipeline) readFiles(ctx context.Context, r *run) error {
	r.sourcePath = filepath.Join(r.wsPath, r.task.Path)
	r.testPath = filepath.Join(r.wsPath, workspace.TestPath(r.task.Path))

	source, err := os.ReadFile(r.sourcePath)
	if err != nil {
		return fmt.Errorf("source file: %w", err)
	}
	test, err := os.ReadFile(r.testPath)
	if err != nil {
		return fmt.Errorf("test file: %w", err)
	}

	r.source = string(source)
	r.test = string(test)
	return nil
}

func (p *Pipeline) generateSuggestions(ctx context.Context, r *run) error {
	p.progress(r, events.TypeGenerateSuggestions, "generating test suggestions")

	suggestions, err := p.adapter.GenerateSuggestions(ctx, r.test, r.source)
	if err != nil {
		return err
	}
	if strings.TrimSpace(suggestions) == "" {
		return fmt.Errorf("adapter returned no usable content")
	}
	r.suggestions = suggestions
	return nil
}

func (p *Pipeline) writeTestFile(ctx context.Context, r *run) error {
	return os.WriteFile(r.testPath, []byte(r.suggestions), 0644)
}

func (p *Pipeline) commitAndPush(ctx context.Context, r *run) error {
	message := fmt.Sprintf("Enhance tests for %s", r.task.Path)
	return p.newGit(r.wsPath).CommitAndPush(r.branch, message)
}

func (p *Pipeline) submitPR(ctx context.Context, r *run) error {
	p.progress(r, events.TypeCreatePR, "submitting pull request")

	url, err := p.submitter.Submit(r.wsPath, r.task.Path, r.uniqueID)
	if err != nil {
		return err
	}
	r.prURL = url
	return nil
}

// dispose removes the ephemeral workspace after a run, success or failure,
// unless retention is configured for audit.
func (p *Pipeline) dispose(r *run) {
	if p.retain || r.wsPath == "" {
		return
	}
	if err := p.workspaces.Remove(r.wsPath); err != nil {
		log.Printf("removing workspace %s: %v", r.wsPath, err)
	}
}

func (p *Pipeline) progress(r *run, eventType events.EventType, message string) {
	p.publish(events.PushEvent{
		Kind: events.KindTaskProgress,
		Progress: &events.ProgressPayload{
			TaskID:    r.task.ID,
			RepoID:    r.task.RepoID,
			FilePath:  r.task.Path,
			RepoName:  r.repoName,
			EventType: eventType,
			Message:   message,
			Timestamp: time.Now(),
		},
	})
}
