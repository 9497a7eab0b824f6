package pipeline

import (
	"errors"
	"fmt"
)

// ErrKind identifies which pipeline stage class failed. Every stage maps to
// exactly one kind.
type ErrKind string

const (
	ErrRepoNotFound   ErrKind = "RepoNotFound"
	ErrInvalidRepoURL ErrKind = "InvalidRepoUrl"
	ErrWorkspace      ErrKind = "WorkspaceError"
	ErrVCS            ErrKind = "VCSError"
	ErrFileNotFound   ErrKind = "FileNotFound"
	ErrGeneration     ErrKind = "GenerationError"
	ErrPRSubmission   ErrKind = "PRSubmissionError"
)

// Error is a pipeline failure tied to the stage that produced it
type Error struct {
	Kind  ErrKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: stage %s failed", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s: stage %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind of a pipeline failure, or "" for other
// errors.
func KindOf(err error) ErrKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
