package domain

import "time"

// TaskStatus represents the lifecycle state of a task record
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusProcessed  TaskStatus = "processed"
	StatusError      TaskStatus = "error"
)

// TaskRecord is a unit of work: one source file pending AI-assisted test
// enhancement. Status only moves forward: queued -> processing ->
// processed|error.
type TaskRecord struct {
	ID        string
	RepoID    string
	Path      string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransition reports whether moving from the record's current status to
// next is a legal forward transition.
func (t *TaskRecord) CanTransition(next TaskStatus) bool {
	switch t.Status {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusError
	default:
		return false
	}
}
