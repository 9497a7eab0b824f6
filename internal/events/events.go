package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the discriminant identifying which payload shape accompanies a
// push notification.
type Kind string

const (
	KindTaskProgress  Kind = "task-progress"
	KindTaskStarted   Kind = "task-started"
	KindTaskCompleted Kind = "task-completed"
	KindTaskError     Kind = "task-error"
	KindHeartbeat     Kind = "heartbeat"
)

// Kinds lists every event kind a consumer should subscribe to.
var Kinds = []Kind{
	KindTaskProgress,
	KindTaskStarted,
	KindTaskCompleted,
	KindTaskError,
	KindHeartbeat,
}

// Known reports whether k is one of the declared event kinds.
func Known(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// EventType labels the pipeline stage a progress payload refers to.
type EventType string

const (
	TypeSetupRepo           EventType = "setup-repo"
	TypeGenerateSuggestions EventType = "generate-suggestions"
	TypeCreatePR            EventType = "create-pr"
	TypeComplete            EventType = "complete"
	TypeError               EventType = "error"
)

// ProgressPayload is the payload shape shared by the four task-* event
// kinds. The completed and error variants are the same shape further
// constrained: completed requires EventType == complete, error requires
// Metadata["error"] to be populated.
type ProgressPayload struct {
	TaskID    string            `json:"taskId"`
	RepoID    string            `json:"repoId"`
	FilePath  string            `json:"filePath"`
	RepoName  string            `json:"repoName"`
	EventType EventType         `json:"eventType"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// HeartbeatPayload is the payload for heartbeat events.
type HeartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// PushEvent is the typed envelope delivered to subscribers. Exactly one of
// Progress or Heartbeat is set, selected by Kind.
type PushEvent struct {
	Kind      Kind
	Progress  *ProgressPayload
	Heartbeat *HeartbeatPayload
}

// Parse decodes a raw payload for the given kind into a typed PushEvent.
// Data that does not conform to the kind's shape is rejected here so
// nothing downstream has to re-check it.
func Parse(kind Kind, data []byte) (PushEvent, error) {
	if !Known(kind) {
		return PushEvent{}, fmt.Errorf("unknown event kind %q", kind)
	}

	if kind == KindHeartbeat {
		var hb HeartbeatPayload
		if err := json.Unmarshal(data, &hb); err != nil {
			return PushEvent{}, fmt.Errorf("decoding heartbeat payload: %w", err)
		}
		if hb.Timestamp.IsZero() {
			return PushEvent{}, fmt.Errorf("heartbeat payload missing timestamp")
		}
		return PushEvent{Kind: kind, Heartbeat: &hb}, nil
	}

	var p ProgressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PushEvent{}, fmt.Errorf("decoding %s payload: %w", kind, err)
	}
	if err := p.Validate(); err != nil {
		return PushEvent{}, fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	return PushEvent{Kind: kind, Progress: &p}, nil
}

// Validate checks the structural requirements common to all progress-shaped
// payloads: identifying fields present and a known event type.
func (p *ProgressPayload) Validate() error {
	if p.TaskID == "" {
		return fmt.Errorf("missing taskId")
	}
	if p.RepoID == "" {
		return fmt.Errorf("missing repoId")
	}
	switch p.EventType {
	case TypeSetupRepo, TypeGenerateSuggestions, TypeCreatePR, TypeComplete, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown eventType %q", p.EventType)
	}
}

// IsTaskCompletedEvent reports whether p structurally matches the completed
// variant: a valid progress payload whose event type is the complete
// sentinel.
func IsTaskCompletedEvent(p *ProgressPayload) bool {
	if p == nil || p.Validate() != nil {
		return false
	}
	return p.EventType == TypeComplete
}

// IsTaskErrorEvent reports whether p structurally matches the error
// variant, which additionally requires metadata.error to be populated.
func IsTaskErrorEvent(p *ProgressPayload) bool {
	if p == nil || p.Validate() != nil {
		return false
	}
	return p.EventType == TypeError && p.Metadata["error"] != ""
}
