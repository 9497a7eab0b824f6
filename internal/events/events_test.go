package events

import (
	"testing"
	"time"
)

func validProgress() *ProgressPayload {
	return &ProgressPayload{
		TaskID:    "t1",
		RepoID:    "r1",
		FilePath:  "src/foo.ts",
		RepoName:  "widgets",
		EventType: TypeSetupRepo,
		Message:   "copying workspace",
		Timestamp: time.Now(),
	}
}

func TestParse_Progress(t *testing.T) {
	data := []byte(`{
		"taskId": "t1",
		"repoId": "r1",
		"filePath": "src/foo.ts",
		"repoName": "widgets",
		"eventType": "generate-suggestions",
		"message": "calling model",
		"timestamp": "2026-08-30T12:00:00Z"
	}`)

	ev, err := Parse(KindTaskProgress, data)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindTaskProgress {
		t.Errorf("Kind = %q, want %q", ev.Kind, KindTaskProgress)
	}
	if ev.Progress == nil {
		t.Fatal("Progress payload not set")
	}
	if ev.Progress.EventType != TypeGenerateSuggestions {
		t.Errorf("EventType = %q, want %q", ev.Progress.EventType, TypeGenerateSuggestions)
	}
	if ev.Heartbeat != nil {
		t.Error("Heartbeat should not be set on a progress event")
	}
}

func TestParse_Heartbeat(t *testing.T) {
	ev, err := Parse(KindHeartbeat, []byte(`{"timestamp": "2026-08-30T12:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Heartbeat == nil {
		t.Fatal("Heartbeat payload not set")
	}
	if ev.Heartbeat.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		data string
	}{
		{"unknown kind", Kind("task-banana"), `{}`},
		{"malformed json", KindTaskProgress, `{not json`},
		{"missing taskId", KindTaskProgress, `{"repoId":"r1","eventType":"setup-repo"}`},
		{"missing repoId", KindTaskStarted, `{"taskId":"t1","eventType":"setup-repo"}`},
		{"unknown eventType", KindTaskProgress, `{"taskId":"t1","repoId":"r1","eventType":"reticulate"}`},
		{"heartbeat missing timestamp", KindHeartbeat, `{}`},
		{"heartbeat malformed", KindHeartbeat, `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.kind, []byte(tt.data)); err == nil {
				t.Errorf("Parse(%s, %s) should have failed", tt.kind, tt.data)
			}
		})
	}
}

func TestIsTaskCompletedEvent(t *testing.T) {
	p := validProgress()
	if IsTaskCompletedEvent(p) {
		t.Error("setup-repo payload should not match completed")
	}

	p.EventType = TypeComplete
	if !IsTaskCompletedEvent(p) {
		t.Error("complete payload should match")
	}

	p.TaskID = ""
	if IsTaskCompletedEvent(p) {
		t.Error("payload missing taskId should not match")
	}

	if IsTaskCompletedEvent(nil) {
		t.Error("nil payload should not match")
	}
}

func TestIsTaskErrorEvent(t *testing.T) {
	p := validProgress()
	p.EventType = TypeError
	if IsTaskErrorEvent(p) {
		t.Error("error payload without metadata.error should not match")
	}

	p.Metadata = map[string]string{"error": "git push failed"}
	if !IsTaskErrorEvent(p) {
		t.Error("error payload with metadata.error should match")
	}

	p.EventType = TypeComplete
	if IsTaskErrorEvent(p) {
		t.Error("complete payload should not match error")
	}
}
