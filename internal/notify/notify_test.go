package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlackNotifier_Send(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test enhancement PR opened",
		Message: "https://github.com/acme/widgets/pull/7",
		Type:    NotifySuccess,
		TaskID:  "t1",
		PRURL:   "https://github.com/acme/widgets/pull/7",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	var msg SlackMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Text != "Test enhancement PR opened" {
		t.Errorf("Text = %q", msg.Text)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Title != "t1" {
		t.Errorf("Attachments = %+v, want task id title", msg.Attachments)
	}
	if !strings.Contains(msg.Attachments[0].Text, "pull/7") {
		t.Errorf("attachment text = %q, want PR URL", msg.Attachments[0].Text)
	}
}

func TestSlackNotifier_SendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	if err := notifier.Send(Notification{Title: "x"}); err == nil {
		t.Error("non-200 response should be an error")
	}
}

func TestSlackNotifier_DisabledWithoutWebhook(t *testing.T) {
	notifier := NewSlackNotifier("")
	if err := notifier.Send(Notification{Title: "x"}); err != nil {
		t.Errorf("empty webhook should be a no-op, got %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		if got := SlackColor(tt.typ); got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}
