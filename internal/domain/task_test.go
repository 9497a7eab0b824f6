package domain

import (
	"testing"
)

func TestTaskRecord_CanTransition(t *testing.T) {
	tests := []struct {
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusProcessed, false},
		{StatusQueued, StatusError, false},
		{StatusProcessing, StatusProcessed, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusQueued, false},
		{StatusProcessed, StatusProcessing, false},
		{StatusError, StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			task := TaskRecord{Status: tt.from}
			if got := task.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRepoRecord_ShortName(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/acme/widgets", "widgets", false},
		{"https://github.com/acme/widgets.git", "widgets", false},
		{"git@github.com:acme/widgets.git", "widgets", false},
		{"https://gitlab.example.com/group/sub/project", "project", false},
		{"https://github.com/", "", true},
		{"://not-a-url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			repo := RepoRecord{ID: "r1", URL: tt.url}
			got, err := repo.ShortName()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShortName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ShortName() = %q, want %q", got, tt.want)
			}
		})
	}
}
