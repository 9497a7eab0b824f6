package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.General.PollSchedule != "@every 1m" {
		t.Errorf("PollSchedule = %q, want @every 1m", cfg.General.PollSchedule)
	}
	if cfg.General.ReposDir != "./repos" {
		t.Errorf("ReposDir = %q, want ./repos", cfg.General.ReposDir)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.General.RetainWorkspaces {
		t.Error("RetainWorkspaces should default to false")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.Model == "" {
		t.Error("defaults should set a model")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[general]
repos_dir = "/srv/repos"
poll_schedule = "@every 30s"
retain_workspaces = true

[ai]
model = "llama3.1:8b"

[web]
port = 9090
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.ReposDir != "/srv/repos" {
		t.Errorf("ReposDir = %q, want /srv/repos", cfg.General.ReposDir)
	}
	if cfg.General.PollSchedule != "@every 30s" {
		t.Errorf("PollSchedule = %q, want @every 30s", cfg.General.PollSchedule)
	}
	if !cfg.General.RetainWorkspaces {
		t.Error("RetainWorkspaces should be true")
	}
	if cfg.AI.Model != "llama3.1:8b" {
		t.Errorf("Model = %q, want llama3.1:8b", cfg.AI.Model)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Web.Port)
	}
	// Unset sections keep defaults
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default", cfg.Web.Host)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[general\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on invalid TOML")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := ExpandPath("~/repos"); got != filepath.Join(home, "repos") {
		t.Errorf("ExpandPath(~/repos) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
