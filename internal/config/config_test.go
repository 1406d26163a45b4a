package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"docket/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DOCKET_DATA_DIR", "")
	t.Setenv("DOCKET_PROJECTS_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "docket", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.StagingDir != filepath.Join(wantData, "staging") {
		t.Fatalf("expected staging dir under data dir, got %q", cfg.Paths.StagingDir)
	}
	if cfg.Paths.ProjectsDir != filepath.Join(tempHome, "projects") {
		t.Fatalf("unexpected projects dir: %q", cfg.Paths.ProjectsDir)
	}
	if cfg.Archive.MaxEntries != config.Default().Archive.MaxEntries {
		t.Fatalf("unexpected archive cap: %d", cfg.Archive.MaxEntries)
	}
	if cfg.Principal.Role != "user" {
		t.Fatalf("expected default role user, got %q", cfg.Principal.Role)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.QueueDir(), cfg.LockDir(), cfg.LedgerRoot(), cfg.AccessRequestDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.ProjectsDir); !os.IsNotExist(err) {
		t.Fatalf("projects root must not be created, stat err=%v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "docket.toml")

	type payload struct {
		Paths struct {
			DataDir     string `toml:"data_dir"`
			ProjectsDir string `toml:"projects_dir"`
		} `toml:"paths"`
		Principal struct {
			ID    string   `toml:"id"`
			Role  string   `toml:"role"`
			Teams []string `toml:"teams"`
		} `toml:"principal"`
		Archive struct {
			MaxEntries int `toml:"max_entries"`
		} `toml:"archive"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "shared")
	custom.Paths.ProjectsDir = filepath.Join(tempDir, "projects")
	custom.Principal.ID = "bob"
	custom.Principal.Role = "Team_Lead"
	custom.Principal.Teams = []string{" design ", ""}
	custom.Archive.MaxEntries = 25
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Principal.Role != "team_lead" {
		t.Fatalf("expected normalized role, got %q", cfg.Principal.Role)
	}
	if len(cfg.Principal.Teams) != 1 || cfg.Principal.Teams[0] != "design" {
		t.Fatalf("expected trimmed teams, got %v", cfg.Principal.Teams)
	}
	if cfg.Archive.MaxEntries != 25 {
		t.Fatalf("expected archive cap 25, got %d", cfg.Archive.MaxEntries)
	}
	if cfg.ArchivePath() != filepath.Join(tempDir, "shared", "archive.db") {
		t.Fatalf("unexpected archive path %q", cfg.ArchivePath())
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "docket.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\ndata_dir = \""+filepath.ToSlash(filepath.Join(tempDir, "data"))+"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("DOCKET_TEST_NTFY=unused\nSMTP_PASS=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("SMTP_PASS", "")
	os.Unsetenv("SMTP_PASS")
	t.Cleanup(func() {
		os.Unsetenv("DOCKET_TEST_NTFY")
	})

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SMTP.Password != "from-dotenv" {
		t.Fatalf("expected smtp password from .env, got %q", cfg.SMTP.Password)
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	cfg := config.Default()
	cfg.Principal.Role = "owner"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "principal.role") {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestValidateRequiresSMTPForEmail(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.EmailTo = []string{"lead@example.com"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "smtp.host") {
		t.Fatalf("expected smtp.host error, got %v", err)
	}
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = "docket@example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
