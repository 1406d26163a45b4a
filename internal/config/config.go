package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths locates the shared data root, the permanent projects tree, and local logs.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	ProjectsDir string `toml:"projects_dir"`
	StagingDir  string `toml:"staging_dir"`
	LogDir      string `toml:"log_dir"`
}

// Principal supplies the default identity for CLI invocations.
type Principal struct {
	ID    string   `toml:"id"`
	Role  string   `toml:"role"`
	Teams []string `toml:"teams"`
}

// Coordinator bounds advisory lock acquisition.
type Coordinator struct {
	LockAttempts  int `toml:"lock_attempts"`
	LockBackoffMS int `toml:"lock_backoff_ms"`
}

// Placement contains settings for relocating approved artifacts.
type Placement struct {
	ProbeTimeoutSeconds int  `toml:"probe_timeout_seconds"`
	MaxNumericSuffix    int  `toml:"max_numeric_suffix"`
	WriteSidecar        bool `toml:"write_sidecar"`
}

// Archive bounds terminal-state retention.
type Archive struct {
	MaxEntries int `toml:"max_entries"`
}

// Notifications contains ntfy and e-mail delivery settings.
type Notifications struct {
	NtfyTopic      string   `toml:"ntfy_topic"`
	RequestTimeout int      `toml:"request_timeout"`
	EmailTo        []string `toml:"email_to"`
}

// SMTP configures the e-mail notification sink.
type SMTP struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	From          string `toml:"from"`
	SkipTLSVerify bool   `toml:"skip_tls_verify"`
}

// Workers sizes the background side-effect pool.
type Workers struct {
	PoolSize           int `toml:"pool_size"`
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for docket.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Principal     Principal     `toml:"principal"`
	Coordinator   Coordinator   `toml:"coordinator"`
	Placement     Placement     `toml:"placement"`
	Archive       Archive       `toml:"archive"`
	Notifications Notifications `toml:"notifications"`
	SMTP          SMTP          `toml:"smtp"`
	Workers       Workers       `toml:"workers"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file next
// to the resolved config path is loaded first so secrets can stay out of the
// TOML file. The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docket.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data-root layout and the log directory.
// The projects root is never created here: it is usually a mount point and
// an absent root must surface as unavailable storage during placement.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.QueueDir(), c.LockDir(), c.LedgerRoot(), c.AccessRequestDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDir holds one JSON document per active submission.
func (c *Config) QueueDir() string { return filepath.Join(c.Paths.DataDir, "queue") }

// LockDir holds the per-submission advisory lock markers.
func (c *Config) LockDir() string { return filepath.Join(c.QueueDir(), "locks") }

// LedgerRoot holds one directory per submitter with their shadow ledger.
func (c *Config) LedgerRoot() string { return filepath.Join(c.Paths.DataDir, "users") }

func (c *Config) AccessRequestDir() string {
	return filepath.Join(c.Paths.DataDir, "access_requests")
}

func (c *Config) ArchivePath() string { return filepath.Join(c.Paths.DataDir, "archive.db") }

func (c *Config) CommentsPath() string { return filepath.Join(c.Paths.DataDir, "comments.db") }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
