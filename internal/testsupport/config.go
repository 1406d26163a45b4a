package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"docket/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The projects root is created so placement succeeds unless an option
// replaces it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ProjectsDir = filepath.Join(base, "projects")
	cfgVal.Paths.StagingDir = filepath.Join(base, "data", "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Coordinator.LockAttempts = 50
	cfgVal.Coordinator.LockBackoffMS = 1
	cfgVal.Placement.ProbeTimeoutSeconds = 2
	cfgVal.Workers.PoolSize = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if builder.cfg.Paths.ProjectsDir == filepath.Join(base, "projects") {
		if err := os.MkdirAll(builder.cfg.Paths.ProjectsDir, 0o755); err != nil {
			t.Fatalf("mkdir projects dir: %v", err)
		}
	}
	return builder.cfg
}

// WithArchiveCap overrides the archive retention bound.
func WithArchiveCap(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.MaxEntries = n
	}
}

// WithLockAttempts overrides the coordinator retry bound.
func WithLockAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Coordinator.LockAttempts = n
	}
}

// WithUnreachableProjects points the projects root at a regular file so
// every probe and move into it fails the way an unmounted share does.
func WithUnreachableProjects() ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "projects-offline")
		if err := os.WriteFile(path, []byte("not a directory"), 0o644); err != nil {
			b.t.Fatalf("write offline marker: %v", err)
		}
		b.cfg.Paths.ProjectsDir = path
	}
}

// WithUnreachableStaging does the same for the staging fallback.
func WithUnreachableStaging() ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "staging-offline")
		if err := os.WriteFile(path, []byte("not a directory"), 0o644); err != nil {
			b.t.Fatalf("write offline marker: %v", err)
		}
		b.cfg.Paths.StagingDir = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
