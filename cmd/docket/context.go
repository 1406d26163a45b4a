package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/submission"
	"docket/internal/workflow"
)

const closeTimeout = 30 * time.Second

type globalFlags struct {
	config  string
	user    string
	role    string
	teams   []string
	json    bool
	verbose bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor logs to the configured log file, and to stderr with --verbose.
func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		outputs := []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)}
		if c.flags.verbose {
			outputs = append(outputs, "stderr")
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: outputs,
		})
		if err != nil {
			logger = logging.NewNop()
		}
		if cfg.Logging.RetentionDays > 0 {
			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays, logging.LogFileName)
		}
		c.logger = logger
	})
	return c.logger
}

// principal resolves the acting identity: flags first, then the config file.
func (c *commandContext) principal() (submission.Principal, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return submission.Principal{}, err
	}
	id := strings.TrimSpace(c.flags.user)
	if id == "" {
		id = cfg.Principal.ID
	}
	roleValue := strings.TrimSpace(c.flags.role)
	if roleValue == "" {
		roleValue = cfg.Principal.Role
	}
	role, ok := submission.ParseRole(roleValue)
	if !ok {
		return submission.Principal{}, fmt.Errorf("unknown role %q (want user, team_lead, or admin)", roleValue)
	}
	teams := c.flags.teams
	if len(teams) == 0 {
		teams = cfg.Principal.Teams
	}
	p := submission.Principal{ID: id, Role: role, Teams: teams}
	if err := p.Validate(); err != nil {
		return submission.Principal{}, fmt.Errorf("%w; set principal.id in the config, DOCKET_USER, or --user", err)
	}
	return p, nil
}

// withManager opens the stores for one operation and closes them after,
// waiting for pending notifications.
func (c *commandContext) withManager(cmd *cobra.Command, fn func(*workflow.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mgr, err := workflow.NewManager(ctx, cfg, c.loggerFor(cfg))
	if err != nil {
		return err
	}
	runErr := fn(mgr)
	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := mgr.Close(closeCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
