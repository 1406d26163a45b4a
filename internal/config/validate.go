package config

import (
	"errors"
	"fmt"
	"strings"
)

var validRoles = map[string]struct{}{
	"user":      {},
	"team_lead": {},
	"admin":     {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePrincipal(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"coordinator.lock_attempts":       c.Coordinator.LockAttempts,
		"coordinator.lock_backoff_ms":     c.Coordinator.LockBackoffMS,
		"placement.probe_timeout_seconds": c.Placement.ProbeTimeoutSeconds,
		"placement.max_numeric_suffix":    c.Placement.MaxNumericSuffix,
		"archive.max_entries":             c.Archive.MaxEntries,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
		"workers.pool_size":               c.Workers.PoolSize,
		"workers.task_timeout_seconds":    c.Workers.TaskTimeoutSeconds,
	}); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.ProjectsDir == "" {
		return errors.New("paths.projects_dir must be set")
	}
	if c.Paths.StagingDir == c.Paths.ProjectsDir {
		return errors.New("paths.staging_dir must differ from paths.projects_dir")
	}
	return nil
}

func (c *Config) validatePrincipal() error {
	if _, ok := validRoles[c.Principal.Role]; !ok {
		return fmt.Errorf("principal.role: unsupported value %q (want user, team_lead, or admin)", c.Principal.Role)
	}
	return nil
}

func (c *Config) validateEmail() error {
	if len(c.Notifications.EmailTo) == 0 {
		return nil
	}
	if c.SMTP.Host == "" {
		return errors.New("smtp.host must be set when notifications.email_to is configured (or set SMTP_HOST)")
	}
	if c.SMTP.From == "" {
		return errors.New("smtp.from must be set when notifications.email_to is configured (or set SMTP_FROM)")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port out of range: %d", c.SMTP.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
