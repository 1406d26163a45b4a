package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePrincipal()
	c.normalizeNotifications()
	c.normalizeSMTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DOCKET_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("DOCKET_PROJECTS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectsDir = strings.TrimSpace(value)
	}

	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ProjectsDir, err = expandPath(strings.TrimSpace(c.Paths.ProjectsDir)); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" && c.Paths.DataDir != "" {
		c.Paths.StagingDir = filepath.Join(c.Paths.DataDir, "staging")
	}
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePrincipal() {
	c.Principal.ID = strings.TrimSpace(c.Principal.ID)
	if c.Principal.ID == "" {
		if value, ok := os.LookupEnv("DOCKET_USER"); ok {
			c.Principal.ID = strings.TrimSpace(value)
		}
	}
	c.Principal.Role = strings.ToLower(strings.TrimSpace(c.Principal.Role))
	if c.Principal.Role == "" {
		c.Principal.Role = defaultRole
	}
	teams := c.Principal.Teams[:0]
	for _, team := range c.Principal.Teams {
		if team = strings.TrimSpace(team); team != "" {
			teams = append(teams, team)
		}
	}
	c.Principal.Teams = teams
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("DOCKET_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	recipients := c.Notifications.EmailTo[:0]
	for _, addr := range c.Notifications.EmailTo {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	c.Notifications.EmailTo = recipients
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	if c.SMTP.Host == "" {
		if value, ok := os.LookupEnv("SMTP_HOST"); ok {
			c.SMTP.Host = strings.TrimSpace(value)
		}
	}
	if c.SMTP.Username == "" {
		if value, ok := os.LookupEnv("SMTP_USER"); ok {
			c.SMTP.Username = strings.TrimSpace(value)
		}
	}
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv("SMTP_PASS"); ok {
			c.SMTP.Password = value
		}
	}
	c.SMTP.From = strings.TrimSpace(c.SMTP.From)
	if c.SMTP.From == "" {
		if value, ok := os.LookupEnv("SMTP_FROM"); ok {
			c.SMTP.From = strings.TrimSpace(value)
		}
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = defaultSMTPPort
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
