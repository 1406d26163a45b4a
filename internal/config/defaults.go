package config

const (
	defaultConfigPath          = "~/.config/docket/config.toml"
	defaultDataDir             = "~/.local/share/docket/data"
	defaultProjectsDir         = "~/projects"
	defaultLogDir              = "~/.local/share/docket/logs"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultRole                = "user"
	defaultLockAttempts        = 8
	defaultLockBackoffMS       = 25
	defaultProbeTimeoutSeconds = 5
	defaultMaxNumericSuffix    = 99
	defaultArchiveMaxEntries   = 500
	defaultNotifyTimeout       = 10
	defaultSMTPPort            = 587
	defaultPoolSize            = 4
	defaultTaskTimeoutSeconds  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			ProjectsDir: defaultProjectsDir,
			LogDir:      defaultLogDir,
		},
		Principal: Principal{Role: defaultRole},
		Coordinator: Coordinator{
			LockAttempts:  defaultLockAttempts,
			LockBackoffMS: defaultLockBackoffMS,
		},
		Placement: Placement{
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			MaxNumericSuffix:    defaultMaxNumericSuffix,
			WriteSidecar:        true,
		},
		Archive:       Archive{MaxEntries: defaultArchiveMaxEntries},
		Notifications: Notifications{RequestTimeout: defaultNotifyTimeout},
		SMTP:          SMTP{Port: defaultSMTPPort},
		Workers: Workers{
			PoolSize:           defaultPoolSize,
			TaskTimeoutSeconds: defaultTaskTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
