// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and structural validation for notionsync.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Runner    RunnerConfig    `yaml:"runner"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Git       GitConfig       `yaml:"git"`
	Notion    NotionConfig    `yaml:"notion"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// RunnerConfig controls how a single sync run is executed and logged.
type RunnerConfig struct {
	// LogDir is the directory receiving one .synclog file per run.
	LogDir string `yaml:"log_dir"`

	// Timezone names the location used for log file timestamps.
	Timezone string `yaml:"timezone"`

	// Command is the argv of the external sync procedure.
	// Empty selects the built-in Notion sync.
	Command []string `yaml:"command,omitempty"`

	// WorkDir is the working directory of the external command.
	WorkDir string `yaml:"work_dir,omitempty"`

	// CaptureStderr also writes the procedure's stderr into the log file.
	CaptureStderr bool `yaml:"capture_stderr"`

	// Lock guards against overlapping runs with an advisory file lock.
	Lock *bool `yaml:"lock,omitempty"`

	// Timeout bounds the procedure. Zero means no limit.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LockEnabled reports whether the run lock is on (default true).
func (r RunnerConfig) LockEnabled() bool {
	return r.Lock == nil || *r.Lock
}

// SecretsConfig names the environment variables holding the three secrets.
// Values are never stored in the configuration itself.
type SecretsConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	MasterIDEnv string `yaml:"master_id_env"`
	SlaveIDEnv  string `yaml:"slave_id_env"`
}

// ScheduleConfig configures the time-based trigger.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// GitConfig configures persistence of log files into version control.
type GitConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Repo        string `yaml:"repo"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Remote      string `yaml:"remote"`
	Push        bool   `yaml:"push"`
	Username    string `yaml:"username"`
	TokenEnv    string `yaml:"token_env"`
}

// IsEnabled reports whether persistence is on (default true).
func (g GitConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// NotionConfig tunes the built-in Notion sync procedure.
type NotionConfig struct {
	// Limit caps the number of master pages synced per run. Zero means all.
	Limit int `yaml:"limit"`

	// Properties lists the master properties copied to the slave database.
	// Every one of them must be present and non-empty for a page to sync.
	Properties []string `yaml:"properties"`

	StatusProperty string `yaml:"status_property"`
	PendingValue   string `yaml:"pending_value"`
	SyncedValue    string `yaml:"synced_value"`
	FailedValue    string `yaml:"failed_value"`
	FlagProperty   string `yaml:"flag_property"`
	FlagValue      string `yaml:"flag_value"`
}

// GatewayConfig holds HTTP gateway configuration.
type GatewayConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RunsPerHour     int           `yaml:"runs_per_hour"`
	WebhookSecret   string        `yaml:"webhook_secret"`
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is an OTLP/HTTP endpoint URL. Empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultProperties are the master properties copied by the built-in sync.
var DefaultProperties = []string{
	"Name",
	"Impressions",
	"Likes",
	"Bookmarks",
	"Retweets",
	"Comments",
	"CTR",
	"URL",
	"Author",
	"Handle",
	"Date",
	"Retention",
	"Engagement Rate",
	"Niche",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.defaults()
	return cfg
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Runner.LogDir == "" {
		c.Runner.LogDir = "logs"
	}
	if c.Runner.Timezone == "" {
		c.Runner.Timezone = "UTC"
	}

	if c.Secrets.APIKeyEnv == "" {
		c.Secrets.APIKeyEnv = "NOTION_API_KEY"
	}
	if c.Secrets.MasterIDEnv == "" {
		c.Secrets.MasterIDEnv = "MASTER_DB_ID"
	}
	if c.Secrets.SlaveIDEnv == "" {
		c.Secrets.SlaveIDEnv = "SLAVE_DB_ID"
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 * * *"
	}

	if c.Git.Repo == "" {
		c.Git.Repo = "."
	}
	if c.Git.AuthorName == "" {
		c.Git.AuthorName = "github-actions[bot]"
	}
	if c.Git.AuthorEmail == "" {
		c.Git.AuthorEmail = "41898282+github-actions[bot]@users.noreply.github.com"
	}
	if c.Git.Remote == "" {
		c.Git.Remote = "origin"
	}
	if c.Git.Username == "" {
		c.Git.Username = "x-access-token"
	}
	if c.Git.TokenEnv == "" {
		c.Git.TokenEnv = "GITHUB_TOKEN"
	}

	if len(c.Notion.Properties) == 0 {
		c.Notion.Properties = append([]string(nil), DefaultProperties...)
	}
	if c.Notion.StatusProperty == "" {
		c.Notion.StatusProperty = "Sync Status"
	}
	if c.Notion.PendingValue == "" {
		c.Notion.PendingValue = "Not Synced"
	}
	if c.Notion.SyncedValue == "" {
		c.Notion.SyncedValue = "Synced"
	}
	if c.Notion.FailedValue == "" {
		c.Notion.FailedValue = "Failed"
	}
	if c.Notion.FlagProperty == "" {
		c.Notion.FlagProperty = "Sync?"
	}
	if c.Notion.FlagValue == "" {
		c.Notion.FlagValue = "True"
	}

	if c.Gateway.Bind == "" {
		c.Gateway.Bind = "127.0.0.1:8080"
	}
	if c.Gateway.ReadTimeout <= 0 {
		c.Gateway.ReadTimeout = 10 * time.Second
	}
	if c.Gateway.WriteTimeout <= 0 {
		// Manual dispatch blocks until the run completes and is cancelled
		// when this elapses.
		c.Gateway.WriteTimeout = 15 * time.Minute
	}
	if c.Gateway.ShutdownTimeout <= 0 {
		c.Gateway.ShutdownTimeout = 5 * time.Second
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "notionsync"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
