// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SlackConfig holds workspace platform configuration.
type SlackConfig struct {
	Token          string  `yaml:"token"`            // API + SCIM bearer token
	APIHost        string  `yaml:"api_host"`         // SCIM base URL (default https://api.slack.com)
	Subdomain      string  `yaml:"subdomain"`        // workspace base URL, e.g. https://foobar.slack.com
	UseSCIM        bool    `yaml:"use_scim"`         // full revoke capability via SCIM (default true)
	Failsafe       float64 `yaml:"failsafe"`         // max fraction of accounts revocable per cycle, in [0,1]
	BotEmailSuffix string  `yaml:"bot_email_suffix"` // accounts with this email suffix are never candidates
	NotifyUsername string  `yaml:"notify_username"`  // display name for owner notifications
	IconEmoji      string  `yaml:"icon_emoji"`       // icon for owner notifications
}

// LDAPConfig holds authoritative directory configuration.
type LDAPConfig struct {
	URL            string   `yaml:"url"`     // ldaps:// URL; always use ldaps
	BaseDN         string   `yaml:"base_dn"`
	BindDN         string   `yaml:"bind_dn"`
	BindPassword   string   `yaml:"bind_password"`
	SearchFilter   string   `yaml:"search_filter"` // must select only active employees
	Attributes     []string `yaml:"attributes"`
	EmailAttribute string   `yaml:"email_attribute"` // default "mail"
	PageSize       int      `yaml:"page_size"`       // default 5000
}

// Config holds the full daemon configuration, read once at startup and
// immutable thereafter.
type Config struct {
	Slack SlackConfig `yaml:"slack"`
	LDAP  LDAPConfig  `yaml:"ldap"`

	Interval        time.Duration `yaml:"-"`                // time between cycles (default 1h)
	IntervalSeconds float64       `yaml:"interval_seconds"` // file-format form of Interval
	Schedule   string        `yaml:"schedule"`    // optional cron expression; overrides Interval
	ListenAddr string        `yaml:"listen_addr"` // health/status listener (default ":8081", empty disables)
	LogLevel   string        `yaml:"log_level"`   // debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment variable overrides, defaults, and validation. path may be
// empty for env-only configuration.
func Load(path string) (*Config, error) {
	// Defaults that cannot be told apart from an explicit zero value are
	// seeded here, before the file and env overlays. A configured failsafe
	// of 0 is a legitimate "never revoke automatically" posture and must
	// survive loading.
	cfg := &Config{
		Slack: SlackConfig{UseSCIM: true, Failsafe: 0.2},
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if cfg.IntervalSeconds > 0 {
		cfg.Interval = time.Duration(cfg.IntervalSeconds * float64(time.Second))
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Env vars take
// precedence over file values.
func (c *Config) applyEnv() error {
	setString(&c.Slack.Token, "SLACK_TOKEN")
	setString(&c.Slack.APIHost, "SLACK_API_HOST")
	setString(&c.Slack.Subdomain, "SLACK_SUBDOMAIN")
	setString(&c.Slack.BotEmailSuffix, "SLACK_BOT_EMAIL_SUFFIX")
	setString(&c.Slack.NotifyUsername, "SLACK_NOTIFY_USERNAME")
	setString(&c.Slack.IconEmoji, "SLACK_ICON_EMOJI")
	setString(&c.LDAP.URL, "LDAP_URL")
	setString(&c.LDAP.BaseDN, "LDAP_BASE_DN")
	setString(&c.LDAP.BindDN, "LDAP_BIND_DN")
	setString(&c.LDAP.BindPassword, "LDAP_BIND_PW")
	setString(&c.LDAP.SearchFilter, "LDAP_SEARCH_FILTER")
	setString(&c.LDAP.EmailAttribute, "LDAP_EMAIL_ATTRIBUTE")
	setString(&c.Schedule, "SYNC_SCHEDULE")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("SLACK_MAX_DELETE_FAILSAFE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SLACK_MAX_DELETE_FAILSAFE: %w", err)
		}
		c.Slack.Failsafe = f
	}
	if v := os.Getenv("SLACK_USE_SCIM_API"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("SLACK_USE_SCIM_API: %w", err)
		}
		c.Slack.UseSCIM = b
	}
	if v := os.Getenv("LDAP_ATTRIBUTES"); v != "" {
		attrs := strings.Split(v, ",")
		for i := range attrs {
			attrs[i] = strings.TrimSpace(attrs[i])
		}
		c.LDAP.Attributes = compactNonEmpty(attrs)
	}
	if v := os.Getenv("LDAP_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LDAP_PAGE_SIZE: %w", err)
		}
		c.LDAP.PageSize = n
	}
	if v := os.Getenv("SLACK_SYNC_RUN_INTERVAL"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SLACK_SYNC_RUN_INTERVAL: %w", err)
		}
		c.Interval = time.Duration(secs * float64(time.Second))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Slack.APIHost == "" {
		c.Slack.APIHost = "https://api.slack.com"
	}
	if c.Slack.BotEmailSuffix == "" {
		c.Slack.BotEmailSuffix = "@slack-bots.com"
	}
	if c.Slack.NotifyUsername == "" {
		c.Slack.NotifyUsername = "slack reaper"
	}
	if c.Slack.IconEmoji == "" {
		c.Slack.IconEmoji = ":scream_cat:"
	}
	if c.LDAP.EmailAttribute == "" {
		c.LDAP.EmailAttribute = "mail"
	}
	if c.LDAP.PageSize == 0 {
		c.LDAP.PageSize = 5000
	}
	if c.Interval == 0 {
		c.Interval = time.Hour
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8081"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if !strings.HasPrefix(strings.ToLower(c.LDAP.URL), "ldaps://") {
		c.Warnings = append(c.Warnings, "LDAP_URL does not use ldaps://, bind credentials will cross the wire unencrypted")
	}
}

// Validate checks that required configuration is present and well-formed.
// Failures here must abort startup before the loop is entered.
func (c *Config) Validate() error {
	if c.Slack.Token == "" {
		return fmt.Errorf("SLACK_TOKEN is required")
	}
	if c.Slack.Subdomain == "" {
		return fmt.Errorf("SLACK_SUBDOMAIN is required")
	}
	if c.Slack.Failsafe < 0 || c.Slack.Failsafe > 1 {
		return fmt.Errorf("SLACK_MAX_DELETE_FAILSAFE must be in [0,1], got %v", c.Slack.Failsafe)
	}
	if c.LDAP.URL == "" {
		return fmt.Errorf("LDAP_URL is required")
	}
	if c.LDAP.BaseDN == "" {
		return fmt.Errorf("LDAP_BASE_DN is required")
	}
	if c.LDAP.BindDN == "" || c.LDAP.BindPassword == "" {
		return fmt.Errorf("LDAP_BIND_DN and LDAP_BIND_PW are required")
	}
	if c.LDAP.SearchFilter == "" {
		return fmt.Errorf("LDAP_SEARCH_FILTER is required (it must select only active employees)")
	}
	if len(c.LDAP.Attributes) == 0 {
		return fmt.Errorf("LDAP_ATTRIBUTES is required")
	}
	if c.LDAP.PageSize < 1 {
		return fmt.Errorf("LDAP_PAGE_SIZE must be positive, got %d", c.LDAP.PageSize)
	}
	if c.Interval < time.Second {
		return fmt.Errorf("SLACK_SYNC_RUN_INTERVAL must be at least one second, got %s", c.Interval)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseBool(v string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
