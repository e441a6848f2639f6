// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pmrelay/pmrelay/lib/cron"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the relay's configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Server   ServerConfig   `yaml:"server"`
	Webex    WebexConfig    `yaml:"webex"`
	Admin    AdminConfig    `yaml:"admin"`
	Reward   RewardConfig   `yaml:"reward"`
	Commands CommandsConfig `yaml:"commands"`
	Storage  StorageConfig  `yaml:"storage"`
	Digest   DigestConfig   `yaml:"digest"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Webex   *WebexConfig   `yaml:"webex,omitempty"`
	Admin   *AdminConfig   `yaml:"admin,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Digest  *DigestConfig  `yaml:"digest,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the TCP address. Default: 127.0.0.1:4000
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxUploadBytes caps a multipart report body, photo included.
	// Default: 16 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// WebexConfig configures the messaging gateway.
type WebexConfig struct {
	// BaseURL is the Webex REST root. Default: https://webexapis.com/v1
	BaseURL string `yaml:"base_url"`

	// TokenFile holds the bot access token.
	TokenFile string `yaml:"token_file"`

	// WebhookSecretFile holds the secret Webex signs webhook
	// deliveries with. Empty disables verification, which is only
	// accepted outside production.
	WebhookSecretFile string `yaml:"webhook_secret_file"`
}

// AdminConfig names the single privileged address.
type AdminConfig struct {
	Email string `yaml:"email"`
}

// RewardConfig sets what an approval is worth.
type RewardConfig struct {
	// Amount credited per approval. Default: 100
	Amount int64 `yaml:"amount"`

	// Unit used in messages. Default: coins
	Unit string `yaml:"unit"`
}

// CommandsConfig holds the chat vocabulary.
type CommandsConfig struct {
	ApproveKeyword string `yaml:"approve_keyword"`
	RejectKeyword  string `yaml:"reject_keyword"`
	RewardQuery    string `yaml:"reward_query"`
}

// StorageConfig locates the relay's data files.
type StorageConfig struct {
	// Root is the base directory, exposed as ${PMRELAY_ROOT}.
	Root string `yaml:"root"`

	// EventsFile is the calendar event JSON document.
	EventsFile string `yaml:"events_file"`

	// LedgerDB is the SQLite database for pending requests and
	// rewards. ":memory:" keeps both in memory for the process
	// lifetime.
	LedgerDB string `yaml:"ledger_db"`
}

// DigestConfig schedules the daily event digest.
type DigestConfig struct {
	// Schedule is a 5-field cron expression. Default: "0 9 * * *"
	Schedule string `yaml:"schedule"`

	// Timezone is an IANA name or "Local". Default: Local
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration that a loaded file is merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "pmrelay")

	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Listen:          "127.0.0.1:4000",
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  16 << 20,
		},
		Webex: WebexConfig{
			BaseURL:           "https://webexapis.com/v1",
			TokenFile:         "${PMRELAY_ROOT}/secrets/webex-token",
			WebhookSecretFile: "",
		},
		Reward: RewardConfig{
			Amount: 100,
			Unit:   "coins",
		},
		Commands: CommandsConfig{
			ApproveKeyword: "approve",
			RejectKeyword:  "reject",
			RewardQuery:    "!reward",
		},
		Storage: StorageConfig{
			Root:       defaultRoot,
			EventsFile: "${PMRELAY_ROOT}/events.json",
			LedgerDB:   "${PMRELAY_ROOT}/ledger.db",
		},
		Digest: DigestConfig{
			Schedule: "0 9 * * *",
			Timezone: "Local",
		},
	}
}

// Load loads configuration from the file named by PMRELAY_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("PMRELAY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PMRELAY_CONFIG environment variable not set; " +
			"set it to the path of your pmrelay.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the matching
// environment section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if server := overrides.Server; server != nil {
		if server.Listen != "" {
			c.Server.Listen = server.Listen
		}
		if server.ShutdownTimeout != 0 {
			c.Server.ShutdownTimeout = server.ShutdownTimeout
		}
		if server.MaxUploadBytes != 0 {
			c.Server.MaxUploadBytes = server.MaxUploadBytes
		}
	}

	if webex := overrides.Webex; webex != nil {
		if webex.BaseURL != "" {
			c.Webex.BaseURL = webex.BaseURL
		}
		if webex.TokenFile != "" {
			c.Webex.TokenFile = webex.TokenFile
		}
		if webex.WebhookSecretFile != "" {
			c.Webex.WebhookSecretFile = webex.WebhookSecretFile
		}
	}

	if overrides.Admin != nil && overrides.Admin.Email != "" {
		c.Admin.Email = overrides.Admin.Email
	}

	if storage := overrides.Storage; storage != nil {
		if storage.Root != "" {
			c.Storage.Root = storage.Root
		}
		if storage.EventsFile != "" {
			c.Storage.EventsFile = storage.EventsFile
		}
		if storage.LedgerDB != "" {
			c.Storage.LedgerDB = storage.LedgerDB
		}
	}

	if digest := overrides.Digest; digest != nil {
		if digest.Schedule != "" {
			c.Digest.Schedule = digest.Schedule
		}
		if digest.Timezone != "" {
			c.Digest.Timezone = digest.Timezone
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"PMRELAY_ROOT": c.Storage.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Storage.Root = expandVars(c.Storage.Root, vars)
	vars["PMRELAY_ROOT"] = c.Storage.Root

	c.Storage.EventsFile = expandVars(c.Storage.EventsFile, vars)
	c.Storage.LedgerDB = expandVars(c.Storage.LedgerDB, vars)
	c.Webex.TokenFile = expandVars(c.Webex.TokenFile, vars)
	c.Webex.WebhookSecretFile = expandVars(c.Webex.WebhookSecretFile, vars)
	c.Server.Listen = expandVars(c.Server.Listen, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars wins over the
// process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive"))
	}

	if parsed, err := url.Parse(c.Webex.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("webex.base_url must be an absolute URL, got %q", c.Webex.BaseURL))
	}
	if c.Webex.TokenFile == "" {
		errs = append(errs, fmt.Errorf("webex.token_file is required"))
	}
	if c.Environment == Production && c.Webex.WebhookSecretFile == "" {
		errs = append(errs, fmt.Errorf("webex.webhook_secret_file is required in production"))
	}

	if c.Admin.Email == "" {
		errs = append(errs, fmt.Errorf("admin.email is required"))
	} else if !strings.Contains(c.Admin.Email, "@") {
		errs = append(errs, fmt.Errorf("admin.email %q is not an email address", c.Admin.Email))
	}

	if c.Reward.Amount <= 0 {
		errs = append(errs, fmt.Errorf("reward.amount must be positive"))
	}
	if c.Reward.Unit == "" {
		errs = append(errs, fmt.Errorf("reward.unit is required"))
	}

	if strings.TrimSpace(c.Commands.ApproveKeyword) == "" {
		errs = append(errs, fmt.Errorf("commands.approve_keyword is required"))
	}
	if strings.TrimSpace(c.Commands.RejectKeyword) == "" {
		errs = append(errs, fmt.Errorf("commands.reject_keyword is required"))
	}
	if c.Commands.ApproveKeyword != "" && c.Commands.ApproveKeyword == c.Commands.RejectKeyword {
		errs = append(errs, fmt.Errorf("commands.approve_keyword and commands.reject_keyword must differ"))
	}
	if strings.TrimSpace(c.Commands.RewardQuery) == "" {
		errs = append(errs, fmt.Errorf("commands.reward_query is required"))
	}

	if c.Storage.EventsFile == "" {
		errs = append(errs, fmt.Errorf("storage.events_file is required"))
	}
	if c.Storage.LedgerDB == "" {
		errs = append(errs, fmt.Errorf("storage.ledger_db is required"))
	}

	if _, err := c.DigestSchedule(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Location resolves digest.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Digest.Timezone == "" || c.Digest.Timezone == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("digest.timezone: %w", err)
	}
	return location, nil
}

// DigestSchedule parses digest.schedule in digest.timezone.
func (c *Config) DigestSchedule() (cron.Schedule, error) {
	location, err := c.Location()
	if err != nil {
		return cron.Schedule{}, err
	}
	schedule, err := cron.ParseInLocation(c.Digest.Schedule, location)
	if err != nil {
		return cron.Schedule{}, fmt.Errorf("digest.schedule: %w", err)
	}
	return schedule, nil
}

// EnsurePaths creates the storage root and the directories holding the
// event file and ledger database.
func (c *Config) EnsurePaths() error {
	directories := []string{c.Storage.Root, filepath.Dir(c.Storage.EventsFile)}
	if c.Storage.LedgerDB != ":memory:" {
		directories = append(directories, filepath.Dir(c.Storage.LedgerDB))
	}

	for _, directory := range directories {
		if directory == "" || directory == "." {
			continue
		}
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", directory, err)
		}
	}
	return nil
}
