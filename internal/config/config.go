// Package config loads and validates the receiver's configuration:
// listener addresses, the account routing table, the priority map, the
// character map, queue tuning, logging, and metrics.
//
// Configuration sources, in precedence order (matching viper's own order):
//  1. Environment variables (SIA_*)
//  2. Configuration file (YAML)
//  3. Defaults applied by ApplyDefaults
//
// Environment variables only override keys that the configuration file
// sets; when no configuration file is found, SIA_* variables are not read
// and the defaults are used as they are.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AuthMethod names the ntfy authentication scheme for a topic.
type AuthMethod string

const (
	AuthNone     AuthMethod = ""
	AuthToken    AuthMethod = "token"
	AuthUserPass AuthMethod = "userpass"
)

// NtfyAuth carries the credentials for whichever AuthMethod is configured.
type NtfyAuth struct {
	Method   AuthMethod `mapstructure:"method" yaml:"method"`
	Token    string     `mapstructure:"token" yaml:"token,omitempty"`
	User     string     `mapstructure:"user" yaml:"user,omitempty"`
	Password string     `mapstructure:"pass" yaml:"pass,omitempty"`
}

// AccountConfig is one entry in the routing table: a site name plus its
// ntfy destination.
type AccountConfig struct {
	SiteName string    `mapstructure:"site_name" yaml:"site_name"`
	Enabled  bool      `mapstructure:"enabled" yaml:"enabled"`
	TopicURL string    `mapstructure:"topic_url" yaml:"topic_url"`
	Title    string    `mapstructure:"title" yaml:"title"`
	Auth     *NtfyAuth `mapstructure:"auth" yaml:"auth,omitempty"`
}

// DefaultAccountKey is the reserved routing-table entry that matches
// accounts with no specific configuration.
const DefaultAccountKey = "default"

// ListenConfig configures the main SIA listener (C8).
type ListenConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Port int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
}

// IPCheckConfig configures the companion heartbeat listener.
type IPCheckConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Port    int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
}

// QueueConfig tunes the dispatch queue (C7).
type QueueConfig struct {
	MaxSize             int `mapstructure:"max_size" yaml:"max_size"`
	MaxRetries          int `mapstructure:"max_retries" yaml:"max_retries"`
	MaxRetryTimeMinutes int `mapstructure:"max_retry_time_minutes" yaml:"max_retry_time_minutes"`
}

// LoggingConfig controls internal/logger behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Port    int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
}

// Config is the receiver's full, validated configuration. It is built once
// at startup and handed by reference to every component; nothing mutates it
// afterward.
type Config struct {
	Listen  ListenConfig  `mapstructure:"listen" yaml:"listen"`
	IPCheck IPCheckConfig `mapstructure:"ip_check" yaml:"ip_check"`

	Accounts map[string]AccountConfig `mapstructure:"accounts" yaml:"accounts"`

	Priorities      map[string]int `mapstructure:"priorities" yaml:"priorities"`
	DefaultPriority int            `mapstructure:"default_priority" yaml:"default_priority"`

	CharMap map[string]string `mapstructure:"char_map" yaml:"char_map"`

	Queue QueueConfig `mapstructure:"queue" yaml:"queue"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteName resolves an account number to its configured site name, falling
// back to the account number itself when unconfigured.
func (c *Config) SiteName(account string) string {
	if acc, ok := c.Accounts[account]; ok && acc.SiteName != "" {
		return acc.SiteName
	}
	return account
}

// Topic resolves an account to its ntfy destination. It returns ok=false
// when the account (and the default entry) are unconfigured or disabled,
// in which case the caller must skip dispatch.
func (c *Config) Topic(account string) (AccountConfig, bool) {
	if acc, ok := c.Accounts[account]; ok && acc.Enabled {
		return acc, true
	}
	if def, ok := c.Accounts[DefaultAccountKey]; ok && def.Enabled {
		return def, true
	}
	return AccountConfig{}, false
}

// Priority resolves an event code to its configured priority, falling back
// to DefaultPriority for codes not listed.
func (c *Config) Priority(eventCode string) int {
	if p, ok := c.Priorities[eventCode]; ok {
		return p
	}
	return c.DefaultPriority
}

// ApplyDefaults fills in zero-valued fields with sensible defaults. It is
// always safe to call, even on an already-populated Config.
func ApplyDefaults(c *Config) {
	if c.Listen.Addr == "" {
		c.Listen.Addr = "0.0.0.0"
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = 10000
	}
	if c.IPCheck.Addr == "" {
		c.IPCheck.Addr = "0.0.0.0"
	}
	if c.IPCheck.Port == 0 {
		c.IPCheck.Port = 10001
	}
	if c.DefaultPriority == 0 {
		c.DefaultPriority = 3
	}
	if c.Queue.MaxSize == 0 {
		c.Queue.MaxSize = 50
	}
	if c.Queue.MaxRetryTimeMinutes == 0 {
		c.Queue.MaxRetryTimeMinutes = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "0.0.0.0"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

// Validate checks field-level invariants procedurally. Like the teacher's
// own config package, struct `validate` tags here document intent; they are
// not enforced through reflection-based validation (see DESIGN.md).
func Validate(c *Config) error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range 1-65535", c.Listen.Port)
	}
	if c.IPCheck.Enabled && (c.IPCheck.Port < 1 || c.IPCheck.Port > 65535) {
		return fmt.Errorf("ip_check.port %d out of range 1-65535", c.IPCheck.Port)
	}
	if c.Queue.MaxSize < 1 || c.Queue.MaxSize > 1000 {
		return fmt.Errorf("queue.max_size %d out of range 1-1000", c.Queue.MaxSize)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.max_retries %d must be >= 0", c.Queue.MaxRetries)
	}
	if c.Queue.MaxRetryTimeMinutes < 1 || c.Queue.MaxRetryTimeMinutes > 1000 {
		return fmt.Errorf("queue.max_retry_time_minutes %d out of range 1-1000", c.Queue.MaxRetryTimeMinutes)
	}
	if c.DefaultPriority < 1 || c.DefaultPriority > 5 {
		return fmt.Errorf("default_priority %d out of range 1-5", c.DefaultPriority)
	}
	for code, p := range c.Priorities {
		if p < 1 || p > 5 {
			return fmt.Errorf("priorities[%s] %d out of range 1-5", code, p)
		}
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level %q must be one of DEBUG, INFO, WARN, ERROR", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	for account, acc := range c.Accounts {
		if !acc.Enabled {
			continue
		}
		if acc.TopicURL == "" {
			return fmt.Errorf("accounts[%s].topic_url required when enabled", account)
		}
		if acc.Auth != nil {
			switch acc.Auth.Method {
			case AuthNone, AuthToken, AuthUserPass:
			default:
				return fmt.Errorf("accounts[%s].auth.method %q must be token or userpass", account, acc.Auth.Method)
			}
		}
	}
	return nil
}

// GetDefaultConfig returns a Config populated entirely by ApplyDefaults,
// used when no configuration file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads configuration from an explicit path (or the default search
// path when empty), environment variables (SIA_ prefix), and defaults, in
// that precedence order, then validates the result. An environment variable
// takes effect only for a key present in the file; without a file, only the
// defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName("sia-server")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}
