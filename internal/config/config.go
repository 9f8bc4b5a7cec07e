// ABOUTME: Configuration loading and parsing for helmgate
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/helmgate/helmgate/internal/identity"
)

// DefaultSessionDuration is used when auth.session_duration is unset.
const DefaultSessionDuration = 7 * 24 * time.Hour

// Config represents the complete helmgate configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Console  ConsoleConfig  `yaml:"console"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication and policy configuration
type AuthConfig struct {
	// MainAdminEmail identifies the single main admin. A principal signing
	// in with this address holds main-admin privileges regardless of the
	// roster record flag.
	MainAdminEmail string `yaml:"main_admin_email"`
	JWTSecret      string `yaml:"jwt_secret"`

	SessionDuration time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	SessionDurationRaw string `yaml:"session_duration"`
}

// ConsoleConfig holds admin console configuration
type ConsoleConfig struct {
	// BaseURL is the external URL for the admin console, used in links
	// printed by the CLI. If not set it is derived from server.http_addr.
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.MainAdminEmail == "" {
		return fmt.Errorf("auth.main_admin_email is required")
	}
	if !identity.ValidEmail(c.Auth.MainAdminEmail) {
		return fmt.Errorf("auth.main_admin_email %q is not a valid email address", c.Auth.MainAdminEmail)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set it in config or via environment expansion)")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Auth.SessionDuration = DefaultSessionDuration

	if cfg.Auth.SessionDurationRaw != "" {
		d, err := time.ParseDuration(cfg.Auth.SessionDurationRaw)
		if err != nil {
			return fmt.Errorf("parsing session_duration %q: %w", cfg.Auth.SessionDurationRaw, err)
		}
		cfg.Auth.SessionDuration = d
	}

	return nil
}
