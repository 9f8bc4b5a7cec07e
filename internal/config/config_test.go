// ABOUTME: Tests for configuration loading
// ABOUTME: Covers YAML parsing, env expansion, duration parsing, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "helmgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `
server:
  http_addr: "localhost:8080"

database:
  path: "/tmp/helmgate.db"

auth:
  main_admin_email: "main@example.com"
  jwt_secret: "secret"

logging:
  level: "info"
  format: "text"
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/helmgate.db", cfg.Database.Path)
	assert.Equal(t, "main@example.com", cfg.Auth.MainAdminEmail)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, DefaultSessionDuration, cfg.Auth.SessionDuration)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("HELMGATE_TEST_SECRET", "from-env")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/helmgate.db"
auth:
  main_admin_email: "main@example.com"
  jwt_secret: "${HELMGATE_TEST_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_SessionDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/helmgate.db"
auth:
  main_admin_email: "main@example.com"
  jwt_secret: "secret"
  session_duration: "12h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionDuration)
}

func TestLoad_BadSessionDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/helmgate.db"
auth:
  main_admin_email: "main@example.com"
  jwt_secret: "secret"
  session_duration: "a fortnight"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing http_addr", func(c *Config) { c.Server.HTTPAddr = "" }},
		{"missing db path", func(c *Config) { c.Database.Path = "" }},
		{"missing main admin email", func(c *Config) { c.Auth.MainAdminEmail = "" }},
		{"invalid main admin email", func(c *Config) { c.Auth.MainAdminEmail = "not-an-email" }},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{HTTPAddr: "localhost:8080"},
				Database: DatabaseConfig{Path: "/tmp/db"},
				Auth: AuthConfig{
					MainAdminEmail: "main@example.com",
					JWTSecret:      "secret",
				},
			}
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
