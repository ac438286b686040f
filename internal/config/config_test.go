package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  type: sqlite
  sqlite:
    path: test.db
jwt:
  secret: test-secret
`

func TestLoad(t *testing.T) {
	t.Run("Load minimal config with defaults", func(t *testing.T) {
		path := writeConfigFile(t, minimalConfig)

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "test.db", cfg.Database.SQLite.Path)
		assert.Equal(t, "test-secret", cfg.JWT.Secret)
		assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
		assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
		assert.Equal(t, "changeme", cfg.Bootstrap.AdminPassword)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("Invalid YAML fails", func(t *testing.T) {
		path := writeConfigFile(t, "server: [not a map")
		_, err := Load(path, nil)
		assert.Error(t, err)
	})

	t.Run("Environment variables override file", func(t *testing.T) {
		path := writeConfigFile(t, minimalConfig)

		t.Setenv("IPTE_SERVER_PORT", "9000")
		t.Setenv("IPTE_JWT_SECRET", "env-secret")
		t.Setenv("IPTE_DB_SQLITE_PATH", "env.db")
		t.Setenv("IPTE_JWT_EXPIRATION", "2h")

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "env-secret", cfg.JWT.Secret)
		assert.Equal(t, "env.db", cfg.Database.SQLite.Path)
		assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.JWT.Secret = "test-secret"
		return cfg
	}

	t.Run("Valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Invalid port fails", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("TLS without cert fails", func(t *testing.T) {
		cfg := valid()
		cfg.Server.TLSEnabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("Unknown database type fails", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Type = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("SQLite without path fails", func(t *testing.T) {
		cfg := valid()
		cfg.Database.SQLite.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Postgres without host fails", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Type = "postgres"
		cfg.Database.Postgres.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Empty JWT secret fails", func(t *testing.T) {
		cfg := valid()
		cfg.JWT.Secret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Non-positive JWT expiration fails", func(t *testing.T) {
		cfg := valid()
		cfg.JWT.Expiration = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("Empty bootstrap password fails", func(t *testing.T) {
		cfg := valid()
		cfg.Bootstrap.AdminPassword = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Unknown log level fails", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}

func TestGetDSN(t *testing.T) {
	t.Run("SQLite DSN is the file path", func(t *testing.T) {
		cfg := Default()
		cfg.Database.SQLite.Path = "data.db"
		assert.Equal(t, "data.db", cfg.GetDSN())
	})

	t.Run("Postgres DSN includes all parts", func(t *testing.T) {
		cfg := Default()
		cfg.Database.Type = "postgres"
		cfg.Database.Postgres.Host = "db.example.com"
		cfg.Database.Postgres.Database = "ipte"
		cfg.Database.Postgres.User = "ipte"
		cfg.Database.Postgres.Password = "pw"

		dsn := cfg.GetDSN()
		assert.Contains(t, dsn, "host=db.example.com")
		assert.Contains(t, dsn, "dbname=ipte")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}
