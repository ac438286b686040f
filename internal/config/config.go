// Package config provides configuration management for the iptables-easy
// backend. It handles loading configuration from YAML files, applying
// environment variable and command line overrides, and validating values for
// server, database, JWT, bootstrap, logging, and security settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// BootstrapConfig holds the default administrator account seeded when the
// user table is empty at startup. The operator is expected to rotate the
// password after first login.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled bool     `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Load reads and parses the configuration file, then applies environment
// variable and command line overrides (in that order of increasing priority)
func Load(path string, flags *Flags) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if flags != nil {
		cfg.applyFlagOverrides(flags)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "iptables-easy.db",
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		},
		JWT: JWTConfig{
			Expiration: 30 * time.Minute,
			Issuer:     "iptables-easy",
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: "admin",
			AdminEmail:    "admin@iptables-easy.local",
			AdminPassword: "changeme",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("IPTE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("IPTE_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("IPTE_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("IPTE_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("IPTE_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("IPTE_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("IPTE_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("IPTE_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("IPTE_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// JWT overrides
	if jwtSecret := os.Getenv("IPTE_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}
	if jwtExp := os.Getenv("IPTE_JWT_EXPIRATION"); jwtExp != "" {
		if d, err := time.ParseDuration(jwtExp); err == nil {
			c.JWT.Expiration = d
		}
	}

	// Bootstrap overrides
	if adminPass := os.Getenv("IPTE_BOOTSTRAP_ADMIN_PASSWORD"); adminPass != "" {
		c.Bootstrap.AdminPassword = adminPass
	}

	// Logging overrides
	if logLevel := os.Getenv("IPTE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// applyFlagOverrides applies command line flag overrides to the configuration
func (c *Config) applyFlagOverrides(f *Flags) {
	if v, ok := f.GetServerPort(); ok {
		c.Server.Port = v
	}
	if v, ok := f.GetServerHost(); ok {
		c.Server.Host = v
	}
	if v, ok := f.GetServerReadTimeout(); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.ReadTimeout = d
		}
	}
	if v, ok := f.GetServerWriteTimeout(); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.WriteTimeout = d
		}
	}
	if v, ok := f.GetServerTLSEnabled(); ok {
		c.Server.TLSEnabled = v
	}
	if v, ok := f.GetServerTLSCert(); ok {
		c.Server.TLSCert = v
	}
	if v, ok := f.GetServerTLSKey(); ok {
		c.Server.TLSKey = v
	}
	if v, ok := f.GetDBType(); ok {
		c.Database.Type = v
	}
	if v, ok := f.GetDBSQLitePath(); ok {
		c.Database.SQLite.Path = v
	}
	if v, ok := f.GetDBPostgresHost(); ok {
		c.Database.Postgres.Host = v
	}
	if v, ok := f.GetDBPostgresPort(); ok {
		c.Database.Postgres.Port = v
	}
	if v, ok := f.GetDBPostgresDatabase(); ok {
		c.Database.Postgres.Database = v
	}
	if v, ok := f.GetDBPostgresUser(); ok {
		c.Database.Postgres.User = v
	}
	if v, ok := f.GetDBPostgresPassword(); ok {
		c.Database.Postgres.Password = v
	}
	if v, ok := f.GetJWTSecret(); ok {
		c.JWT.Secret = v
	}
	if v, ok := f.GetJWTExpiration(); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.JWT.Expiration = d
		}
	}
	if v, ok := f.GetJWTIssuer(); ok {
		c.JWT.Issuer = v
	}
	if v, ok := f.GetBootstrapAdminPassword(); ok {
		c.Bootstrap.AdminPassword = v
	}
	if v, ok := f.GetLogLevel(); ok {
		c.Logging.Level = v
	}
	if v, ok := f.GetLogFormat(); ok {
		c.Logging.Format = v
	}
	if v, ok := f.GetSecurityCORSEnabled(); ok {
		c.Security.CORSEnabled = v
	}
	if v, ok := f.GetSecurityCORSOrigins(); ok {
		c.Security.CORSOrigins = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate JWT config
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret not specified")
	}
	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("JWT expiration must be positive")
	}

	// Validate bootstrap config
	if c.Bootstrap.AdminUsername == "" || c.Bootstrap.AdminEmail == "" || c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("bootstrap admin username, email, and password must be specified")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}
