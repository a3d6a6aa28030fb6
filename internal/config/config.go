package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"resetdb/internal/eraser"
	"resetdb/internal/registry"
)

// Config holds all resetdb configuration.
type Config struct {
	// Database connection
	Database DatabaseConfig `yaml:"database"`

	// Where collection metadata comes from
	Registry RegistryConfig `yaml:"registry"`

	// Eraser policy
	Eraser EraserConfig `yaml:"eraser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig selects the backend.
type DatabaseConfig struct {
	Driver  string `yaml:"driver"`  // sqlite3, sqlite, libsql, pgx, postgres, mysql, mongodb
	DSN     string `yaml:"dsn"`     // connection string / file path / mongodb URI
	Name    string `yaml:"name"`    // database name (mongodb only)
	Timeout string `yaml:"timeout"` // overall command timeout
}

// RegistryConfig selects how collections are discovered.
type RegistryConfig struct {
	// Manifest is a YAML model manifest. When empty, SQLite-family
	// databases are introspected instead.
	Manifest string `yaml:"manifest"`

	// Namespaces are known table prefixes used by introspection.
	Namespaces []string `yaml:"namespaces"`

	// ExcludeTables are never treated as collections.
	ExcludeTables []string `yaml:"exclude_tables"`

	// Aliases map table names to "namespace.Name" labels during
	// introspection, overriding the prefix split.
	Aliases map[string]string `yaml:"aliases"`
}

// EraserConfig configures erase policy.
type EraserConfig struct {
	// AccountModel is the "namespace.Name" of the user collection.
	AccountModel string `yaml:"account_model"`

	// ProtectedNamespaces are excluded from --all unless named explicitly.
	ProtectedNamespaces []string `yaml:"protected_namespaces"`
}

// DefaultProtectedNamespaces are framework bookkeeping namespaces.
var DefaultProtectedNamespaces = eraser.DefaultProtectedNamespaces

// DefaultTableAliases place the framework bookkeeping tables in their
// protected namespaces; their prefix alone would put them under "django".
var DefaultTableAliases = map[string]string{
	"django_content_type": "contenttypes.ContentType",
	"django_session":      "sessions.Session",
	"django_admin_log":    "admin.LogEntry",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  "sqlite3",
			DSN:     "db.sqlite3",
			Timeout: "10m",
		},
		Registry: RegistryConfig{
			ExcludeTables: []string{"django_migrations"},
			Aliases:       maps.Clone(DefaultTableAliases),
		},
		Eraser: EraserConfig{
			AccountModel:        eraser.DefaultAccountModel,
			ProtectedNamespaces: append([]string(nil), DefaultProtectedNamespaces...),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A .env file in the working
// directory is loaded into the environment first; existing variables win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if driver := os.Getenv("RESETDB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
		// An explicit RESETDB_DRIVER wins over the URL scheme
		if os.Getenv("RESETDB_DRIVER") == "" {
			if driver := driverFromURL(dsn); driver != "" {
				c.Database.Driver = driver
			}
		}
	}
	if manifest := os.Getenv("RESETDB_MANIFEST"); manifest != "" {
		c.Registry.Manifest = manifest
	}
	if account := os.Getenv("RESETDB_ACCOUNT_MODEL"); account != "" {
		c.Eraser.AccountModel = account
	}
	if level := os.Getenv("RESETDB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// driverFromURL guesses a driver from a URL scheme; "" when unknown.
func driverFromURL(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "pgx"
	case "mysql":
		return "mysql"
	case "mongodb", "mongodb+srv":
		return "mongodb"
	case "libsql", "wss", "https":
		return "libsql"
	case "file":
		return "sqlite3"
	}
	return ""
}

// ValidDrivers lists the supported database drivers.
var ValidDrivers = []string{"sqlite3", "sqlite", "libsql", "pgx", "postgres", "mysql", "mongodb"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Database.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid database driver: %q (valid: %v)", c.Database.Driver, ValidDrivers)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN not configured (set database.dsn or DATABASE_URL)")
	}
	if c.Database.Driver == "mongodb" {
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required for mongodb")
		}
		if c.Registry.Manifest == "" {
			return fmt.Errorf("registry.manifest is required for mongodb")
		}
	}
	for table, label := range c.Registry.Aliases {
		if _, err := registry.ParseLabel(label); err != nil {
			return fmt.Errorf("invalid registry.aliases entry for %s: %w", table, err)
		}
	}
	if c.Eraser.AccountModel != "" {
		if ns, name, ok := strings.Cut(c.Eraser.AccountModel, "."); !ok || ns == "" || name == "" || strings.Contains(name, ".") {
			return fmt.Errorf("invalid eraser.account_model %q (expected namespace.Name)", c.Eraser.AccountModel)
		}
	}
	return nil
}

// GetTimeout returns the command timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Database.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}
