// Package config loads stockledgerd runtime configuration from an optional
// YAML file and STOCKLEDGER_* environment overrides.
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

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the daemon configuration.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	BasePath        string        `yaml:"base_path"`
	ServiceName     string        `yaml:"service_name"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	Backend     string `yaml:"backend"`
	SQLiteDSN   string `yaml:"sqlite_dsn"`
	PostgresDSN string `yaml:"postgres_dsn"`
	MongoURI    string `yaml:"mongo_uri"`
	// MongoDatabase overrides the database named in the MongoURI path.
	MongoDatabase string `yaml:"mongo_database"`

	RetryBudget    uint          `yaml:"retry_budget"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	PluginTimeout  time.Duration `yaml:"plugin_timeout"`

	// OTLPEndpoint enables trace and metric export over OTLP/HTTP when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		BasePath:        "/stockledger",
		ServiceName:     "stockledgerd",
		ShutdownTimeout: 15 * time.Second,
		LogLevel:        "info",
		Backend:         BackendMemory,
		SQLiteDSN:       "file:stockledger.db",
		RetryBudget:     5,
		RetryBaseDelay:  10 * time.Millisecond,
		PluginTimeout:   5 * time.Second,
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot start the daemon.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("config: sqlite backend requires sqlite_dsn")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: postgres backend requires postgres_dsn")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: mongo backend requires mongo_uri")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	if c.RetryBudget == 0 {
		return fmt.Errorf("config: retry_budget must be at least 1")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	env := func(key string) (string, bool) {
		v, ok := lookup("STOCKLEDGER_" + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	strs := map[string]*string{
		"HTTP_ADDR":      &c.HTTPAddr,
		"BASE_PATH":      &c.BasePath,
		"SERVICE_NAME":   &c.ServiceName,
		"LOG_LEVEL":      &c.LogLevel,
		"BACKEND":        &c.Backend,
		"SQLITE_DSN":     &c.SQLiteDSN,
		"POSTGRES_DSN":   &c.PostgresDSN,
		"MONGO_URI":      &c.MongoURI,
		"MONGO_DATABASE": &c.MongoDatabase,
		"OTLP_ENDPOINT":  &c.OTLPEndpoint,
	}
	for key, dst := range strs {
		if v, ok := env(key); ok {
			*dst = v
		}
	}

	durs := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"RETRY_BASE_DELAY": &c.RetryBaseDelay,
		"PLUGIN_TIMEOUT":   &c.PluginTimeout,
	}
	for key, dst := range durs {
		if v, ok := env(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: STOCKLEDGER_%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := env("RETRY_BUDGET"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("config: STOCKLEDGER_RETRY_BUDGET: %w", err)
		}
		c.RetryBudget = uint(n)
	}
	if v, ok := env("OTLP_INSECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: STOCKLEDGER_OTLP_INSECURE: %w", err)
		}
		c.OTLPInsecure = b
	}

	c.Backend = strings.ToLower(c.Backend)
	return nil
}
