package extension

import "time"

// Config holds the stockledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.stockledger" or "stockledger" keys).
type Config struct {
	// DisableRoutes prevents the HTTP API handler from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for stockledger routes (default: "/stockledger").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// RetryBudget is the maximum number of attempts a conflicting
	// transaction gets before it fails (default: 5). It applies to stores
	// the extension constructs itself.
	RetryBudget uint `json:"retry_budget" mapstructure:"retry_budget" yaml:"retry_budget"`

	// RetryBaseDelay is the initial backoff between attempts (default: 10ms).
	RetryBaseDelay time.Duration `json:"retry_base_delay" mapstructure:"retry_base_delay" yaml:"retry_base_delay"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:       "/stockledger",
		RetryBudget:    5,
		RetryBaseDelay: 10 * time.Millisecond,
		PluginTimeout:  5 * time.Second,
	}
}
