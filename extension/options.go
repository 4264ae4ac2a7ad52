package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/api"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/store"
)

// Option configures the stockledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over
// WithGroveDatabase.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a stockledger.Option through to the underlying engine.
func WithEngineOption(opt stockledger.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a stockledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, stockledger.WithPlugin(p))
	}
}

// WithAuthenticator sets the access layer used by the HTTP handler.
func WithAuthenticator(a api.Authenticator) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, api.WithAuthenticator(a))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP handler from being provided.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for stockledger routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRetryBudget sets the attempt budget for stores the extension builds.
func WithRetryBudget(attempts uint) Option {
	return func(e *Extension) { e.config.RetryBudget = attempts }
}

// WithRetryBaseDelay sets the initial backoff between attempts.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(e *Extension) { e.config.RetryBaseDelay = d }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithGroveDatabase backs the engine with the MongoDB store on db. The
// database must be a replica set or sharded cluster.
func WithGroveDatabase(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}
