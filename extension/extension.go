// Package extension provides the Forge extension adapter for stockledger.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.stockledger" or
// "stockledger" keys.
//
// Unless routes are disabled, Register provides the *api.Handler in the
// container and mounts its gin router on the Forge router at the configured
// base path. With DisableRoutes the engine is still provided but no handler
// is built or mounted; hosts can then build their own with api.New and call
// Handler.Register on a gin router of their choosing.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/api"
	"github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/store/memory"
	"github.com/xraph/stockledger/store/mongo"
	"github.com/xraph/stockledger/txn"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "stockledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Transactional sale commit and stock receipt engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts stockledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *stockledger.Engine
	handler    *api.Handler
	store      store.Store
	groveDB    *grove.DB
	engineOpts []stockledger.Option
	apiOpts    []api.Option
}

// New creates a new stockledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *stockledger.Engine { return e.engine }

// Handler returns the HTTP handler mounted by Register, or nil when routes
// are disabled or Register has not run.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	e.store = e.resolveStore()
	e.engine = stockledger.New(e.store, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*stockledger.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}

	e.handler = api.New(e.engine, append([]api.Option{
		api.WithBasePath(e.config.BasePath),
		api.WithServiceName(ExtensionName),
	}, e.apiOpts...)...)

	if err := vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	}); err != nil {
		return err
	}

	return e.mountRoutes(fapp.Router())
}

// mountRoutes serves the handler's routes under its base path. The Forge
// router passes the full request path through, so the gin router matches
// its own prefixed routes.
func (e *Extension) mountRoutes(r forge.Router) error {
	if r == nil {
		return nil
	}
	if err := r.Handle(e.handler.BasePath(), e.handler.Router()); err != nil {
		return fmt.Errorf("stockledger: mount routes: %w", err)
	}
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("stockledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(ctx); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("stockledger: store not initialized")
	}
	return e.engine.Ping(ctx)
}

// resolveStore picks the programmatic store, then the grove-backed mongo
// store, then an in-memory store.
func (e *Extension) resolveStore() store.Store {
	policy := txn.Policy{
		MaxAttempts: e.config.RetryBudget,
		BaseDelay:   e.config.RetryBaseDelay,
		MaxDelay:    txn.DefaultPolicy.MaxDelay,
	}

	switch {
	case e.store != nil:
		return e.store
	case e.groveDB != nil:
		e.Logger().Debug("stockledger: using grove mongo store")
		return mongo.New(e.groveDB, mongo.WithRetryPolicy(policy))
	default:
		return memory.New(memory.WithRetryPolicy(policy))
	}
}

// buildEngineOpts constructs engine options from the resolved config.
func (e *Extension) buildEngineOpts() []stockledger.Option {
	opts := make([]stockledger.Option, 0, len(e.engineOpts)+1)

	if e.config.PluginTimeout > 0 {
		opts = append(opts, stockledger.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Pass-through options last so they win.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("stockledger: configuration is required but not found in config files; " +
				"ensure 'extensions.stockledger' or 'stockledger' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("stockledger: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("retry_budget", e.config.RetryBudget),
		forge.F("retry_base_delay", e.config.RetryBaseDelay),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.stockledger", "stockledger"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("stockledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("stockledger: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.RetryBudget == 0 {
		cfg.RetryBudget = defaults.RetryBudget
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.RetryBudget == 0 {
		yamlConfig.RetryBudget = programmaticConfig.RetryBudget
	}
	if yamlConfig.RetryBaseDelay == 0 {
		yamlConfig.RetryBaseDelay = programmaticConfig.RetryBaseDelay
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
