// Command stockledgerd serves the stockledger HTTP API.
//
// Configuration comes from an optional YAML file (-config) overlaid with
// STOCKLEDGER_* environment variables. See internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"go.opentelemetry.io/otel"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/api"
	audithook "github.com/xraph/stockledger/audit_hook"
	"github.com/xraph/stockledger/internal/config"
	"github.com/xraph/stockledger/observability"
	"github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/store/memory"
	"github.com/xraph/stockledger/store/mongo"
	"github.com/xraph/stockledger/store/postgres"
	"github.com/xraph/stockledger/store/sqlite"
	"github.com/xraph/stockledger/txn"
)

func main() {
	configPath := flag.String("config", os.Getenv("STOCKLEDGER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stockledgerd exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", cfg.ServiceName)
}

// run serves until ctx is canceled, then drains in-flight requests.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	engine := stockledger.New(st,
		stockledger.WithLogger(logger),
		stockledger.WithTracer(otel.Tracer("github.com/xraph/stockledger")),
		stockledger.WithPluginTimeout(cfg.PluginTimeout),
		stockledger.WithPlugin(observability.NewMetricsExtension(observability.NewOTelFactory(nil))),
		stockledger.WithPlugin(audithook.New(auditLog(logger), audithook.WithLogger(logger))),
	)
	if err := engine.Start(ctx); err != nil {
		_ = st.Close()
		return fmt.Errorf("start engine: %w", err)
	}
	logger.Info("engine started", "backend", cfg.Backend)

	gin.SetMode(gin.ReleaseMode)
	handler := api.New(engine,
		api.WithLogger(logger),
		api.WithBasePath(cfg.BasePath),
		api.WithServiceName(cfg.ServiceName),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.HTTPAddr, "base_path", handler.BasePath())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			_ = engine.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}
	logger.Info("stockledgerd stopped")
	return nil
}

// openStore builds the configured backend with the configured retry budget.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	policy := txn.Policy{
		MaxAttempts: cfg.RetryBudget,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    txn.DefaultPolicy.MaxDelay,
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(memory.WithRetryPolicy(policy)), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLiteDSN, sqlite.WithRetryPolicy(policy))
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN, postgres.WithRetryPolicy(policy))
	case config.BackendMongo:
		return openMongo(ctx, cfg, policy)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// openMongo connects a grove handle on mongodriver and wraps it in the
// MongoDB store. Transactions need a replica set or sharded cluster.
func openMongo(ctx context.Context, cfg config.Config, policy txn.Policy) (store.Store, error) {
	var opts []mongodriver.MongoOption
	if cfg.MongoDatabase != "" {
		opts = append(opts, mongodriver.WithDatabase(cfg.MongoDatabase))
	}
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, cfg.MongoURI, opts...); err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("open mongo: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("open mongo: %w", err)
	}
	return mongo.New(db, mongo.WithRetryPolicy(policy)), nil
}

// auditLog records audit events as structured log lines.
func auditLog(logger *slog.Logger) audithook.Recorder {
	audit := logger.WithGroup("audit")
	return audithook.RecorderFunc(func(ctx context.Context, ev *audithook.AuditEvent) error {
		audit.InfoContext(ctx, ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"store_id", ev.StoreID,
			"actor_id", ev.ActorID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
			"reason", ev.Reason,
			"metadata", ev.Metadata,
		)
		return nil
	})
}
