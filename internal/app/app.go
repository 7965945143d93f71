package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rzpsarthak13/armory/internal/api"
	"github.com/rzpsarthak13/armory/internal/config"
	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/database"
	"github.com/rzpsarthak13/armory/internal/events"
	"github.com/rzpsarthak13/armory/internal/gateway"
	"github.com/rzpsarthak13/armory/internal/metrics"
	"github.com/rzpsarthak13/armory/internal/registry"
)

// App wires the database, gateways, change events and HTTP router together.
type App struct {
	mu     sync.Mutex
	closed bool

	config     *config.Config
	logger     *slog.Logger
	db         *database.Database
	resources  *registry.ResourceRegistry
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	handler    http.Handler
}

// New opens the database of the active profile, creates missing tables when
// the profile asks for it, and builds the HTTP handler for every resource.
func New(ctx context.Context, cfg *config.Config, resources *registry.ResourceRegistry, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if resources == nil || resources.Count() == 0 {
		return nil, fmt.Errorf("at least one resource is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	profile, ok := cfg.ActiveProfile()
	if !ok {
		return nil, fmt.Errorf("environment %q has no database profile", cfg.Environment)
	}

	dbConfig, err := DatabaseConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if profile.AutoCreate {
		if err := db.EnsureTables(ctx, resources.Schemas()...); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to bootstrap tables: %w", err)
		}
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		resources: resources,
		metrics:   metrics.New(),
	}

	if eventsEnabled(cfg.Events) {
		sink, err := events.CreateSink(SinkConfig(cfg.Events), logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s event sink: %w", cfg.Events.Type, err)
		}
		a.dispatcher = events.NewDispatcher(sink, events.DispatcherConfig{
			QueueSize:       cfg.Events.QueueSize,
			DeliveryRate:    cfg.Events.DeliveryRate,
			MaxRetries:      cfg.Events.MaxRetries,
			RetryBackoff:    cfg.Events.RetryBackoff,
			DeliveryTimeout: cfg.Events.DeliveryTimeout,
		}, a.metrics, logger)
	}

	mounts := make([]api.Mount, 0, resources.Count())
	for _, resource := range resources.List() {
		var gw core.Gateway = gateway.New(db, resource, cfg.Database.QueryTimeout, logger)
		if a.dispatcher != nil {
			gw = gateway.WithEvents(gw, resource, a.dispatcher, logger)
		}
		gw = gateway.WithMetrics(gw, resource, a.metrics)
		mounts = append(mounts, api.Mount{Resource: resource, Gateway: gw})
	}

	a.handler = api.NewRouter(api.Options{
		Mounts:            mounts,
		Ready:             db.Ping,
		ReadyTimeout:      cfg.Database.ConnectionTimeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		Metrics:           a.metrics,
		Logger:            logger,
	})

	logger.Info("application initialized",
		"environment", cfg.Environment,
		"driver", dbConfig.Driver,
		"resources", resources.Count(),
		"events", cfg.Events.Type)
	return a, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the event dispatcher and serves HTTP until ctx is cancelled,
// then shuts down gracefully within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if a.dispatcher != nil {
		if err := a.dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("failed to start event dispatcher: %w", err)
		}
	}

	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(a.config.Server.Port)),
		Handler:      a.handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "component", "http", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "timeout", a.config.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Stop(shutdownCtx); err != nil {
			a.logger.Warn("event dispatcher stop failed", "error", err)
		}
	}
	return nil
}

// Close stops the event dispatcher if Run did not, then releases the
// database pool. It is safe to call more than once.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	if a.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.dispatcher.Stop(ctx); err != nil {
			a.logger.Warn("event dispatcher stop failed", "error", err)
		}
	}
	return a.db.Close()
}

// DatabaseConfig builds the driver configuration of the active profile.
func DatabaseConfig(cfg *config.Config) (database.Config, error) {
	profile, ok := cfg.ActiveProfile()
	if !ok {
		return database.Config{}, fmt.Errorf("environment %q has no database profile", cfg.Environment)
	}

	dbConfig := database.Config{
		Driver:            profile.Type,
		DSN:               profile.DSN,
		Host:              profile.Host,
		Port:              profile.Port,
		Name:              profile.Database,
		Username:          profile.Username,
		Password:          profile.Password,
		MaxOpenConns:      cfg.Database.MaxOpenConns,
		MaxIdleConns:      cfg.Database.MaxIdleConns,
		ConnMaxLifetime:   cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:   cfg.Database.ConnMaxIdleTime,
		ConnectionTimeout: cfg.Database.ConnectionTimeout,
	}
	if profile.Type == "sqlite" && dbConfig.DSN == "" {
		dbConfig.DSN = sqliteDSN(profile.Path)
	}
	return dbConfig, nil
}

// sqliteDSN turns a file path into a DSN with a busy timeout and WAL
// journaling, so concurrent writers wait instead of failing.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// SinkConfig maps event configuration onto the sink factory's configuration.
func SinkConfig(cfg config.EventsConfig) events.SinkConfig {
	sc := events.SinkConfig{Type: cfg.Type}
	switch cfg.Type {
	case "redis":
		sc.Endpoints = cfg.Redis.Endpoints
		sc.Password = cfg.Redis.Password
		sc.DB = cfg.Redis.DB
		sc.KeyPrefix = cfg.Redis.KeyPrefix
		sc.MaxLen = cfg.Redis.MaxLen
		sc.DialTimeout = cfg.Redis.DialTimeout
	case "kafka":
		sc.Endpoints = cfg.Kafka.Brokers
		sc.Topic = cfg.Kafka.Topic
		sc.RequiredAcks = cfg.Kafka.RequiredAcks
		sc.BatchTimeout = cfg.Kafka.BatchTimeout
		sc.WriteTimeout = cfg.Kafka.WriteTimeout
	case "dynamodb":
		sc.Region = cfg.DynamoDB.Region
		sc.TableName = cfg.DynamoDB.TableName
		sc.Endpoint = cfg.DynamoDB.Endpoint
		sc.AccessKeyID = cfg.DynamoDB.AccessKeyID
		sc.SecretAccessKey = cfg.DynamoDB.SecretAccessKey
	}
	return sc
}

func eventsEnabled(cfg config.EventsConfig) bool {
	return cfg.Type != "" && cfg.Type != "none"
}

// NewLogger builds the process logger from the logging configuration.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
