// Package bootstrap wires the ledger engine together from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/cache"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/strategy"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/stockledger/backend"

// Engine is the assembled ledger: its services plus the resources they run on
type Engine struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *persistence.Database
	Metrics  *telemetry.LedgerMetrics

	Receipts    *appinv.ReceiptService
	Sales       *appinv.SaleService
	Reversals   *appinv.ReversalGuard
	Adjustments *appinv.AdjustmentService
	Ledger      *appinv.MovementLedger

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Option overrides a resource New would otherwise create from configuration
type Option func(*options)

type options struct {
	logger      *zap.Logger
	db          *persistence.Database
	redisClient *redis.Client
	clock       shared.Clock
}

// WithLogger uses an existing logger instead of building one from cfg.Log
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDatabase uses an open database. The caller keeps ownership of it.
func WithDatabase(db *persistence.Database) Option {
	return func(o *options) { o.db = db }
}

// WithRedisClient uses a connected Redis client. The idempotency store takes
// ownership and closes it with the engine.
func WithRedisClient(c *redis.Client) Option {
	return func(o *options) { o.redisClient = c }
}

// WithClock pins the services' clock
func WithClock(c shared.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New builds the engine. Everything opened before a failure is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Engine, err error) {
	o := &options{clock: shared.SystemClock}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{Config: cfg}
	defer func() {
		if err != nil {
			_ = e.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := e.initLogger(o); err != nil {
		return nil, err
	}
	if err := e.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err := e.initDatabase(o); err != nil {
		return nil, err
	}

	client := e.connectRedis(ctx, o)
	store, err := e.idempotencyStore(ctx, client)
	if err != nil {
		return nil, err
	}
	e.onClose("idempotency store", func(context.Context) error { return store.Close() })

	var locker appinv.ProductLocker
	if cfg.Ledger.ProductLockEnabled {
		if client != nil {
			locker = cache.NewRedisProductLocker(client, cfg.Ledger.ProductLockTTL, cache.DefaultProductLockWait, e.Logger)
		} else {
			e.Logger.Warn("Product locks enabled but Redis is unavailable, sales run without them")
		}
	}

	registry, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to register batch strategies: %w", err)
	}
	selector, err := registry.GetBatchStrategy(cfg.Ledger.BatchStrategy)
	if err != nil {
		return nil, fmt.Errorf("ledger.batch_strategy: %w", err)
	}

	settings := appinv.Settings{
		DocumentPrefix:    cfg.Ledger.DocumentPrefix,
		LotPrefix:         cfg.Ledger.LotPrefix,
		Location:          cfg.Ledger.Location(),
		IdempotencyTTL:    cfg.Ledger.IdempotencyTTL,
		AllocationRetries: cfg.Ledger.AllocationRetries,
	}
	txScope := persistence.NewGormTransactionScope(e.Database.DB)
	variants := persistence.NewGormVariantReader(e.Database.DB)
	allocator := appinv.NewFEFOAllocator(selector, o.clock, e.Logger)

	e.Receipts = appinv.NewReceiptService(txScope, variants, store, settings, o.clock, e.Logger)
	e.Sales = appinv.NewSaleService(txScope, variants, allocator, locker, store, settings, o.clock, e.Logger)
	e.Reversals = appinv.NewReversalGuard(txScope, o.clock, e.Logger)
	e.Adjustments = appinv.NewAdjustmentService(txScope, o.clock, e.Logger)
	e.Ledger = appinv.NewMovementLedger(txScope, settings, o.clock)

	e.Receipts.SetMetrics(e.Metrics)
	e.Sales.SetMetrics(e.Metrics)
	e.Reversals.SetMetrics(e.Metrics)
	e.Adjustments.SetMetrics(e.Metrics)

	e.Logger.Info("Ledger engine ready",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("batch_strategy", selector.Name()),
		zap.Bool("product_locks", locker != nil),
	)
	return e, nil
}

func (e *Engine) initLogger(o *options) error {
	if o.logger != nil {
		e.Logger = o.logger
		return nil
	}
	log, err := logger.New(&logger.Config{
		Level:  e.Config.Log.Level,
		Format: e.Config.Log.Format,
		Output: e.Config.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	e.Logger = log
	e.onClose("logger", func(context.Context) error {
		_ = log.Sync()
		return nil
	})
	return nil
}

func (e *Engine) initTelemetry(ctx context.Context) error {
	tc := e.Config.Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	e.onClose("tracer provider", tp.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.ProfilingServer,
		ApplicationName: tc.ServiceName,
	}, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	e.onClose("profiler", func(context.Context) error { return profiler.Stop() })
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	e.onClose("meter provider", mp.Shutdown)

	e.Metrics, err = telemetry.NewLedgerMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return fmt.Errorf("failed to register ledger metrics: %w", err)
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log export: %w", err)
	}
	e.onClose("logger provider", lp.Shutdown)

	level, err := zapcore.ParseLevel(e.Config.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	e.Logger = telemetry.BridgeLogger(e.Logger, lp, tc.ServiceName, level)
	return nil
}

func (e *Engine) initDatabase(o *options) error {
	if o.db != nil {
		e.Database = o.db
	} else {
		gormLog := logger.NewGormLogger(e.Logger, logger.MapGormLogLevel(e.Config.Log.Level),
			logger.WithSlowThreshold(e.Config.Telemetry.DBSlowQueryThresh))
		dbOpts := []persistence.Option{persistence.WithLogger(gormLog)}
		if e.Config.Telemetry.Enabled && e.Config.Telemetry.DBTraceEnabled {
			plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         true,
				LogFullSQL:      e.Config.Telemetry.DBLogFullSQL,
				SlowQueryThresh: e.Config.Telemetry.DBSlowQueryThresh,
				DBSystem:        "postgresql",
			}, e.Logger)
			dbOpts = append(dbOpts, persistence.WithTracing(plugin))
		}

		db, err := persistence.NewDatabase(&e.Config.Database, dbOpts...)
		if err != nil {
			return err
		}
		e.Database = db
		e.onClose("database", func(context.Context) error { return db.Close() })
		e.Logger.Info("Database connected", zap.String("host", e.Config.Database.Host))
	}

	if e.Config.Database.AutoMigrate {
		if err := e.Database.AutoMigrate(); err != nil {
			return err
		}
		e.Logger.Info("Ledger tables auto-migrated")
	}
	return nil
}

// connectRedis returns the configured Redis client, or nil when Redis is
// disabled or unreachable.
func (e *Engine) connectRedis(ctx context.Context, o *options) *redis.Client {
	if o.redisClient != nil {
		return o.redisClient
	}
	if !e.Config.Redis.Enabled {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, e.Config.Redis)
	if err != nil {
		e.Logger.Warn("Redis unavailable", zap.String("addr", e.Config.Redis.Addr()), zap.Error(err))
		return nil
	}
	return client
}

func (e *Engine) idempotencyStore(ctx context.Context, client *redis.Client) (shared.IdempotencyStore, error) {
	redisCfg := e.Config.Redis
	redisCfg.Enabled = client != nil
	factoryOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(e.Logger)}
	if client != nil {
		factoryOpts = append(factoryOpts, cache.WithRedisClient(client))
	}
	store, err := cache.NewIdempotencyStoreFactory(redisCfg, factoryOpts...).CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create idempotency store: %w", err)
	}
	return store, nil
}

func (e *Engine) onClose(name string, fn func(context.Context) error) {
	e.closers = append(e.closers, closer{name: name, fn: fn})
}

// Ping checks the database connection
func (e *Engine) Ping() error {
	return e.Database.Ping()
}

// Close releases everything New opened, in reverse order
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		c := e.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
