package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/internal/application/orchestrator"
	"github.com/aescanero/wfdiag/internal/application/workers"
	"github.com/aescanero/wfdiag/internal/config"
	"github.com/aescanero/wfdiag/internal/platform"
	"github.com/aescanero/wfdiag/pkg/adapters/collectors"
	"github.com/aescanero/wfdiag/pkg/adapters/events"
	"github.com/aescanero/wfdiag/pkg/adapters/events/memory"
	"github.com/aescanero/wfdiag/pkg/adapters/events/redis"
	"github.com/aescanero/wfdiag/pkg/adapters/packager"
	promcollector "github.com/aescanero/wfdiag/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/wfdiag/pkg/catalog"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// app is the wired orchestrator with the adapters it owns.
type app struct {
	manager *orchestrator.Manager
	pool    *workers.Pool
	bus     ports.EventBus
	redis   *goredis.Client
	logger  *zap.Logger
}

// newApp wires the catalog, worker pool, progress bus and metrics. reg may be
// nil to skip metrics.
func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*app, error) {
	override, err := cfg.Admin()
	if err != nil {
		return nil, err
	}
	admin := platform.Admin(override)

	var metrics ports.MetricsCollector = ports.NoopMetrics{}
	if reg != nil {
		metrics = promcollector.NewCollector(reg)
	}

	a := &app{logger: logger}

	var bus ports.EventBus = memory.NewInMemoryEventBus(
		memory.WithBuffer(cfg.Progress.Buffer),
		memory.WithDropHandler(metrics.RecordProgressDropped),
	)
	if cfg.Redis.Enabled() {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		streams := redis.NewStreamsEventBus(a.redis, logger, redis.WithMaxLen(cfg.Redis.StreamMaxLen))
		bus = events.NewMirror(bus, cfg.Redis.WriteTimeout, logger, streams)
	}
	a.bus = bus

	a.pool = workers.NewPool(cfg.Workers.PoolSize, metrics, logger, cfg.Workers.HealthCheckInterval)
	a.pool.Start()

	zipper := packager.Zip{}
	a.manager = orchestrator.NewManager(
		catalog.Default(),
		a.pool,
		bus,
		metrics,
		orchestrator.NewValidator(),
		logger,
		orchestrator.Config{
			OutputRoot:       cfg.OutputDir,
			TaskTimeout:      cfg.Timeouts.TaskExecutionTimeout,
			ProgressInterval: cfg.Progress.Interval,
			Admin:            admin,
			Packagers: map[domain.OutputFormat]ports.Packager{
				domain.OutputFormatJSON:    packager.Report{},
				domain.OutputFormatArchive: zipper,
				domain.OutputFormatBoth:    zipper,
			},
			SystemInfo: collectors.SystemInfo,
		},
	)

	logger.Info("orchestrator ready",
		zap.Bool("admin", admin),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Bool("redis_mirror", cfg.Redis.Enabled()))

	return a, nil
}

// close settles every session, then releases the bus and Redis.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.manager.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown: %w", err))
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus close: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	return errors.Join(errs...)
}
