package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/internal/config"
	"github.com/aretw0/pulse/pkg/adapters/file"
	"github.com/aretw0/pulse/pkg/adapters/loam"
	"github.com/aretw0/pulse/pkg/adapters/memory"
	"github.com/aretw0/pulse/pkg/adapters/redis"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/observability"
	"github.com/aretw0/pulse/pkg/ports"
)

// EngineOptions carries what a command adds on top of the configuration.
type EngineOptions struct {
	Logger *slog.Logger
	// Registry receives the engine metrics when set.
	Registry prometheus.Registerer
}

// Closer releases the resources opened by CreateEngine.
type Closer func() error

// CreateEngine initializes a Pulse engine with standard CLI conventions:
// templates from cfg.Dir, the configured cache backend, limits, logging
// and, when a registry is given, Prometheus metrics.
func CreateEngine(cfg config.Config, opts EngineOptions) (*pulse.Engine, Closer, error) {
	logger := opts.Logger
	engineOpts := []pulse.Option{pulse.WithLogger(logger)}
	closer := Closer(func() error { return nil })

	// 1. Hooks
	var hooks []domain.LifecycleHooks
	if logger != nil {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}
	if opts.Registry != nil {
		m, err := observability.NewMetrics(opts.Registry)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = append(hooks, m.Hooks())
	}
	engineOpts = append(engineOpts, pulse.WithLifecycleHooks(observability.Chain(hooks...)))

	// 2. Limits
	engineOpts = append(engineOpts,
		pulse.WithMaxNodes(cfg.Limits.MaxNodes),
		pulse.WithMaxSamples(cfg.Limits.MaxSamples),
		pulse.WithMaxSegments(cfg.Limits.MaxSegments),
		pulse.WithMemo(expr.NewMemo(cfg.Limits.MemoSize)),
	)

	// 3. Cache
	cache, err := createCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cache != nil {
		engineOpts = append(engineOpts, pulse.WithCache(cache))
	}
	if rc, ok := cache.(*redis.Cache); ok {
		closer = rc.Close
		if cfg.Redis.Lock {
			engineOpts = append(engineOpts, pulse.WithLocker(redis.NewLocker(rc.Client(), cfg.Redis.Prefix), cfg.Redis.LockTTL))
		}
	}

	// 4. Loader
	loader, err := createLoader(cfg, logger)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("error loading templates: %w", err), closer())
	}
	engineOpts = append(engineOpts, pulse.WithLoader(loader))

	engine, err := pulse.New(cfg.Dir, engineOpts...)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("error initializing engine: %w", err), closer())
	}
	return engine, closer, nil
}

func createLoader(cfg config.Config, logger *slog.Logger) (ports.TemplateLoader, error) {
	if cfg.Source == config.SourceLoam {
		return loam.Open(cfg.Dir, loam.WithLogger(logger))
	}
	return file.New(cfg.Dir, file.WithPattern(cfg.Pattern), file.WithLogger(logger))
}

func createCache(cfg config.Config) (ports.WaveformCache, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory, "":
		return memory.NewCache(memory.WithLimit(cfg.Cache.Limit)), nil
	case config.CacheFile:
		return file.NewCache(cfg.Cache.Dir), nil
	case config.CacheRedis:
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix+"waveform:"),
			redis.WithTTL(cfg.Redis.TTL),
		), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
