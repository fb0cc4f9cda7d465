package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/internal/runtime"
	"github.com/aretw0/pulse/internal/validator"
	"github.com/aretw0/pulse/pkg/adapters/file"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/ports"
	"github.com/aretw0/pulse/pkg/sampler"
)

// Engine is the high-level entry point for the Pulse library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.TemplateLoader
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string

	watchMu sync.Mutex
	watch   *watchGroup
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// Report lists the findings of Validate.
type Report = validator.Report

// Issue is a finding of Validate.
type Issue = validator.Issue

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom TemplateLoader, bypassing the default directory loader.
func WithLoader(l ports.TemplateLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCache stores rendered waveforms in c.
func WithCache(c ports.WaveformCache) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCache(c))
	}
}

// WithLocker serializes identical renders across processes sharing a cache.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLocker(l, ttl))
	}
}

// WithMemo replaces the evaluation memo table. A nil memo disables memoization.
func WithMemo(m *expr.Memo) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMemo(m))
	}
}

// WithMaxNodes rejects templates whose expressions exceed n nodes in total.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxNodes(n))
	}
}

// WithMaxSamples rejects renders producing more than n grid points.
func WithMaxSamples(n int64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxSamples(n))
	}
}

// WithMaxSegments bounds the number of bound nodes loops may expand to.
// n <= 0 disables the limit.
func WithMaxSegments(n int64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxSegments(n))
	}
}

// New initializes a new Pulse Engine.
// By default, it loads every definition file below dir.
// If WithLoader option is provided, dir can be empty and is only used as a label.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if dir != "" {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.logger = eng.logger.With("library", eng.Name)
	}

	if eng.loader == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom loader is provided")
		}
		loader, err := file.New(dir, file.WithLogger(eng.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		eng.loader = loader
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(eng.loader, runtimeOpts...)

	return eng, nil
}

// Render binds the template id with parameters and samples it at rate.
func (e *Engine) Render(ctx context.Context, id string, rate expr.Number, parameters expr.Bindings) (*domain.Waveform, error) {
	return e.runtime.Render(ctx, id, rate, parameters)
}

// Bind resolves the parameters of the template id without sampling it.
func (e *Engine) Bind(ctx context.Context, id string, parameters expr.Bindings) (*domain.Bound, error) {
	return e.runtime.Bind(ctx, id, parameters)
}

// Inspect returns the symbolic summary of a template.
func (e *Engine) Inspect(id string) (domain.Inspection, error) {
	return e.runtime.Inspect(id)
}

// List returns the IDs of every loaded template, sorted.
func (e *Engine) List() ([]string, error) {
	return e.runtime.List()
}

// Validate checks every template of the library. The error is only set when
// the templates cannot be listed; use Report.Err for error-level findings.
func (e *Engine) Validate() (*Report, error) {
	return validator.ValidateLibrary(e.loader)
}

// Watch returns a channel that signals when the underlying templates change.
// Every subscriber shares one watch of the loader, started by the first one
// and stopped when the last ctx is done, so each change reloads and drops
// cached waveforms once. The channel is closed when ctx is done or the loader
// stops watching. Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	g := e.watch
	if g == nil {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		changes, err := w.Watch(wctx)
		if err != nil {
			cancel()
			return nil, err
		}
		g = &watchGroup{
			subs:   make(map[chan struct{}]struct{}),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		e.watch = g
		go e.broadcast(g, changes)
	}

	out := make(chan struct{}, 1)
	g.subs[out] = struct{}{}
	go func() {
		select {
		case <-ctx.Done():
			e.unsubscribe(g, out)
		case <-g.done:
		}
	}()
	return out, nil
}

// watchGroup is one running watch of the loader and its subscribers.
type watchGroup struct {
	subs   map[chan struct{}]struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *Engine) broadcast(g *watchGroup, changes <-chan struct{}) {
	for range changes {
		if err := e.runtime.Invalidate(context.Background()); err != nil {
			e.logger.Warn("failed to invalidate cached waveforms", "err", err)
		}
		e.watchMu.Lock()
		for out := range g.subs {
			select {
			case out <- struct{}{}:
			default: // a signal is already pending
			}
		}
		e.watchMu.Unlock()
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	for out := range g.subs {
		close(out)
	}
	g.subs = nil
	close(g.done)
	if e.watch == g {
		e.watch = nil
	}
}

func (e *Engine) unsubscribe(g *watchGroup, out chan struct{}) {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if _, ok := g.subs[out]; !ok {
		return
	}
	delete(g.subs, out)
	close(out)
	if len(g.subs) > 0 {
		return
	}
	g.cancel()
	if e.watch == g {
		e.watch = nil
	}
}

// Loader returns the underlying TemplateLoader used by the engine.
func (e *Engine) Loader() ports.TemplateLoader {
	return e.loader
}

// Sample binds t with parameters and samples it at rate, without an engine.
func Sample(t domain.Template, rate expr.Number, parameters expr.Bindings) (*domain.Waveform, error) {
	bound, err := domain.Bind(t, parameters)
	if err != nil {
		return nil, err
	}
	return sampler.Sample(bound, rate)
}
