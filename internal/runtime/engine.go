package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/ports"
)

// DefaultMemoLimit bounds the evaluation memo the engine creates for itself.
const DefaultMemoLimit = 1 << 16

// Engine runs the load, bind, sample pipeline. It is safe for concurrent use.
type Engine struct {
	loader     ports.TemplateLoader
	cache      ports.WaveformCache
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	memo       *expr.Memo
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	maxNodes    int
	maxSamples  int64
	maxSegments int64

	group singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache stores rendered waveforms in c.
func WithCache(c ports.WaveformCache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLocker serializes renders of the same key across processes sharing the cache.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMemo replaces the engine's evaluation memo. nil disables memoization.
func WithMemo(m *expr.Memo) EngineOption {
	return func(e *Engine) {
		e.memo = m
	}
}

// WithMaxNodes rejects templates whose expressions hold more than n nodes in total.
func WithMaxNodes(n int) EngineOption {
	return func(e *Engine) {
		e.maxNodes = n
	}
}

// WithMaxSamples rejects renders producing more than n samples.
func WithMaxSamples(n int64) EngineOption {
	return func(e *Engine) {
		e.maxSamples = n
	}
}

// WithMaxSegments bounds the number of bound nodes loops may expand to.
// n <= 0 disables the limit; the default is domain.DefaultMaxSegments.
func WithMaxSegments(n int64) EngineOption {
	return func(e *Engine) {
		e.maxSegments = n
	}
}

// NewEngine creates a new engine with dependencies.
func NewEngine(loader ports.TemplateLoader, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:      loader,
		memo:        expr.NewMemo(DefaultMemoLimit),
		logger:      logging.NewNop(),
		lockTTL:     30 * time.Second,
		maxSegments: domain.DefaultMaxSegments,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TooLargeError is returned when a template exceeds the node limit.
type TooLargeError struct {
	Template string
	Nodes    int
	Limit    int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("template %s has %d expression nodes, limit is %d", e.Template, e.Nodes, e.Limit)
}

// Loader returns the underlying TemplateLoader.
func (e *Engine) Loader() ports.TemplateLoader {
	return e.loader
}

// List returns the IDs of every loadable template.
func (e *Engine) List() ([]string, error) {
	return e.loader.ListTemplates()
}

// Inspect returns the symbolic summary of a template.
func (e *Engine) Inspect(id string) (domain.Inspection, error) {
	t, err := e.loader.GetTemplate(id)
	if err != nil {
		return domain.Inspection{}, err
	}
	return domain.Inspect(t), nil
}

// Invalidate drops every cached waveform and memoized value, typically after
// the loader reloaded its definitions.
func (e *Engine) Invalidate(ctx context.Context) error {
	if e.memo != nil {
		e.memo.Reset()
	}
	if e.cache == nil {
		return nil
	}
	return e.cache.Clear(ctx)
}

// MemoStats reports the memo counters (zero when memoization is disabled).
func (e *Engine) MemoStats() expr.MemoStats {
	if e.memo == nil {
		return expr.MemoStats{}
	}
	return e.memo.Stats()
}

func (e *Engine) evaluator() expr.Evaluator {
	if e.memo == nil {
		return expr.Direct
	}
	return e.memo
}

// Size counts the expression nodes of a template tree.
func Size(t domain.Template) int {
	n := 0
	domain.Walk(t, func(node domain.Template, _ int) {
		switch v := node.(type) {
		case *domain.Constant:
			n += expr.Size(v.Duration())
			v.Values().Each(func(_ string, e expr.Expr) { n += expr.Size(e) })
		case *domain.Function:
			n += expr.Size(v.Duration())
			v.Values().Each(func(_ string, e expr.Expr) { n += expr.Size(e) })
		case *domain.Repetition:
			n += expr.Size(v.Count())
		case *domain.ForLoop:
			r := v.Range()
			n += expr.Size(r.Start) + expr.Size(r.Stop) + expr.Size(r.Step)
		case *domain.Mapping:
			for _, p := range v.ParameterMapping() {
				n += expr.Size(p)
			}
		}
	})
	return n
}
