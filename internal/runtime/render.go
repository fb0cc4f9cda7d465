package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/ports"
	"github.com/aretw0/pulse/pkg/sampler"
)

// CacheKey identifies a render: the template ID, the structure of the
// template, the rate and the parameters the template actually uses.
func CacheKey(t domain.Template, rate expr.Number, parameters expr.Bindings) string {
	h := sha256.New()
	h.Write([]byte(domain.Canonical(t)))
	h.Write([]byte{0})
	h.Write([]byte(rate.String()))
	for _, name := range t.FreeVariables() {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		if v, ok := parameters[name]; ok {
			h.Write([]byte(v.String()))
		}
	}
	return t.Identifier() + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

// Bind resolves the parameters of a template and emits OnBind.
func (e *Engine) Bind(ctx context.Context, id string, parameters expr.Bindings) (*domain.Bound, error) {
	t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return e.bind(ctx, t, parameters)
}

// Render binds the template with parameters and samples it at rate. Results
// are served from the cache when one is configured; concurrent identical
// renders share one computation. The returned waveform must be treated as
// read-only.
func (e *Engine) Render(ctx context.Context, id string, rate expr.Number, parameters expr.Bindings) (*domain.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return nil, &domain.InvalidSampleRateError{Rate: rate}
	}
	t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	key := CacheKey(t, rate, parameters)

	if w, ok := e.cached(ctx, t, key, rate); ok {
		return w, nil
	}

	ch := e.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so that its cancellation does not fail the others.
		return e.renderOnce(context.WithoutCancel(ctx), t, key, rate, parameters)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Waveform), nil
	}
}

func (e *Engine) load(id string) (domain.Template, error) {
	t, err := e.loader.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if e.maxNodes > 0 {
		if n := Size(t); n > e.maxNodes {
			return nil, &TooLargeError{Template: id, Nodes: n, Limit: e.maxNodes}
		}
	}
	return t, nil
}

func (e *Engine) cached(ctx context.Context, t domain.Template, key string, rate expr.Number) (*domain.Waveform, bool) {
	if e.cache == nil {
		return nil, false
	}
	start := time.Now()
	w, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			e.logger.Warn("cache lookup failed", "template", t.Identifier(), "key", key, "err", err)
		}
		return nil, false
	}
	e.logger.Debug("waveform served from cache", "template", t.Identifier(), "key", key)
	e.emitSample(ctx, t.Identifier(), rate, w, true, time.Since(start), nil)
	return w, true
}

func (e *Engine) renderOnce(ctx context.Context, t domain.Template, key string, rate expr.Number, parameters expr.Bindings) (*domain.Waveform, error) {
	if e.locker != nil && e.cache != nil {
		unlock, err := e.locker.Lock(ctx, key, e.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock render %s: %w", key, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				e.logger.Warn("failed to release render lock", "key", key, "err", err)
			}
		}()
		// Another replica may have rendered while we waited.
		if w, ok := e.cached(ctx, t, key, rate); ok {
			return w, nil
		}
	}

	bound, err := e.bind(ctx, t, parameters)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	w, err := sampler.Sample(bound, rate,
		sampler.WithEvaluator(e.evaluator()),
		sampler.WithMaxSamples(e.maxSamples),
	)
	elapsed := time.Since(start)
	e.emitSample(ctx, t.Identifier(), rate, w, false, elapsed, err)
	if err != nil {
		e.logger.Debug("sampling failed", "template", t.Identifier(), "rate", rate.String(), "err", err)
		return nil, err
	}
	e.logger.Debug("waveform sampled",
		"template", t.Identifier(),
		"rate", rate.String(),
		"samples", w.Len(),
		"elapsed", elapsed,
	)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, w); err != nil {
			// The waveform is still valid; only the cache write failed.
			e.logger.Warn("failed to cache waveform", "template", t.Identifier(), "key", key, "err", err)
		}
	}
	return w, nil
}

func (e *Engine) bind(ctx context.Context, t domain.Template, parameters expr.Bindings) (*domain.Bound, error) {
	start := time.Now()
	bound, err := domain.Bind(t, parameters,
		domain.WithEvaluator(e.evaluator()),
		domain.WithMaxSegments(e.maxSegments),
	)
	elapsed := time.Since(start)

	if e.hooks.OnBind != nil {
		evt := &domain.BindEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventBind},
			TemplateID: t.Identifier(),
			Kind:       t.Kind(),
			Elapsed:    elapsed,
			Err:        err,
		}
		if bound != nil {
			evt.Parameters = len(bound.Parameters)
			evt.Duration = bound.Duration.String()
		}
		e.hooks.OnBind(ctx, evt)
	}
	if err != nil {
		e.logger.Debug("bind failed", "template", t.Identifier(), "err", err)
		return nil, err
	}
	return bound, nil
}

func (e *Engine) emitSample(ctx context.Context, id string, rate expr.Number, w *domain.Waveform, cached bool, elapsed time.Duration, err error) {
	if e.hooks.OnSample == nil {
		return
	}
	evt := &domain.SampleEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventSample},
		TemplateID: id,
		Rate:       rate.String(),
		Cached:     cached,
		Elapsed:    elapsed,
		Err:        err,
	}
	if cached {
		evt.Type = domain.EventCacheHit
	}
	if w != nil {
		evt.Samples = w.Len()
		evt.Channels = len(w.Channels)
	}
	e.hooks.OnSample(ctx, evt)
}

// ParseBindings converts name=value pairs (as given on a command line) into bindings.
func ParseBindings(pairs []string) (expr.Bindings, error) {
	b := make(expr.Bindings, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", p)
		}
		e, err := expr.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		// Values may be constant expressions such as 1/3 or sqrt(2).
		n, err := expr.Evaluate(e, nil)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		b[name] = n
	}
	return b, nil
}
