package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/pulse/pkg/domain"
)

// Chain combines several hook sets. Callbacks run in the given order; nil
// callbacks are skipped.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var binds []func(context.Context, *domain.BindEvent)
	var samples []func(context.Context, *domain.SampleEvent)
	for _, s := range sets {
		if s.OnBind != nil {
			binds = append(binds, s.OnBind)
		}
		if s.OnSample != nil {
			samples = append(samples, s.OnSample)
		}
	}

	var out domain.LifecycleHooks
	if len(binds) > 0 {
		out.OnBind = func(ctx context.Context, e *domain.BindEvent) {
			for _, fn := range binds {
				fn(ctx, e)
			}
		}
	}
	if len(samples) > 0 {
		out.OnSample = func(ctx context.Context, e *domain.SampleEvent) {
			for _, fn := range samples {
				fn(ctx, e)
			}
		}
	}
	return out
}

// LoggingHooks logs every event at debug level, and failures at warn level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBind: func(ctx context.Context, e *domain.BindEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "template_bind_failed", "template", e.TemplateID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "template_bound",
				"template", e.TemplateID,
				"kind", e.Kind,
				"parameters", e.Parameters,
				"duration", e.Duration,
				"elapsed", e.Elapsed,
			)
		},
		OnSample: func(ctx context.Context, e *domain.SampleEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "template_sample_failed", "template", e.TemplateID, "rate", e.Rate, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "template_sampled",
				"template", e.TemplateID,
				"type", e.Type,
				"rate", e.Rate,
				"samples", e.Samples,
				"channels", e.Channels,
				"elapsed", e.Elapsed,
			)
		},
	}
}
