package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnBind(ctx, &domain.BindEvent{TemplateID: "flat", Elapsed: time.Millisecond})
	hooks.OnBind(ctx, &domain.BindEvent{TemplateID: "flat", Err: errors.New("missing")})
	hooks.OnSample(ctx, &domain.SampleEvent{TemplateID: "flat", Samples: 1001, Elapsed: time.Millisecond})
	hooks.OnSample(ctx, &domain.SampleEvent{TemplateID: "flat", Samples: 1001, Cached: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Binds.WithLabelValues("flat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Binds.WithLabelValues("flat", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("flat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("flat")))
	assert.Equal(t, 1001.0, testutil.ToFloat64(m.Samples.WithLabelValues("flat")), "cache hits do not count samples")

	// Registering twice on the same registry fails.
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{
		OnBind: func(context.Context, *domain.BindEvent) { order = append(order, "a") },
	}
	b := domain.LifecycleHooks{
		OnBind:   func(context.Context, *domain.BindEvent) { order = append(order, "b") },
		OnSample: func(context.Context, *domain.SampleEvent) { order = append(order, "b-sample") },
	}

	hooks := observability.Chain(a, domain.LifecycleHooks{}, b)
	hooks.OnBind(context.Background(), &domain.BindEvent{})
	hooks.OnSample(context.Background(), &domain.SampleEvent{})
	assert.Equal(t, []string{"a", "b", "b-sample"}, order)

	assert.Nil(t, observability.Chain().OnBind)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnSample(context.Background(), &domain.SampleEvent{TemplateID: "flat", Rate: "100", Samples: 1001})
	hooks.OnBind(context.Background(), &domain.BindEvent{TemplateID: "scaled", Err: errors.New("missing parameters: amp")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"template_sampled"`)
	assert.Contains(t, lines[0], `"samples":1001`)
	assert.Contains(t, lines[1], `"level":"WARN"`)
	assert.Contains(t, lines[1], "missing parameters")
}
