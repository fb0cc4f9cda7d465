package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/dsl"
	"github.com/aretw0/pulse/pkg/observability"
)

func newEngine(t *testing.T, opts ...pulse.Option) *pulse.Engine {
	t.Helper()
	b := dsl.New()
	b.Add("flat").Constant(10).Channel("A", 1.0).Channel("B", "0.2")
	b.Add("scaled").Constant("d").Channel("A", "amp")
	b.Add("empty").Constant(0).Channel("A", 1)
	b.Add("cell").Constant(1).Channel("A", "i + j")
	b.Add("row").Loop("cell", "j", "m")
	b.Add("grid").Loop("row", "i", "n")
	loader, err := b.Build()
	require.NoError(t, err)

	eng, err := pulse.New("", append([]pulse.Option{pulse.WithLoader(loader)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListAndInspect(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, "GET", "/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	assert.Equal(t, []string{"cell", "empty", "flat", "grid", "row", "scaled"}, ids)

	w = do(t, h, "GET", "/templates/scaled", "")
	require.Equal(t, http.StatusOK, w.Code)
	var in domain.Inspection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &in))
	assert.Equal(t, domain.KindConstant, in.Kind)
	assert.Equal(t, []string{"amp", "d"}, in.Parameters)
	assert.Equal(t, "amp * d", in.Integral["A"])

	w = do(t, h, "GET", "/templates/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSampleTemplate(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, "POST", "/templates/flat/sample", `{"rate": 100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var wf domain.Waveform
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wf))
	assert.Equal(t, 1001, wf.Len())
	assert.Equal(t, []string{"A", "B"}, wf.Channels)
	assert.Equal(t, 0.2, wf.Values["B"][1000])

	w = do(t, h, "POST", "/templates/scaled/sample", `{"rate": "1/2", "parameters": {"d": 4, "amp": "1/3"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wf))
	assert.Equal(t, 3, wf.Len())
}

func TestSampleTemplate_Errors(t *testing.T) {
	h := NewHandler(newEngine(t))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"bad body", "/templates/flat/sample", `{"rate":`, http.StatusBadRequest, "invalid request body"},
		{"missing rate", "/templates/flat/sample", `{}`, http.StatusBadRequest, "sample rate must be positive"},
		{"missing parameter", "/templates/scaled/sample", `{"rate": 1, "parameters": {"d": 1}}`, http.StatusBadRequest, "amp"},
		{"zero duration", "/templates/empty/sample", `{"rate": 1}`, http.StatusUnprocessableEntity, "zero duration"},
		{"unknown template", "/templates/ghost/sample", `{"rate": 1}`, http.StatusNotFound, "not found"},
		{"nested loops too large", "/templates/grid/sample", `{"rate": "1/1000000", "parameters": {"n": 2000, "m": 2000}}`, http.StatusUnprocessableEntity, "bound segments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	h := NewHandler(newEngine(t, pulse.WithLifecycleHooks(m.Hooks())), WithMetrics(reg))

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/templates/flat/sample", `{"rate": 1}`).Code)

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `pulse_samples_total{template="flat"} 11`)

	// Without a gatherer the route does not exist.
	assert.Equal(t, http.StatusNotFound, do(t, NewHandler(newEngine(t)), "GET", "/metrics", "").Code)
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(newEngine(t))
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/health", "").Code)

	w := do(t, h, "GET", "/info", "")
	assert.Contains(t, w.Body.String(), pulse.Version)
}

// watchEngine overrides Watch on a real engine.
type watchEngine struct {
	*pulse.Engine
	watch func(ctx context.Context) (<-chan struct{}, error)
}

func (e watchEngine) Watch(ctx context.Context) (<-chan struct{}, error) { return e.watch(ctx) }

func TestSubscribeEvents(t *testing.T) {
	eng := watchEngine{
		Engine: newEngine(t),
		watch: func(context.Context) (<-chan struct{}, error) {
			ch := make(chan struct{}, 1)
			ch <- struct{}{}
			close(ch)
			return ch, nil
		},
	}

	w := do(t, NewHandler(eng), "GET", "/events", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: ping")
	assert.Contains(t, body, "event: reload")

	// Memory loaders cannot be watched.
	w = do(t, NewHandler(newEngine(t)), "GET", "/events", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
