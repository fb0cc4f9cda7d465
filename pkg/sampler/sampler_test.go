package sampler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/sampler"
)

func bindTemplate(t *testing.T, tpl domain.Template, b expr.Bindings) *domain.Bound {
	t.Helper()
	bound, err := domain.Bind(tpl, b)
	require.NoError(t, err)
	return bound
}

func constant(t *testing.T, duration any, channels ...domain.ChannelValue) *domain.Constant {
	t.Helper()
	c, err := domain.NewConstant(duration, channels...)
	require.NoError(t, err)
	return c
}

func TestSample_ExampleScenario(t *testing.T) {
	tpl := constant(t, 10, domain.Ch("A", 1.0), domain.Ch("B", 0.2))
	w, err := sampler.Sample(bindTemplate(t, tpl, nil), expr.NewInt(100))
	require.NoError(t, err)

	require.Equal(t, 1001, w.Len())
	assert.Equal(t, []string{"A", "B"}, w.Channels)
	assert.Equal(t, 0.0, w.Times[0])
	assert.Equal(t, 10.0, w.Times[1000])
	assert.InDelta(t, 0.01, w.Times[1], 1e-15)
	for i := range w.Times {
		assert.Equal(t, 1.0, w.Values["A"][i])
		assert.Equal(t, 0.2, w.Values["B"][i])
	}
}

func TestSample_CountRule(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		rate     string
		want     int
		lastTime float64
	}{
		{"integer product includes endpoint", "10", "100", 1001, 10},
		{"low rate", "10", "0.1", 2, 10},
		{"non-integer product", "1", "2.5", 3, 0.8},
		{"rate below one sample spacing", "1", "0.5", 1, 0},
		{"fractional duration", "0.25", "8", 3, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := expr.MustParseNumber(tt.duration)
			r := expr.MustParseNumber(tt.rate)
			count, err := sampler.SampleCount(d, r)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.want), count)

			tpl := constant(t, tt.duration, domain.Ch("A", 1))
			w, err := sampler.Sample(bindTemplate(t, tpl, nil), r)
			require.NoError(t, err)
			require.Equal(t, tt.want, w.Len())
			assert.InDelta(t, tt.lastTime, w.Times[w.Len()-1], 1e-12)
			for _, tm := range w.Times {
				assert.LessOrEqual(t, tm, d.Float64())
			}
		})
	}
}

func TestSample_InputValidation(t *testing.T) {
	bound := bindTemplate(t, constant(t, 1, domain.Ch("A", 1)), nil)
	for _, rate := range []expr.Number{expr.NewInt(0), expr.NewInt(-5)} {
		_, err := sampler.Sample(bound, rate)
		var invalid *domain.InvalidSampleRateError
		assert.ErrorAs(t, err, &invalid)
	}

	zero := bindTemplate(t, domain.Named(constant(t, "d", domain.Ch("A", 1)), "flat"), expr.Bindings{"d": expr.NewInt(0)})
	_, err := sampler.Sample(zero, expr.NewInt(10))
	var zeroErr *domain.ZeroDurationError
	require.ErrorAs(t, err, &zeroErr)
	assert.Equal(t, "flat", zeroErr.Template)

	_, err = sampler.Sample(bound, expr.NewInt(1000), sampler.WithMaxSamples(10))
	var tooMany *sampler.TooManySamplesError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, int64(1001), tooMany.Count)
}

func TestSample_GridOverflow(t *testing.T) {
	huge := expr.MustParseNumber("100000000000000000000") // 1e20
	_, err := sampler.SampleCount(huge, expr.NewInt(1))
	var tooMany *sampler.TooManySamplesError
	require.ErrorAs(t, err, &tooMany)
	assert.Zero(t, tooMany.Count)

	bound := bindTemplate(t, constant(t, "d", domain.Ch("A", 1)), expr.Bindings{"d": huge})
	_, err = sampler.Sample(bound, expr.NewInt(1))
	require.ErrorAs(t, err, &tooMany)
	assert.Contains(t, err.Error(), "more than")

	var badRate *domain.InvalidSampleRateError
	assert.False(t, errors.As(err, &badRate), "a positive rate is not reported as invalid")
}

func TestSample_IsDeterministic(t *testing.T) {
	tpl, err := domain.NewFunction("d", domain.Ch("A", "amp * sin(omega * t)"), domain.Ch("B", "exp(-t)"))
	require.NoError(t, err)
	b := expr.Bindings{"d": expr.NewInt(2), "amp": expr.NewRat(3, 2), "omega": expr.MustParseNumber("6.283185307179586")}

	first, err := sampler.Sample(bindTemplate(t, tpl, b), expr.NewInt(50))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := sampler.Sample(bindTemplate(t, tpl, b), expr.NewInt(50))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSample_FunctionUsesLocalTime(t *testing.T) {
	lead := constant(t, 1, domain.Ch("A", 0))
	ramp, err := domain.NewFunction(2, domain.Ch("A", "t / 2"))
	require.NoError(t, err)
	seq, err := domain.NewSequence(lead, ramp)
	require.NoError(t, err)

	w, err := sampler.Sample(bindTemplate(t, seq, nil), expr.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}, w.Times)
	assert.Equal(t, []float64{0, 0, 0, 0.25, 0.5, 0.75, 1}, w.Values["A"])
}

func TestSample_SequenceBoundaries(t *testing.T) {
	a := constant(t, 1, domain.Ch("A", 1))
	gap := constant(t, 0, domain.Ch("A", 99))
	b := constant(t, 1, domain.Ch("A", 2))
	trailing := constant(t, 0, domain.Ch("A", 77))

	seq, err := domain.NewSequence(a, gap, b, trailing)
	require.NoError(t, err)

	w, err := sampler.Sample(bindTemplate(t, seq, nil), expr.NewInt(2))
	require.NoError(t, err)
	// The boundary at t=1 belongs to the second segment; t=2 to the last positive one.
	assert.Equal(t, []float64{1, 1, 2, 2, 2}, w.Values["A"])
}

func TestSample_RepetitionMatchesUnrolledSequence(t *testing.T) {
	body, err := domain.NewFunction("0.3", domain.Ch("A", "t"))
	require.NoError(t, err)

	rep, err := domain.NewRepetition(body, 4)
	require.NoError(t, err)
	seq, err := domain.NewSequence(body, body, body, body)
	require.NoError(t, err)

	rate := expr.NewInt(10)
	fromRep, err := sampler.Sample(bindTemplate(t, rep, nil), rate)
	require.NoError(t, err)
	fromSeq, err := sampler.Sample(bindTemplate(t, seq, nil), rate)
	require.NoError(t, err)

	assert.Equal(t, 13, fromRep.Len())
	assert.Equal(t, fromSeq.Values, fromRep.Values)
	assert.Equal(t, fromSeq.Times, fromRep.Times)
}

func TestSample_LargeRepetitionVisitsOnlySampledIterations(t *testing.T) {
	body := constant(t, "0.001", domain.Ch("A", 1))
	rep, err := domain.NewRepetition(body, 1000000)
	require.NoError(t, err)

	w, err := sampler.Sample(bindTemplate(t, rep, nil), expr.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, 1001, w.Len())
}

func TestSample_ForLoopAndMapping(t *testing.T) {
	step := constant(t, 1, domain.Ch("level", "i"))
	loop, err := domain.NewForLoop(step, "i", domain.Range{Stop: expr.Variable("n")})
	require.NoError(t, err)
	renamed, err := domain.NewMapping(loop, nil, map[string]string{"level": "out"})
	require.NoError(t, err)

	w, err := sampler.Sample(bindTemplate(t, renamed, expr.Bindings{"n": expr.NewInt(3)}), expr.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"out"}, w.Channels)
	assert.Equal(t, []float64{0, 1, 2, 2}, w.Values["out"])
}

func TestSample_WithMemo(t *testing.T) {
	tpl, err := domain.NewFunction(1, domain.Ch("A", "sin(t)"), domain.Ch("B", "sin(t)"))
	require.NoError(t, err)
	memo := expr.NewMemo(0)

	w, err := sampler.Sample(bindTemplate(t, tpl, nil), expr.NewInt(4), sampler.WithEvaluator(memo))
	require.NoError(t, err)
	assert.Equal(t, w.Values["A"], w.Values["B"])
	assert.Equal(t, uint64(5), memo.Stats().Hits)
}

func TestWaveform_Samples(t *testing.T) {
	tpl := constant(t, 1, domain.Ch("A", 1), domain.Ch("B", 2))
	w, err := sampler.Sample(bindTemplate(t, tpl, nil), expr.NewInt(1))
	require.NoError(t, err)

	samples := w.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 1.0, samples[1].Time)
	assert.Equal(t, map[string]float64{"A": 1, "B": 2}, samples[1].Values)
}
