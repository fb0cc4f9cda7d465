package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
)

func TestBind_MissingParameterNamesVariable(t *testing.T) {
	tpl := mustConstant(t, 10, domain.Ch("A", "x"))
	_, err := domain.Bind(tpl, nil)

	var missing *domain.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"x"}, missing.Names)
	assert.Contains(t, err.Error(), "x")
}

func TestBind_ReportsEveryMissingParameterSorted(t *testing.T) {
	tpl := domain.Named(mustConstant(t, "d", domain.Ch("A", "y + x")), "pulse")
	_, err := domain.Bind(tpl, expr.Bindings{"x": expr.NewInt(1)})

	var missing *domain.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"d", "y"}, missing.Names)
	assert.Equal(t, "pulse", missing.Template)
}

func TestBind_Constant(t *testing.T) {
	tpl := mustConstant(t, "d", domain.Ch("A", "v * 2"))
	bound, err := domain.Bind(tpl, expr.Bindings{
		"d":      expr.NewInt(3),
		"v":      expr.NewRat(1, 4),
		"unused": expr.NewInt(9),
	})
	require.NoError(t, err)

	assert.Equal(t, "3", bound.Duration.String())
	assert.Equal(t, []string{"A"}, bound.Channels)
	assert.Equal(t, []string{"d", "v"}, bound.Parameters.Names(), "only needed parameters are kept")

	seg, ok := bound.Root.(*domain.BoundSegment)
	require.True(t, ok)
	v, err := seg.Value(expr.Direct, "A", expr.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "0.5", v.String())
}

func TestBind_NegativeDuration(t *testing.T) {
	tpl := mustConstant(t, "d", domain.Ch("A", 1))
	_, err := domain.Bind(tpl, expr.Bindings{"d": expr.NewInt(-1)})
	var neg *domain.NegativeDurationError
	assert.ErrorAs(t, err, &neg)
}

func TestBind_DomainErrorSurfaces(t *testing.T) {
	tpl := mustConstant(t, 1, domain.Ch("A", "1 / x"))
	_, err := domain.Bind(tpl, expr.Bindings{"x": expr.NewInt(0)})
	var domErr *expr.DomainError
	assert.ErrorAs(t, err, &domErr)
}

func TestBind_FunctionKeepsTimeExpression(t *testing.T) {
	tpl, err := domain.NewFunction(2, domain.Ch("ramp", "a * t"), domain.Ch("level", "a"))
	require.NoError(t, err)

	bound, err := domain.Bind(tpl, expr.Bindings{"a": expr.NewInt(3)})
	require.NoError(t, err)

	seg := bound.Root.(*domain.BoundSegment)
	assert.Equal(t, "3 * t", seg.Values["ramp"].String())
	_, isConst := seg.Values["level"].(*expr.Const)
	assert.True(t, isConst)

	v, err := seg.Value(expr.Direct, "ramp", expr.NewRat(1, 2))
	require.NoError(t, err)
	assert.Equal(t, "1.5", v.String())
}

func TestBind_Repetition(t *testing.T) {
	body := mustConstant(t, 2, domain.Ch("A", 1))
	rep, err := domain.NewRepetition(body, "n")
	require.NoError(t, err)

	bound, err := domain.Bind(rep, expr.Bindings{"n": expr.NewInt(4)})
	require.NoError(t, err)
	node := bound.Root.(*domain.BoundRepetition)
	assert.Equal(t, int64(4), node.Count)
	assert.Equal(t, "8", bound.Duration.String())

	for _, n := range []expr.Number{expr.NewRat(5, 2), expr.NewInt(-2)} {
		_, err = domain.Bind(rep, expr.Bindings{"n": n})
		var inv *domain.InvalidRepetitionCountError
		assert.ErrorAs(t, err, &inv, "count %s", n)
	}
}

func TestBind_ForLoopExpandsIterations(t *testing.T) {
	body := mustConstant(t, "i + 1", domain.Ch("A", "amp * i"))
	loop, err := domain.NewForLoop(body, "i", domain.Range{Start: expr.Int(1), Stop: expr.Variable("n")})
	require.NoError(t, err)

	bound, err := domain.Bind(loop, expr.Bindings{"n": expr.NewInt(4), "amp": expr.NewRat(1, 2)})
	require.NoError(t, err)

	seq := bound.Root.(*domain.BoundSequence)
	require.Len(t, seq.Children, 3)
	assert.Equal(t, "9", bound.Duration.String())

	last := seq.Children[2].(*domain.BoundSegment)
	assert.Equal(t, "4", last.Duration.String())
	assert.Equal(t, "1.5", last.Values["A"].String())

	// Symbolic and bound durations agree.
	d, err := expr.Evaluate(loop.Duration(), bound.Parameters)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Cmp(bound.Duration))

	empty, err := domain.Bind(loop, expr.Bindings{"n": expr.NewInt(0), "amp": expr.NewInt(1)})
	require.NoError(t, err)
	assert.True(t, empty.Duration.IsZero())
}

func nestedLoops(t *testing.T) domain.Template {
	t.Helper()
	body := mustConstant(t, 1, domain.Ch("A", "i + j"))
	inner, err := domain.NewForLoop(body, "j", domain.Range{Stop: expr.Variable("m")})
	require.NoError(t, err)
	outer, err := domain.NewForLoop(inner, "i", domain.Range{Stop: expr.Variable("n")})
	require.NoError(t, err)
	return domain.Named(outer, "grid")
}

func TestBind_SegmentBudget(t *testing.T) {
	tpl := nestedLoops(t)
	small := expr.Bindings{"n": expr.NewInt(10), "m": expr.NewInt(10)}

	// 1 outer sequence + 10 * (1 inner sequence + 10 segments)
	bound, err := domain.Bind(tpl, small, domain.WithMaxSegments(111))
	require.NoError(t, err)
	assert.Equal(t, "100", bound.Duration.String())

	_, err = domain.Bind(tpl, small, domain.WithMaxSegments(110))
	var tooMany *domain.TooManySegmentsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, "grid", tooMany.Template)
	assert.Equal(t, int64(110), tooMany.Limit)

	_, err = domain.Bind(tpl, small, domain.WithMaxSegments(0))
	assert.NoError(t, err, "a non-positive budget disables the limit")
}

func TestBind_NestedLoopsRejectedBeforeExpansion(t *testing.T) {
	tpl := nestedLoops(t)
	for _, size := range []int64{1500, domain.MaxLoopIterations} {
		start := time.Now()
		_, err := domain.Bind(tpl, expr.Bindings{"n": expr.NewInt(size), "m": expr.NewInt(size)})
		var tooMany *domain.TooManySegmentsError
		require.ErrorAs(t, err, &tooMany, "size %d", size)
		assert.Equal(t, int64(domain.DefaultMaxSegments), tooMany.Limit)
		assert.Less(t, time.Since(start), 2*time.Second, "size %d", size)
	}
}

func TestBind_ForLoopZeroStep(t *testing.T) {
	body := mustConstant(t, 1, domain.Ch("A", "i"))
	loop, err := domain.NewForLoop(body, "i", domain.Range{Stop: expr.Int(3), Step: expr.Variable("s")})
	require.NoError(t, err)

	_, err = domain.Bind(loop, expr.Bindings{"s": expr.NewInt(0)})
	var domErr *expr.DomainError
	assert.ErrorAs(t, err, &domErr)
}

func TestBind_MappingRenamesAndMapsParameters(t *testing.T) {
	body := mustConstant(t, "d", domain.Ch("A", "amp"))
	m, err := domain.NewMapping(body, map[string]any{"amp": "2 * level"}, map[string]string{"A": "X"})
	require.NoError(t, err)

	bound, err := domain.Bind(m, expr.Bindings{"d": expr.NewInt(2), "level": expr.NewRat(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, bound.Channels)

	seg := bound.Root.(*domain.BoundSegment)
	assert.Equal(t, "1", seg.Values["X"].String())
	_, hasInner := seg.Values["A"]
	assert.False(t, hasInner)

	values, err := bound.Integral(nil)
	require.NoError(t, err)
	assert.Equal(t, "2", values["X"].String())
}

func TestBind_UsesInjectedEvaluator(t *testing.T) {
	memo := expr.NewMemo(0)
	tpl := mustConstant(t, "d", domain.Ch("A", "v"), domain.Ch("B", "v * 2"))
	b := expr.Bindings{"d": expr.NewInt(1), "v": expr.NewInt(3)}

	_, err := domain.Bind(tpl, b, domain.WithEvaluator(memo))
	require.NoError(t, err)
	_, err = domain.Bind(tpl, b, domain.WithEvaluator(memo))
	require.NoError(t, err)

	stats := memo.Stats()
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(3), stats.Hits)
}
