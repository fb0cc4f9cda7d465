package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/expr"
)

func bind(kv ...any) expr.Bindings {
	b := expr.Bindings{}
	for i := 0; i < len(kv); i += 2 {
		b[kv[i].(string)] = expr.MustParseNumber(kv[i+1].(string))
	}
	return b
}

func evalString(t *testing.T, src string, b expr.Bindings) string {
	t.Helper()
	v, err := expr.Evaluate(expr.MustParse(src), b)
	require.NoError(t, err)
	return v.String()
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		src  string
		b    expr.Bindings
		want string
	}{
		{"a * b + 1", bind("a", "2", "b", "3"), "7"},
		{"a / b", bind("a", "1", "b", "3"), "1 / 3"},
		{"x * 0.1 * 10", bind("x", "0.3"), "0.3"},
		{"7 % a", bind("a", "3"), "1"},
		{"sqrt(x)", bind("x", "1/4"), "0.5"},
		{"pow(x, 0.5)", bind("x", "4"), "2"},
		{"pow(x, 3)", bind("x", "-2"), "-8"},
		{"abs(x) + floor(y) + ceil(y)", bind("x", "-1", "y", "1.5"), "4"},
		{"min(x, 2, y)", bind("x", "5", "y", "-1"), "-1"},
		{"max(x, 2, y)", bind("x", "5", "y", "-1"), "5"},
		{"sum(i, 1, n, i)", bind("n", "4"), "10"},
		{"sum(i, 1, n, i)", bind("n", "0"), "0"},
		{"sum(i, 0, 2, sum(j, 0, i, 1))", nil, "6"},
		{"cos(0)", nil, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, evalString(t, tt.src, tt.b))
		})
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	e := expr.MustParse("amp * sin(omega * t) + exp(-t)")
	b := bind("amp", "0.5", "omega", "6.283185307179586", "t", "0.125")
	first, err := expr.Evaluate(e, b)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		v, err := expr.Evaluate(e, b)
		require.NoError(t, err)
		assert.Equal(t, 0, first.Cmp(v))
	}
}

func TestEvaluate_UnboundVariable(t *testing.T) {
	_, err := expr.Evaluate(expr.MustParse("a * b"), bind("a", "1"))
	var unbound *expr.UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "b", unbound.Name)
	assert.Contains(t, err.Error(), "a * b")
}

func TestEvaluate_DomainErrors(t *testing.T) {
	for _, src := range []string{
		"1 / x",
		"x % 0",
		"sqrt(-1)",
		"log(0)",
		"pow(0, -1)",
		"pow(-8, 1 / 3)",
		"sum(i, 0, 1.5, i)",
		"exp(1000)",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := expr.Evaluate(expr.MustParse(src), bind("x", "0"))
			var domainErr *expr.DomainError
			assert.ErrorAs(t, err, &domainErr)
		})
	}
}

func TestFreeVariables(t *testing.T) {
	e := expr.MustParse("sum(i, 0, n, i * x) + y * t")
	assert.Equal(t, []string{"n", "t", "x", "y"}, expr.FreeVariables(e))
	assert.True(t, expr.DependsOn(e, "x"))
	assert.False(t, expr.DependsOn(e, "i"))
	assert.Empty(t, expr.FreeVariables(expr.MustParse("2 * 3")))
}

func TestSubstitute(t *testing.T) {
	e := expr.MustParse("a + b")
	s := expr.Substitute(e, "a", expr.MustParse("2 * c"))
	assert.Equal(t, "2 * c + b", s.String())
	assert.Equal(t, "a + b", e.String(), "input must be unchanged")

	swapped := expr.SubstituteAll(expr.MustParse("x - y"), map[string]expr.Expr{
		"x": expr.Variable("y"),
		"y": expr.Variable("x"),
	})
	assert.Equal(t, "y - x", swapped.String())

	folded := expr.SubstituteNumbers(expr.MustParse("a * b"), bind("a", "2", "b", "5"))
	assert.True(t, expr.Equal(expr.Int(10), folded))
}

func TestSubstitute_SumIndexIsNotCaptured(t *testing.T) {
	e := expr.MustParse("sum(i, 0, 2, i * x)")
	s := expr.Substitute(e, "x", expr.Variable("i"))
	assert.Equal(t, []string{"i"}, expr.FreeVariables(s))

	v, err := expr.Evaluate(s, bind("i", "10"))
	require.NoError(t, err)
	assert.Equal(t, "30", v.String())

	// The index itself is shadowed and never replaced.
	same := expr.Substitute(e, "i", expr.Int(5))
	assert.True(t, expr.Equal(e, same))
}

func TestKeyAndHash(t *testing.T) {
	a := expr.MustParse("a + 1")
	b := expr.MustParse("a + 1")
	c := expr.MustParse("1 + a")
	assert.Equal(t, expr.Key(a), expr.Key(b))
	assert.Equal(t, expr.Hash(a), expr.Hash(b))
	assert.True(t, expr.Equal(a, b))
	assert.NotEqual(t, expr.Key(a), expr.Key(c))
	assert.False(t, expr.Equal(a, c))
	assert.Equal(t, 3, expr.Size(a))
}
