package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/expr"
)

func TestParse_RoundTrip(t *testing.T) {
	sources := []string{
		"1 + 2 * x",
		"a - (b - c)",
		"-x",
		"-(a * b)",
		"-a + b",
		"x + (-2)",
		"x * (1 / 3)",
		"1 / 3 * x",
		"pow(t, 2) / 2",
		"sum(i, 0, n - 1, i * dt)",
		"amp * sin(2 * omega * t) + offset",
		"max(a, b, 0.5)",
		"a % b",
		"(a + b) * (c - d)",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			e, err := expr.Parse(src)
			require.NoError(t, err)
			assert.Equal(t, src, e.String())

			again, err := expr.Parse(e.String())
			require.NoError(t, err)
			assert.True(t, expr.Equal(e, again), "reparsed %q differs", e.String())
		})
	}
}

func TestParse_DecimalLiteralsAreExact(t *testing.T) {
	e, err := expr.Parse("0.2")
	require.NoError(t, err)
	assert.True(t, expr.Equal(expr.Num(expr.NewRat(1, 5)), e))
	assert.Equal(t, "0.2", e.String())
}

func TestParse_FoldsConstants(t *testing.T) {
	e, err := expr.Parse("2 * 3 + 1")
	require.NoError(t, err)
	assert.True(t, expr.Equal(expr.Int(7), e))

	e, err = expr.Parse("pow(2, -2)")
	require.NoError(t, err)
	assert.Equal(t, "0.25", e.String())

	// Inexact functions stay symbolic.
	e, err = expr.Parse("sin(1)")
	require.NoError(t, err)
	assert.Equal(t, "sin(1)", e.String())
}

func TestParse_Errors(t *testing.T) {
	t.Run("minus without spaces", func(t *testing.T) {
		_, err := expr.Parse("a-b")
		var syntaxErr *expr.SyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Contains(t, syntaxErr.Detail, "a - b")
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := expr.Parse("foo(1)")
		var fnErr *expr.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, "foo", fnErr.Name)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := expr.Parse("sin(x, y)")
		var fnErr *expr.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, "sin", fnErr.Name)
	})

	t.Run("sum needs an index name", func(t *testing.T) {
		_, err := expr.Parse("sum(1, 0, 3, x)")
		var fnErr *expr.FunctionError
		assert.ErrorAs(t, err, &fnErr)
	})

	for _, src := range []string{"", "1 +", "x.y", "true", `"text"`, "sum + 1"} {
		t.Run("syntax "+src, func(t *testing.T) {
			_, err := expr.Parse(src)
			var syntaxErr *expr.SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"x", "amp", "t0", "_gain", "nullable", "trueish"} {
		assert.True(t, expr.ValidName(name), name)

		e, err := expr.Parse(expr.Variable(name).String())
		require.NoError(t, err, name)
		assert.True(t, expr.Equal(expr.Variable(name), e), name)
	}
	for _, name := range []string{"", "1x", "a-b", "sum", "sin", "true", "false", "null"} {
		assert.False(t, expr.ValidName(name), name)
	}
}

func TestFrom(t *testing.T) {
	cases := map[string]any{
		"int":    2,
		"float":  2.0,
		"string": "1 + 1",
		"number": expr.NewInt(2),
		"expr":   expr.Int(2),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			e, err := expr.From(in)
			require.NoError(t, err)
			assert.True(t, expr.Equal(expr.Int(2), e))
		})
	}

	_, err := expr.From(nil)
	assert.Error(t, err)
	_, err = expr.From([]int{1})
	assert.Error(t, err)
}
