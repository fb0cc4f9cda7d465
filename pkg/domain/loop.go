package domain

import (
	"fmt"

	"github.com/aretw0/pulse/pkg/expr"
)

// Range is the iteration range of a ForLoop: start, start+step, ... while
// below stop (above stop for a negative step). A nil Start means 0 and a nil
// Step means 1.
type Range struct {
	Start expr.Expr
	Stop  expr.Expr
	Step  expr.Expr
}

// RangeOf normalizes literal bounds into a Range. A nil start or step keeps its default.
func RangeOf(start, stop, step any) (Range, error) {
	var r Range
	var err error
	if start != nil {
		if r.Start, err = expr.From(start); err != nil {
			return Range{}, fmt.Errorf("range start: %w", err)
		}
	}
	if r.Stop, err = expr.From(stop); err != nil {
		return Range{}, fmt.Errorf("range stop: %w", err)
	}
	if step != nil {
		if r.Step, err = expr.From(step); err != nil {
			return Range{}, fmt.Errorf("range step: %w", err)
		}
	}
	return r.withDefaults(), nil
}

func (r Range) withDefaults() Range {
	if r.Start == nil {
		r.Start = expr.Int(0)
	}
	if r.Step == nil {
		r.Step = expr.Int(1)
	}
	return r
}

// Count is the number of iterations, max(ceil((stop - start) / step), 0).
func (r Range) Count() expr.Expr {
	r = r.withDefaults()
	return expr.MustFn(expr.FuncMax,
		expr.MustFn(expr.FuncCeil, expr.Div(expr.Sub(r.Stop, r.Start), r.Step)),
		expr.Int(0))
}

// FreeVariables returns the sorted parameters of the bounds.
func (r Range) FreeVariables() []string {
	r = r.withDefaults()
	return unionVars(expr.FreeVariables(r.Start), expr.FreeVariables(r.Stop), expr.FreeVariables(r.Step))
}

func (r Range) String() string {
	r = r.withDefaults()
	return fmt.Sprintf("range(%s, %s, %s)", r.Start, r.Stop, r.Step)
}

// MaxLoopIterations bounds the number of iterations a ForLoop may expand to when bound.
const MaxLoopIterations = 1 << 20

// ForLoop plays its body once for every value of Index in Range, with the
// index bound as a parameter of the body.
type ForLoop struct {
	base
	body  Template
	index string
	rng   Range
}

// NewForLoop builds a loop. The index must be a valid, unreserved name that
// the body actually uses and that the range does not reference.
func NewForLoop(body Template, index string, r Range) (*ForLoop, error) {
	if body == nil {
		return nil, &CompositionError{Kind: KindForLoop, Reason: "body is required"}
	}
	if r.Stop == nil {
		return nil, &CompositionError{Kind: KindForLoop, Reason: "range stop is required"}
	}
	if !expr.ValidName(index) || index == expr.TimeVar {
		return nil, &InvalidParameterNameError{Name: index, Reason: "not a valid loop index"}
	}
	r = r.withDefaults()
	bounds := []struct {
		field string
		e     expr.Expr
	}{{"start", r.Start}, {"stop", r.Stop}, {"step", r.Step}}
	for _, b := range bounds {
		field, e := b.field, b.e
		if expr.DependsOn(e, index) {
			return nil, &InvalidParameterNameError{Name: index, Reason: "used by the loop range " + field}
		}
		if expr.DependsOn(e, expr.TimeVar) {
			return nil, &TimeDependentValueError{Field: "range " + field, Expr: e}
		}
	}
	if c, ok := r.Step.(*expr.Const); ok && c.Value.IsZero() {
		return nil, &expr.DomainError{Op: "range", Detail: "step must not be zero"}
	}
	params := body.FreeVariables()
	used := false
	for _, p := range params {
		used = used || p == index
	}
	if !used {
		return nil, &LoopIndexNotUsedError{Index: index, Body: params}
	}
	return &ForLoop{body: body, index: index, rng: r}, nil
}

func (*ForLoop) Kind() Kind { return KindForLoop }

// Body returns the loop body.
func (l *ForLoop) Body() Template { return l.body }

// Index returns the loop index name.
func (l *ForLoop) Index() string { return l.index }

// Range returns the iteration range with defaults filled in.
func (l *ForLoop) Range() Range { return l.rng }

func (l *ForLoop) DefinedChannels() []string { return l.body.DefinedChannels() }

// overIterations sums e over every loop iteration, with the index replaced by
// its value start + i*step.
func (l *ForLoop) overIterations(e expr.Expr) expr.Expr {
	count := l.rng.Count()
	if !expr.DependsOn(e, l.index) {
		return expr.Mul(count, e)
	}
	value := expr.Add(l.rng.Start, expr.Mul(expr.Variable(l.index), l.rng.Step))
	return expr.SumOver(l.index, expr.Int(0), expr.Sub(count, expr.Int(1)), expr.Substitute(e, l.index, value))
}

func (l *ForLoop) Duration() expr.Expr { return l.overIterations(l.body.Duration()) }

func (l *ForLoop) Integral() (*ChannelTable, error) {
	in, err := l.body.Integral()
	if err != nil {
		return nil, err
	}
	return in.mapValues(func(_ string, v expr.Expr) (expr.Expr, error) {
		return l.overIterations(v), nil
	})
}

func (l *ForLoop) FreeVariables() []string {
	return unionVars(withoutVar(l.body.FreeVariables(), l.index), l.rng.FreeVariables())
}
