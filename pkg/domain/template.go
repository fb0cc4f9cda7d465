package domain

import (
	"fmt"
	"sort"

	"github.com/aretw0/pulse/pkg/expr"
)

// Template is a parameterized, channel-typed, duration-bearing pulse
// description. The set of implementations is closed: *Constant, *Function,
// *Sequence, *Repetition, *ForLoop and *Mapping. Templates are immutable.
type Template interface {
	Kind() Kind
	// Identifier is the optional name of the template ("" when anonymous).
	Identifier() string
	// DefinedChannels returns the output channel names, sorted.
	DefinedChannels() []string
	// Duration returns the symbolic duration.
	Duration() expr.Expr
	// Integral returns, per channel, the symbolic integral of the value over [0, duration].
	Integral() (*ChannelTable, error)
	// FreeVariables returns the sorted parameter names the template needs to be bound.
	FreeVariables() []string

	template()
}

type base struct {
	id string
}

func (b base) Identifier() string { return b.id }
func (base) template()            {}

// Named returns a copy of t carrying the identifier id.
func Named(t Template, id string) Template {
	switch v := t.(type) {
	case *Constant:
		c := *v
		c.id = id
		return &c
	case *Function:
		c := *v
		c.id = id
		return &c
	case *Sequence:
		c := *v
		c.id = id
		return &c
	case *Repetition:
		c := *v
		c.id = id
		return &c
	case *ForLoop:
		c := *v
		c.id = id
		return &c
	case *Mapping:
		c := *v
		c.id = id
		return &c
	}
	panic(unknownVariant(t))
}

// Children returns the direct subtemplates of t.
func Children(t Template) []Template {
	switch v := t.(type) {
	case *Constant, *Function:
		return nil
	case *Sequence:
		return v.Children()
	case *Repetition:
		return []Template{v.body}
	case *ForLoop:
		return []Template{v.body}
	case *Mapping:
		return []Template{v.body}
	}
	panic(unknownVariant(t))
}

// Walk visits t and its subtemplates depth first, parents before children.
func Walk(t Template, fn func(t Template, depth int)) {
	var visit func(Template, int)
	visit = func(n Template, depth int) {
		fn(n, depth)
		for _, c := range Children(n) {
			visit(c, depth+1)
		}
	}
	visit(t, 0)
}

func unknownVariant(t Template) string {
	return fmt.Sprintf("domain: unknown template variant %T", t)
}

func unionVars(lists ...[]string) []string {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, n := range l {
			set[n] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func withoutVar(names []string, drop string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != drop {
			out = append(out, n)
		}
	}
	return out
}

// --- Atomic templates -------------------------------------------------------

type atomic struct {
	base
	duration expr.Expr
	values   *ChannelTable
}

func newAtomic(duration any, channels []ChannelValue) (atomic, error) {
	d, err := expr.From(duration)
	if err != nil {
		return atomic{}, fmt.Errorf("duration: %w", err)
	}
	if expr.DependsOn(d, expr.TimeVar) {
		return atomic{}, &TimeDependentValueError{Field: "duration", Expr: d}
	}
	if c, ok := d.(*expr.Const); ok && c.Value.Sign() < 0 {
		return atomic{}, &NegativeDurationError{Value: c.Value}
	}
	table, err := NewChannelTable(channels...)
	if err != nil {
		return atomic{}, err
	}
	if table.Len() == 0 {
		return atomic{}, &InvalidChannelError{Reason: "at least one channel is required"}
	}
	return atomic{duration: d, values: table}, nil
}

func (a *atomic) DefinedChannels() []string { return a.values.Sorted() }
func (a *atomic) Duration() expr.Expr       { return a.duration }

// Values returns the channel value table.
func (a *atomic) Values() *ChannelTable { return a.values }

// Constant holds one time-independent value per channel over a duration.
type Constant struct {
	atomic
}

// NewConstant builds a constant template. Literals are normalized to
// constant expressions; values must not reference the time variable.
func NewConstant(duration any, channels ...ChannelValue) (*Constant, error) {
	a, err := newAtomic(duration, channels)
	if err != nil {
		return nil, err
	}
	for _, name := range a.values.names {
		v := a.values.values[name]
		if expr.DependsOn(v, expr.TimeVar) {
			return nil, &TimeDependentValueError{Field: name, Expr: v}
		}
	}
	return &Constant{atomic: a}, nil
}

// NewConstantFromMap is NewConstant with channels taken from a map in sorted order.
func NewConstantFromMap(duration any, values map[string]any) (*Constant, error) {
	return NewConstant(duration, channelsFromMap(values)...)
}

func channelsFromMap(values map[string]any) []ChannelValue {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]ChannelValue, len(names))
	for i, n := range names {
		out[i] = Ch(n, values[n])
	}
	return out
}

func (*Constant) Kind() Kind { return KindConstant }

// Integral is value * duration per channel.
func (c *Constant) Integral() (*ChannelTable, error) {
	return c.values.mapValues(func(_ string, v expr.Expr) (expr.Expr, error) {
		return expr.Mul(v, c.duration), nil
	})
}

func (c *Constant) FreeVariables() []string {
	return unionVars(expr.FreeVariables(c.duration), c.values.FreeVariables())
}

// Function holds per-channel values that may depend on the time variable t,
// measured from the start of the template.
type Function struct {
	atomic
}

// NewFunction builds a function template.
func NewFunction(duration any, channels ...ChannelValue) (*Function, error) {
	a, err := newAtomic(duration, channels)
	if err != nil {
		return nil, err
	}
	return &Function{atomic: a}, nil
}

// NewFunctionFromMap is NewFunction with channels taken from a map in sorted order.
func NewFunctionFromMap(duration any, values map[string]any) (*Function, error) {
	return NewFunction(duration, channelsFromMap(values)...)
}

func (*Function) Kind() Kind { return KindFunction }

// Integral integrates each value over t from 0 to the duration.
func (f *Function) Integral() (*ChannelTable, error) {
	return f.values.mapValues(func(_ string, v expr.Expr) (expr.Expr, error) {
		return expr.IntegrateDefinite(v, expr.TimeVar, expr.Int(0), f.duration)
	})
}

func (f *Function) FreeVariables() []string {
	return withoutVar(unionVars(expr.FreeVariables(f.duration), f.values.FreeVariables()), expr.TimeVar)
}
