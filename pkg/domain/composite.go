package domain

import (
	"fmt"

	"github.com/aretw0/pulse/pkg/expr"
)

// Sequence plays its children back to back. All children define the same channels.
type Sequence struct {
	base
	children []Template
}

// NewSequence builds a sequence of at least one child.
func NewSequence(children ...Template) (*Sequence, error) {
	if len(children) == 0 {
		return nil, &CompositionError{Kind: KindSequence, Reason: "at least one child is required"}
	}
	for i, c := range children {
		if c == nil {
			return nil, &CompositionError{Kind: KindSequence, Reason: fmt.Sprintf("child %d is nil", i)}
		}
	}
	want := children[0].DefinedChannels()
	for i, c := range children[1:] {
		if got := c.DefinedChannels(); !sameStrings(want, got) {
			return nil, &ChannelMismatchError{Index: i + 1, Want: want, Got: got}
		}
	}
	return &Sequence{children: append([]Template(nil), children...)}, nil
}

func (*Sequence) Kind() Kind { return KindSequence }

// Children returns the subtemplates in playback order.
func (s *Sequence) Children() []Template { return append([]Template(nil), s.children...) }

func (s *Sequence) DefinedChannels() []string { return s.children[0].DefinedChannels() }

func (s *Sequence) Duration() expr.Expr {
	d := s.children[0].Duration()
	for _, c := range s.children[1:] {
		d = expr.Add(d, c.Duration())
	}
	return d
}

// Integral is the per-channel sum of the children's integrals.
func (s *Sequence) Integral() (*ChannelTable, error) {
	names := s.DefinedChannels()
	sums := make(map[string]expr.Expr, len(names))
	for i, c := range s.children {
		in, err := c.Integral()
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		for _, n := range names {
			v, _ := in.Get(n)
			if prev, ok := sums[n]; ok {
				sums[n] = expr.Add(prev, v)
			} else {
				sums[n] = v
			}
		}
	}
	return tableOf(names, sums), nil
}

func (s *Sequence) FreeVariables() []string {
	lists := make([][]string, len(s.children))
	for i, c := range s.children {
		lists[i] = c.FreeVariables()
	}
	return unionVars(lists...)
}

// Repetition plays its body Count times.
type Repetition struct {
	base
	body  Template
	count expr.Expr
}

// NewRepetition builds a repetition. A literal count must be a non-negative integer.
func NewRepetition(body Template, count any) (*Repetition, error) {
	if body == nil {
		return nil, &CompositionError{Kind: KindRepetition, Reason: "body is required"}
	}
	c, err := expr.From(count)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if expr.DependsOn(c, expr.TimeVar) {
		return nil, &TimeDependentValueError{Field: "count", Expr: c}
	}
	if k, ok := c.(*expr.Const); ok {
		if reason := checkCount(k.Value); reason != "" {
			return nil, &InvalidRepetitionCountError{Value: k.Value, Reason: reason}
		}
	}
	return &Repetition{body: body, count: c}, nil
}

func checkCount(n expr.Number) string {
	switch {
	case !n.IsInt():
		return "not an integer"
	case n.Sign() < 0:
		return "negative"
	}
	return ""
}

func (*Repetition) Kind() Kind { return KindRepetition }

// Body returns the repeated template.
func (r *Repetition) Body() Template { return r.body }

// Count returns the symbolic repetition count.
func (r *Repetition) Count() expr.Expr { return r.count }

func (r *Repetition) DefinedChannels() []string { return r.body.DefinedChannels() }

func (r *Repetition) Duration() expr.Expr { return expr.Mul(r.count, r.body.Duration()) }

func (r *Repetition) Integral() (*ChannelTable, error) {
	in, err := r.body.Integral()
	if err != nil {
		return nil, err
	}
	return in.mapValues(func(_ string, v expr.Expr) (expr.Expr, error) {
		return expr.Mul(r.count, v), nil
	})
}

func (r *Repetition) FreeVariables() []string {
	return unionVars(expr.FreeVariables(r.count), r.body.FreeVariables())
}
