package domain

import (
	"errors"
	"fmt"

	"github.com/aretw0/pulse/pkg/expr"
)

// Bound is a template with every parameter resolved. Its tree holds exact
// durations and, per channel, either a constant or an expression of the time
// variable only.
type Bound struct {
	Template   Template
	Channels   []string
	Duration   expr.Number
	Parameters expr.Bindings
	Root       BoundNode
}

// BoundNode is a node of a bound tree: *BoundSegment, *BoundSequence or *BoundRepetition.
type BoundNode interface {
	Span() expr.Number
	boundNode()
}

// BoundSegment is a leaf. Values maps each channel to an *expr.Const or to
// an expression whose only free variable is the local time t.
type BoundSegment struct {
	Duration expr.Number
	Values   map[string]expr.Expr
}

// BoundSequence plays its children back to back.
type BoundSequence struct {
	Duration expr.Number
	Children []BoundNode
}

// BoundRepetition plays Body Count times.
type BoundRepetition struct {
	Duration expr.Number
	Count    int64
	Body     BoundNode
}

func (s *BoundSegment) Span() expr.Number    { return s.Duration }
func (s *BoundSequence) Span() expr.Number   { return s.Duration }
func (r *BoundRepetition) Span() expr.Number { return r.Duration }

func (*BoundSegment) boundNode()    {}
func (*BoundSequence) boundNode()   {}
func (*BoundRepetition) boundNode() {}

// Value returns the value of channel at local time t within the segment.
func (s *BoundSegment) Value(ev expr.Evaluator, channel string, t expr.Number) (expr.Number, error) {
	e, ok := s.Values[channel]
	if !ok {
		return expr.Number{}, fmt.Errorf("segment has no channel %q", channel)
	}
	if c, ok := e.(*expr.Const); ok {
		return c.Value, nil
	}
	return ev.Evaluate(e, expr.Bindings{expr.TimeVar: t})
}

// DefaultMaxSegments is the bound-node budget of Bind unless WithMaxSegments changes it.
const DefaultMaxSegments = 1 << 20

// BindOption configures Bind.
type BindOption func(*bindConfig)

type bindConfig struct {
	ev          expr.Evaluator
	root        string
	maxSegments int64
	used        *int64
}

// WithMaxSegments bounds the number of nodes of the bound tree. Loops are
// expanded when bound, so nested loops multiply. A loop whose first iteration,
// repeated for every remaining one, would exceed the budget is rejected before
// the rest is bound. n <= 0 disables the limit.
func WithMaxSegments(n int64) BindOption {
	return func(c *bindConfig) { c.maxSegments = n }
}

// check fails when n more bound nodes would exceed the budget.
func (c bindConfig) check(n int64) error {
	if c.maxSegments > 0 && *c.used+n > c.maxSegments {
		return &TooManySegmentsError{Template: c.root, Limit: c.maxSegments}
	}
	return nil
}

func (c bindConfig) spend(n int64) error {
	if err := c.check(n); err != nil {
		return err
	}
	*c.used += n
	return nil
}

// WithEvaluator evaluates through ev, typically an *expr.Memo.
func WithEvaluator(ev expr.Evaluator) BindOption {
	return func(c *bindConfig) {
		if ev != nil {
			c.ev = ev
		}
	}
}

// Bind resolves every parameter of t. It fails with *MissingParameterError,
// naming every missing parameter, before evaluating anything, and with
// *TooManySegmentsError when the expanded tree would exceed the node budget.
func Bind(t Template, b expr.Bindings, opts ...BindOption) (*Bound, error) {
	cfg := bindConfig{ev: expr.Direct, root: t.Identifier(), maxSegments: DefaultMaxSegments, used: new(int64)}
	for _, opt := range opts {
		opt(&cfg)
	}

	free := t.FreeVariables()
	params := make(expr.Bindings, len(free))
	var missing []string
	for _, name := range free {
		v, ok := b[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		params[name] = v
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Template: t.Identifier(), Names: missing}
	}

	root, err := bindNode(t, params, cfg)
	if err != nil {
		var unbound *expr.UnboundVariableError
		if errors.As(err, &unbound) {
			return nil, &MissingParameterError{Template: t.Identifier(), Names: []string{unbound.Name}}
		}
		return nil, err
	}
	return &Bound{
		Template:   t,
		Channels:   t.DefinedChannels(),
		Duration:   root.Span(),
		Parameters: params,
		Root:       root,
	}, nil
}

// Integral evaluates the template integral under the bound parameters.
func (b *Bound) Integral(ev expr.Evaluator) (map[string]expr.Number, error) {
	in, err := b.Template.Integral()
	if err != nil {
		return nil, err
	}
	return in.Evaluate(ev, b.Parameters)
}

func bindNode(t Template, b expr.Bindings, cfg bindConfig) (BoundNode, error) {
	switch v := t.(type) {
	case *Constant:
		if err := cfg.spend(1); err != nil {
			return nil, err
		}
		d, err := bindDuration(v, b, cfg)
		if err != nil {
			return nil, err
		}
		nums, err := v.values.Evaluate(cfg.ev, b)
		if err != nil {
			return nil, err
		}
		values := make(map[string]expr.Expr, len(nums))
		for name, n := range nums {
			values[name] = expr.Num(n)
		}
		return &BoundSegment{Duration: d, Values: values}, nil

	case *Function:
		if err := cfg.spend(1); err != nil {
			return nil, err
		}
		d, err := bindDuration(v, b, cfg)
		if err != nil {
			return nil, err
		}
		params := make(expr.Bindings, len(b))
		for k, n := range b {
			if k != expr.TimeVar {
				params[k] = n
			}
		}
		values := make(map[string]expr.Expr, v.values.Len())
		for _, name := range v.values.names {
			e := expr.SubstituteNumbers(v.values.values[name], params)
			for _, free := range expr.FreeVariables(e) {
				if free != expr.TimeVar {
					return nil, &expr.UnboundVariableError{Name: free, Expr: v.values.values[name]}
				}
			}
			if !expr.DependsOn(e, expr.TimeVar) {
				n, err := cfg.ev.Evaluate(e, nil)
				if err != nil {
					return nil, err
				}
				e = expr.Num(n)
			}
			values[name] = e
		}
		return &BoundSegment{Duration: d, Values: values}, nil

	case *Sequence:
		if err := cfg.spend(1); err != nil {
			return nil, err
		}
		seq := &BoundSequence{Children: make([]BoundNode, 0, len(v.children))}
		for i, c := range v.children {
			n, err := bindNode(c, b, cfg)
			if err != nil {
				return nil, fmt.Errorf("sequence child %d: %w", i, err)
			}
			seq.Children = append(seq.Children, n)
			seq.Duration = seq.Duration.Add(n.Span())
		}
		return seq, nil

	case *Repetition:
		c, err := cfg.ev.Evaluate(v.count, b)
		if err != nil {
			return nil, fmt.Errorf("repetition count: %w", err)
		}
		count, ok := c.Int64()
		if reason := checkCount(c); reason != "" || !ok {
			if reason == "" {
				reason = "too large"
			}
			return nil, &InvalidRepetitionCountError{Template: v.id, Value: c, Reason: reason}
		}
		if err := cfg.spend(1); err != nil {
			return nil, err
		}
		body, err := bindNode(v.body, b, cfg)
		if err != nil {
			return nil, err
		}
		return &BoundRepetition{Duration: c.Mul(body.Span()), Count: count, Body: body}, nil

	case *ForLoop:
		return bindLoop(v, b, cfg)

	case *Mapping:
		inner, err := v.innerBindings(cfg.ev, b)
		if err != nil {
			return nil, err
		}
		body, err := bindNode(v.body, inner, cfg)
		if err != nil {
			return nil, err
		}
		return renameNode(body, v.Rename), nil
	}
	panic(unknownVariant(t))
}

func bindDuration(t Template, b expr.Bindings, cfg bindConfig) (expr.Number, error) {
	d, err := cfg.ev.Evaluate(t.Duration(), b)
	if err != nil {
		return expr.Number{}, fmt.Errorf("duration: %w", err)
	}
	if d.Sign() < 0 {
		return expr.Number{}, &NegativeDurationError{Template: t.Identifier(), Value: d}
	}
	return d, nil
}

func bindLoop(l *ForLoop, b expr.Bindings, cfg bindConfig) (BoundNode, error) {
	var bounds [3]expr.Number
	for i, e := range []expr.Expr{l.rng.Start, l.rng.Stop, l.rng.Step} {
		n, err := cfg.ev.Evaluate(e, b)
		if err != nil {
			return nil, fmt.Errorf("loop range: %w", err)
		}
		bounds[i] = n
	}
	start, stop, step := bounds[0], bounds[1], bounds[2]
	if step.IsZero() {
		return nil, &expr.DomainError{Op: "range", Detail: "step must not be zero"}
	}
	q, _ := stop.Sub(start).Quo(step)
	iterations := q.Ceil()
	if iterations.Sign() < 0 {
		iterations = expr.NewInt(0)
	}
	n, ok := iterations.Int64()
	if !ok || n > MaxLoopIterations {
		return nil, &InvalidRepetitionCountError{Template: l.id, Value: iterations, Reason: fmt.Sprintf("exceeds %d loop iterations", MaxLoopIterations)}
	}

	if err := cfg.spend(1); err != nil {
		return nil, err
	}
	// Every iteration binds at least one node.
	if err := cfg.check(n); err != nil {
		return nil, err
	}

	seq := &BoundSequence{Children: make([]BoundNode, 0, n)}
	for i := int64(0); i < n; i++ {
		before := *cfg.used
		value := start.Add(step.Mul(expr.NewInt(i)))
		child, err := bindNode(l.body, b.With(l.index, value), cfg)
		if err != nil {
			var tooMany *TooManySegmentsError
			if errors.As(err, &tooMany) {
				return nil, err
			}
			return nil, fmt.Errorf("loop %s=%s: %w", l.index, value, err)
		}
		seq.Children = append(seq.Children, child)
		seq.Duration = seq.Duration.Add(child.Span())

		// Reject early when the remaining iterations, sized like the first, cannot fit.
		if i == 0 && n > 1 {
			if err := cfg.check((*cfg.used - before) * (n - 1)); err != nil {
				return nil, err
			}
		}
	}
	return seq, nil
}

func renameNode(n BoundNode, rename func(string) string) BoundNode {
	switch v := n.(type) {
	case *BoundSegment:
		values := make(map[string]expr.Expr, len(v.Values))
		for c, e := range v.Values {
			values[rename(c)] = e
		}
		return &BoundSegment{Duration: v.Duration, Values: values}
	case *BoundSequence:
		children := make([]BoundNode, len(v.Children))
		for i, c := range v.Children {
			children[i] = renameNode(c, rename)
		}
		return &BoundSequence{Duration: v.Duration, Children: children}
	case *BoundRepetition:
		return &BoundRepetition{Duration: v.Duration, Count: v.Count, Body: renameNode(v.Body, rename)}
	}
	panic(fmt.Sprintf("domain: unknown bound node %T", n))
}
