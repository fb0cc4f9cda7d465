package expr

import (
	"fmt"
	"math"
	"math/big"
	"sort"
)

// Bindings maps parameter names to values.
type Bindings map[string]Number

// With returns a copy of b with name set to v.
func (b Bindings) With(name string, v Number) Bindings {
	out := make(Bindings, len(b)+1)
	for k, x := range b {
		out[k] = x
	}
	out[name] = v
	return out
}

// Names returns the bound names in sorted order.
func (b Bindings) Names() []string {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// BindingsFromFloats converts float parameters through their shortest decimal form.
func BindingsFromFloats(values map[string]float64) (Bindings, error) {
	out := make(Bindings, len(values))
	for k, v := range values {
		n, err := NewFloat(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// Evaluator evaluates fully bound expressions. Implementations must be deterministic.
type Evaluator interface {
	Evaluate(e Expr, b Bindings) (Number, error)
}

type directEvaluator struct{}

func (directEvaluator) Evaluate(e Expr, b Bindings) (Number, error) { return Evaluate(e, b) }

// Direct evaluates without caching.
var Direct Evaluator = directEvaluator{}

// Evaluate computes the value of e. It fails with *UnboundVariableError when
// a referenced variable is absent from b, and with *DomainError on arithmetic faults.
func Evaluate(e Expr, b Bindings) (Number, error) {
	return eval(e, e, b)
}

func eval(e, root Expr, b Bindings) (Number, error) {
	switch n := e.(type) {
	case *Const:
		return n.Value, nil
	case *Var:
		v, ok := b[n.Name]
		if !ok {
			return Number{}, &UnboundVariableError{Name: n.Name, Expr: root}
		}
		return v, nil
	case *Unary:
		x, err := eval(n.X, root, b)
		if err != nil {
			return Number{}, err
		}
		return x.Neg(), nil
	case *Binary:
		l, err := eval(n.L, root, b)
		if err != nil {
			return Number{}, err
		}
		r, err := eval(n.R, root, b)
		if err != nil {
			return Number{}, err
		}
		switch n.Op {
		case OpAdd:
			return l.Add(r), nil
		case OpSub:
			return l.Sub(r), nil
		case OpMul:
			return l.Mul(r), nil
		case OpDiv:
			return l.Quo(r)
		case OpMod:
			return l.Mod(r)
		}
		return Number{}, fmt.Errorf("unknown operator %v", n.Op)
	case *Call:
		return evalCall(n, root, b)
	case *Sum:
		return evalSum(n, root, b)
	}
	panic(fmt.Sprintf("expr: unknown node %T", e))
}

func evalSum(s *Sum, root Expr, b Bindings) (Number, error) {
	from, err := eval(s.From, root, b)
	if err != nil {
		return Number{}, err
	}
	to, err := eval(s.To, root, b)
	if err != nil {
		return Number{}, err
	}
	lo, okLo := from.Int64()
	hi, okHi := to.Int64()
	if !okLo || !okHi {
		return Number{}, &DomainError{Op: sumFunc, Detail: fmt.Sprintf("bounds %s..%s are not integers", from, to)}
	}
	total := NewInt(0)
	if hi < lo {
		return total, nil
	}
	inner := b.With(s.Index, NewInt(lo))
	for i := lo; i <= hi; i++ {
		inner[s.Index] = NewInt(i)
		v, err := eval(s.Body, root, inner)
		if err != nil {
			return Number{}, err
		}
		total = total.Add(v)
	}
	return total, nil
}

func evalCall(c *Call, root Expr, b Bindings) (Number, error) {
	args := make([]Number, len(c.Args))
	for i, a := range c.Args {
		v, err := eval(a, root, b)
		if err != nil {
			return Number{}, err
		}
		args[i] = v
	}
	switch c.Func {
	case FuncAbs:
		return args[0].Abs(), nil
	case FuncFloor:
		return args[0].Floor(), nil
	case FuncCeil:
		return args[0].Ceil(), nil
	case FuncMin:
		m := args[0]
		for _, a := range args[1:] {
			if a.Cmp(m) < 0 {
				m = a
			}
		}
		return m, nil
	case FuncMax:
		m := args[0]
		for _, a := range args[1:] {
			if a.Cmp(m) > 0 {
				m = a
			}
		}
		return m, nil
	case FuncSqrt:
		if args[0].Sign() < 0 {
			return Number{}, &DomainError{Op: string(FuncSqrt), Detail: fmt.Sprintf("negative argument %s", args[0])}
		}
		if r, ok := exactSqrt(args[0]); ok {
			return r, nil
		}
		return floatResult(c.Func, math.Sqrt(args[0].Float64()))
	case FuncLog:
		if args[0].Sign() <= 0 {
			return Number{}, &DomainError{Op: string(FuncLog), Detail: fmt.Sprintf("non-positive argument %s", args[0])}
		}
		return floatResult(c.Func, math.Log(args[0].Float64()))
	case FuncExp:
		return floatResult(c.Func, math.Exp(args[0].Float64()))
	case FuncSin:
		return floatResult(c.Func, math.Sin(args[0].Float64()))
	case FuncCos:
		return floatResult(c.Func, math.Cos(args[0].Float64()))
	case FuncTan:
		return floatResult(c.Func, math.Tan(args[0].Float64()))
	case FuncPow:
		return pow(args[0], args[1])
	}
	return Number{}, &FunctionError{Name: string(c.Func), Detail: "unknown function"}
}

// maxExactExponent bounds integer powers computed with exact arithmetic.
const maxExactExponent = 4096

func pow(base, exp Number) (Number, error) {
	if e, ok := exp.Int64(); ok && e >= -maxExactExponent && e <= maxExactExponent {
		if base.IsZero() && e < 0 {
			return Number{}, &DomainError{Op: string(FuncPow), Detail: "zero raised to a negative power"}
		}
		r := base.rat()
		abs := e
		if abs < 0 {
			abs = -abs
		}
		k := big.NewInt(abs)
		num := new(big.Int).Exp(r.Num(), k, nil)
		den := new(big.Int).Exp(r.Denom(), k, nil)
		if e < 0 {
			num, den = den, num
		}
		return Number{r: new(big.Rat).SetFrac(num, den)}, nil
	}
	if base.Sign() < 0 {
		return Number{}, &DomainError{Op: string(FuncPow), Detail: fmt.Sprintf("negative base %s with non-integer exponent %s", base, exp)}
	}
	if base.IsZero() && exp.Sign() < 0 {
		return Number{}, &DomainError{Op: string(FuncPow), Detail: "zero raised to a negative power"}
	}
	return floatResult(FuncPow, math.Pow(base.Float64(), exp.Float64()))
}

func exactSqrt(n Number) (Number, bool) {
	r := n.rat()
	num, ok := isqrt(r.Num())
	if !ok {
		return Number{}, false
	}
	den, ok := isqrt(r.Denom())
	if !ok {
		return Number{}, false
	}
	return Number{r: new(big.Rat).SetFrac(num, den)}, true
}

func isqrt(x *big.Int) (*big.Int, bool) {
	s := new(big.Int).Sqrt(x)
	return s, new(big.Int).Mul(s, s).Cmp(x) == 0
}

func floatResult(f Func, v float64) (Number, error) {
	n, err := NewFloat(v)
	if err != nil {
		return Number{}, &DomainError{Op: string(f), Detail: fmt.Sprintf("non-finite result %v", v)}
	}
	return n, nil
}
