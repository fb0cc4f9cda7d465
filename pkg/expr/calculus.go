package expr

import "fmt"

// Derive returns the symbolic derivative of e with respect to v.
// floor and ceil are treated as piecewise constant.
func Derive(e Expr, v string) (Expr, error) {
	if !DependsOn(e, v) {
		return zero, nil
	}
	switch n := e.(type) {
	case *Var:
		return one, nil
	case *Unary:
		d, err := Derive(n.X, v)
		if err != nil {
			return nil, err
		}
		return Neg(d), nil
	case *Binary:
		return deriveBinary(n, v)
	case *Call:
		return deriveCall(n, v)
	case *Sum:
		if DependsOn(n.From, v) || DependsOn(n.To, v) {
			return nil, &DerivationError{Expr: e, Variable: v, Reason: "summation bounds depend on the variable"}
		}
		d, err := Derive(n.Body, v)
		if err != nil {
			return nil, err
		}
		return SumOver(n.Index, n.From, n.To, d), nil
	}
	return nil, &DerivationError{Expr: e, Variable: v, Reason: fmt.Sprintf("unsupported node %T", e)}
}

func deriveBinary(n *Binary, v string) (Expr, error) {
	dl, err := Derive(n.L, v)
	if err != nil {
		return nil, err
	}
	if n.Op == OpMod {
		if DependsOn(n.R, v) {
			return nil, &DerivationError{Expr: n, Variable: v, Reason: "modulus depends on the variable"}
		}
		return dl, nil
	}
	dr, err := Derive(n.R, v)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpAdd:
		return Add(dl, dr), nil
	case OpSub:
		return Sub(dl, dr), nil
	case OpMul:
		return Add(Mul(dl, n.R), Mul(n.L, dr)), nil
	case OpDiv:
		if !DependsOn(n.R, v) {
			return Div(dl, n.R), nil
		}
		return Div(Sub(Mul(dl, n.R), Mul(n.L, dr)), MustFn(FuncPow, n.R, Int(2))), nil
	}
	return nil, &DerivationError{Expr: n, Variable: v, Reason: "unsupported operator"}
}

func deriveCall(c *Call, v string) (Expr, error) {
	if c.Func == FuncPow {
		return derivePow(c, v)
	}
	if len(c.Args) != 1 {
		return nil, &DerivationError{Expr: c, Variable: v, Reason: fmt.Sprintf("%s is not differentiable here", c.Func)}
	}
	u := c.Args[0]
	du, err := Derive(u, v)
	if err != nil {
		return nil, err
	}
	var outer Expr
	switch c.Func {
	case FuncFloor, FuncCeil:
		return zero, nil
	case FuncSqrt:
		outer = Div(one, Mul(Int(2), c))
	case FuncExp:
		outer = c
	case FuncLog:
		outer = Div(one, u)
	case FuncSin:
		outer = MustFn(FuncCos, u)
	case FuncCos:
		outer = Neg(MustFn(FuncSin, u))
	case FuncTan:
		outer = Div(one, MustFn(FuncPow, MustFn(FuncCos, u), Int(2)))
	default:
		return nil, &DerivationError{Expr: c, Variable: v, Reason: fmt.Sprintf("%s is not differentiable", c.Func)}
	}
	return Mul(outer, du), nil
}

func derivePow(c *Call, v string) (Expr, error) {
	base, exp := c.Args[0], c.Args[1]
	db, err := Derive(base, v)
	if err != nil {
		return nil, err
	}
	if !DependsOn(exp, v) {
		// d/dv b^n = n * b^(n-1) * b'
		return Mul(Mul(exp, MustFn(FuncPow, base, Sub(exp, one))), db), nil
	}
	de, err := Derive(exp, v)
	if err != nil {
		return nil, err
	}
	logb := MustFn(FuncLog, base)
	if !DependsOn(base, v) {
		return Mul(Mul(c, logb), de), nil
	}
	return Mul(c, Add(Mul(de, logb), Div(Mul(exp, db), base))), nil
}

// Integrate returns an antiderivative of e with respect to v. Supported:
// expressions independent of v, sums and differences, products and quotients
// by factors independent of v, powers of v, and sin, cos, exp and integer
// powers of arguments linear in v. Anything else is an *IntegrationError.
func Integrate(e Expr, v string) (Expr, error) {
	if !DependsOn(e, v) {
		return Mul(e, Variable(v)), nil
	}
	switch n := e.(type) {
	case *Var:
		return Div(MustFn(FuncPow, n, Int(2)), Int(2)), nil
	case *Unary:
		x, err := Integrate(n.X, v)
		if err != nil {
			return nil, err
		}
		return Neg(x), nil
	case *Binary:
		return integrateBinary(n, v)
	case *Call:
		return integrateCall(n, v)
	case *Sum:
		if DependsOn(n.From, v) || DependsOn(n.To, v) {
			return nil, &IntegrationError{Expr: e, Variable: v, Reason: "summation bounds depend on the variable"}
		}
		body, err := Integrate(n.Body, v)
		if err != nil {
			return nil, err
		}
		return SumOver(n.Index, n.From, n.To, body), nil
	}
	return nil, &IntegrationError{Expr: e, Variable: v, Reason: "unsupported expression"}
}

func integrateBinary(n *Binary, v string) (Expr, error) {
	switch n.Op {
	case OpAdd, OpSub:
		l, err := Integrate(n.L, v)
		if err != nil {
			return nil, err
		}
		r, err := Integrate(n.R, v)
		if err != nil {
			return nil, err
		}
		return rebuildBinary(n.Op, l, r), nil
	case OpMul:
		if !DependsOn(n.L, v) {
			r, err := Integrate(n.R, v)
			if err != nil {
				return nil, err
			}
			return Mul(n.L, r), nil
		}
		if !DependsOn(n.R, v) {
			l, err := Integrate(n.L, v)
			if err != nil {
				return nil, err
			}
			return Mul(l, n.R), nil
		}
	case OpDiv:
		if !DependsOn(n.R, v) {
			l, err := Integrate(n.L, v)
			if err != nil {
				return nil, err
			}
			return Div(l, n.R), nil
		}
	}
	return nil, &IntegrationError{Expr: n, Variable: v, Reason: "product or quotient of terms that both depend on the variable"}
}

// linearSlope returns k when u = k*v + c with k independent of v and not a literal zero.
func linearSlope(u Expr, v string) (Expr, bool) {
	k, err := Derive(u, v)
	if err != nil || DependsOn(k, v) || isZero(k) {
		return nil, false
	}
	return k, true
}

func integrateCall(c *Call, v string) (Expr, error) {
	fail := func(reason string) error {
		return &IntegrationError{Expr: c, Variable: v, Reason: reason}
	}
	u := c.Args[0]
	k, linear := linearSlope(u, v)
	switch c.Func {
	case FuncSin:
		if linear {
			return Div(Neg(MustFn(FuncCos, u)), k), nil
		}
	case FuncCos:
		if linear {
			return Div(MustFn(FuncSin, u), k), nil
		}
	case FuncExp:
		if linear {
			return Div(c, k), nil
		}
	case FuncPow:
		exp := c.Args[1]
		if DependsOn(exp, v) {
			return nil, fail("exponent depends on the variable")
		}
		if !linear {
			return nil, fail("base is not linear in the variable")
		}
		if n, ok := constOf(exp); ok && n.Cmp(NewInt(-1)) == 0 {
			return Div(MustFn(FuncLog, MustFn(FuncAbs, u)), k), nil
		}
		next := Add(exp, one)
		return Div(MustFn(FuncPow, u, next), Mul(next, k)), nil
	default:
		return nil, fail(fmt.Sprintf("no antiderivative rule for %s", c.Func))
	}
	return nil, fail("argument is not linear in the variable")
}

// IntegrateDefinite returns F(hi) - F(lo) for an antiderivative F of e.
func IntegrateDefinite(e Expr, v string, lo, hi Expr) (Expr, error) {
	if !DependsOn(e, v) {
		return Mul(e, Sub(hi, lo)), nil
	}
	f, err := Integrate(e, v)
	if err != nil {
		return nil, err
	}
	return Sub(Substitute(f, v, hi), Substitute(f, v, lo)), nil
}
