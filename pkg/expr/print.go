package expr

import "strings"

// Printing precedence levels.
const (
	precAdd = iota + 1
	precMul
	precUnary
	precAtom
)

func precedence(e Expr) int {
	switch n := e.(type) {
	case *Const:
		switch {
		case !n.Value.isDecimal():
			return precMul
		case n.Value.Sign() < 0:
			return precUnary
		}
		return precAtom
	case *Unary:
		return precUnary
	case *Binary:
		if n.Op == OpAdd || n.Op == OpSub {
			return precAdd
		}
		return precMul
	}
	return precAtom
}

// negative reports whether the printed form of e starts with a minus sign.
func negative(e Expr) bool {
	switch n := e.(type) {
	case *Const:
		return n.Value.Sign() < 0
	case *Unary:
		return true
	}
	return false
}

func paren(s string) string { return "(" + s + ")" }

func (c *Const) String() string { return c.Value.String() }

func (v *Var) String() string { return v.Name }

func (u *Unary) String() string {
	x := u.X.String()
	if precedence(u.X) < precAtom {
		x = paren(x)
	}
	return "-" + x
}

// String prints with the minimum parentheses that preserve the tree shape.
// Operators are always surrounded by spaces.
func (b *Binary) String() string {
	p := precedence(b)
	l, r := b.L.String(), b.R.String()
	if precedence(b.L) < p {
		l = paren(l)
	}
	if precedence(b.R) <= p || negative(b.R) {
		r = paren(r)
	}
	return l + " " + b.Op.String() + " " + r
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return string(c.Func) + "(" + strings.Join(args, ", ") + ")"
}

func (s *Sum) String() string {
	return sumFunc + "(" + s.Index + ", " + s.From.String() + ", " + s.To.String() + ", " + s.Body.String() + ")"
}
