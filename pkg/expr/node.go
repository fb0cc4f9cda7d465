package expr

import (
	"fmt"
	"regexp"
)

// TimeVar is the variable a time-dependent value uses for elapsed time.
const TimeVar = "t"

// Expr is an immutable node of an expression tree.
// The set of node types is closed: *Const, *Var, *Unary, *Binary, *Call and *Sum.
type Expr interface {
	fmt.Stringer
	exprNode()
}

// Const is a numeric literal.
type Const struct {
	Value Number
}

// Var references a free parameter by name.
type Var struct {
	Name string
}

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
)

// Unary applies a prefix operator.
type Unary struct {
	Op UnaryOp
	X  Expr
}

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// Binary applies an infix operator.
type Binary struct {
	Op BinaryOp
	L  Expr
	R  Expr
}

// Call applies a function from the fixed function set.
type Call struct {
	Func Func
	Args []Expr
}

// Sum is the bounded summation of Body over every integer Index in [From, To].
// It is empty (zero) when To < From. Index is bound inside Body only.
type Sum struct {
	Index string
	From  Expr
	To    Expr
	Body  Expr
}

func (*Const) exprNode()  {}
func (*Var) exprNode()    {}
func (*Unary) exprNode()  {}
func (*Binary) exprNode() {}
func (*Call) exprNode()   {}
func (*Sum) exprNode()    {}

// Func names a function of the fixed function set.
type Func string

const (
	FuncAbs   Func = "abs"
	FuncSqrt  Func = "sqrt"
	FuncExp   Func = "exp"
	FuncLog   Func = "log"
	FuncSin   Func = "sin"
	FuncCos   Func = "cos"
	FuncTan   Func = "tan"
	FuncFloor Func = "floor"
	FuncCeil  Func = "ceil"
	FuncMin   Func = "min"
	FuncMax   Func = "max"
	FuncPow   Func = "pow"
)

// sumFunc is the textual name of the Sum node.
const sumFunc = "sum"

// arity of each function; -1 means one or more arguments.
var arity = map[Func]int{
	FuncAbs:   1,
	FuncSqrt:  1,
	FuncExp:   1,
	FuncLog:   1,
	FuncSin:   1,
	FuncCos:   1,
	FuncTan:   1,
	FuncFloor: 1,
	FuncCeil:  1,
	FuncMin:   -1,
	FuncMax:   -1,
	FuncPow:   2,
}

// LookupFunc resolves a function name.
func LookupFunc(name string) (Func, bool) {
	f := Func(name)
	_, ok := arity[f]
	return f, ok
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as a parameter or loop index.
func ValidName(name string) bool {
	if !identRe.MatchString(name) || name == sumFunc {
		return false
	}
	switch name {
	case "true", "false", "null":
		return false
	}
	_, isFunc := LookupFunc(name)
	return !isFunc
}

// --- Construction -----------------------------------------------------------
//
// The constructors below fold constants and drop additive and multiplicative
// identities. Folding only happens where the result is exact.

var (
	zero = &Const{Value: NewInt(0)}
	one  = &Const{Value: NewInt(1)}
)

// Num wraps a Number.
func Num(n Number) Expr { return &Const{Value: n} }

// Int wraps an integer.
func Int(i int64) Expr { return &Const{Value: NewInt(i)} }

// Variable references a named parameter.
func Variable(name string) Expr { return &Var{Name: name} }

func constOf(e Expr) (Number, bool) {
	if c, ok := e.(*Const); ok {
		return c.Value, true
	}
	return Number{}, false
}

func isZero(e Expr) bool {
	n, ok := constOf(e)
	return ok && n.IsZero()
}

func isOne(e Expr) bool {
	n, ok := constOf(e)
	return ok && n.IsOne()
}

// Add returns a + b.
func Add(a, b Expr) Expr {
	if x, ok := constOf(a); ok {
		if y, ok := constOf(b); ok {
			return Num(x.Add(y))
		}
	}
	if isZero(a) {
		return b
	}
	if isZero(b) {
		return a
	}
	return &Binary{Op: OpAdd, L: a, R: b}
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	if x, ok := constOf(a); ok {
		if y, ok := constOf(b); ok {
			return Num(x.Sub(y))
		}
	}
	if isZero(b) {
		return a
	}
	if isZero(a) {
		return Neg(b)
	}
	return &Binary{Op: OpSub, L: a, R: b}
}

// Mul returns a * b.
func Mul(a, b Expr) Expr {
	if x, ok := constOf(a); ok {
		if y, ok := constOf(b); ok {
			return Num(x.Mul(y))
		}
	}
	if isZero(a) || isZero(b) {
		return zero
	}
	if isOne(a) {
		return b
	}
	if isOne(b) {
		return a
	}
	return &Binary{Op: OpMul, L: a, R: b}
}

// Div returns a / b. Division by a literal zero is kept and fails on evaluation.
func Div(a, b Expr) Expr {
	if y, ok := constOf(b); ok && !y.IsZero() {
		if x, ok := constOf(a); ok {
			q, _ := x.Quo(y)
			return Num(q)
		}
		if y.IsOne() {
			return a
		}
		if isZero(a) {
			return zero
		}
	}
	return &Binary{Op: OpDiv, L: a, R: b}
}

// Mod returns a % b with the sign of b.
func Mod(a, b Expr) Expr {
	if x, ok := constOf(a); ok {
		if y, ok := constOf(b); ok && !y.IsZero() {
			m, _ := x.Mod(y)
			return Num(m)
		}
	}
	return &Binary{Op: OpMod, L: a, R: b}
}

// Neg returns -a.
func Neg(a Expr) Expr {
	if x, ok := constOf(a); ok {
		return Num(x.Neg())
	}
	if u, ok := a.(*Unary); ok && u.Op == OpNeg {
		return u.X
	}
	return &Unary{Op: OpNeg, X: a}
}

// Fn applies f to args, checking the arity. Calls of exact functions on
// constant arguments are folded.
func Fn(f Func, args ...Expr) (Expr, error) {
	n, ok := arity[f]
	if !ok {
		return nil, &FunctionError{Name: string(f), Detail: "unknown function"}
	}
	if (n >= 0 && len(args) != n) || (n < 0 && len(args) == 0) {
		return nil, &FunctionError{Name: string(f), Detail: fmt.Sprintf("expected %s, got %d", arityText(n), len(args))}
	}
	call := &Call{Func: f, Args: append([]Expr(nil), args...)}
	if folded, ok := foldCall(call); ok {
		return folded, nil
	}
	return call, nil
}

// MustFn is Fn for calls whose arity is known to be right.
func MustFn(f Func, args ...Expr) Expr {
	e, err := Fn(f, args...)
	if err != nil {
		panic(err)
	}
	return e
}

func arityText(n int) string {
	switch n {
	case -1:
		return "at least one argument"
	case 1:
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

// foldCall evaluates calls whose result is exact and whose arguments are constant.
func foldCall(c *Call) (Expr, bool) {
	switch c.Func {
	case FuncAbs, FuncFloor, FuncCeil, FuncMin, FuncMax, FuncPow:
	default:
		return nil, false
	}
	for _, a := range c.Args {
		if _, ok := a.(*Const); !ok {
			return nil, false
		}
	}
	if c.Func == FuncPow {
		exp, _ := constOf(c.Args[1])
		if !exp.IsInt() {
			return nil, false
		}
	}
	v, err := evalCall(c, nil, Bindings{})
	if err != nil {
		return nil, false
	}
	return Num(v), true
}

// SumOver builds the summation of body for index in [from, to].
func SumOver(index string, from, to, body Expr) Expr {
	if lo, ok := constOf(from); ok {
		if hi, ok := constOf(to); ok && hi.Cmp(lo) < 0 {
			return zero
		}
	}
	if isZero(body) {
		return zero
	}
	return &Sum{Index: index, From: from, To: to, Body: body}
}
