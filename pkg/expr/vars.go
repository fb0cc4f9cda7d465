package expr

import (
	"fmt"
	"sort"
)

// FreeVariables returns the sorted names of all variables referenced by e.
// Summation indices are bound inside their body and not reported.
func FreeVariables(e Expr) []string {
	set := make(map[string]struct{})
	collectVars(e, nil, set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DependsOn reports whether name occurs free in e.
func DependsOn(e Expr, name string) bool {
	set := make(map[string]struct{})
	collectVars(e, nil, set)
	_, ok := set[name]
	return ok
}

func collectVars(e Expr, bound map[string]int, set map[string]struct{}) {
	switch n := e.(type) {
	case *Const:
	case *Var:
		if bound[n.Name] == 0 {
			set[n.Name] = struct{}{}
		}
	case *Unary:
		collectVars(n.X, bound, set)
	case *Binary:
		collectVars(n.L, bound, set)
		collectVars(n.R, bound, set)
	case *Call:
		for _, a := range n.Args {
			collectVars(a, bound, set)
		}
	case *Sum:
		collectVars(n.From, bound, set)
		collectVars(n.To, bound, set)
		if bound == nil {
			bound = make(map[string]int)
		}
		bound[n.Index]++
		collectVars(n.Body, bound, set)
		bound[n.Index]--
	default:
		panic(fmt.Sprintf("expr: unknown node %T", e))
	}
}

// Size counts the nodes of e.
func Size(e Expr) int {
	switch n := e.(type) {
	case *Const, *Var:
		return 1
	case *Unary:
		return 1 + Size(n.X)
	case *Binary:
		return 1 + Size(n.L) + Size(n.R)
	case *Call:
		s := 1
		for _, a := range n.Args {
			s += Size(a)
		}
		return s
	case *Sum:
		return 1 + Size(n.From) + Size(n.To) + Size(n.Body)
	}
	panic(fmt.Sprintf("expr: unknown node %T", e))
}

// Substitute returns e with every free reference to name replaced by repl.
// Unchanged subtrees are shared with e.
func Substitute(e Expr, name string, repl Expr) Expr {
	return SubstituteAll(e, map[string]Expr{name: repl})
}

// SubstituteAll replaces several variables at once. Replacements are not
// themselves rewritten, so SubstituteAll(x, {x: y, y: x}) swaps.
func SubstituteAll(e Expr, repl map[string]Expr) Expr {
	if len(repl) == 0 {
		return e
	}
	return subst(e, repl)
}

// SubstituteNumbers replaces bound variables with constants.
func SubstituteNumbers(e Expr, b Bindings) Expr {
	repl := make(map[string]Expr, len(b))
	for k, v := range b {
		repl[k] = Num(v)
	}
	return SubstituteAll(e, repl)
}

func subst(e Expr, repl map[string]Expr) Expr {
	switch n := e.(type) {
	case *Const:
		return n
	case *Var:
		if r, ok := repl[n.Name]; ok {
			return r
		}
		return n
	case *Unary:
		x := subst(n.X, repl)
		if x == n.X {
			return n
		}
		return Neg(x)
	case *Binary:
		l, r := subst(n.L, repl), subst(n.R, repl)
		if l == n.L && r == n.R {
			return n
		}
		return rebuildBinary(n.Op, l, r)
	case *Call:
		changed := false
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = subst(a, repl)
			changed = changed || args[i] != a
		}
		if !changed {
			return n
		}
		return MustFn(n.Func, args...)
	case *Sum:
		return substSum(n, repl)
	}
	panic(fmt.Sprintf("expr: unknown node %T", e))
}

func substSum(s *Sum, repl map[string]Expr) Expr {
	from, to := subst(s.From, repl), subst(s.To, repl)

	inner := make(map[string]Expr, len(repl))
	for k, v := range repl {
		if k != s.Index {
			inner[k] = v
		}
	}
	index, body := s.Index, s.Body
	for _, r := range inner {
		if DependsOn(r, index) {
			// Rename the index so the replacement is not captured.
			fresh := freshName(index, body, inner)
			body = subst(body, map[string]Expr{index: Variable(fresh)})
			index = fresh
			break
		}
	}
	if len(inner) > 0 {
		body = subst(body, inner)
	}
	if from == s.From && to == s.To && body == s.Body && index == s.Index {
		return s
	}
	return SumOver(index, from, to, body)
}

func freshName(base string, body Expr, repl map[string]Expr) string {
	taken := make(map[string]struct{})
	collectVars(body, nil, taken)
	for _, r := range repl {
		collectVars(r, nil, taken)
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func rebuildBinary(op BinaryOp, l, r Expr) Expr {
	switch op {
	case OpAdd:
		return Add(l, r)
	case OpSub:
		return Sub(l, r)
	case OpMul:
		return Mul(l, r)
	case OpDiv:
		return Div(l, r)
	case OpMod:
		return Mod(l, r)
	}
	panic(fmt.Sprintf("expr: unknown operator %v", op))
}
