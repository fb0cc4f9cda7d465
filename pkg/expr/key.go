package expr

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Key returns a canonical structural encoding of e. Two expressions have the
// same key exactly when they have the same tree shape and literal values.
func Key(e Expr) string {
	var sb strings.Builder
	writeKey(&sb, e)
	return sb.String()
}

// Hash is the 64-bit FNV-1a hash of Key(e).
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	h.Write([]byte(Key(e)))
	return h.Sum64()
}

// Equal reports structural equality.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case *Const:
		y, ok := b.(*Const)
		return ok && x.Value.Cmp(y.Value) == 0
	case *Var:
		y, ok := b.(*Var)
		return ok && x.Name == y.Name
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.L, y.L) && Equal(x.R, y.R)
	case *Call:
		y, ok := b.(*Call)
		if !ok || x.Func != y.Func || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Sum:
		y, ok := b.(*Sum)
		return ok && x.Index == y.Index && Equal(x.From, y.From) && Equal(x.To, y.To) && Equal(x.Body, y.Body)
	}
	return false
}

func writeKey(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Const:
		sb.WriteString("c:")
		sb.WriteString(n.Value.rat().RatString())
	case *Var:
		sb.WriteString("v:")
		sb.WriteString(n.Name)
	case *Unary:
		sb.WriteString("(neg ")
		writeKey(sb, n.X)
		sb.WriteByte(')')
	case *Binary:
		sb.WriteByte('(')
		sb.WriteString(n.Op.String())
		sb.WriteByte(' ')
		writeKey(sb, n.L)
		sb.WriteByte(' ')
		writeKey(sb, n.R)
		sb.WriteByte(')')
	case *Call:
		sb.WriteString("(")
		sb.WriteString(string(n.Func))
		for _, a := range n.Args {
			sb.WriteByte(' ')
			writeKey(sb, a)
		}
		sb.WriteByte(')')
	case *Sum:
		sb.WriteString("(sum ")
		sb.WriteString(n.Index)
		sb.WriteByte(' ')
		writeKey(sb, n.From)
		sb.WriteByte(' ')
		writeKey(sb, n.To)
		sb.WriteByte(' ')
		writeKey(sb, n.Body)
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("expr: unknown node %T", e))
	}
}
