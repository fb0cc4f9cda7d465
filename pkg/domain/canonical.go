package domain

import (
	"strings"

	"github.com/aretw0/pulse/pkg/expr"
)

// Canonical returns a deterministic structural encoding of t. Templates with
// the same structure and expressions have the same encoding regardless of
// channel insertion order or identifiers.
func Canonical(t Template) string {
	var sb strings.Builder
	writeCanonical(&sb, t)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, t Template) {
	switch v := t.(type) {
	case *Constant:
		writeAtomic(sb, KindConstant, &v.atomic)
	case *Function:
		writeAtomic(sb, KindFunction, &v.atomic)
	case *Sequence:
		sb.WriteString("sequence(")
		for i, c := range v.children {
			if i > 0 {
				sb.WriteString(";")
			}
			writeCanonical(sb, c)
		}
		sb.WriteString(")")
	case *Repetition:
		sb.WriteString("repetition(n=")
		sb.WriteString(expr.Key(v.count))
		sb.WriteString(";")
		writeCanonical(sb, v.body)
		sb.WriteString(")")
	case *ForLoop:
		sb.WriteString("for_loop(")
		sb.WriteString(v.index)
		for _, e := range []expr.Expr{v.rng.Start, v.rng.Stop, v.rng.Step} {
			sb.WriteString(";")
			sb.WriteString(expr.Key(e))
		}
		sb.WriteString(";")
		writeCanonical(sb, v.body)
		sb.WriteString(")")
	case *Mapping:
		sb.WriteString("mapping(")
		for _, name := range sortedNames(v.parameters) {
			sb.WriteString("p:")
			sb.WriteString(name)
			sb.WriteString("=")
			sb.WriteString(expr.Key(v.parameters[name]))
			sb.WriteString(";")
		}
		for _, name := range sortedNames(v.channels) {
			sb.WriteString("c:")
			sb.WriteString(name)
			sb.WriteString(">")
			sb.WriteString(v.channels[name])
			sb.WriteString(";")
		}
		writeCanonical(sb, v.body)
		sb.WriteString(")")
	default:
		panic(unknownVariant(t))
	}
}

func writeAtomic(sb *strings.Builder, kind Kind, a *atomic) {
	sb.WriteString(string(kind))
	sb.WriteString("(d=")
	sb.WriteString(expr.Key(a.duration))
	for _, name := range a.values.Sorted() {
		v, _ := a.values.Get(name)
		sb.WriteString(";")
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(expr.Key(v))
	}
	sb.WriteString(")")
}
