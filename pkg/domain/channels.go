package domain

import (
	"sort"
	"strings"

	"github.com/aretw0/pulse/pkg/expr"
)

// ChannelValue pairs a channel name with its value: an expr.Expr, an
// expr.Number, a Go number or expression text.
type ChannelValue struct {
	Channel string
	Value   any
}

// Ch is shorthand for a ChannelValue.
func Ch(channel string, value any) ChannelValue {
	return ChannelValue{Channel: channel, Value: value}
}

// ChannelTable maps channel names to expressions. Names are unique and
// non-empty; insertion order is preserved. A table is immutable.
type ChannelTable struct {
	names  []string
	values map[string]expr.Expr
}

// NewChannelTable normalizes the values and rejects empty or repeated names.
func NewChannelTable(entries ...ChannelValue) (*ChannelTable, error) {
	t := &ChannelTable{
		names:  make([]string, 0, len(entries)),
		values: make(map[string]expr.Expr, len(entries)),
	}
	for _, en := range entries {
		if en.Channel == "" {
			return nil, &InvalidChannelError{Reason: "channel name is empty"}
		}
		if _, dup := t.values[en.Channel]; dup {
			return nil, &DuplicateChannelError{Channel: en.Channel}
		}
		v, err := expr.From(en.Value)
		if err != nil {
			return nil, &InvalidChannelError{Channel: en.Channel, Reason: err.Error()}
		}
		t.names = append(t.names, en.Channel)
		t.values[en.Channel] = v
	}
	return t, nil
}

// Len returns the number of channels.
func (t *ChannelTable) Len() int { return len(t.names) }

// Names returns the channel names in insertion order.
func (t *ChannelTable) Names() []string { return append([]string(nil), t.names...) }

// Sorted returns the channel names in lexical order.
func (t *ChannelTable) Sorted() []string {
	names := t.Names()
	sort.Strings(names)
	return names
}

// Get returns the expression of a channel.
func (t *ChannelTable) Get(channel string) (expr.Expr, bool) {
	v, ok := t.values[channel]
	return v, ok
}

// Each calls fn for every channel in insertion order.
func (t *ChannelTable) Each(fn func(channel string, value expr.Expr)) {
	for _, n := range t.names {
		fn(n, t.values[n])
	}
}

// Evaluate evaluates every channel under b.
func (t *ChannelTable) Evaluate(ev expr.Evaluator, b expr.Bindings) (map[string]expr.Number, error) {
	if ev == nil {
		ev = expr.Direct
	}
	out := make(map[string]expr.Number, len(t.names))
	for _, n := range t.names {
		v, err := ev.Evaluate(t.values[n], b)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

// FreeVariables returns the sorted union of the free variables of all values.
func (t *ChannelTable) FreeVariables() []string {
	set := make(map[string]struct{})
	for _, v := range t.values {
		for _, n := range expr.FreeVariables(v) {
			set[n] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// String renders "{A: 1, B: 0.2}" in insertion order.
func (t *ChannelTable) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, n := range t.names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n)
		sb.WriteString(": ")
		sb.WriteString(t.values[n].String())
	}
	sb.WriteString("}")
	return sb.String()
}

// mapValues returns a table with the same names and each value transformed.
func (t *ChannelTable) mapValues(fn func(channel string, v expr.Expr) (expr.Expr, error)) (*ChannelTable, error) {
	out := &ChannelTable{
		names:  t.Names(),
		values: make(map[string]expr.Expr, len(t.names)),
	}
	for _, n := range t.names {
		v, err := fn(n, t.values[n])
		if err != nil {
			return nil, err
		}
		out.values[n] = v
	}
	return out, nil
}

// tableOf builds a table from trusted parts.
func tableOf(names []string, values map[string]expr.Expr) *ChannelTable {
	return &ChannelTable{names: names, values: values}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
