package domain

import (
	"fmt"
	"sort"

	"github.com/aretw0/pulse/pkg/expr"
)

// Mapping exposes its body under different parameter and channel names.
// Each mapped parameter of the body is replaced by an expression over the
// outer parameters; unmapped parameters pass through unchanged. Mapped
// channels are renamed, unmapped channels keep their name.
type Mapping struct {
	base
	body       Template
	parameters map[string]expr.Expr
	channels   map[string]string
}

// NewMapping builds a mapping. Parameter keys must be parameters of body and
// channel keys must be channels of body; renamed channels must stay unique.
func NewMapping(body Template, parameters map[string]any, channels map[string]string) (*Mapping, error) {
	if body == nil {
		return nil, &CompositionError{Kind: KindMapping, Reason: "body is required"}
	}
	inner := make(map[string]struct{})
	for _, p := range body.FreeVariables() {
		inner[p] = struct{}{}
	}
	m := &Mapping{
		body:       body,
		parameters: make(map[string]expr.Expr, len(parameters)),
		channels:   make(map[string]string, len(channels)),
	}
	for _, name := range sortedNames(parameters) {
		if name == expr.TimeVar {
			return nil, &InvalidParameterNameError{Name: name, Reason: "the time variable cannot be mapped"}
		}
		if _, ok := inner[name]; !ok {
			return nil, &MappingError{Name: name, Reason: "not a parameter of the mapped template"}
		}
		v, err := expr.From(parameters[name])
		if err != nil {
			return nil, &MappingError{Name: name, Reason: err.Error()}
		}
		if expr.DependsOn(v, expr.TimeVar) {
			return nil, &TimeDependentValueError{Field: "parameter " + name, Expr: v}
		}
		m.parameters[name] = v
	}

	defined := make(map[string]struct{})
	for _, c := range body.DefinedChannels() {
		defined[c] = struct{}{}
	}
	for _, from := range sortedNames(channels) {
		to := channels[from]
		if _, ok := defined[from]; !ok {
			return nil, &MappingError{Name: from, Reason: "not a channel of the mapped template"}
		}
		if to == "" {
			return nil, &InvalidChannelError{Channel: from, Reason: "mapped to an empty name"}
		}
		m.channels[from] = to
	}
	seen := make(map[string]struct{})
	for _, c := range body.DefinedChannels() {
		out := m.Rename(c)
		if _, dup := seen[out]; dup {
			return nil, &DuplicateChannelError{Channel: out}
		}
		seen[out] = struct{}{}
	}
	return m, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (*Mapping) Kind() Kind { return KindMapping }

// Body returns the mapped template.
func (m *Mapping) Body() Template { return m.body }

// ParameterMapping returns a copy of the inner name to outer expression mapping.
func (m *Mapping) ParameterMapping() map[string]expr.Expr {
	out := make(map[string]expr.Expr, len(m.parameters))
	for k, v := range m.parameters {
		out[k] = v
	}
	return out
}

// ChannelMapping returns a copy of the inner to outer channel renaming.
func (m *Mapping) ChannelMapping() map[string]string {
	out := make(map[string]string, len(m.channels))
	for k, v := range m.channels {
		out[k] = v
	}
	return out
}

// Rename returns the outer name of an inner channel.
func (m *Mapping) Rename(channel string) string {
	if to, ok := m.channels[channel]; ok {
		return to
	}
	return channel
}

func (m *Mapping) DefinedChannels() []string {
	inner := m.body.DefinedChannels()
	out := make([]string, len(inner))
	for i, c := range inner {
		out[i] = m.Rename(c)
	}
	sort.Strings(out)
	return out
}

func (m *Mapping) Duration() expr.Expr {
	return expr.SubstituteAll(m.body.Duration(), m.parameters)
}

func (m *Mapping) Integral() (*ChannelTable, error) {
	in, err := m.body.Integral()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, in.Len())
	values := make(map[string]expr.Expr, in.Len())
	in.Each(func(c string, v expr.Expr) {
		out := m.Rename(c)
		names = append(names, out)
		values[out] = expr.SubstituteAll(v, m.parameters)
	})
	return tableOf(names, values), nil
}

func (m *Mapping) FreeVariables() []string {
	lists := [][]string{}
	var passthrough []string
	for _, p := range m.body.FreeVariables() {
		if _, mapped := m.parameters[p]; !mapped {
			passthrough = append(passthrough, p)
		}
	}
	lists = append(lists, passthrough)
	for _, v := range m.parameters {
		lists = append(lists, expr.FreeVariables(v))
	}
	return unionVars(lists...)
}

// innerBindings evaluates the mapped parameters under the outer bindings.
func (m *Mapping) innerBindings(ev expr.Evaluator, outer expr.Bindings) (expr.Bindings, error) {
	inner := make(expr.Bindings, len(outer)+len(m.parameters))
	for k, v := range outer {
		inner[k] = v
	}
	for _, name := range sortedNames(m.parameters) {
		v, err := ev.Evaluate(m.parameters[name], outer)
		if err != nil {
			return nil, fmt.Errorf("mapped parameter %s: %w", name, err)
		}
		inner[name] = v
	}
	return inner, nil
}
