package domain

import "github.com/aretw0/pulse/pkg/expr"

// Inspection is the symbolic summary of a template: everything a rendering
// collaborator can learn about it without binding parameters.
type Inspection struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Channels   []string          `json:"channels"`
	Duration   string            `json:"duration"`
	Integral   map[string]string `json:"integral,omitempty"`
	Parameters []string          `json:"parameters"`
	Children   []string          `json:"children,omitempty"`
	Nodes      int               `json:"nodes"`
	// IntegralError is set when a channel value has no closed-form integral.
	IntegralError string `json:"integral_error,omitempty"`
}

// Inspect summarizes t. Anonymous children are listed as "<anonymous>".
func Inspect(t Template) Inspection {
	in := Inspection{
		ID:         t.Identifier(),
		Kind:       t.Kind(),
		Channels:   t.DefinedChannels(),
		Duration:   t.Duration().String(),
		Parameters: t.FreeVariables(),
	}
	if in.Parameters == nil {
		in.Parameters = []string{}
	}
	for _, c := range Children(t) {
		in.Children = append(in.Children, label(c.Identifier()))
	}
	Walk(t, func(Template, int) { in.Nodes++ })

	integral, err := t.Integral()
	if err != nil {
		in.IntegralError = err.Error()
		return in
	}
	in.Integral = make(map[string]string, integral.Len())
	integral.Each(func(channel string, v expr.Expr) {
		in.Integral[channel] = v.String()
	})
	return in
}
