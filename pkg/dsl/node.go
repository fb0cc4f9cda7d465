package dsl

import (
	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/pkg/domain"
)

// TemplateBuilder provides a fluent API for configuring a template.
// Values (durations, channel values, counts, bounds) accept numbers,
// expression strings or expr values.
type TemplateBuilder struct {
	def     dto.TemplateDefinition
	builder *Builder
}

// Constant marks the template as constant over duration.
func (n *TemplateBuilder) Constant(duration any) *TemplateBuilder {
	n.def.Kind = string(domain.KindConstant)
	n.def.Duration = duration
	return n
}

// Function marks the template as a function of the time variable t over duration.
func (n *TemplateBuilder) Function(duration any) *TemplateBuilder {
	n.def.Kind = string(domain.KindFunction)
	n.def.Duration = duration
	return n
}

// Channel appends a channel value. Channels keep the order they are added in.
func (n *TemplateBuilder) Channel(name string, value any) *TemplateBuilder {
	n.def.Channels = append(n.def.Channels, dto.ChannelEntry{Name: name, Value: value})
	return n
}

// Sequence plays the referenced templates back to back.
func (n *TemplateBuilder) Sequence(children ...string) *TemplateBuilder {
	n.def.Kind = string(domain.KindSequence)
	n.def.Children = append(n.def.Children, children...)
	return n
}

// Repeat plays body count times.
func (n *TemplateBuilder) Repeat(body string, count any) *TemplateBuilder {
	n.def.Kind = string(domain.KindRepetition)
	n.def.Body = body
	n.def.Count = count
	return n
}

// Loop plays body once per value of index in [0, stop). Use From and Step
// to change the defaults.
func (n *TemplateBuilder) Loop(body, index string, stop any) *TemplateBuilder {
	n.def.Kind = string(domain.KindForLoop)
	n.def.Body = body
	n.def.Index = index
	n.rangeDef().Stop = stop
	return n
}

// From sets the first loop index value.
func (n *TemplateBuilder) From(start any) *TemplateBuilder {
	n.rangeDef().Start = start
	return n
}

// Step sets the loop increment.
func (n *TemplateBuilder) Step(step any) *TemplateBuilder {
	n.rangeDef().Step = step
	return n
}

func (n *TemplateBuilder) rangeDef() *dto.RangeDefinition {
	if n.def.Range == nil {
		n.def.Range = &dto.RangeDefinition{}
	}
	return n.def.Range
}

// Map wraps body so that its parameters and channels can be renamed.
func (n *TemplateBuilder) Map(body string) *TemplateBuilder {
	n.def.Kind = string(domain.KindMapping)
	n.def.Body = body
	return n
}

// Param maps a parameter of the body to an expression of outer parameters.
func (n *TemplateBuilder) Param(name string, value any) *TemplateBuilder {
	if n.def.Parameters == nil {
		n.def.Parameters = make(map[string]any)
	}
	n.def.Parameters[name] = value
	return n
}

// Rename maps a channel of the body to a new name.
func (n *TemplateBuilder) Rename(channel, to string) *TemplateBuilder {
	if n.def.ChannelMapping == nil {
		n.def.ChannelMapping = make(map[string]string)
	}
	n.def.ChannelMapping[channel] = to
	return n
}

// Describe attaches a free-form description.
func (n *TemplateBuilder) Describe(text string) *TemplateBuilder {
	n.def.Description = text
	return n
}

// Add starts the next template of the same builder.
func (n *TemplateBuilder) Add(id string) *TemplateBuilder {
	return n.builder.Add(id)
}
