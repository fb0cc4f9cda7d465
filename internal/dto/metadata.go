package dto

// TemplateDefinition is the serialized form of one pulse template, as found
// under the `templates:` key of a definition file or produced by the DSL.
// References to other templates (Children, Body) are by ID.
type TemplateDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Atomic templates (constant, function)
	Duration any            `json:"duration,omitempty" mapstructure:"duration"`
	Channels []ChannelEntry `json:"channels,omitempty" mapstructure:"-"`

	// Composites
	Children []string `json:"children,omitempty" mapstructure:"children"`
	Body     string   `json:"body,omitempty" mapstructure:"body"`
	Count    any      `json:"count,omitempty" mapstructure:"count"`

	// Loops
	Index string           `json:"index,omitempty" mapstructure:"index"`
	Range *RangeDefinition `json:"range,omitempty" mapstructure:"range"`

	// Mappings
	Parameters     map[string]any    `json:"parameters,omitempty" mapstructure:"parameters"`
	ChannelMapping map[string]string `json:"channel_mapping,omitempty" mapstructure:"channel_mapping"`
}

// ChannelEntry is one channel value, in file order.
type ChannelEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// RangeDefinition is the loop range; start defaults to 0 and step to 1.
type RangeDefinition struct {
	Start any `json:"start,omitempty" mapstructure:"start"`
	Stop  any `json:"stop" mapstructure:"stop"`
	Step  any `json:"step,omitempty" mapstructure:"step"`
}
