package loam

import (
	"sort"

	"github.com/aretw0/pulse/internal/dto"
)

// TemplateMetadata is the frontmatter of a template document. It uses
// "mapstructure" tags to match the keys of definition files.
type TemplateMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Description string `json:"description" mapstructure:"description"`

	Duration any            `json:"duration" mapstructure:"duration"`
	Channels map[string]any `json:"channels" mapstructure:"channels"`

	Children []string `json:"children" mapstructure:"children"`
	Body     string   `json:"body" mapstructure:"body"`
	Count    any      `json:"count" mapstructure:"count"`

	Index string         `json:"index" mapstructure:"index"`
	Range *RangeMetadata `json:"range" mapstructure:"range"`

	Parameters     map[string]any    `json:"parameters" mapstructure:"parameters"`
	ChannelMapping map[string]string `json:"channel_mapping" mapstructure:"channel_mapping"`
}

type RangeMetadata struct {
	Start any `json:"start" mapstructure:"start"`
	Stop  any `json:"stop" mapstructure:"stop"`
	Step  any `json:"step" mapstructure:"step"`
}

// definition converts the metadata into the definition the compiler consumes.
// Frontmatter maps carry no order, so channels are sorted by name.
func (m TemplateMetadata) definition(id, content string) dto.TemplateDefinition {
	def := dto.TemplateDefinition{
		ID:             id,
		Kind:           m.Kind,
		Description:    m.Description,
		Duration:       m.Duration,
		Children:       m.Children,
		Body:           m.Body,
		Count:          m.Count,
		Index:          m.Index,
		Parameters:     m.Parameters,
		ChannelMapping: m.ChannelMapping,
	}
	if def.Description == "" {
		def.Description = content
	}
	if m.Range != nil {
		def.Range = &dto.RangeDefinition{Start: m.Range.Start, Stop: m.Range.Stop, Step: m.Range.Step}
	}

	names := make([]string, 0, len(m.Channels))
	for name := range m.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def.Channels = append(def.Channels, dto.ChannelEntry{Name: name, Value: m.Channels[name]})
	}
	return def
}
