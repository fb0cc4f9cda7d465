package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/pkg/domain"
)

// Parser converts definition files (YAML, or JSON as a YAML subset) into
// template definitions. Numeric scalars are kept as their source text so
// decimals like 0.2 stay exact.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a file with a top-level `templates:` mapping. Definitions
// are returned in file order.
func (p *Parser) Parse(data []byte) ([]dto.TemplateDefinition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: definition file must be a mapping", root.Line)
	}

	var defs []dto.TemplateDefinition
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "templates":
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: templates must be a mapping of id to definition", value.Line)
			}
			seen := make(map[string]struct{})
			for j := 0; j+1 < len(value.Content); j += 2 {
				id := value.Content[j].Value
				if _, dup := seen[id]; dup {
					return nil, fmt.Errorf("line %d: duplicate template %q", value.Content[j].Line, id)
				}
				seen[id] = struct{}{}
				def, err := p.parseTemplate(id, value.Content[j+1])
				if err != nil {
					return nil, fmt.Errorf("template %s: %w", id, err)
				}
				defs = append(defs, def)
			}
		case "description", "version":
		default:
			return nil, fmt.Errorf("line %d: unknown top-level key %q", key.Line, key.Value)
		}
	}
	return defs, nil
}

func (p *Parser) parseTemplate(id string, node *yaml.Node) (dto.TemplateDefinition, error) {
	def := dto.TemplateDefinition{ID: id}
	if node.Kind != yaml.MappingNode {
		return def, fmt.Errorf("line %d: definition must be a mapping", node.Line)
	}

	fields := make(map[string]any)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Value == "channels" {
			channels, err := parseChannels(value)
			if err != nil {
				return def, err
			}
			def.Channels = channels
			continue
		}
		v, err := plain(value)
		if err != nil {
			return def, err
		}
		fields[key.Value] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return def, err
	}
	if err := decoder.Decode(fields); err != nil {
		return def, fmt.Errorf("line %d: %w", node.Line, err)
	}
	def.ID = id
	return def, nil
}

// parseChannels walks the mapping node directly: decoding into a Go map
// would drop the order and silently merge repeated names.
func parseChannels(node *yaml.Node) ([]dto.ChannelEntry, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: channels must be a mapping of name to value", node.Line)
	}
	seen := make(map[string]struct{})
	entries := make([]dto.ChannelEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("line %d: %w", node.Content[i].Line, &domain.DuplicateChannelError{Channel: name})
		}
		seen[name] = struct{}{}
		v, err := plain(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, dto.ChannelEntry{Name: name, Value: v})
	}
	return entries, nil
}

// plain converts a node into Go values. Numbers stay as text.
func plain(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return plain(node.Content[0])
	case yaml.AliasNode:
		return plain(node.Alias)
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		}
		return node.Value, nil
	case yaml.SequenceNode:
		out := make([]any, len(node.Content))
		for i, c := range node.Content {
			v, err := plain(c)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k := node.Content[i].Value
			if _, dup := out[k]; dup {
				return nil, fmt.Errorf("line %d: duplicate key %q", node.Content[i].Line, k)
			}
			v, err := plain(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", node.Line)
}
