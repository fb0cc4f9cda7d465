package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/pkg/domain"
)

var (
	// ErrUnknownReference is returned when a definition names a template that does not exist.
	ErrUnknownReference = errors.New("unknown template reference")
	// ErrCycle is returned when templates reference each other in a loop.
	ErrCycle = errors.New("template reference cycle")
	// ErrDuplicateID is returned when two definitions share an ID.
	ErrDuplicateID = errors.New("duplicate template id")
)

// Compile turns definitions into templates, resolving body and children
// references by ID. The result follows the order of defs; every template is
// named after its definition.
func Compile(defs []dto.TemplateDefinition) ([]domain.Template, error) {
	c := &compilation{
		defs:  make(map[string]dto.TemplateDefinition, len(defs)),
		built: make(map[string]domain.Template, len(defs)),
		state: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if def.ID == "" {
			return nil, errors.New("definition without id")
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, def.ID)
		}
		c.defs[def.ID] = def
	}

	out := make([]domain.Template, 0, len(defs))
	for _, def := range defs {
		t, err := c.resolve(def.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

const (
	visiting = iota + 1
	done
)

type compilation struct {
	defs  map[string]dto.TemplateDefinition
	built map[string]domain.Template
	state map[string]int
	path  []string
}

func (c *compilation) resolve(id string) (domain.Template, error) {
	switch c.state[id] {
	case done:
		return c.built[id], nil
	case visiting:
		return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(c.path, " -> "), id)
	}
	def, ok := c.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, id)
	}

	c.state[id] = visiting
	c.path = append(c.path, id)
	t, err := c.build(def)
	c.path = c.path[:len(c.path)-1]
	if err != nil {
		// Reference errors already carry the path; only annotate at the root.
		if len(c.path) > 0 && (errors.Is(err, ErrCycle) || errors.Is(err, ErrUnknownReference)) {
			return nil, err
		}
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	t = domain.Named(t, id)
	c.state[id] = done
	c.built[id] = t
	return t, nil
}

func (c *compilation) build(def dto.TemplateDefinition) (domain.Template, error) {
	kind, ok := domain.ParseKind(def.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", def.Kind)
	}
	if err := checkFields(kind, def); err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindConstant, domain.KindFunction:
		if def.Duration == nil {
			return nil, fmt.Errorf("%s requires a duration", kind)
		}
		channels := make([]domain.ChannelValue, len(def.Channels))
		for i, ch := range def.Channels {
			if ch.Value == nil {
				return nil, fmt.Errorf("channel %s has no value", ch.Name)
			}
			channels[i] = domain.Ch(ch.Name, ch.Value)
		}
		if kind == domain.KindConstant {
			return domain.NewConstant(def.Duration, channels...)
		}
		return domain.NewFunction(def.Duration, channels...)

	case domain.KindSequence:
		children := make([]domain.Template, len(def.Children))
		for i, ref := range def.Children {
			child, err := c.resolve(ref)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return domain.NewSequence(children...)

	case domain.KindRepetition:
		body, err := c.body(def)
		if err != nil {
			return nil, err
		}
		if def.Count == nil {
			return nil, errors.New("repetition requires a count")
		}
		return domain.NewRepetition(body, def.Count)

	case domain.KindForLoop:
		body, err := c.body(def)
		if err != nil {
			return nil, err
		}
		if def.Range == nil {
			return nil, errors.New("for_loop requires a range")
		}
		r, err := domain.RangeOf(def.Range.Start, def.Range.Stop, def.Range.Step)
		if err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
		return domain.NewForLoop(body, def.Index, r)

	case domain.KindMapping:
		body, err := c.body(def)
		if err != nil {
			return nil, err
		}
		return domain.NewMapping(body, def.Parameters, def.ChannelMapping)
	}
	return nil, fmt.Errorf("unsupported kind %q", kind)
}

func (c *compilation) body(def dto.TemplateDefinition) (domain.Template, error) {
	if def.Body == "" {
		return nil, fmt.Errorf("%s requires a body", def.Kind)
	}
	return c.resolve(def.Body)
}

// checkFields rejects fields that belong to another kind, so that a typo in
// `kind` does not silently drop half of a definition.
func checkFields(kind domain.Kind, def dto.TemplateDefinition) error {
	present := map[string]bool{
		"duration":        def.Duration != nil,
		"channels":        len(def.Channels) > 0,
		"children":        len(def.Children) > 0,
		"body":            def.Body != "",
		"count":           def.Count != nil,
		"index":           def.Index != "",
		"range":           def.Range != nil,
		"parameters":      len(def.Parameters) > 0,
		"channel_mapping": len(def.ChannelMapping) > 0,
	}
	allowed := map[domain.Kind][]string{
		domain.KindConstant:   {"duration", "channels"},
		domain.KindFunction:   {"duration", "channels"},
		domain.KindSequence:   {"children"},
		domain.KindRepetition: {"body", "count"},
		domain.KindForLoop:    {"body", "index", "range"},
		domain.KindMapping:    {"body", "parameters", "channel_mapping"},
	}
	ok := make(map[string]bool)
	for _, f := range allowed[kind] {
		ok[f] = true
	}
	for _, f := range []string{"duration", "channels", "children", "body", "count", "index", "range", "parameters", "channel_mapping"} {
		if present[f] && !ok[f] {
			return fmt.Errorf("field %q is not valid for kind %s", f, kind)
		}
	}
	return nil
}

// Load parses and compiles a definition file in one step.
func Load(data []byte) ([]domain.Template, error) {
	defs, err := NewParser().Parse(data)
	if err != nil {
		return nil, err
	}
	return Compile(defs)
}
