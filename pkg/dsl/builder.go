package dsl

import (
	"fmt"

	"github.com/aretw0/pulse/internal/compiler"
	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/pkg/adapters/memory"
	"github.com/aretw0/pulse/pkg/domain"
)

// Builder manages the construction of a named template set.
type Builder struct {
	order     []string
	templates map[string]*TemplateBuilder
}

// New creates a new template builder.
func New() *Builder {
	return &Builder{
		templates: make(map[string]*TemplateBuilder),
	}
}

// Add creates a new template in the set.
// If the template already exists, it returns the existing builder.
func (b *Builder) Add(id string) *TemplateBuilder {
	if tb, ok := b.templates[id]; ok {
		return tb
	}
	tb := &TemplateBuilder{
		def: dto.TemplateDefinition{
			ID: id,
		},
		builder: b,
	}
	b.templates[id] = tb
	b.order = append(b.order, id)
	return tb
}

// Templates compiles the set, resolving references by ID, in the order the
// templates were added.
func (b *Builder) Templates() ([]domain.Template, error) {
	defs := make([]dto.TemplateDefinition, 0, len(b.order))
	for _, id := range b.order {
		defs = append(defs, b.templates[id].def)
	}
	return compiler.Compile(defs)
}

// Build compiles the set into a memory Loader.
func (b *Builder) Build() (*memory.Loader, error) {
	templates, err := b.Templates()
	if err != nil {
		return nil, err
	}

	loader, err := memory.NewFromTemplates(templates...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}

	return loader, nil
}
