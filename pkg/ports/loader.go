package ports

import (
	"context"

	"github.com/aretw0/pulse/pkg/domain"
)

// TemplateLoader defines how the engine retrieves templates.
// This allows the storage layer (files, memory) to be decoupled.
type TemplateLoader interface {
	// GetTemplate retrieves a compiled template by ID.
	// Returns domain.ErrTemplateNotFound if the ID is unknown.
	GetTemplate(id string) (domain.Template, error)

	// ListTemplates returns the sorted IDs of every available template.
	// This is used for introspection tools (e.g. 'pulse validate').
	ListTemplates() ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload while serving.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definitions change.
	// It abstracts away the specific event details, signaling only that a reload happened.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
