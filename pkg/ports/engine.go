package ports

import (
	"context"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
)

// Renderer is the engine surface used by adapters (e.g., HTTP, MCP).
type Renderer interface {
	// List returns the IDs of every loadable template.
	List() ([]string, error)

	// Inspect returns the symbolic summary of a template.
	Inspect(id string) (domain.Inspection, error)

	// Render binds the template with parameters and samples it at rate.
	Render(ctx context.Context, id string, rate expr.Number, parameters expr.Bindings) (*domain.Waveform, error)
}
