// Package loam loads templates from a Loam document repository: one template
// per document, with the definition in the frontmatter (or the JSON body)
// and the markdown content as its description.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/pulse/internal/compiler"
	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/pkg/adapters/memory"
	"github.com/aretw0/pulse/pkg/domain"
)

// DefaultPattern selects the documents Watch reacts to.
const DefaultPattern = "**/*.{md,json,yaml,yml}"

// Loader adapts the Loam library to ports.TemplateLoader and ports.Watchable.
type Loader struct {
	Repo *loam.TypedRepository[TemplateMetadata]

	logger    *slog.Logger
	templates *memory.Loader
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for reload failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a new Loam adapter and compiles every document of repo.
func New(repo *loam.TypedRepository[TemplateMetadata], opts ...Option) (*Loader, error) {
	l := &Loader{
		Repo:      repo,
		logger:    logging.NewNop(),
		templates: memory.NewLoader(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Reload(context.Background()); err != nil {
		return nil, err
	}
	return l, nil
}

// Open initializes a read-only Loam repository at dir and loads it.
func Open(dir string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode decodes numbers as json.Number so decimals stay exact.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TemplateMetadata](repo), opts...)
}

// Reload lists every document and recompiles the library. On failure the
// previous templates stay active.
func (l *Loader) Reload(ctx context.Context) error {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	defs := make([]dto.TemplateDefinition, 0, len(docs))
	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existing, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s defined in both '%s' and '%s'", compiler.ErrDuplicateID, id, existing, doc.ID)
		}
		seen[id] = doc.ID
		defs = append(defs, doc.Data.definition(id, strings.TrimSpace(doc.Content)))
	}

	templates, err := compiler.Compile(defs)
	if err != nil {
		return err
	}
	return l.templates.Replace(templates...)
}

// GetTemplate retrieves a template by ID.
func (l *Loader) GetTemplate(id string) (domain.Template, error) {
	return l.templates.GetTemplate(id)
}

// ListTemplates returns all available template IDs.
func (l *Loader) ListTemplates() ([]string, error) {
	return l.templates.ListTemplates()
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. The library is recompiled on every
// document change; failed reloads keep the previous templates and send no signal.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, DefaultPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces bursts of events itself.
				if err := l.Reload(ctx); err != nil {
					l.logger.Error("reload failed, keeping previous templates", "err", err)
					continue
				}
				l.logger.Info("templates reloaded")
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
