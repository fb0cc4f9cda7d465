package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/pulse/pkg/domain"
)

// Loader implements ports.TemplateLoader using an in-memory map.
// Safe for concurrent use.
type Loader struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{templates: make(map[string]domain.Template)}
}

// NewFromTemplates creates a Loader holding the given named templates.
func NewFromTemplates(templates ...domain.Template) (*Loader, error) {
	l := NewLoader()
	if err := l.Replace(templates...); err != nil {
		return nil, err
	}
	return l, nil
}

// Add registers a named template, replacing any template with the same ID.
func (l *Loader) Add(t domain.Template) error {
	if t.Identifier() == "" {
		return fmt.Errorf("template missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t.Identifier()] = t
	return nil
}

// Replace swaps the whole template set atomically.
func (l *Loader) Replace(templates ...domain.Template) error {
	next := make(map[string]domain.Template, len(templates))
	for _, t := range templates {
		id := t.Identifier()
		if id == "" {
			return fmt.Errorf("template missing ID")
		}
		if _, dup := next[id]; dup {
			return fmt.Errorf("duplicate template ID: %s", id)
		}
		next[id] = t
	}
	l.mu.Lock()
	l.templates = next
	l.mu.Unlock()
	return nil
}

// GetTemplate retrieves a template by ID.
func (l *Loader) GetTemplate(id string) (domain.Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return t, nil
}

// ListTemplates returns all available template IDs.
func (l *Loader) ListTemplates() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.templates))
	for k := range l.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
