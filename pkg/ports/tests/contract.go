package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// TemplateLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.TemplateLoader. want maps each expected ID to its kind.
func TemplateLoaderContractTest(t *testing.T, loader ports.TemplateLoader, want map[string]domain.Kind) {
	t.Helper()

	// 1. Test GetTemplate (Success)
	t.Run("GetTemplate_Success", func(t *testing.T) {
		for id, kind := range want {
			tpl, err := loader.GetTemplate(id)
			if err != nil {
				t.Fatalf("unexpected error getting template %s: %v", id, err)
			}
			if tpl.Identifier() != id {
				t.Errorf("identifier mismatch: got %q, want %q", tpl.Identifier(), id)
			}
			if tpl.Kind() != kind {
				t.Errorf("kind mismatch for %s: got %s, want %s", id, tpl.Kind(), kind)
			}
		}
	})

	// 2. Test GetTemplate (NotFound)
	t.Run("GetTemplate_NotFound", func(t *testing.T) {
		_, err := loader.GetTemplate("non-existent-template")
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	// 3. Test ListTemplates
	t.Run("ListTemplates", func(t *testing.T) {
		ids, err := loader.ListTemplates()
		if err != nil {
			t.Fatalf("unexpected error listing templates: %v", err)
		}

		if len(ids) != len(want) {
			t.Errorf("expected %d templates, got %d", len(want), len(ids))
		}

		for i := 1; i < len(ids); i++ {
			if ids[i-1] >= ids[i] {
				t.Errorf("ids are not sorted: %v", ids)
				break
			}
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range want {
			if !lookup[id] {
				t.Errorf("template %s missing from list", id)
			}
		}
	})
}
