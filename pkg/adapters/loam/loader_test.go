package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/internal/compiler"
	"github.com/aretw0/pulse/internal/testutils"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports/tests"
)

func writeDocs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

var library = map[string]string{
	"flat.md": `---
kind: constant
duration: "10"
channels:
  B: "0.2"
  A: "1.0"
---
A flat top pulse.`,
	"ramp.json": `{
  "kind": "function",
  "duration": "d",
  "channels": {"A": "amp * t / d", "B": "0"}
}`,
	"both.md": `---
id: both.md
kind: sequence
children: [flat, ramp]
---`,
}

func TestLoader_Contract(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeDocs(t, dir, library)

	loader, err := New(loam.NewTypedRepository[TemplateMetadata](repo))
	require.NoError(t, err)

	tests.TemplateLoaderContractTest(t, loader, map[string]domain.Kind{
		"flat": domain.KindConstant,
		"ramp": domain.KindFunction,
		"both": domain.KindSequence,
	})
}

func TestLoader_Library(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeDocs(t, dir, library)

	loader, err := New(loam.NewTypedRepository[TemplateMetadata](repo))
	require.NoError(t, err)

	flat, err := loader.GetTemplate("flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, flat.DefinedChannels(), "frontmatter channels are sorted")

	both, err := loader.GetTemplate("both")
	require.NoError(t, err)
	assert.Equal(t, []string{"amp", "d"}, both.FreeVariables())
	assert.Equal(t, "10 + d", both.Duration().String())
}

func TestLoader_DetectsCollisions(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeDocs(t, dir, map[string]string{
		"foo.md":   "---\nid: foo\nkind: constant\nduration: \"1\"\nchannels: {A: \"1\"}\n---\n",
		"foo.json": `{"id": "foo", "kind": "constant", "duration": "1", "channels": {"A": "1"}}`,
	})

	_, err := New(loam.NewTypedRepository[TemplateMetadata](repo))
	require.Error(t, err)
	assert.ErrorIs(t, err, compiler.ErrDuplicateID)
	assert.Contains(t, err.Error(), "foo")
}

func TestLoader_ReloadKeepsPreviousOnError(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeDocs(t, dir, library)

	loader, err := New(loam.NewTypedRepository[TemplateMetadata](repo))
	require.NoError(t, err)

	writeDocs(t, dir, map[string]string{"broken.md": "---\nkind: sequence\nchildren: [ghost]\n---\n"})
	err = loader.Reload(context.Background())
	assert.ErrorIs(t, err, compiler.ErrUnknownReference)

	ids, err := loader.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "flat", "ramp"}, ids)
}

func TestTemplateMetadata_Definition(t *testing.T) {
	meta := TemplateMetadata{
		Kind:     "for_loop",
		Body:     "stair",
		Index:    "i",
		Range:    &RangeMetadata{Stop: "4"},
		Channels: map[string]any{"Y": "1", "X": "2"},
	}
	def := meta.definition("steps", "Four stairs.")

	assert.Equal(t, "steps", def.ID)
	assert.Equal(t, "Four stairs.", def.Description)
	require.NotNil(t, def.Range)
	assert.Equal(t, "4", def.Range.Stop)
	require.Len(t, def.Channels, 2)
	assert.Equal(t, "X", def.Channels[0].Name)

	meta.Description = "explicit"
	assert.Equal(t, "explicit", meta.definition("steps", "body").Description)
}
