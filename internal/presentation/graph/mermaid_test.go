package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/pulse/internal/presentation/graph"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/dsl"
)

func library(t *testing.T) map[string]domain.Template {
	t.Helper()
	b := dsl.New()
	b.Add("flat").Constant(10).Channel("A", 1)
	b.Add("ramp").Function("d").Channel("A", "t / d")
	b.Add("shot").Sequence("flat", "ramp", "flat")
	b.Add("train").Repeat("shot", "n")
	b.Add("stairs").Loop("step", "i", 4)
	b.Add("step").Constant(1).Channel("A", "i")
	b.Add("out").Map("ramp").Rename("A", "X")

	templates, err := b.Templates()
	if err != nil {
		t.Fatalf("Templates() failed: %v", err)
	}
	byID := make(map[string]domain.Template)
	for _, tpl := range templates {
		byID[tpl.Identifier()] = tpl
	}
	return byID
}

func TestGenerateMermaid(t *testing.T) {
	lib := library(t)

	tests := []struct {
		name     string
		root     string
		overlay  *graph.GraphOverlay
		contains []string
	}{
		{
			name: "Atomic Shapes",
			root: "shot",
			contains: []string{
				"shot[[\"shot <br/> sequence, 10 + d + 10\"]]",
				"flat[\"flat <br/> constant, 10 <br/> A\"]",
				"ramp[/\"ramp <br/> function, d <br/> A\"/]",
				"shot -- \"1\" --> flat",
				"shot -- \"2\" --> ramp",
				"shot -- \"3\" --> flat",
			},
		},
		{
			name: "Repetition",
			root: "train",
			contains: []string{
				"train{{",
				"train -- \"x n\" --> shot",
			},
		},
		{
			name: "Loop",
			root: "stairs",
			contains: []string{
				"stairs -- \"i in range(0, 4, 1)\" --> step",
			},
		},
		{
			name: "Mapping",
			root: "out",
			contains: []string{
				"out([",
				"out -.-> ramp",
			},
		},
		{
			name:    "Overlay",
			root:    "shot",
			overlay: &graph.GraphOverlay{Highlight: []string{"ramp"}},
			contains: []string{
				"classDef highlight",
				"class ramp highlight;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(lib[tt.root], tt.overlay)
			if !strings.HasPrefix(got, "graph TD\n") {
				t.Errorf("Expected flowchart header, got:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, got)
				}
			}
		})
	}
}

func TestGenerateMermaid_SharedChildDrawnOnce(t *testing.T) {
	got := graph.GenerateMermaid(library(t)["shot"], nil)
	if n := strings.Count(got, "flat[\""); n != 1 {
		t.Errorf("Expected flat to be declared once, got %d times:\n%s", n, got)
	}
}

func TestGenerateMermaid_Anonymous(t *testing.T) {
	c, err := domain.NewConstant(1, domain.Ch("A", 1))
	if err != nil {
		t.Fatal(err)
	}
	seq, err := domain.NewSequence(c, c)
	if err != nil {
		t.Fatal(err)
	}
	got := graph.GenerateMermaid(seq, nil)
	if !strings.Contains(got, "anon1[[") || !strings.Contains(got, "anon1 -- \"1\" --> anon2") {
		t.Errorf("Expected anonymous nodes to get synthetic IDs, got:\n%s", got)
	}
}
