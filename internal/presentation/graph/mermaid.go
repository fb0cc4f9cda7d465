package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/pulse/pkg/domain"
)

// GraphOverlay marks templates to emphasize on the graph.
type GraphOverlay struct {
	Highlight []string
}

// GenerateMermaid produces a Mermaid flowchart of the template tree rooted at root.
// It applies semantic styling:
// - Constant: [Rectangle]
// - Function: [/Parallelogram/]
// - Sequence: [[Subroutine]]
// - Repetition, ForLoop: {{Hexagon}}
// - Mapping: ([Stadium])
// A template shared by several parents is drawn once.
func GenerateMermaid(root domain.Template, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[domain.Template]string)
	used := make(map[string]int)
	anonymous := 0
	idOf := func(t domain.Template) string {
		if id, ok := ids[t]; ok {
			return id
		}
		var id string
		if t.Identifier() == "" {
			anonymous++
			id = fmt.Sprintf("anon%d", anonymous)
		} else {
			id = sanitizeMermaidID(t.Identifier())
		}
		if n := used[id]; n > 0 {
			used[id] = n + 1
			id = fmt.Sprintf("%s_%d", id, n+1)
		} else {
			used[id] = 1
		}
		ids[t] = id
		return id
	}

	drawn := make(map[domain.Template]bool)
	var visit func(t domain.Template)
	visit = func(t domain.Template) {
		if drawn[t] {
			return
		}
		drawn[t] = true
		safeID := idOf(t)

		opener, closer := "[", "]"
		switch t.Kind() {
		case domain.KindFunction:
			opener, closer = "[/", "/]"
		case domain.KindSequence:
			opener, closer = "[[", "]]"
		case domain.KindRepetition, domain.KindForLoop:
			opener, closer = "{{", "}}"
		case domain.KindMapping:
			opener, closer = "([", "])"
		}

		name := t.Identifier()
		if name == "" {
			name = "<anonymous>"
		}
		label := fmt.Sprintf("%s <br/> %s, %s", name, t.Kind(), t.Duration())
		if t.Kind() == domain.KindConstant || t.Kind() == domain.KindFunction {
			label += " <br/> " + strings.Join(t.DefinedChannels(), ", ")
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer))

		switch v := t.(type) {
		case *domain.Sequence:
			for i, c := range v.Children() {
				childID := idOf(c)
				sb.WriteString(fmt.Sprintf("    %s -- \"%d\" --> %s\n", safeID, i+1, childID))
				visit(c)
			}
		case *domain.Repetition:
			childID := idOf(v.Body())
			sb.WriteString(fmt.Sprintf("    %s -- \"x %s\" --> %s\n", safeID, escape(v.Count().String()), childID))
			visit(v.Body())
		case *domain.ForLoop:
			childID := idOf(v.Body())
			sb.WriteString(fmt.Sprintf("    %s -- \"%s in %s\" --> %s\n", safeID, v.Index(), escape(v.Range().String()), childID))
			visit(v.Body())
		case *domain.Mapping:
			childID := idOf(v.Body())
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, childID))
			visit(v.Body())
		}
	}

	visit(root)

	if overlay != nil && len(overlay.Highlight) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef highlight fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		want := make(map[string]bool, len(overlay.Highlight))
		for _, id := range overlay.Highlight {
			want[id] = true
		}
		var marked []string
		for t, safeID := range ids {
			if t.Identifier() != "" && want[t.Identifier()] {
				marked = append(marked, safeID)
			}
		}
		sort.Strings(marked)
		for _, safeID := range marked {
			sb.WriteString(fmt.Sprintf("    class %s highlight;\n", safeID))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
