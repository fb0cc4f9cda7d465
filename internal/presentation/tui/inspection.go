package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/pulse/pkg/domain"
)

// InspectionMarkdown formats an inspection as a markdown document.
func InspectionMarkdown(in domain.Inspection) string {
	var sb strings.Builder
	name := in.ID
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "- **Kind:** %s\n", in.Kind)
	fmt.Fprintf(&sb, "- **Duration:** `%s`\n", in.Duration)
	if len(in.Parameters) > 0 {
		fmt.Fprintf(&sb, "- **Parameters:** %s\n", codeList(in.Parameters))
	} else {
		sb.WriteString("- **Parameters:** none\n")
	}
	if len(in.Children) > 0 {
		fmt.Fprintf(&sb, "- **Children:** %s\n", strings.Join(in.Children, ", "))
	}
	fmt.Fprintf(&sb, "- **Nodes:** %d\n", in.Nodes)

	sb.WriteString("\n## Channels\n\n")
	sb.WriteString("| Channel | Integral |\n|---|---|\n")
	for _, c := range in.Channels {
		integral := "n/a"
		if v, ok := in.Integral[c]; ok {
			integral = "`" + v + "`"
		}
		fmt.Fprintf(&sb, "| %s | %s |\n", c, integral)
	}
	if in.IntegralError != "" {
		fmt.Fprintf(&sb, "\n> No closed-form integral: %s\n", in.IntegralError)
	}
	return sb.String()
}

func codeList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
