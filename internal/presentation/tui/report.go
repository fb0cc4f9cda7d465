package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/pulse/internal/validator"
)

// PrintReport writes one line per issue, colored by severity on terminals,
// followed by a summary line.
func PrintReport(w io.Writer, report *validator.Report) {
	out := termenv.NewOutput(w)
	for _, issue := range report.Issues {
		color := "#facc15"
		if issue.Severity == validator.SeverityError {
			color = "#f87171"
		}
		tag := out.String(fmt.Sprintf("[%s]", issue.Severity)).Foreground(out.Color(color)).Bold()
		fmt.Fprintf(w, "%s %s: %s\n", tag, issue.Template, issue.Message)
	}

	errs := len(report.Errors())
	summary := fmt.Sprintf("%d templates checked, %d errors, %d warnings", report.Checked, errs, len(report.Issues)-errs)
	if errs == 0 {
		fmt.Fprintln(w, out.String(summary).Foreground(out.Color("#4ade80")))
		return
	}
	fmt.Fprintln(w, out.String(summary).Foreground(out.Color("#f87171")))
}
