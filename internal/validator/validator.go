package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about one template.
type Issue struct {
	Template string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Template, i.Message)
}

// Report collects the findings of ValidateLibrary.
type Report struct {
	Checked int
	Issues  []Issue
}

// Errors returns only the error-level issues.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Err folds the error-level issues into a single error, or nil.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Template + ": " + e.Message
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

// ValidateLibrary checks every template the loader knows. Construction
// already enforces structural rules, so this looks for what only shows up
// later: missing closed-form integrals, and closed templates (no free
// parameters) that fail to bind or have zero duration.
func ValidateLibrary(loader ports.TemplateLoader) (*Report, error) {
	ids, err := loader.ListTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	report := &Report{}
	add := func(id string, sev Severity, format string, args ...any) {
		report.Issues = append(report.Issues, Issue{Template: id, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	for _, id := range ids {
		report.Checked++
		t, err := loader.GetTemplate(id)
		if err != nil {
			add(id, SeverityError, "failed to load: %v", err)
			continue
		}

		if _, err := t.Integral(); err != nil {
			add(id, SeverityWarning, "no closed-form integral: %v", err)
		}

		if len(t.FreeVariables()) > 0 {
			continue
		}
		bound, err := domain.Bind(t, nil)
		if err != nil {
			add(id, SeverityError, "cannot be bound: %v", err)
			continue
		}
		if bound.Duration.IsZero() {
			add(id, SeverityWarning, "duration is zero, the template cannot be sampled")
		}
	}
	return report, nil
}
