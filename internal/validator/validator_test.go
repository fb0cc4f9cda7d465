package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/pulse/internal/compiler"
	"github.com/aretw0/pulse/pkg/adapters/memory"
)

func loaderFrom(t *testing.T, src string) *memory.Loader {
	t.Helper()
	templates, err := compiler.Load([]byte(src))
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	loader, err := memory.NewFromTemplates(templates...)
	if err != nil {
		t.Fatalf("failed to build loader: %v", err)
	}
	return loader
}

func TestValidateLibrary(t *testing.T) {
	// Scenario A: valid library
	loader := loaderFrom(t, `
templates:
  flat: {kind: constant, duration: 10, channels: {A: 1.0, B: 0.2}}
  scaled: {kind: constant, duration: d, channels: {A: amp}}
`)
	report, err := ValidateLibrary(loader)
	if err != nil {
		t.Fatal(err)
	}
	if report.Checked != 2 {
		t.Errorf("expected 2 templates checked, got %d", report.Checked)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Scenario A (Valid) reported issues: %v", report.Issues)
	}
	if report.Err() != nil {
		t.Errorf("expected nil error, got %v", report.Err())
	}

	// Scenario B: closed templates that cannot be sampled
	loader = loaderFrom(t, `
templates:
  empty: {kind: constant, duration: 0, channels: {A: 1}}
  divide: {kind: constant, duration: 1, channels: {A: 1 / 0}}
  wiggle: {kind: function, duration: 1, channels: {A: "sin(t * t)"}}
`)
	report, err = ValidateLibrary(loader)
	if err != nil {
		t.Fatal(err)
	}

	bySeverity := map[Severity][]string{}
	for _, i := range report.Issues {
		bySeverity[i.Severity] = append(bySeverity[i.Severity], i.Template)
	}
	if got := strings.Join(bySeverity[SeverityError], ","); got != "divide" {
		t.Errorf("expected error for divide, got %q", got)
	}
	if got := strings.Join(bySeverity[SeverityWarning], ","); got != "empty,wiggle" {
		t.Errorf("expected warnings for empty and wiggle, got %q", got)
	}

	err = report.Err()
	if err == nil || !strings.Contains(err.Error(), "found 1 errors") {
		t.Errorf("expected aggregated error, got %v", err)
	}
}
