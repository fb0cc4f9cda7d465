/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing pulse templates.

It allows developers to define template sets using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. Templates reference each other by ID,
exactly like in definition files, and go through the same compiler.

Example usage:

	b := dsl.New()

	b.Add("flat").
		Constant(10).
		Channel("A", 1.0).
		Channel("B", "0.2")

	b.Add("ramp").
		Function("d").
		Channel("A", "amp * t / d").
		Channel("B", 0)

	b.Add("shot").
		Sequence("flat", "ramp")

	b.Add("train").
		Repeat("shot", "n")

	// The resulting loader can be passed to pulse.New(...)
	loader, err := b.Build()
*/
package dsl
