/*
Package pulse is a parameterized pulse template engine: it describes waveforms
symbolically, binds their parameters and samples them on a time grid.

Templates are built from exact symbolic expressions (see package expr), so that
durations, channel values and integrals stay exact until a waveform is sampled.

# Concept

A template is one of six kinds. Constant and Function templates hold a duration
and one value per channel (a Function may depend on the time variable t).
Sequence, Repetition, ForLoop and Mapping templates compose other templates.
Every template reports its duration, its defined channels, its free parameters
and the integral of each channel, all symbolically.

Rendering a template means binding its parameters (every free parameter must be
supplied) and sampling the bound tree at a rate. The sample count is
floor(D*R)+1 when D*R is an integer and ceil(D*R) otherwise.

# Key Features

  - Exact arithmetic: rational numbers end to end, floats only at the sample grid.
  - Hexagonal Architecture: templates load from definition files, Loam repositories, the DSL or any TemplateLoader.
  - Caching: rendered waveforms can be kept in memory, on disk or in Redis.
  - Adapters: HTTP (chi), MCP tools and a cobra CLI on top of the same Engine.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/pulse"
		"github.com/aretw0/pulse/pkg/expr"
	)

	func main() {
		// Loads every definition file below ./library
		eng, err := pulse.New("./library")
		if err != nil {
			log.Fatal(err)
		}

		w, err := eng.Render(context.Background(), "ramp", expr.NewInt(1000), expr.Bindings{
			"amp": expr.MustParseNumber("0.5"),
			"d":   expr.NewInt(2),
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(w.Len(), "samples on", w.Channels)
	}
*/
package pulse
