/*
Package domain contains the pulse template model.

A template describes per-channel output over a bounded duration. Values and
durations are expressions from package expr and may still contain free
parameters. The package is kept pure: no I/O, no logging, no caches.

# Key Entities

  - Template: sealed variant over Constant, Function, Sequence, Repetition, ForLoop and Mapping.
  - ChannelTable: ordered channel name to expression mapping with unique names.
  - Bound: a template with every parameter resolved, as a tree of segments.
  - Waveform: sampled output, produced by package sampler.

Bind checks that the bindings cover FreeVariables before evaluating anything,
so a missing parameter is always reported as *MissingParameterError.
*/
package domain
