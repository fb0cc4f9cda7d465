/*
Package ports defines the driven ports (interfaces) for the pulse engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various template sources and waveform caches.

# Key Interfaces

  - TemplateLoader: Resolves templates by ID (e.g., from a directory or memory).
  - WaveformCache: Stores sampled waveforms keyed by template, rate and parameters.
  - Renderer: The engine surface consumed by the HTTP and MCP adapters.
*/
package ports
