package ports

import (
	"context"
	"errors"

	"github.com/aretw0/pulse/pkg/domain"
)

// ErrCacheMiss is returned by WaveformCache.Get when the key is absent.
var ErrCacheMiss = errors.New("waveform not cached")

// WaveformCache stores sampled waveforms. Sampling is deterministic, so a
// cached waveform is valid for as long as its template definition is.
type WaveformCache interface {
	// Get returns the waveform stored under key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*domain.Waveform, error)

	// Set stores the waveform under key, replacing any previous value.
	Set(ctx context.Context, key string, w *domain.Waveform) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every waveform, typically after the templates were reloaded.
	Clear(ctx context.Context) error
}
