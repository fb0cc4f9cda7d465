package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
)

// RunWaveformCacheContract runs a suite of tests to verify that a WaveformCache
// implementation adheres to the defined interface contract.
func RunWaveformCacheContract(t *testing.T, cache WaveformCache) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	waveform := &domain.Waveform{
		Template: "contract",
		Channels: []string{"A", "B"},
		Rate:     expr.NewInt(2),
		Duration: expr.NewRat(1, 2),
		Times:    []float64{0, 0.5},
		Values: map[string][]float64{
			"A": {1, 1},
			"B": {0.2, 0.2},
		},
	}

	t.Run("Set and Get", func(t *testing.T) {
		err := cache.Set(ctx, key, waveform)
		require.NoError(t, err, "Set should not return error")

		loaded, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, waveform.Template, loaded.Template)
		assert.Equal(t, waveform.Channels, loaded.Channels)
		assert.Equal(t, waveform.Times, loaded.Times)
		assert.Equal(t, waveform.Values, loaded.Values)
		// Exact numbers must survive the round trip.
		assert.Equal(t, 0, waveform.Rate.Cmp(loaded.Rate))
		assert.Equal(t, 0, waveform.Duration.Cmp(loaded.Duration))
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Stored Value Is Isolated", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, waveform))
		loaded, err := cache.Get(ctx, key)
		require.NoError(t, err)
		loaded.Values["A"][0] = 99

		again, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1.0, again.Values["A"][0], "mutating a returned waveform must not change the cache")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, waveform))

		err := cache.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = cache.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss, "Get after Delete should return ErrCacheMiss")

		assert.NoError(t, cache.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("Clear", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, cache.Set(ctx, k1, waveform))
		require.NoError(t, cache.Set(ctx, k2, waveform))

		require.NoError(t, cache.Clear(ctx))

		_, err := cache.Get(ctx, k1)
		assert.ErrorIs(t, err, ErrCacheMiss)
		_, err = cache.Get(ctx, k2)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
