package domain

import "github.com/aretw0/pulse/pkg/expr"

// Waveform is a sampled template: one time grid shared by every channel.
// Channels are sorted; Values[c][i] is the value of channel c at Times[i].
type Waveform struct {
	Template string               `json:"template,omitempty"`
	Channels []string             `json:"channels"`
	Rate     expr.Number          `json:"rate"`
	Duration expr.Number          `json:"duration"`
	Times    []float64            `json:"times"`
	Values   map[string][]float64 `json:"values"`
}

// Sample is the value of every channel at one point of the grid.
type Sample struct {
	Time   float64            `json:"time"`
	Values map[string]float64 `json:"values"`
}

// Len returns the number of grid points.
func (w *Waveform) Len() int { return len(w.Times) }

// Channel returns the samples of one channel.
func (w *Waveform) Channel(name string) ([]float64, bool) {
	v, ok := w.Values[name]
	return v, ok
}

// Samples returns the waveform as time-ordered (time, {channel: value}) tuples.
func (w *Waveform) Samples() []Sample {
	out := make([]Sample, len(w.Times))
	for i, t := range w.Times {
		values := make(map[string]float64, len(w.Channels))
		for _, c := range w.Channels {
			values[c] = w.Values[c][i]
		}
		out[i] = Sample{Time: t, Values: values}
	}
	return out
}
