// Package sampler turns bound templates into waveforms.
//
// The grid rule: with duration D and rate R (both exact), samples are taken at
// t_i = i/R for i = 0..floor(D*R). When D*R is an integer the last sample lies
// exactly at t = D; otherwise every sample lies strictly inside [0, D).
// Segments are half-open, and t = D belongs to the last segment with a
// positive duration.
package sampler

import (
	"fmt"
	"math"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
)

// Option configures Sample.
type Option func(*config)

type config struct {
	ev         expr.Evaluator
	maxSamples int64
}

// TooManySamplesError is returned when the grid would exceed the configured
// limit, or when its size does not fit in an int64. Count is zero in the latter case.
type TooManySamplesError struct {
	Count int64
	Limit int64
}

func (e *TooManySamplesError) Error() string {
	if e.Count <= 0 {
		return fmt.Sprintf("waveform would have more than %d samples", int64(math.MaxInt64))
	}
	return fmt.Sprintf("waveform would have %d samples, limit is %d", e.Count, e.Limit)
}

// WithMaxSamples rejects grids with more than n points. Zero disables the limit.
func WithMaxSamples(n int64) Option {
	return func(c *config) { c.maxSamples = n }
}

// WithEvaluator evaluates time-dependent values through ev, typically an *expr.Memo.
func WithEvaluator(ev expr.Evaluator) Option {
	return func(c *config) {
		if ev != nil {
			c.ev = ev
		}
	}
}

// SampleCount returns the number of grid points for duration d and rate r:
// floor(d*r) + 1. It fails with *TooManySamplesError when that overflows an int64.
func SampleCount(d, r expr.Number) (int64, error) {
	last, ok := d.Mul(r).Floor().Int64()
	if !ok || last == math.MaxInt64 {
		return 0, &TooManySamplesError{}
	}
	return last + 1, nil
}

// Sample evaluates b on the grid defined by rate. It fails with
// *domain.InvalidSampleRateError when rate <= 0 and with
// *domain.ZeroDurationError when the bound duration is zero.
func Sample(b *domain.Bound, rate expr.Number, opts ...Option) (*domain.Waveform, error) {
	cfg := config{ev: expr.Direct}
	for _, opt := range opts {
		opt(&cfg)
	}
	if rate.Sign() <= 0 {
		return nil, &domain.InvalidSampleRateError{Rate: rate}
	}
	id := ""
	if b.Template != nil {
		id = b.Template.Identifier()
	}
	if b.Duration.IsZero() {
		return nil, &domain.ZeroDurationError{Template: id}
	}
	count, err := SampleCount(b.Duration, rate)
	if err != nil {
		return nil, &TooManySamplesError{Limit: cfg.maxSamples}
	}
	if cfg.maxSamples > 0 && count > cfg.maxSamples {
		return nil, &TooManySamplesError{Count: count, Limit: cfg.maxSamples}
	}
	last := count - 1

	g := &grid{
		rate:   rate,
		last:   last,
		ev:     cfg.ev,
		values: make(map[string][]float64, len(b.Channels)),
	}
	for _, c := range b.Channels {
		g.values[c] = make([]float64, last+1)
	}
	if err := g.fill(b.Root, expr.Number{}, true); err != nil {
		return nil, err
	}

	times := make([]float64, last+1)
	for i := range times {
		times[i] = g.time(int64(i)).Float64()
	}
	return &domain.Waveform{
		Template: id,
		Channels: append([]string(nil), b.Channels...),
		Rate:     rate,
		Duration: b.Duration,
		Times:    times,
		Values:   g.values,
	}, nil
}

type grid struct {
	rate   expr.Number
	last   int64
	ev     expr.Evaluator
	values map[string][]float64
}

func (g *grid) time(i int64) expr.Number {
	q, _ := expr.NewInt(i).Quo(g.rate)
	return q
}

// indices returns the sample indices lo..hi inside [start, end), or
// [start, end] when closed is set, clamped to the grid.
func (g *grid) indices(start, end expr.Number, closed bool) (int64, int64) {
	lo, _ := start.Mul(g.rate).Ceil().Int64()
	endPos := end.Mul(g.rate)
	var hi int64
	if closed {
		hi, _ = endPos.Floor().Int64()
	} else {
		h, _ := endPos.Ceil().Int64()
		hi = h - 1
	}
	return max(lo, 0), min(hi, g.last)
}

// fill writes every sample of node, which starts at offset. closed marks the
// node that owns the final point t = D.
func (g *grid) fill(node domain.BoundNode, offset expr.Number, closed bool) error {
	span := node.Span()
	if span.IsZero() {
		return nil
	}
	switch n := node.(type) {
	case *domain.BoundSegment:
		return g.fillSegment(n, offset, closed)

	case *domain.BoundSequence:
		lastPositive := -1
		for i, c := range n.Children {
			if !c.Span().IsZero() {
				lastPositive = i
			}
		}
		at := offset
		for i, c := range n.Children {
			if err := g.fill(c, at, closed && i == lastPositive); err != nil {
				return err
			}
			at = at.Add(c.Span())
		}
		return nil

	case *domain.BoundRepetition:
		body := n.Body.Span()
		if n.Count == 0 || body.IsZero() {
			return nil
		}
		lo, hi := g.indices(offset, offset.Add(span), closed)
		if lo > hi {
			return nil
		}
		// Walk the samples, not the iterations: only iterations that contain a sample are visited.
		for i := lo; i <= hi; {
			k := iteration(g.time(i), offset, body, n.Count)
			at := offset.Add(body.Mul(expr.NewInt(k)))
			last := closed && k == n.Count-1
			if err := g.fill(n.Body, at, last); err != nil {
				return err
			}
			_, end := g.indices(at, at.Add(body), last)
			i = max(end+1, i+1)
		}
		return nil
	}
	return fmt.Errorf("sampler: unknown bound node %T", node)
}

// iteration returns the repetition index containing time t, clamped to [0, count-1].
func iteration(t, offset, body expr.Number, count int64) int64 {
	q, _ := t.Sub(offset).Quo(body)
	k, _ := q.Floor().Int64()
	return min(max(k, 0), count-1)
}

func (g *grid) fillSegment(s *domain.BoundSegment, offset expr.Number, closed bool) error {
	lo, hi := g.indices(offset, offset.Add(s.Duration), closed)
	for c, e := range s.Values {
		out, ok := g.values[c]
		if !ok {
			continue
		}
		if k, isConst := e.(*expr.Const); isConst {
			v := k.Value.Float64()
			for i := lo; i <= hi; i++ {
				out[i] = v
			}
			continue
		}
		for i := lo; i <= hi; i++ {
			v, err := s.Value(g.ev, c, g.time(i).Sub(offset))
			if err != nil {
				return fmt.Errorf("channel %s at t=%s: %w", c, g.time(i), err)
			}
			out[i] = v.Float64()
		}
	}
	return nil
}
