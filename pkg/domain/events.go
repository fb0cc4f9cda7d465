package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventBind     EventType = "bind"
	EventSample   EventType = "sample"
	EventCacheHit EventType = "cache_hit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// BindEvent is emitted after a template has been bound (or failed to bind).
type BindEvent struct {
	EventBase
	TemplateID string        `json:"template_id"`
	Kind       Kind          `json:"kind"`
	Parameters int           `json:"parameters"`
	Duration   string        `json:"duration,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        error         `json:"-"`
}

// SampleEvent is emitted after a waveform has been produced or served from cache.
type SampleEvent struct {
	EventBase
	TemplateID string        `json:"template_id"`
	Rate       string        `json:"rate"`
	Samples    int           `json:"samples"`
	Channels   int           `json:"channels"`
	Cached     bool          `json:"cached,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnBind   func(context.Context, *BindEvent)
	OnSample func(context.Context, *SampleEvent)
}
