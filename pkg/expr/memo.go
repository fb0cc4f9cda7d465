package expr

import (
	"strings"
	"sync"
)

// Memo is an explicit memoization table for evaluations, keyed by the
// structural key of the expression and the values of its free variables.
// It is safe for concurrent use. When the table holds limit entries it is
// cleared before the next insertion.
type Memo struct {
	mu      sync.Mutex
	limit   int
	entries map[string]memoEntry
	hits    uint64
	misses  uint64
}

type memoEntry struct {
	value Number
	err   error
}

// MemoStats is a snapshot of memo usage.
type MemoStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// DefaultMemoLimit is used when NewMemo receives a non-positive limit.
const DefaultMemoLimit = 4096

// NewMemo creates an empty memo holding at most limit entries.
func NewMemo(limit int) *Memo {
	if limit <= 0 {
		limit = DefaultMemoLimit
	}
	return &Memo{
		limit:   limit,
		entries: make(map[string]memoEntry),
	}
}

// Evaluate implements Evaluator. Results and deterministic evaluation errors
// are cached; missing variables are never cached.
func (m *Memo) Evaluate(e Expr, b Bindings) (Number, error) {
	key, ok := memoKey(e, b)
	if !ok {
		return Evaluate(e, b)
	}

	m.mu.Lock()
	if entry, found := m.entries[key]; found {
		m.hits++
		m.mu.Unlock()
		return entry.value, entry.err
	}
	m.misses++
	m.mu.Unlock()

	v, err := Evaluate(e, b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.limit {
		m.entries = make(map[string]memoEntry)
	}
	m.entries[key] = memoEntry{value: v, err: err}
	return v, err
}

// Stats returns the current counters.
func (m *Memo) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{Hits: m.hits, Misses: m.misses, Entries: len(m.entries)}
}

// Reset drops every entry and counter.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoEntry)
	m.hits, m.misses = 0, 0
}

func memoKey(e Expr, b Bindings) (string, bool) {
	var sb strings.Builder
	sb.WriteString(Key(e))
	for _, name := range FreeVariables(e) {
		v, ok := b[name]
		if !ok {
			return "", false
		}
		sb.WriteString("|")
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(v.rat().RatString())
	}
	return sb.String(), true
}
