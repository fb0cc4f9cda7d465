package ports_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// MockCache is a JSON-backed implementation of WaveformCache for testing purposes.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) (*domain.Waveform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	var w domain.Waveform
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (m *MockCache) Set(ctx context.Context, key string, w *domain.Waveform) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func TestWaveformCache_Contract(t *testing.T) {
	// The contract suite itself is verified against a trivial implementation.
	ports.RunWaveformCacheContract(t, NewMockCache())
}
