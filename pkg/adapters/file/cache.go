package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// Cache implements ports.WaveformCache using the local filesystem.
// It stores each waveform as a JSON file named after the hash of its key.
type Cache struct {
	BasePath string
}

// NewCache creates a new Cache with the given base path.
// If basePath is empty, it defaults to ".pulse/cache".
func NewCache(basePath string) *Cache {
	if basePath == "" {
		basePath = filepath.Join(".pulse", "cache")
	}
	return &Cache{BasePath: basePath}
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.BasePath, hex.EncodeToString(sum[:16])+".json")
}

// Set persists the waveform to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (c *Cache) Set(ctx context.Context, key string, w *domain.Waveform) error {
	if err := os.MkdirAll(c.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal waveform: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(c.BasePath, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := c.path(key)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing cache file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file into cache: %w", err)
	}
	return nil
}

// Get retrieves a waveform from its JSON file.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Waveform, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var w domain.Waveform
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waveform: %w", err)
	}
	return &w, nil
}

// Delete removes the cache file.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every cache file.
func (c *Cache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list cache: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.BasePath, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}
	return nil
}
