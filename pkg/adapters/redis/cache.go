// Package redis provides Redis-backed implementations of the waveform cache
// and the distributed locker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "pulse:waveform:"

// Cache implements ports.WaveformCache using Redis.
type Cache struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration for cached waveforms.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a new Redis cache with options.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis cache from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client exposes the underlying client, e.g. to build a Locker on the same connection.
func (c *Cache) Client() backend.UniversalClient { return c.client }

// Prefix returns the key prefix.
func (c *Cache) Prefix() string { return c.prefix }

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Get retrieves a waveform from Redis.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Waveform, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var w domain.Waveform
	if err := json.Unmarshal(val, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waveform: %w", err)
	}
	return &w, nil
}

// Set stores the waveform as JSON and records the key in the index set.
func (c *Cache) Set(ctx context.Context, key string, w *domain.Waveform) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal waveform: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(key), data, c.ttl)
	pipe.SAdd(ctx, c.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the waveform.
func (c *Cache) Delete(ctx context.Context, key string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(key))
	pipe.SRem(ctx, c.indexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear removes every waveform recorded in the index. Index entries whose
// key already expired are removed along with the rest.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached waveforms: %w", err)
	}
	full := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	full = append(full, c.indexKey())
	return c.client.Del(ctx, full...).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
