// Package config holds the settings shared by the pulse commands. Values come
// from an optional YAML file and are then overridden by command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/pkg/adapters/file"
	"github.com/aretw0/pulse/pkg/expr"
)

// Template sources.
const (
	SourceFile = "file"
	SourceLoam = "loam"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

type Config struct {
	Dir         string `yaml:"dir"`
	Source      string `yaml:"source"` // file or loam
	Pattern     string `yaml:"pattern"`
	DefaultRate string `yaml:"default_rate"`

	Log    Log    `yaml:"log"`
	Limits Limits `yaml:"limits"`
	Cache  Cache  `yaml:"cache"`
	Redis  Redis  `yaml:"redis"`
	HTTP   HTTP   `yaml:"http"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Limits bound the work of a single render. Zero means unlimited.
type Limits struct {
	MaxNodes    int   `yaml:"max_nodes"`
	MaxSamples  int64 `yaml:"max_samples"`
	MaxSegments int64 `yaml:"max_segments"`
	MemoSize    int   `yaml:"memo_size"`
}

type Cache struct {
	Backend string `yaml:"backend"`
	// Dir is the directory of the file backend.
	Dir string `yaml:"dir"`
	// Limit is the entry limit of the memory backend.
	Limit int `yaml:"limit"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Lock     bool          `yaml:"lock"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type HTTP struct {
	Port    int  `yaml:"port"`
	Metrics bool `yaml:"metrics"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Dir:         ".",
		Source:      SourceFile,
		Pattern:     file.DefaultPattern,
		DefaultRate: "1",
		Log:         Log{Level: "info", Format: "text"},
		Limits:      Limits{MaxSamples: 10_000_000, MaxSegments: 1 << 20, MemoSize: 1 << 16},
		Cache:       Cache{Backend: CacheMemory, Dir: ".pulse/cache", Limit: 256},
		Redis:       Redis{Addr: "localhost:6379", Prefix: "pulse:", LockTTL: 30 * time.Second},
		HTTP:        HTTP{Port: 8080, Metrics: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Rate parses DefaultRate.
func (c Config) Rate() (expr.Number, error) {
	return expr.ParseNumber(c.DefaultRate)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	switch c.Source {
	case SourceFile, SourceLoam:
	default:
		errs = append(errs, fmt.Errorf("source must be file or loam, got %q", c.Source))
	}
	if r, err := c.Rate(); err != nil || r.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("default_rate must be a positive number, got %q", c.DefaultRate))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Limits.MaxNodes < 0 || c.Limits.MaxSamples < 0 || c.Limits.MaxSegments < 0 || c.Limits.MemoSize < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheFile:
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("cache.dir is required for the file backend"))
		}
	case CacheRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Redis.Lock && c.Cache.Backend != CacheRedis {
		errs = append(errs, errors.New("redis.lock requires the redis cache backend"))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	return errors.Join(errs...)
}
