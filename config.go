package strata

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultCacheEntries     = 4096
	defaultMaxChunkBytes    = 4 * 1024 * 1024
	defaultGCInterval       = 5 * time.Minute
	defaultStreamBufferSize = 1000
	defaultStreamPingEvery  = 30 * time.Second
	defaultStreamWriteLimit = 10 * time.Second
)

// Config defines store configuration.
type Config struct {
	// GC holds garbage collection budgets and the background interval.
	GC GCConfig `yaml:"gc"`

	// Cache configures the latest-at result cache.
	Cache CacheConfig `yaml:"cache"`

	// Compaction configures chunk coalescing.
	Compaction CompactionConfig `yaml:"compaction"`

	// Stream configures the change-event streaming hub.
	Stream StreamConfig `yaml:"stream"`
}

// GCConfig groups garbage collection settings.
type GCConfig struct {
	// MaxBytes is the byte budget applied by the background GC loop.
	// 0 means unbudgeted.
	MaxBytes int64 `yaml:"max_bytes"`

	// MaxRows is the row budget applied by the background GC loop.
	// 0 means unbudgeted.
	MaxRows int64 `yaml:"max_rows"`

	// Interval is how often the background loop collects.
	// Default: 5 minutes.
	Interval time.Duration `yaml:"interval"`
}

// CacheConfig groups latest-at cache settings.
type CacheConfig struct {
	// Enabled turns on latest-at result caching.
	Enabled bool `yaml:"enabled"`

	// MaxEntries is the LRU capacity. Default: 4096.
	MaxEntries int `yaml:"max_entries"`
}

// CompactionConfig groups chunk coalescing settings.
type CompactionConfig struct {
	// MaxChunkBytes caps the size of a merged chunk. Adjacent chunks are
	// only coalesced while the result stays under it. Default: 4MB.
	MaxChunkBytes int64 `yaml:"max_chunk_bytes"`
}

// UnmarshalYAML accepts the interval in Go duration syntax ("30s", "5m").
func (g *GCConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxBytes int64  `yaml:"max_bytes"`
		MaxRows  int64  `yaml:"max_rows"`
		Interval string `yaml:"interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	g.MaxBytes = raw.MaxBytes
	g.MaxRows = raw.MaxRows
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("gc.interval: %w", err)
		}
		g.Interval = d
	}
	return nil
}

// UnmarshalYAML accepts the intervals in Go duration syntax.
func (s *StreamConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled      bool   `yaml:"enabled"`
		BufferSize   int    `yaml:"buffer_size"`
		PingInterval string `yaml:"ping_interval"`
		WriteTimeout string `yaml:"write_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Enabled = raw.Enabled
	s.BufferSize = raw.BufferSize
	if raw.PingInterval != "" {
		d, err := time.ParseDuration(raw.PingInterval)
		if err != nil {
			return fmt.Errorf("stream.ping_interval: %w", err)
		}
		s.PingInterval = d
	}
	if raw.WriteTimeout != "" {
		d, err := time.ParseDuration(raw.WriteTimeout)
		if err != nil {
			return fmt.Errorf("stream.write_timeout: %w", err)
		}
		s.WriteTimeout = d
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GC: GCConfig{
			MaxBytes: 0,
			MaxRows:  0,
			Interval: defaultGCInterval,
		},
		Cache: CacheConfig{
			Enabled:    false,
			MaxEntries: defaultCacheEntries,
		},
		Compaction: CompactionConfig{
			MaxChunkBytes: defaultMaxChunkBytes,
		},
		Stream: DefaultStreamConfig(),
	}
}

// withDefaults fills unset fields without overriding explicit choices.
func (c Config) withDefaults() Config {
	if c.GC.Interval <= 0 {
		c.GC.Interval = defaultGCInterval
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheEntries
	}
	if c.Compaction.MaxChunkBytes <= 0 {
		c.Compaction.MaxChunkBytes = defaultMaxChunkBytes
	}
	if c.Stream.BufferSize <= 0 {
		c.Stream.BufferSize = defaultStreamBufferSize
	}
	if c.Stream.PingInterval <= 0 {
		c.Stream.PingInterval = defaultStreamPingEvery
	}
	if c.Stream.WriteTimeout <= 0 {
		c.Stream.WriteTimeout = defaultStreamWriteLimit
	}
	return c
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.GC.MaxBytes < 0 {
		return fmt.Errorf("%w: gc.max_bytes must not be negative", ErrInvalidConfig)
	}
	if c.GC.MaxRows < 0 {
		return fmt.Errorf("%w: gc.max_rows must not be negative", ErrInvalidConfig)
	}
	if c.Compaction.MaxChunkBytes < 0 {
		return fmt.Errorf("%w: compaction.max_chunk_bytes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
