package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Memory    MemoryConfig    `yaml:"memory" toml:"memory"`
	Display   DisplayConfig   `yaml:"display" toml:"display"`
	Stream    StreamConfig    `yaml:"stream" toml:"stream"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
}

// MemoryConfig sizes both memory tiers. Zero TotalRAM means detect the
// machine total at startup.
type MemoryConfig struct {
	HeapSize    uint32 `envconfig:"MEM_HEAP_SIZE" default:"262144" yaml:"heap_size" toml:"heap_size"`
	ArenaSize   uint32 `envconfig:"MEM_ARENA_SIZE" default:"1048576" yaml:"arena_size" toml:"arena_size"`
	MaxApps     int    `envconfig:"MEM_MAX_APPS" default:"32" yaml:"max_apps" toml:"max_apps"`
	RegionAlign uint32 `envconfig:"MEM_REGION_ALIGN" default:"4096" yaml:"region_align" toml:"region_align"`
	TotalRAM    uint64 `envconfig:"MEM_TOTAL_RAM" default:"0" yaml:"total_ram" toml:"total_ram"`
}

// DisplayConfig locates the compositor that serves buffer statistics.
// An empty URL runs headless. Durations are environment-only.
type DisplayConfig struct {
	URL      string        `envconfig:"DISPLAY_URL" default:"" yaml:"url" toml:"url"`
	Timeout  time.Duration `envconfig:"DISPLAY_TIMEOUT" default:"5s" yaml:"-" toml:"-"`
	RetryMax int           `envconfig:"DISPLAY_RETRY_MAX" default:"2" yaml:"retry_max" toml:"retry_max"`
	RPS      float64       `envconfig:"DISPLAY_RPS" default:"4" yaml:"rps" toml:"rps"`
}

// StreamConfig paces the overview push stream and the metrics
// refresher.
type StreamConfig struct {
	Interval time.Duration `envconfig:"STREAM_INTERVAL" default:"1s" yaml:"-" toml:"-"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load reads configuration from STRATOS_-prefixed environment
// variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("stratos", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads from the environment or falls back to defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads from the environment, then overlays the YAML or TOML
// file at path. Explicit file settings win over ambient environment;
// keys absent from the file keep their environment values.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Memory: MemoryConfig{
			HeapSize:    262144,
			ArenaSize:   1048576,
			MaxApps:     32,
			RegionAlign: 4096,
		},
		Display: DisplayConfig{
			Timeout:  5 * time.Second,
			RetryMax: 2,
			RPS:      4,
		},
		Stream: StreamConfig{
			Interval: time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the memory core cannot honor.
func (c *Config) Validate() error {
	if c.Memory.HeapSize == 0 {
		return fmt.Errorf("config: heap size must be positive")
	}
	if c.Memory.ArenaSize == 0 {
		return fmt.Errorf("config: arena size must be positive")
	}
	if c.Memory.MaxApps <= 0 {
		return fmt.Errorf("config: max apps must be positive")
	}
	if a := c.Memory.RegionAlign; a == 0 || a&(a-1) != 0 {
		return fmt.Errorf("config: region align %d is not a power of two", a)
	}
	if c.Stream.Interval <= 0 {
		return fmt.Errorf("config: stream interval must be positive")
	}
	return nil
}
