// Package config loads service configuration from a YAML file overlaid
// with ZOTERO_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/storage"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "zotero"

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Log         LogConfig         `yaml:"log" envconfig:"LOG"`
	Chrome      ChromeConfig      `yaml:"chrome" envconfig:"CHROME"`
	Library     LibraryConfig     `yaml:"library" envconfig:"LIBRARY"`
	Attachments AttachmentsConfig `yaml:"attachments" envconfig:"ATTACHMENTS"`
	S3          storage.Config    `yaml:"s3" envconfig:"S3"`
	Redis       RedisConfig       `yaml:"redis" envconfig:"REDIS"`
	Cache       CacheConfig       `yaml:"cache" envconfig:"CACHE"`
	Metrics     MetricsConfig     `yaml:"metrics" envconfig:"METRICS"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
	// DebugBuffer is the number of lines kept for the debug page.
	DebugBuffer int                 `yaml:"debug_buffer" envconfig:"DEBUG_BUFFER"`
	Sentry      logger.SentryConfig `yaml:"sentry" envconfig:"SENTRY"`
}

// ChromeConfig locates chrome:// content. Root holds one directory per
// package name.
type ChromeConfig struct {
	Root string `yaml:"root" envconfig:"ROOT"`
}

// LibraryConfig points at a YAML library export. Without one the data,
// report, timeline and select extensions are not served.
type LibraryConfig struct {
	File string `yaml:"file" envconfig:"FILE"`
}

// AttachmentsConfig selects local attachment storage. When the S3 section
// names a bucket it takes precedence.
type AttachmentsConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
}

type RedisConfig struct {
	URL string `yaml:"url" envconfig:"URL"`
}

type CacheConfig struct {
	// ProxyTTL caches proxied pages; zero disables the proxy cache.
	ProxyTTL time.Duration `yaml:"proxy_ttl" envconfig:"PROXY_TTL"`
	// ConnectorTTL is the lifetime of pages injected by the connector.
	ConnectorTTL time.Duration `yaml:"connector_ttl" envconfig:"CONNECTOR_TTL"`
	// Capacity bounds the in-memory cache when Redis is not configured.
	Capacity int `yaml:"capacity" envconfig:"CAPACITY"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"ENABLED"`
	Namespace string `yaml:"namespace" envconfig:"NAMESPACE"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      string(logger.FormatJSON),
			DebugBuffer: logger.DefaultRecorderSize,
			Sentry:      logger.SentryConfig{Environment: "production"},
		},
		S3: storage.Config{Region: storage.DefaultRegion},
		Cache: CacheConfig{
			ProxyTTL:     5 * time.Minute,
			ConnectorTTL: time.Hour,
			Capacity:     1000,
		},
		Metrics: MetricsConfig{Enabled: true, Namespace: "zotero"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML from r (nil means no file) over the defaults, then
// applies the environment. Unknown YAML keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if r != nil {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values that decoding cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatJSON, logger.FormatText:
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Cache.ProxyTTL < 0 || c.Cache.ConnectorTTL < 0 {
		errs = append(errs, errors.New("cache TTLs must not be negative"))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, errors.New("cache.capacity must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}
