package compiler

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/gen"
	"github.com/syssam/onto2schema/compiler/naming"
)

// Config holds the options of a Compiler.
type Config struct {
	// Logger receives the structured logs of every stage.
	Logger *slog.Logger
	// Registerer, when set, receives the materializer and extractor metrics.
	Registerer prometheus.Registerer
	// Cache stores encoded extraction results. Nil disables caching.
	Cache onto2schema.Cache
	// CacheTTL is the lifetime of cached extractions; zero never expires.
	CacheTTL time.Duration
	// StoreID identifies the store in cache keys.
	StoreID string
	// Naming is shared by extraction and generation.
	Naming *naming.Config
	// Scope is the default extraction scope.
	Scope extract.Scope
	// Workers bounds the classes extracted and the artifacts rendered at once.
	Workers int
	// MaxIterations bounds the materializer driver loop.
	MaxIterations int
	// Generate holds additional generation options.
	Generate []gen.Option
}

// Option configures a Compiler.
type Option func(*Config) error

func defaultConfig() *Config {
	return &Config{
		Logger:  slog.Default(),
		StoreID: "default",
		Naming:  naming.Default,
		Scope:   extract.ScopeShallow,
		Workers: extract.DefaultWorkers,
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return onto2schema.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithMetrics registers the compiler metrics with reg. Each Compiler
// registers its own collectors, so a registry serves one Compiler.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Config) error {
		if reg == nil {
			return onto2schema.NewConfigError("Registerer", nil, "registerer cannot be nil")
		}
		c.Registerer = reg
		return nil
	}
}

// WithCache caches extraction results in cache for ttl.
func WithCache(cache onto2schema.Cache, ttl time.Duration) Option {
	return func(c *Config) error {
		if cache == nil {
			return onto2schema.NewConfigError("Cache", nil, "cache cannot be nil")
		}
		if ttl < 0 {
			return onto2schema.NewConfigError("CacheTTL", ttl, "must not be negative")
		}
		c.Cache, c.CacheTTL = cache, ttl
		return nil
	}
}

// WithStoreID sets the store identity used in cache keys, typically the
// DSN or the fixture path.
func WithStoreID(id string) Option {
	return func(c *Config) error {
		if id == "" {
			return onto2schema.NewConfigError("StoreID", nil, "store id cannot be empty")
		}
		c.StoreID = id
		return nil
	}
}

// WithNaming sets the naming configuration.
func WithNaming(n *naming.Config) Option {
	return func(c *Config) error {
		if n == nil {
			return onto2schema.NewConfigError("Naming", nil, "naming config cannot be nil")
		}
		c.Naming = n
		return nil
	}
}

// WithScope sets the default extraction scope.
func WithScope(s extract.Scope) Option {
	return func(c *Config) error {
		scope, err := extract.ParseScope(string(s))
		if err != nil {
			return onto2schema.NewConfigError("Scope", s, "unknown scope; use shallow or closure")
		}
		c.Scope = scope
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return onto2schema.NewConfigError("Workers", n, "must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithMaxIterations bounds the materializer driver loop.
func WithMaxIterations(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return onto2schema.NewConfigError("MaxIterations", n, "must be positive")
		}
		c.MaxIterations = n
		return nil
	}
}

// WithGenerate appends generation options.
func WithGenerate(opts ...gen.Option) Option {
	return func(c *Config) error {
		c.Generate = append(c.Generate, opts...)
		return nil
	}
}
