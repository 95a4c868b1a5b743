package gen

import (
	"errors"
	"go/token"
	"runtime"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/compiler/naming"
	"github.com/syssam/onto2schema/dialect"
)

// DefaultHeader is written at the top of every generated artifact.
const DefaultHeader = "Code generated by onto2schema. DO NOT EDIT."

// Config holds the global generation options.
type Config struct {
	// Package is the Go package name of the typed classes.
	Package string
	// Dialect is the SQL dialect of the relational DDL.
	Dialect string
	// Header is the comment written at the top of each artifact.
	Header string
	// Naming allocates identifiers. Defaults to naming.Default.
	Naming *naming.Config
	// Workers bounds the number of artifacts rendered or written at once.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Package: "model",
		Dialect: dialect.Postgres,
		Header:  DefaultHeader,
		Naming:  naming.Default,
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the Go package name of the typed classes.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return onto2schema.NewConfigError("Package", nil, "package cannot be empty")
		}
		if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
			return onto2schema.NewConfigError("Package", pkg, "not a valid Go package name")
		}
		c.Package = pkg
		return nil
	}
}

// WithDialect sets the SQL dialect of the relational DDL.
// Supported dialects: "postgres", "mysql", "sqlite".
func WithDialect(name string) Option {
	return func(c *Config) error {
		if !dialect.Valid(name) {
			return onto2schema.NewConfigError("Dialect", name, "unsupported dialect; use postgres, mysql, or sqlite")
		}
		c.Dialect = name
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

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
