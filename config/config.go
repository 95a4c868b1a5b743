// Package config reads the YAML configuration of the onto2schema command.
//
// A configuration file is merged over Default, so every section and key is
// optional:
//
//	store:
//	  driver: sqlite            # memory, sqlite, postgres or mysql
//	  dsn: file:axioms.db
//	  fixture: ontology.yaml    # loaded into the store first
//	naming:
//	  prefixes: {hr: "http://example.org/hr#"}
//	  reserved: [type]
//	generate:
//	  package: model
//	  dialect: postgres
//	  targets: [go, sql]
//	  out: ./gen
//	extract:
//	  scope: shallow
//	  workers: 4
//	  labels: [Person]
//
// Values may reference environment variables as ${VAR} or ${VAR:-default}.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/compiler"
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/gen"
	"github.com/syssam/onto2schema/compiler/naming"
	"github.com/syssam/onto2schema/dialect"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = dialect.SQLite
	DriverPostgres = dialect.Postgres
	DriverMySQL    = dialect.MySQL
)

// Config is the command configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Naming   NamingConfig   `yaml:"naming"`
	Generate GenerateConfig `yaml:"generate"`
	Extract  ExtractConfig  `yaml:"extract"`
}

// StoreConfig selects the axiom store.
type StoreConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Fixture string `yaml:"fixture"`
}

// NamingConfig extends the default naming configuration.
type NamingConfig struct {
	Prefixes map[string]string `yaml:"prefixes"`
	Reserved []string          `yaml:"reserved"`
	Acronyms []string          `yaml:"acronyms"`
}

// GenerateConfig controls the rendered artifacts.
type GenerateConfig struct {
	Package string   `yaml:"package"`
	Dialect string   `yaml:"dialect"`
	Targets []string `yaml:"targets"`
	Out     string   `yaml:"out"`
	// Header replaces the generated file header when set.
	Header *string `yaml:"header"`
}

// ExtractConfig controls schema extraction.
type ExtractConfig struct {
	Scope   string   `yaml:"scope"`
	Workers int      `yaml:"workers"`
	Labels  []string `yaml:"labels"`
}

// Default returns the default configuration: an in-memory store and every
// target rendered into ./gen.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: DriverMemory},
		Generate: GenerateConfig{
			Package: "model",
			Dialect: dialect.Postgres,
			Out:     "gen",
		},
		Extract: ExtractConfig{
			Scope:   string(extract.ScopeShallow),
			Workers: extract.DefaultWorkers,
		},
	}
}

// Load reads and validates the configuration file at path. An empty path
// returns the defaults. Relative fixture and output paths are resolved
// against the directory of the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&c.Store.Fixture, &c.Generate.Out} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return c, nil
}

// Parse decodes a configuration over the defaults and validates it.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid value, joined.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, onto2schema.NewConfigError("store.dsn", nil, "required by driver "+c.Store.Driver))
		}
	default:
		errs = append(errs, onto2schema.NewConfigError("store.driver", c.Store.Driver, "use memory, sqlite, postgres or mysql"))
	}
	if _, err := c.Targets(); err != nil {
		errs = append(errs, onto2schema.NewConfigError("generate.targets", c.Generate.Targets, err.Error()))
	}
	if c.Generate.Out == "" {
		errs = append(errs, onto2schema.NewConfigError("generate.out", nil, "output directory cannot be empty"))
	}
	if _, err := extract.ParseScope(c.Extract.Scope); err != nil {
		errs = append(errs, onto2schema.NewConfigError("extract.scope", c.Extract.Scope, "use shallow or closure"))
	}
	if c.Extract.Workers < 1 {
		errs = append(errs, onto2schema.NewConfigError("extract.workers", c.Extract.Workers, "must be positive"))
	}
	for p, ns := range c.Naming.Prefixes {
		if p == "" || ns == "" {
			errs = append(errs, onto2schema.NewConfigError("naming.prefixes", p, "prefix and namespace cannot be empty"))
		}
	}
	// Package and dialect are checked by the generator options.
	if _, err := gen.NewConfig(c.genOptions()...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Targets returns the parsed generation targets; none means all.
func (c *Config) Targets() ([]gen.Target, error) {
	return gen.ParseTargets(c.Generate.Targets)
}

// Scope returns the parsed extraction scope.
func (c *Config) Scope() extract.Scope {
	s, _ := extract.ParseScope(c.Extract.Scope)
	return s
}

// NamingConfig builds the naming configuration.
func (c *Config) NamingConfig() *naming.Config {
	n := c.Naming
	if len(n.Prefixes) == 0 && len(n.Reserved) == 0 && len(n.Acronyms) == 0 {
		return naming.Default
	}
	return naming.New(
		naming.WithPrefixes(n.Prefixes),
		naming.WithReserved(n.Reserved...),
		naming.WithAcronyms(n.Acronyms...),
	)
}

// StoreID identifies the configured store in cache keys.
func (c *Config) StoreID() string {
	switch {
	case c.Store.Driver != DriverMemory:
		return c.Store.Driver + ":" + c.Store.DSN
	case c.Store.Fixture != "":
		return "memory:" + c.Store.Fixture
	default:
		return "memory"
	}
}

// CompilerOptions returns the compiler options of the configuration.
func (c *Config) CompilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithNaming(c.NamingConfig()),
		compiler.WithScope(c.Scope()),
		compiler.WithWorkers(c.Extract.Workers),
		compiler.WithStoreID(c.StoreID()),
		compiler.WithGenerate(c.genOptions()...),
	}
}

func (c *Config) genOptions() []gen.Option {
	opts := []gen.Option{
		gen.WithPackage(c.Generate.Package),
		gen.WithDialect(c.Generate.Dialect),
	}
	if c.Generate.Header != nil {
		opts = append(opts, gen.WithHeader(*c.Generate.Header))
	}
	return opts
}

// ExpandEnv replaces ${VAR} and ${VAR:-default} references with the value
// of the environment variable, or the default when it is unset or empty.
func ExpandEnv(s string) string {
	return os.Expand(s, func(ref string) string {
		name, def, ok := strings.Cut(ref, ":-")
		if v := os.Getenv(name); v != "" || !ok {
			return v
		}
		return def
	})
}
