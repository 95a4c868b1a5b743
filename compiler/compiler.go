// Package compiler turns an ontology held in an axiom store into schema
// artifacts. It ties the stages together:
//
//	axiom.Store → Materialize/Dedup → ExtractDataModel → Generate
//
// Materialization rewrites the store; extraction reads one snapshot of it
// and may be cached; generation renders the extracted schema into any
// number of targets.
package compiler

import (
	"context"
	"errors"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/gen"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/materialize"
)

// Compiler runs the pipeline against one store. It is safe for concurrent
// use; materializations are serialized.
type Compiler struct {
	store        axiom.Store
	config       *Config
	materializer *materialize.Materializer
	extractor    *extract.Extractor
}

// New returns a Compiler for store.
func New(store axiom.Store, opts ...Option) (*Compiler, error) {
	if store == nil {
		return nil, onto2schema.NewConfigError("Store", nil, "store cannot be nil")
	}
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	mopts := []materialize.Option{materialize.WithLogger(c.Logger)}
	xopts := []extract.Option{
		extract.WithLogger(c.Logger),
		extract.WithWorkers(c.Workers),
		extract.WithScope(c.Scope),
		extract.WithNaming(c.Naming),
	}
	if c.MaxIterations > 0 {
		mopts = append(mopts, materialize.WithMaxIterations(c.MaxIterations))
	}
	if c.Registerer != nil {
		mopts = append(mopts, materialize.WithMetrics(materialize.NewMetrics(c.Registerer)))
		xopts = append(xopts, extract.WithMetrics(extract.NewMetrics(c.Registerer)))
	}
	return &Compiler{
		store:        store,
		config:       c,
		materializer: materialize.New(store, mopts...),
		extractor:    extract.New(store, xopts...),
	}, nil
}

// Config returns the compiler configuration.
func (c *Compiler) Config() *Config { return c.config }

// Store returns the axiom store the compiler works on.
func (c *Compiler) Store() axiom.Store { return c.store }

// Materialize runs the materialization pass of one property kind.
func (c *Compiler) Materialize(ctx context.Context, kind axiom.PropertyKind) (*materialize.Report, error) {
	defer c.invalidate(ctx)
	return c.materializer.Materialize(ctx, kind)
}

// Dedup collapses duplicated materialized relationships.
func (c *Compiler) Dedup(ctx context.Context) (*materialize.Report, error) {
	defer c.invalidate(ctx)
	return c.materializer.Dedup(ctx)
}

// MaterializeAll runs both passes followed by Dedup.
func (c *Compiler) MaterializeAll(ctx context.Context) (*materialize.Report, error) {
	defer c.invalidate(ctx)
	return c.materializer.MaterializeAll(ctx)
}

// ExtractDataModel returns the schema of the classes named by labels, or of
// every class when labels is empty. An empty scope means the configured
// default. Like extract.Extractor.Extract, a non nil schema may come with
// an error joining the per label problems; only complete results are
// cached.
func (c *Compiler) ExtractDataModel(ctx context.Context, labels []string, scope extract.Scope) (*ir.Schema, error) {
	if scope == "" {
		scope = c.config.Scope
	}
	key := onto2schema.CacheKey{Store: c.config.StoreID, Labels: labels, Scope: string(scope)}.String()
	if s := c.cached(ctx, key); s != nil {
		return s, nil
	}
	s, err := c.extractor.Extract(ctx, labels, scope)
	if err != nil || s == nil {
		return s, err
	}
	c.put(ctx, key, s)
	return s, nil
}

// Generate renders one target of s.
func (c *Compiler) Generate(s *ir.Schema, t gen.Target) (*gen.Artifact, error) {
	return gen.Generate(s, t, c.genOptions()...)
}

// GenerateAll renders targets of s concurrently; no targets means all.
func (c *Compiler) GenerateAll(ctx context.Context, s *ir.Schema, targets ...gen.Target) ([]*gen.Artifact, error) {
	if len(targets) == 0 {
		targets = gen.Targets
	}
	return gen.GenerateAll(ctx, s, targets, c.genOptions()...)
}

// Invalidate drops the cached extractions of the store.
func (c *Compiler) Invalidate(ctx context.Context) error {
	if c.config.Cache == nil {
		return nil
	}
	return c.config.Cache.DeletePrefix(ctx, onto2schema.CacheKey{Store: c.config.StoreID}.Prefix())
}

func (c *Compiler) genOptions() []gen.Option {
	opts := []gen.Option{gen.WithNaming(c.config.Naming), gen.WithWorkers(c.config.Workers)}
	return append(opts, c.config.Generate...)
}

func (c *Compiler) invalidate(ctx context.Context) {
	// The store changed even when the run was interrupted.
	if err := c.Invalidate(context.WithoutCancel(ctx)); err != nil {
		c.config.Logger.WarnContext(ctx, "cache invalidation failed", "store", c.config.StoreID, "error", err)
	}
}

func (c *Compiler) cached(ctx context.Context, key string) *ir.Schema {
	if c.config.Cache == nil {
		return nil
	}
	data, err := c.config.Cache.Get(ctx, key)
	if err != nil {
		c.config.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return nil
	}
	if data == nil {
		return nil
	}
	s, err := ir.Decode(data)
	if err != nil {
		c.config.Logger.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		_ = c.config.Cache.Delete(ctx, key)
		return nil
	}
	c.config.Logger.DebugContext(ctx, "extraction served from cache", "key", key)
	return s
}

func (c *Compiler) put(ctx context.Context, key string, s *ir.Schema) {
	if c.config.Cache == nil {
		return
	}
	data, err := s.Encode()
	if err == nil {
		err = c.config.Cache.Set(ctx, key, data, c.config.CacheTTL)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.config.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}
