package compiler_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/axiom/loader"
	"github.com/syssam/onto2schema/axiom/memgraph"
	"github.com/syssam/onto2schema/compiler"
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/gen"
)

const hr = `
namespace: http://example.org/hr#
classes:
  - id: Person
    definition: A human being.
    restrictions:
      - onProperty: hasName
        someValuesFrom: xsd:string
        cardinality: 1
  - id: Organization
  - id: Status
    oneOf: [Active, Retired]
properties:
  - id: hasName
    kind: datatype
  - id: hasEmployer
    functional: true
    domain: Person
    range: Organization
  - id: status
    domain: Person
    range: Status
individuals:
  - id: Active
    types: Status
  - id: Retired
    types: Status
`

func open(t *testing.T) axiom.Store {
	t.Helper()
	o, err := loader.Parse(strings.NewReader(hr))
	require.NoError(t, err)
	s := memgraph.New()
	t.Cleanup(func() { s.Close() })
	_, err = o.Load(context.Background(), s)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	_, err := compiler.New(nil)
	assert.True(t, onto2schema.IsConfigError(err))

	tests := map[string]compiler.Option{
		"workers":    compiler.WithWorkers(0),
		"iterations": compiler.WithMaxIterations(-1),
		"scope":      compiler.WithScope("deep"),
		"store id":   compiler.WithStoreID(""),
		"logger":     compiler.WithLogger(nil),
		"naming":     compiler.WithNaming(nil),
		"cache":      compiler.WithCache(nil, 0),
		"metrics":    compiler.WithMetrics(nil),
	}
	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := compiler.New(memgraph.New(), opt)
			require.Error(t, err)
			assert.True(t, onto2schema.IsConfigError(err))
		})
	}

	c, err := compiler.New(memgraph.New(), compiler.WithScope("closure"), compiler.WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, extract.ScopeClosure, c.Config().Scope)
	assert.Equal(t, 2, c.Config().Workers)
	assert.Equal(t, "default", c.Config().StoreID)
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	c, err := compiler.New(open(t), compiler.WithGenerate(gen.WithPackage("hr")))
	require.NoError(t, err)

	report, err := c.MaterializeAll(ctx)
	require.NoError(t, err)
	assert.Positive(t, report.Total())

	s, err := c.ExtractDataModel(ctx, []string{"Person"}, "")
	require.NoError(t, err)
	require.NotNil(t, s.Node("Person"))
	assert.True(t, s.IsEnum("Status"))

	artifacts, err := c.GenerateAll(ctx, s)
	require.NoError(t, err)
	require.Len(t, artifacts, len(gen.Targets))
	assert.Contains(t, string(artifacts[0].Content), "package hr")
	assert.Contains(t, string(artifacts[0].Content), "StatusActive")

	a, err := c.Generate(s, gen.GraphConstraints)
	require.NoError(t, err)
	assert.Contains(t, string(a.Content), "person_has_name_exists")
}

func TestExtractMissingLabel(t *testing.T) {
	ctx := context.Background()
	cache := onto2schema.NewMemoryCache()
	c, err := compiler.New(open(t), compiler.WithCache(cache, 0))
	require.NoError(t, err)
	_, err = c.MaterializeAll(ctx)
	require.NoError(t, err)

	s, err := c.ExtractDataModel(ctx, []string{"Person", "Ghost"}, "")
	require.Error(t, err)
	assert.True(t, onto2schema.IsMissingNode(err))
	require.NotNil(t, s)
	assert.NotNil(t, s.Node("Person"))
	assert.Zero(t, cache.Len(), "partial results are not cached")
}

func TestExtractCache(t *testing.T) {
	ctx := context.Background()
	cache := onto2schema.NewMemoryCache()
	c, err := compiler.New(open(t), compiler.WithCache(cache, 0), compiler.WithStoreID("hr.yaml"))
	require.NoError(t, err)
	_, err = c.MaterializeAll(ctx)
	require.NoError(t, err)

	first, err := c.ExtractDataModel(ctx, []string{"Person"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
	key := onto2schema.CacheKey{Store: "hr.yaml", Labels: []string{"Person"}, Scope: "shallow"}.String()
	data, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, data)

	second, err := c.ExtractDataModel(ctx, []string{"Person"}, extract.ScopeShallow)
	require.NoError(t, err)
	assert.Equal(t, first.Labels(), second.Labels())
	assert.Len(t, second.Relationships, len(first.Relationships))
	assert.Equal(t, 1, cache.Len())

	// Any materialization may change the extracted schema.
	_, err = c.Dedup(ctx)
	require.NoError(t, err)
	assert.Zero(t, cache.Len())

	require.NoError(t, cache.Set(ctx, key, []byte("garbage"), 0))
	s, err := c.ExtractDataModel(ctx, []string{"Person"}, "")
	require.NoError(t, err)
	assert.Equal(t, first.Labels(), s.Labels())
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := compiler.New(open(t), compiler.WithMetrics(reg))
	require.NoError(t, err)
	_, err = c.Materialize(ctx, axiom.ObjectProperty)
	require.NoError(t, err)
	s, _ := c.ExtractDataModel(ctx, nil, "")
	require.NotNil(t, s)

	n, err := testutil.GatherAndCount(reg, "onto2schema_materialize_runs_total", "onto2schema_extract_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
