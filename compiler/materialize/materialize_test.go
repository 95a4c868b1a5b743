package materialize_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/axiom/loader"
	"github.com/syssam/onto2schema/axiom/memgraph"
	"github.com/syssam/onto2schema/compiler/materialize"
)

const ns = "http://example.org/hr#"

const fixture = `
namespace: http://example.org/hr#
classes:
  - id: Agent
  - id: Person
    subClassOf: Agent
    restrictions:
      - onProperty: hasName
        someValuesFrom: xsd:string
        maxCardinality: 1
      - onProperty: hasSkill
      - onProperty: worksOn
        onClass: Project
        minQualifiedCardinality: 2
  - id: Organization
  - id: Project
  - id: Status
    oneOf: [Active, Retired]
properties:
  - id: hasEmployer
    functional: true
    domain: Person
    range: Organization
    definition: The organization employing a person.
  - id: hasName
    range: xsd:string
  - id: worksOn
    kind: object
  - id: hasNickname
    kind: datatype
    domain: Person
  - id: hasContact
    domain: Person
    range:
      unionOf: [Person, Organization]
  - id: status
    domain: Person
    range: Status
individuals:
  - id: Active
    types: Status
  - id: Retired
    types: Status
`

func load(t *testing.T, src string) *memgraph.Store {
	t.Helper()
	o, err := loader.Parse(strings.NewReader(src))
	require.NoError(t, err)
	s := memgraph.New()
	_, err = o.Load(context.Background(), s)
	require.NoError(t, err)
	return s
}

type edge struct {
	from, typ, to string
	props         axiom.Props
}

// edgesOf returns the edges of type typ, by endpoint URI.
func edgesOf(t *testing.T, s axiom.Store, typ string) []edge {
	t.Helper()
	var out []edge
	err := s.View(context.Background(), func(r axiom.Reader) error {
		es, err := r.Edges(context.Background(), axiom.EdgeQuery{Types: []string{typ}})
		if err != nil {
			return err
		}
		for _, e := range es {
			from, err := r.Node(context.Background(), e.From)
			if err != nil {
				return err
			}
			to, err := r.Node(context.Background(), e.To)
			if err != nil {
				return err
			}
			out = append(out, edge{from.URI(), e.Type, to.URI(), e.Props})
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func count(t *testing.T, s axiom.Store, q axiom.NodeQuery) int {
	t.Helper()
	var n int
	require.NoError(t, s.View(context.Background(), func(r axiom.Reader) error {
		ns, err := r.Nodes(context.Background(), q)
		n = len(ns)
		return err
	}))
	return n
}

// dump renders the whole graph deterministically.
func dump(t *testing.T, s axiom.Store) []string {
	t.Helper()
	var out []string
	require.NoError(t, s.View(context.Background(), func(r axiom.Reader) error {
		ctx := context.Background()
		nodes, err := r.Nodes(ctx, axiom.NodeQuery{})
		if err != nil {
			return err
		}
		for _, n := range nodes {
			out = append(out, fmt.Sprintf("node %v %v", n.Labels, n.Props))
		}
		edges, err := r.Edges(ctx, axiom.EdgeQuery{})
		if err != nil {
			return err
		}
		for _, e := range edges {
			from, _ := r.Node(ctx, e.From)
			to, _ := r.Node(ctx, e.To)
			out = append(out, fmt.Sprintf("edge %s -%s-> %s %v", from.Display(), e.Type, to.Display(), e.Props))
		}
		return nil
	}))
	sort.Strings(out)
	return out
}

func TestDomainRangeFunctional(t *testing.T) {
	s := load(t, fixture)
	m := materialize.New(s)
	report, err := m.Materialize(context.Background(), axiom.ObjectProperty)
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, 3, report.Applied["domainrange_object"])

	es := edgesOf(t, s, "hasEmployer")
	require.Len(t, es, 1)
	e := es[0]
	assert.Equal(t, ns+"Person", e.from)
	assert.Equal(t, ns+"Organization", e.to)
	assert.Equal(t, "0..1", e.props.String(axiom.KeyCardinalityRaw))
	assert.Equal(t, axiom.Optional, e.props.String(axiom.KeyRequirement))
	assert.Equal(t, axiom.InferredDomainRange, e.props.String(axiom.KeyInferredBy))
	assert.Equal(t, "ObjectProperty", e.props.String(axiom.KeyPropertyType))
	assert.Equal(t, "The organization employing a person.", e.props.String(axiom.KeyDefinition))
	assert.Equal(t, ns+"hasEmployer", e.props.String(axiom.KeyURI))
	assert.True(t, e.props.Bool(axiom.KeyMaterialized))

	for _, d := range edgesOf(t, s, axiom.EdgeDomain) {
		assert.NotEqual(t, ns+"hasEmployer", d.from, "consumed domain edge")
	}
	for _, d := range edgesOf(t, s, axiom.EdgeRange) {
		assert.NotEqual(t, ns+"hasEmployer", d.from, "consumed range edge")
	}
}

func TestRestriction(t *testing.T) {
	s := load(t, fixture)
	m := materialize.New(s)
	report, err := m.MaterializeAll(context.Background())
	require.NoError(t, err)

	names := edgesOf(t, s, "hasName")
	require.Len(t, names, 1)
	assert.Equal(t, axiom.NamespaceXSD+"string", names[0].to)
	assert.Equal(t, "1..1", names[0].props.String(axiom.KeyCardinalityRaw))
	assert.Equal(t, axiom.Mandatory, names[0].props.String(axiom.KeyRequirement))
	assert.Equal(t, "DatatypeProperty", names[0].props.String(axiom.KeyPropertyType))
	assert.Equal(t, axiom.InferredRestriction, names[0].props.String(axiom.KeyInferredBy))

	works := edgesOf(t, s, "worksOn")
	require.Len(t, works, 1)
	assert.Equal(t, ns+"Project", works[0].to)
	assert.Equal(t, "2..*", works[0].props.String(axiom.KeyCardinalityRaw))

	// Only the malformed restriction is left.
	assert.Equal(t, 1, count(t, s, axiom.NodeQuery{Labels: []string{axiom.LabelRestriction}}))
	require.NotEmpty(t, report.Skipped)
	for _, err := range report.Skipped {
		assert.True(t, onto2schema.IsMalformedAxiom(err))
		assert.Contains(t, err.Error(), "missing filler")
	}
	// The subclass edge to Agent survives, the ones to restrictions do not.
	sub := edgesOf(t, s, axiom.EdgeSubClassOf)
	require.Len(t, sub, 2)
}

func TestNoRange(t *testing.T) {
	s := load(t, fixture)
	_, err := materialize.New(s).Materialize(context.Background(), axiom.DatatypeProperty)
	require.NoError(t, err)
	es := edgesOf(t, s, "hasNickname")
	require.Len(t, es, 1)
	assert.Equal(t, axiom.UndefinedType, es[0].to)
	assert.Equal(t, axiom.InferredNoRange, es[0].props.String(axiom.KeyInferredBy))
	assert.Equal(t, 1, count(t, s, axiom.NodeQuery{
		Labels: []string{axiom.LabelDatatype},
		Props:  axiom.Props{axiom.KeyLabel: axiom.UndefinedLabel},
	}))
}

func TestUnionOf(t *testing.T) {
	s := load(t, fixture)
	_, err := materialize.New(s).Materialize(context.Background(), axiom.ObjectProperty)
	require.NoError(t, err)
	es := edgesOf(t, s, "hasContact")
	require.Len(t, es, 2)
	targets := []string{es[0].to, es[1].to}
	sort.Strings(targets)
	assert.Equal(t, []string{ns + "Organization", ns + "Person"}, targets)
	for _, e := range es {
		assert.Equal(t, ns+"Person", e.from)
		assert.Equal(t, axiom.InferredUnionOf, e.props.String(axiom.KeyInferredBy))
		assert.Equal(t, "0..*", e.props.String(axiom.KeyCardinalityRaw))
	}
	assert.Empty(t, edgesOf(t, s, axiom.EdgeUnionOf))
	assert.Empty(t, edgesOf(t, s, axiom.EdgeFirst), "list scaffolding removed")
}

func TestDatatypeUnion(t *testing.T) {
	s := load(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
datatypes:
  - id: Identifier
    unionOf: [xsd:string, xsd:integer]
properties:
  - id: code
    domain: Person
    range: Identifier
`)
	_, err := materialize.New(s).Materialize(context.Background(), axiom.DatatypeProperty)
	require.NoError(t, err)
	var union []string
	require.NoError(t, s.View(context.Background(), func(r axiom.Reader) error {
		n, err := axiom.NodeByURI(context.Background(), r, ns+"Identifier")
		if err != nil {
			return err
		}
		union = n.Props.Strings(axiom.KeyUnionOf)
		return nil
	}))
	assert.Equal(t, []string{axiom.NamespaceXSD + "string", axiom.NamespaceXSD + "integer"}, union)
	assert.Empty(t, edgesOf(t, s, axiom.EdgeFirst))
	require.Len(t, edgesOf(t, s, "code"), 1)
}

func TestOneOf(t *testing.T) {
	s := load(t, fixture)
	_, err := materialize.New(s).Materialize(context.Background(), axiom.ObjectProperty)
	require.NoError(t, err)
	members := edgesOf(t, s, axiom.EdgeOneOf)
	require.Len(t, members, 2)
	assert.Equal(t, ns+"Active", members[0].to)
	assert.Equal(t, ns+"Retired", members[1].to)
	assert.Equal(t, axiom.InferredOneOf, members[0].props.String(axiom.KeyInferredBy))
	types := edgesOf(t, s, axiom.EdgeType)
	assert.Len(t, types, 2, "existing rdf__type edges are merged, not duplicated")
	assert.Empty(t, edgesOf(t, s, axiom.EdgeFirst))
}

func TestIdempotence(t *testing.T) {
	s := load(t, fixture)
	m := materialize.New(s)
	_, err := m.MaterializeAll(context.Background())
	require.NoError(t, err)
	once := dump(t, s)

	report, err := m.MaterializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, once, dump(t, s))

	// Reloading the axioms and materializing again converges to the same graph.
	o, err := loader.Parse(strings.NewReader(fixture))
	require.NoError(t, err)
	_, err = o.Load(context.Background(), s)
	require.NoError(t, err)
	_, err = m.MaterializeAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, edgesOf(t, s, "hasEmployer"), 1)
	assert.Len(t, edgesOf(t, s, "hasContact"), 2)
}

func TestOrderIndependence(t *testing.T) {
	forward := load(t, fixture)
	_, err := materialize.New(forward).MaterializeAll(context.Background())
	require.NoError(t, err)

	backward := load(t, fixture)
	m := materialize.New(backward)
	for _, kind := range []axiom.PropertyKind{axiom.DatatypeProperty, axiom.ObjectProperty} {
		rules := materialize.Rules(kind)
		for i, j := 0, len(rules)-1; i < j; i, j = i+1, j-1 {
			rules[i], rules[j] = rules[j], rules[i]
		}
		_, err := m.Run(context.Background(), kind.String(), rules)
		require.NoError(t, err)
	}
	_, err = m.Dedup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dump(t, forward), dump(t, backward))
}

func TestDedup(t *testing.T) {
	ctx := context.Background()
	s := memgraph.New()
	require.NoError(t, s.Update(ctx, "seed", func(tx axiom.Tx) error {
		a, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: ns + "A"})
		if err != nil {
			return err
		}
		b, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: ns + "B"})
		if err != nil {
			return err
		}
		for _, raw := range []string{"1", "0..1", "1..*"} {
			_, _, err := tx.MergeEdge(ctx, "rel", a.ID, b.ID, []string{axiom.KeyCardinalityRaw}, axiom.Props{
				axiom.KeyURI:            ns + "rel",
				axiom.KeyMaterialized:   true,
				axiom.KeyCardinalityRaw: raw,
				axiom.KeyInferredBy:     axiom.InferredRestriction,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))
	report, err := materialize.New(s).Dedup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied["dedup"])
	es := edgesOf(t, s, "rel")
	require.Len(t, es, 1)
	assert.Equal(t, "1", es[0].props.String(axiom.KeyCardinalityRaw), "first edge is kept")
	assert.Equal(t, []string{"0..1", "1..*"}, es[0].props.Strings(axiom.KeyDuplicates))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := materialize.NewMetrics(reg)
	s := load(t, fixture)
	_, err := materialize.New(s, materialize.WithMetrics(metrics)).MaterializeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Rewrites.WithLabelValues("domainrange_object", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Rewrites.WithLabelValues("oneof", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Rewrites.WithLabelValues("restriction_object", "skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("Dedup")))
	assert.Positive(t, testutil.CollectAndCount(metrics.PassDuration))
}

// failingStore fails every batch whose name contains fail.
type failingStore struct {
	axiom.Store
	fail string
}

func (s failingStore) Update(ctx context.Context, batch string, fn func(axiom.Tx) error) error {
	if strings.Contains(batch, s.fail) {
		return onto2schema.NewStoreError(batch, errors.New("disk full"))
	}
	return s.Store.Update(ctx, batch, fn)
}

func TestFailedRuleDoesNotStopRun(t *testing.T) {
	s := load(t, fixture)
	report, err := materialize.New(failingStore{Store: s, fail: "restriction"}).Materialize(context.Background(), axiom.ObjectProperty)
	require.Error(t, err)
	assert.True(t, onto2schema.IsStoreError(err))
	require.Len(t, report.Failed, 1)
	assert.True(t, report.Converged)
	assert.Len(t, edgesOf(t, s, "hasEmployer"), 1, "other rules still ran")
	assert.Empty(t, edgesOf(t, s, "worksOn"))
}

func TestCanceled(t *testing.T) {
	s := load(t, fixture)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := materialize.New(s).MaterializeAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Total())
}

func TestInvalidKind(t *testing.T) {
	_, err := materialize.New(memgraph.New()).Materialize(context.Background(), 0)
	require.Error(t, err)
}
