package extract_test

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
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/materialize"
)

const hr = `
namespace: http://example.org/hr#
classes:
  - id: Agent
    definition: Something that acts.
  - id: Person
    subClassOf: Agent
    restrictions:
      - onProperty: hasName
        someValuesFrom: xsd:string
        maxCardinality: 1
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
  - id: hasName
    range: xsd:string
  - id: worksOn
    kind: object
  - id: hasNickname
    kind: datatype
    domain: Person
  - id: hasEmail
    domain: Agent
    range: xsd:string
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

func materialized(t *testing.T, src string) axiom.Store {
	t.Helper()
	o, err := loader.Parse(strings.NewReader(src))
	require.NoError(t, err)
	s := memgraph.New()
	_, err = o.Load(context.Background(), s)
	require.NoError(t, err)
	_, err = materialize.New(s).MaterializeAll(context.Background())
	require.NoError(t, err)
	return s
}

func rel(s *ir.Schema, start, typ, end string) *ir.Relationship {
	for _, r := range s.Relationships {
		if r.StartLabel == start && r.Type == typ && r.EndLabel == end {
			return r
		}
	}
	return nil
}

func prop(n *ir.Node, name string) *ir.Property {
	for _, p := range n.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func TestExtractPerson(t *testing.T) {
	s := materialized(t, hr)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Person"}, "")
	require.NoError(t, err)
	require.NoError(t, schema.Validate())

	assert.Equal(t, []string{"Agent", "Organization", "Person", "Project", "Status", "Active", "Retired"}, schema.Labels())

	person := schema.Node("Person")
	require.NotNil(t, person)
	assert.Equal(t, "http://example.org/hr#Person", person.URI)
	assert.Equal(t, []string{"Agent"}, person.Parents)
	assert.False(t, person.Enum)

	name := prop(person, "hasName")
	require.NotNil(t, name)
	assert.Equal(t, ir.Exactly1, name.Cardinality)
	assert.True(t, name.Mandatory)
	assert.Equal(t, "string", name.Type)

	nick := prop(person, "hasNickname")
	require.NotNil(t, nick)
	assert.Equal(t, ir.ZeroOrMany, nick.Cardinality)
	assert.Equal(t, axiom.UndefinedLabel, nick.Type)

	email := prop(person, "hasEmail")
	require.NotNil(t, email, "inherited from Agent")
	assert.Equal(t, ir.ZeroOrMany, email.Cardinality)

	employer := rel(schema, "Person", "hasEmployer", "Organization")
	require.NotNil(t, employer)
	assert.Equal(t, ir.ZeroOrOne, employer.Cardinality)
	assert.Equal(t, ir.Optional, employer.Requirement)
	assert.Equal(t, axiom.ObjectProperty, employer.Kind)
	assert.Equal(t, axiom.InferredDomainRange, employer.InferredBy)

	works := rel(schema, "Person", "worksOn", "Project")
	require.NotNil(t, works)
	assert.Equal(t, ir.OneOrMany, works.Cardinality)
	assert.Equal(t, ir.Mandatory, works.Requirement)

	assert.NotNil(t, rel(schema, "Person", "hasContact", "Person"))
	assert.NotNil(t, rel(schema, "Person", "hasContact", "Organization"))
	assert.NotNil(t, rel(schema, "Person", "status", "Status"))

	agent := schema.Node("Agent")
	require.NotNil(t, agent)
	assert.Equal(t, "Something that acts.", agent.Description)
	assert.NotNil(t, prop(agent, "hasEmail"))
	assert.Nil(t, prop(agent, "hasName"))

	// Reference nodes carry no properties in the shallow scope.
	assert.Empty(t, schema.Node("Organization").Properties)
}

func TestFunctionalScenario(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: Organization
properties:
  - id: hasEmployer
    functional: true
    domain: Person
    range: Organization
`)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Person"}, extract.ScopeShallow)
	require.NoError(t, err)
	require.Len(t, schema.Relationships, 1)
	r := schema.Relationships[0]
	assert.Equal(t, "hasEmployer", r.Type)
	assert.Equal(t, "Person", r.StartLabel)
	assert.Equal(t, "Organization", r.EndLabel)
	assert.Equal(t, ir.ZeroOrOne, r.Cardinality)
}

func TestInstancesOfRelatedClasses(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: Organization
  - id: Project
properties:
  - id: hasEmployer
    functional: true
    domain: Person
    range: Organization
  - id: sponsor
    domain: Organization
    range: Project
individuals:
  - id: Alice
    types: Person
  - id: Acme
    types: Organization
`)
	for _, scope := range []extract.Scope{extract.ScopeShallow, extract.ScopeClosure} {
		schema, err := extract.New(s).Extract(context.Background(), []string{"Person"}, scope)
		require.NoError(t, err, scope)
		assert.False(t, schema.IsEnum("Person"), scope)
		assert.False(t, schema.IsEnum("Organization"), "%s: Organization relates to Project", scope)
		assert.Empty(t, schema.Members("Person"), scope)
		assert.Nil(t, schema.Node("Alice"), scope)

		employer := rel(schema, "Person", "hasEmployer", "Organization")
		require.NotNil(t, employer, scope)
		assert.Equal(t, ir.ZeroOrOne, employer.Cardinality)
		require.NoError(t, schema.Validate())
	}
}

func TestEnumDetection(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Status
  - id: Color
individuals:
  - id: Active
    types: Status
  - id: Retired
    types: Status
  - id: Suspended
    types: Status
  - id: Red
    types: Color
`)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Status"}, "")
	require.NoError(t, err)
	assert.True(t, schema.IsEnum("Status"))
	members := schema.Members("Status")
	require.Len(t, members, 3)
	assert.Equal(t, []string{"Active", "Retired", "Suspended"}, []string{members[0].Label, members[1].Label, members[2].Label})
	for _, m := range members {
		assert.Equal(t, ir.KindEnumMember, m.Kind)
	}
	assert.Nil(t, schema.Node("Red"))
	assert.Nil(t, schema.Node("Color"))
}

func TestEnumDropsProperties(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: Status
properties:
  - id: status
    domain: Person
    range: Status
  - id: code
    domain: Status
    range: xsd:string
individuals:
  - id: Active
    types: Status
`)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Person", "Status"}, "")
	require.NoError(t, err)
	status := schema.Node("Status")
	require.NotNil(t, status)
	assert.True(t, status.Enum, "targeted class with instances")
	assert.Empty(t, status.Properties)
	assert.Len(t, schema.Members("Status"), 1)
}

func TestNoDanglingEndpoints(t *testing.T) {
	s := materialized(t, hr)
	for _, scope := range []extract.Scope{extract.ScopeShallow, extract.ScopeClosure} {
		for _, labels := range [][]string{nil, {"Person"}, {"Agent"}, {"Status"}} {
			schema, err := extract.New(s, extract.WithWorkers(2)).Extract(context.Background(), labels, scope)
			require.NoError(t, err)
			nodes := map[string]bool{}
			for _, l := range schema.Labels() {
				nodes[l] = true
			}
			for _, r := range schema.Relationships {
				assert.True(t, nodes[r.StartLabel], "%s %v: start %s", scope, labels, r.StartLabel)
				assert.True(t, nodes[r.EndLabel], "%s %v: end %s", scope, labels, r.EndLabel)
			}
		}
	}
}

func TestClosure(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: Organization
  - id: Address
properties:
  - id: hasEmployer
    domain: Person
    range: Organization
  - id: locatedAt
    domain: Organization
    range: Address
  - id: street
    domain: Address
    range: xsd:string
`)
	shallow, err := extract.New(s).Extract(context.Background(), []string{"Person"}, extract.ScopeShallow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Organization", "Person"}, shallow.Labels())

	closure, err := extract.New(s).Extract(context.Background(), []string{"Person"}, extract.ScopeClosure)
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "Organization", "Person"}, closure.Labels())
	assert.NotNil(t, prop(closure.Node("Address"), "street"))
	assert.NotNil(t, rel(closure, "Organization", "locatedAt", "Address"))
}

func TestMissingAndAmbiguous(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: Party
    label: Person
  - id: Organization
`)
	reg := prometheus.NewRegistry()
	metrics := extract.NewMetrics(reg)
	x := extract.New(s, extract.WithMetrics(metrics))

	schema, err := x.Extract(context.Background(), []string{"Organization", "Unicorn", "Person"}, "")
	require.Error(t, err)
	require.NotNil(t, schema, "partial result")
	assert.True(t, onto2schema.IsMissingNode(err))
	assert.True(t, onto2schema.IsAmbiguousLabel(err))
	assert.Equal(t, []string{"Organization"}, schema.Labels())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Classes.WithLabelValues("missing")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Classes.WithLabelValues("ambiguous")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Classes.WithLabelValues("extracted")))

	// URIs and case-insensitive labels resolve too.
	schema, err = x.Extract(context.Background(), []string{"http://example.org/hr#Party", "organization"}, "")
	require.NoError(t, err)
	assert.Len(t, schema.Nodes, 2)
}

func TestDuplicateLabels(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Person
  - id: http://xmlns.com/foaf/0.1/Person
    label: Person
  - id: Team
properties:
  - id: lead
    domain: Team
    range: Person
  - id: member
    domain: Team
    range: http://xmlns.com/foaf/0.1/Person
`)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Team"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "Person 2", "Team"}, schema.Labels())
	assert.NotNil(t, rel(schema, "Team", "lead", "Person"))
	assert.NotNil(t, rel(schema, "Team", "member", "Person 2"))
}

func TestCardinalityMerging(t *testing.T) {
	s := materialized(t, `
namespace: http://example.org/hr#
classes:
  - id: Agent
    restrictions:
      - onProperty: hasName
        someValuesFrom: xsd:string
  - id: Person
    subClassOf: Agent
    restrictions:
      - onProperty: hasName
        someValuesFrom: xsd:string
        maxCardinality: 1
  - id: Robot
    restrictions:
      - onProperty: serial
        cardinality: 1
properties:
  - id: hasName
    domain: Agent
    range: xsd:string
  - id: serial
    domain: Robot
    range: xsd:string
`)
	schema, err := extract.New(s).Extract(context.Background(), []string{"Person", "Robot"}, "")
	require.NoError(t, err)

	// Person sees two restrictions on hasName, its own and Agent's.
	assert.Equal(t, ir.ZeroOrMany, prop(schema.Node("Person"), "hasName").Cardinality)
	// Agent's restriction overrides its domain-range default.
	assert.Equal(t, ir.OneOrMany, prop(schema.Node("Agent"), "hasName").Cardinality)
	assert.Equal(t, ir.Exactly1, prop(schema.Node("Robot"), "serial").Cardinality)
}

func TestUnsupportedCardinality(t *testing.T) {
	ctx := context.Background()
	s := memgraph.New()
	require.NoError(t, s.Update(ctx, "seed", func(tx axiom.Tx) error {
		a, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:x:A", axiom.KeyLabel: "A"})
		if err != nil {
			return err
		}
		str, err := tx.CreateNode(ctx, []string{axiom.LabelDatatype}, axiom.Props{axiom.KeyURI: axiom.NamespaceXSD + "string", axiom.KeyLabel: "string"})
		if err != nil {
			return err
		}
		_, _, err = tx.MergeEdge(ctx, "code", a.ID, str.ID, nil, axiom.Props{
			axiom.KeyMaterialized:   true,
			axiom.KeyCardinalityRaw: "3..2",
			axiom.KeyInferredBy:     axiom.InferredRestriction,
		})
		return err
	}))
	schema, err := extract.New(s).Extract(ctx, nil, "")
	require.Error(t, err)
	assert.True(t, onto2schema.IsUnsupportedCardinality(err))
	require.NotNil(t, schema)
	assert.Equal(t, ir.ZeroOrMany, prop(schema.Node("A"), "code").Cardinality)
}

func TestParseScope(t *testing.T) {
	s, err := extract.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, extract.ScopeShallow, s)
	s, err = extract.ParseScope("Closure")
	require.NoError(t, err)
	assert.Equal(t, extract.ScopeClosure, s)
	_, err = extract.ParseScope("deep")
	require.Error(t, err)
	_, err = extract.New(memgraph.New()).Extract(context.Background(), nil, "deep")
	require.Error(t, err)
}
