package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/ir"
)

const ex = "http://example.org/hr#"

// hrSchema is a small schema touching every rendering rule: required,
// optional and collection properties, a required collection relationship,
// an enumeration target and a reference cycle.
func hrSchema() *ir.Schema {
	return &ir.Schema{
		Nodes: []*ir.Node{
			{Label: "Agent", URI: ex + "Agent", Kind: ir.KindClass},
			{Label: "Organization", URI: ex + "Organization", Kind: ir.KindClass, Parents: []string{"Agent"}},
			{
				Label:       "Person",
				URI:         ex + "Person",
				Kind:        ir.KindClass,
				Description: "A human being.",
				Parents:     []string{"Agent"},
				Properties: []*ir.Property{
					{Name: "name", Type: "xsd:string", Mandatory: true, Cardinality: ir.Exactly1, Description: "Full name."},
					{Name: "nickname", Type: "xsd:string", Cardinality: ir.ZeroOrOne},
					{Name: "birthDate", Type: "xsd:date", Cardinality: ir.ZeroOrOne},
					{Name: "tags", Type: "xsd:string", Cardinality: ir.ZeroOrMany},
					{Name: "label", Type: "xsd:string", Mandatory: true, Cardinality: ir.Exactly1},
				},
			},
			{Label: "Project", URI: ex + "Project", Kind: ir.KindClass},
			{Label: "Status", URI: ex + "Status", Kind: ir.KindClass, Enum: true, Description: "Employment status."},
			{Label: "Active", URI: ex + "Active", Kind: ir.KindEnumMember, Owner: "Status"},
			{Label: "On Leave", URI: ex + "OnLeave", Kind: ir.KindEnumMember, Owner: "Status", Description: "Temporarily away."},
		},
		Relationships: []*ir.Relationship{
			{Type: "ceo", StartLabel: "Organization", EndLabel: "Person", Cardinality: ir.ZeroOrOne, Requirement: ir.Optional, Kind: axiom.ObjectProperty},
			{Type: "employer", StartLabel: "Person", EndLabel: "Organization", Cardinality: ir.ZeroOrOne, Requirement: ir.Optional, Kind: axiom.ObjectProperty},
			{Type: "status", StartLabel: "Person", EndLabel: "Status", Cardinality: ir.Exactly1, Requirement: ir.Mandatory, Kind: axiom.ObjectProperty},
			{Type: "worksOn", StartLabel: "Person", EndLabel: "Project", Cardinality: ir.OneOrMany, Requirement: ir.Mandatory, Kind: axiom.ObjectProperty, Description: "Assigned projects."},
		},
	}
}

func TestParseTarget(t *testing.T) {
	tests := map[string]Target{
		"go":                TypedClasses,
		"TypedClasses":      TypedClasses,
		"RelationalDDL":     RelationalDDL,
		"sql":               RelationalDDL,
		"graph-constraints": GraphConstraints,
		"SchemaDoc":         SchemaDoc,
		"md":                SchemaDoc,
		"GraphQL":           GraphQLSchema,
	}
	for in, want := range tests {
		got, err := ParseTarget(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTarget("protobuf")
	require.ErrorIs(t, err, ErrUnknownTarget)

	all, err := ParseTargets(nil)
	require.NoError(t, err)
	assert.Equal(t, Targets, all)
	some, err := ParseTargets([]string{"sql", "ddl", "go"})
	require.NoError(t, err)
	assert.Equal(t, []Target{RelationalDDL, TypedClasses}, some)
}

func TestGenerate(t *testing.T) {
	for _, target := range Targets {
		t.Run(string(target), func(t *testing.T) {
			a, err := Generate(hrSchema(), target)
			require.NoError(t, err)
			assert.Equal(t, target, a.Target)
			assert.Equal(t, target.FileName(), a.Name)
			assert.NotEmpty(t, a.Content)
			assert.Contains(t, string(a.Content), DefaultHeader)
			assert.Empty(t, a.Warnings)
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	for _, target := range Targets {
		a1, err := Generate(hrSchema(), target)
		require.NoError(t, err)
		a2, err := Generate(hrSchema(), target)
		require.NoError(t, err)
		assert.Equal(t, string(a1.Content), string(a2.Content), target)
	}
}

func TestGenerateInvalidSchema(t *testing.T) {
	s := hrSchema()
	s.Relationships = append(s.Relationships, &ir.Relationship{
		Type: "dangling", StartLabel: "Person", EndLabel: "Ghost", Cardinality: ir.ZeroOrOne, Requirement: ir.Optional,
	})
	_, err := Generate(s, TypedClasses)
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.True(t, onto2schema.IsValidationError(err))
}

func TestGenerateUnsupportedCardinality(t *testing.T) {
	s := hrSchema()
	s.Node("Person").Properties[1].Cardinality = "3..2"
	a, err := Generate(s, GraphQLSchema)
	require.NoError(t, err)
	require.Len(t, a.Warnings, 1)
	assert.True(t, onto2schema.IsUnsupportedCardinality(a.Warnings[0]))
	// Rendered as ZeroOrMany.
	assert.Contains(t, string(a.Content), "nickname: [String!]")
}

func TestGenerateOptions(t *testing.T) {
	_, err := Generate(hrSchema(), TypedClasses, WithPackage("func"))
	require.Error(t, err)
	assert.True(t, onto2schema.IsConfigError(err))

	_, err = Generate(hrSchema(), RelationalDDL, WithDialect("oracle"))
	assert.True(t, onto2schema.IsConfigError(err))

	c, err := NewConfig()
	require.NoError(t, err)
	err = c.ApplyAll(WithWorkers(0), WithNaming(nil), WithHeader("x"))
	require.Error(t, err)
	assert.Equal(t, "x", c.Header)

	a, err := Generate(hrSchema(), SchemaDoc, WithHeader(""))
	require.NoError(t, err)
	assert.NotContains(t, string(a.Content), DefaultHeader)
}

func TestGenerateAll(t *testing.T) {
	Register("broken", EmitterFunc(func(*View, *Config) ([]byte, error) {
		return nil, assert.AnError
	}))
	t.Cleanup(func() {
		emittersMu.Lock()
		delete(emitters, "broken")
		emittersMu.Unlock()
	})
	artifacts, err := GenerateAll(context.Background(), hrSchema(), []Target{TypedClasses, "broken", SchemaDoc}, WithWorkers(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	require.Len(t, artifacts, 2)
	assert.Equal(t, TypedClasses, artifacts[0].Target)
	assert.Equal(t, SchemaDoc, artifacts[1].Target)

	artifacts, err = GenerateAll(context.Background(), hrSchema(), nil)
	require.NoError(t, err)
	assert.Len(t, artifacts, len(Targets))
}

func TestGenerateAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	artifacts, err := GenerateAll(ctx, hrSchema(), Targets)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, artifacts)
}
