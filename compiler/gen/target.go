package gen

import (
	"fmt"
	"strings"
)

// Target names an artifact kind.
type Target string

// Targets.
const (
	TypedClasses     Target = "go"
	RelationalDDL    Target = "sql"
	GraphConstraints Target = "cypher"
	SchemaDoc        Target = "markdown"
	GraphQLSchema    Target = "graphql"
)

// Targets lists every target in generation order.
var Targets = []Target{TypedClasses, RelationalDDL, GraphConstraints, SchemaDoc, GraphQLSchema}

var targetAliases = map[string]Target{
	"go":               TypedClasses,
	"golang":           TypedClasses,
	"typedclasses":     TypedClasses,
	"sql":              RelationalDDL,
	"ddl":              RelationalDDL,
	"relationalddl":    RelationalDDL,
	"cypher":           GraphConstraints,
	"graphconstraints": GraphConstraints,
	"markdown":         SchemaDoc,
	"md":               SchemaDoc,
	"schemadoc":        SchemaDoc,
	"graphql":          GraphQLSchema,
	"gql":              GraphQLSchema,
	"graphqlschema":    GraphQLSchema,
}

// ParseTarget returns the target named s. Long names such as
// "RelationalDDL" are accepted in any case.
func ParseTarget(s string) (Target, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	if t, ok := targetAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTarget, s)
}

// ParseTargets parses a list of target names. An empty list means every
// target.
func ParseTargets(names []string) ([]Target, error) {
	if len(names) == 0 {
		return Targets, nil
	}
	var (
		out  []Target
		seen = map[Target]bool{}
	)
	for _, n := range names {
		t, err := ParseTarget(n)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// FileName returns the name of the file the target is written to.
func (t Target) FileName() string {
	switch t {
	case TypedClasses:
		return "model.go"
	case RelationalDDL:
		return "schema.sql"
	case GraphConstraints:
		return "constraints.cypher"
	case SchemaDoc:
		return "schema.md"
	case GraphQLSchema:
		return "schema.graphql"
	default:
		return string(t)
	}
}

func (t Target) String() string { return string(t) }
