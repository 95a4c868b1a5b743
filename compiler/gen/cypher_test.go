package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCypherConstraints(t *testing.T) {
	a, err := Generate(hrSchema(), GraphConstraints)
	require.NoError(t, err)
	out := string(a.Content)

	var constraints []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "CREATE CONSTRAINT") {
			constraints = append(constraints, line)
		}
	}
	// Only the required data property; the required label is metadata.
	assert.Equal(t, []string{
		"CREATE CONSTRAINT person_name_exists IF NOT EXISTS FOR (n:Person) REQUIRE n.name IS NOT NULL;",
	}, constraints)
	assert.NotContains(t, out, "UNIQUE")

	assert.Contains(t, out, "// (:Person)-[:WORKS_ON]->(:Project) is mandatory (1..*)")
	assert.Contains(t, out, "// (:Person)-[:STATUS]->(:Status) is mandatory (1)")
	assert.NotContains(t, out, "EMPLOYER")
	assert.Contains(t, out, "// Status is an enumeration: ACTIVE, ON_LEAVE")
	assert.Contains(t, out, "// Person: A human being.")
}

func TestCypherDescriptions(t *testing.T) {
	a, err := Generate(hrSchema(), GraphConstraints)
	require.NoError(t, err)
	out := string(a.Content)
	assert.Contains(t, out, "// Person.name: Full name.\n")
	assert.Contains(t, out, "// (:Person)-[:WORKS_ON]->(:Project): Assigned projects.\n")
	assert.Contains(t, out, "// Status: Employment status.\n")
	assert.Contains(t, out, "// ON_LEAVE: Temporarily away.\n")
}

func TestCypherMetadataByURI(t *testing.T) {
	s := hrSchema()
	p := s.Node("Person").Properties[0]
	p.Name, p.URI = "title", "http://www.w3.org/2004/02/skos/core#definition"
	a, err := Generate(s, GraphConstraints)
	require.NoError(t, err)
	assert.NotContains(t, string(a.Content), "CREATE CONSTRAINT")
}
