package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	a, err := Generate(hrSchema(), SchemaDoc)
	require.NoError(t, err)
	out := string(a.Content)

	assert.Contains(t, out, "# Schema\n")
	assert.Contains(t, out, "- [Person](#person)\n")
	assert.Contains(t, out, "## Enumerations\n\n- [Status](#status)\n")
	assert.Contains(t, out, "## Person\n\nA human being.\n\nURI: <"+ex+"Person>\n\nExtends: [Agent](#agent)\n")
	assert.Contains(t, out, "| `name` | String | Exactly1 | yes | Full name. |")
	assert.Contains(t, out, "| `nickname` | String | ZeroOrOne | no |  |")
	assert.Contains(t, out, "| `tags` | String | ZeroOrMany | no |  |")
	assert.Contains(t, out, "| `works_on` | [Project](#project) | OneOrMany | Mandatory | Assigned projects. |")
	assert.Contains(t, out, "| `ON_LEAVE` | On Leave | Temporarily away. |")
	// Enumerations are documented as member lists, never as classes.
	assert.Equal(t, 1, strings.Count(out, "## Status\n"))
	assert.Equal(t, 1, strings.Count(out, "### Properties"))
}

func TestMarkdownEscapesCells(t *testing.T) {
	s := hrSchema()
	s.Node("Person").Properties[0].Description = "first | last\nname"
	a, err := Generate(s, SchemaDoc)
	require.NoError(t, err)
	assert.Contains(t, string(a.Content), `first \| last name`)
}
