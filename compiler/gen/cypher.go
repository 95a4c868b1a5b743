package gen

import (
	"fmt"
	"strings"

	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// metadataProperties never get constraints: they annotate nodes rather
// than hold data.
var metadataProperties = map[string]bool{
	"uri":             true,
	"label":           true,
	"rdfs_label":      true,
	"pref_label":      true,
	"skos_pref_label": true,
	"definition":      true,
	"skos_definition": true,
	"description":     true,
	"comment":         true,
	"rdfs_comment":    true,
}

func isMetadata(p *ir.Property) bool {
	return metadataProperties[naming.Snake(p.Name)] ||
		(p.URI != "" && metadataProperties[naming.Snake(axiom.LocalName(p.URI))])
}

// emitCypher renders existence constraints for the required data
// properties of each class. Required relationships and enumerations cannot
// be constrained and are documented as comments.
func emitCypher(v *View, c *Config) ([]byte, error) {
	var b strings.Builder
	if c.Header != "" {
		fmt.Fprintf(&b, "// %s\n", c.Header)
	}
	for _, n := range v.Classes() {
		typ := v.Type(n.Label)
		fmt.Fprintf(&b, "\n// %s", typ)
		if n.Description != "" {
			fmt.Fprintf(&b, ": %s", oneLine(n.Description))
		}
		b.WriteString("\n")
		for _, p := range n.Properties {
			field := v.Field(p)
			if p.Description != "" {
				fmt.Fprintf(&b, "// %s.%s: %s\n", typ, field, oneLine(p.Description))
			}
			if !Cardinality(p.Cardinality).Required() || isMetadata(p) {
				continue
			}
			fmt.Fprintf(&b, "CREATE CONSTRAINT %s_%s_exists IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS NOT NULL;\n",
				naming.Snake(typ), field, typ, field)
		}
		for _, r := range v.Links(n) {
			pattern := fmt.Sprintf("(:%s)-[:%s]->(:%s)", typ, strings.ToUpper(v.Link(r)), v.Type(r.EndLabel))
			if r.Description != "" {
				fmt.Fprintf(&b, "// %s: %s\n", pattern, oneLine(r.Description))
			}
			if card := Cardinality(r.Cardinality); card.Required() {
				fmt.Fprintf(&b, "// %s is mandatory (%s)\n", pattern, card)
			}
		}
	}
	for _, n := range v.Enums() {
		var (
			values []string
			notes  []string
		)
		for _, m := range v.Schema.Members(n.Label) {
			values = append(values, v.Member(m.Label))
			if m.Description != "" {
				notes = append(notes, fmt.Sprintf("// %s: %s\n", v.Member(m.Label), oneLine(m.Description)))
			}
		}
		typ := v.Type(n.Label)
		fmt.Fprintf(&b, "\n// %s is an enumeration: %s\n", typ, strings.Join(values, ", "))
		if n.Description != "" {
			fmt.Fprintf(&b, "// %s: %s\n", typ, oneLine(n.Description))
		}
		b.WriteString(strings.Join(notes, ""))
	}
	return []byte(b.String()), nil
}
