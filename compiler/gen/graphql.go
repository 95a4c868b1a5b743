package gen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// gqlScalars maps scalars onto the built-in GraphQL types. The rest are
// declared as custom scalars when used.
var gqlScalars = map[ir.Scalar]string{
	ir.ScalarString: "String",
	ir.ScalarInt:    "Int",
	ir.ScalarFloat:  "Float",
	ir.ScalarBool:   "Boolean",
}

// emitGraphQL renders a GraphQL schema with one object type per class, one
// enum per enumeration and a Query type listing every class.
func emitGraphQL(v *View, c *Config) ([]byte, error) {
	var (
		doc    = &ast.SchemaDocument{}
		query  = &ast.Definition{Kind: ast.Object, Name: "Query"}
		roots  = naming.NewScope("Query")
		custom = map[ir.Scalar]bool{}
	)
	for _, n := range v.Enums() {
		def := &ast.Definition{Kind: ast.Enum, Name: v.Type(n.Label), Description: oneLine(n.Description)}
		for _, m := range v.Schema.Members(n.Label) {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Member(m.Label),
				Description: oneLine(m.Description),
			})
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	for _, n := range v.Classes() {
		var (
			typ    = v.Type(n.Label)
			fields = naming.NewScope(n.Label, "uri")
			def    = &ast.Definition{Kind: ast.Object, Name: typ, Description: oneLine(n.Description)}
		)
		def.Fields = append(def.Fields, &ast.FieldDefinition{Name: "uri", Type: ast.NamedType("String", nil)})
		add := func(label, named string, card ir.Cardinality, desc string) error {
			name, err := fields.Claim(lowerCamel(v.Names, label))
			if err != nil {
				return err
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        name,
				Type:        gqlType(named, card),
				Description: oneLine(desc),
			})
			return nil
		}
		for _, p := range n.Properties {
			s := ir.ScalarOf(p.Type)
			named, ok := gqlScalars[s]
			if !ok {
				named, custom[s] = s.String(), true
			}
			if err := add(v.Field(p), named, Cardinality(p.Cardinality), p.Description); err != nil {
				return nil, err
			}
		}
		for _, r := range v.Links(n) {
			if err := add(v.Link(r), v.Type(r.EndLabel), Cardinality(r.Cardinality), r.Description); err != nil {
				return nil, err
			}
		}
		doc.Definitions = append(doc.Definitions, def)
		root, err := roots.Claim(lowerCamel(v.Names, naming.Plural(typ)))
		if err != nil {
			return nil, err
		}
		query.Fields = append(query.Fields, &ast.FieldDefinition{
			Name: root,
			Type: ast.NonNullListType(ast.NonNullNamedType(typ, nil), nil),
		})
	}
	for _, s := range []ir.Scalar{ir.ScalarDecimal, ir.ScalarDate, ir.ScalarDateTime, ir.ScalarTime, ir.ScalarDuration, ir.ScalarBytes, ir.ScalarURI} {
		if custom[s] {
			doc.Definitions = append(doc.Definitions, &ast.Definition{Kind: ast.Scalar, Name: s.String()})
		}
	}
	if len(query.Fields) > 0 {
		doc.Definitions = append(doc.Definitions, query)
	}
	var buf bytes.Buffer
	if c.Header != "" {
		fmt.Fprintf(&buf, "# %s\n\n", c.Header)
	}
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.Bytes(), nil
}

// gqlType wraps named according to the cardinality: required fields are
// non-null and collections are lists of non-null items.
func gqlType(named string, card ir.Cardinality) *ast.Type {
	switch card {
	case ir.Exactly1:
		return ast.NonNullNamedType(named, nil)
	case ir.OneOrMany:
		return ast.NonNullListType(ast.NonNullNamedType(named, nil), nil)
	case ir.ZeroOrMany:
		return ast.ListType(ast.NonNullNamedType(named, nil), nil)
	default:
		return ast.NamedType(named, nil)
	}
}

// lowerCamel returns the camelCase form of an identifier. A leading
// acronym is lowered as a whole ("URIValue" becomes "uriValue").
func lowerCamel(names *naming.Config, id string) string {
	pascal := names.TypeName(id)
	r := 0
	for r < len(pascal) && pascal[r] >= 'A' && pascal[r] <= 'Z' {
		r++
	}
	switch {
	case r > 1 && r < len(pascal) && pascal[r] >= 'a' && pascal[r] <= 'z':
		r--
	case r == 0:
		return pascal
	}
	return strings.ToLower(pascal[:r]) + pascal[r:]
}
