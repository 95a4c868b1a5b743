package gen

import (
	"errors"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// builtinTypes are type names no class may take, because at least one
// backend defines them already.
var builtinTypes = []string{
	"String", "Int", "Float", "Boolean", "ID",
	"Date", "DateTime", "Time", "Duration", "Decimal", "Bytes", "URI",
	"Query", "Mutation", "Subscription",
}

// metadataFields are claimed in every field scope: each backend renders its
// own identifier and URI columns under these names.
var metadataFields = []string{"id", "uri"}

// View is the identifier assignment shared by every emitter, so generated
// artifacts agree on type, field and member names.
type View struct {
	Schema *ir.Schema
	Names  *naming.Config
	// Warnings holds non fatal problems of the schema, such as unsupported
	// cardinalities rendered as ZeroOrMany.
	Warnings []error

	types   map[string]string
	props   map[*ir.Property]string
	rels    map[*ir.Relationship]string
	members map[string]string
}

// NewView validates s and allocates its identifiers. Unsupported
// cardinalities are recorded as warnings; every other validation failure
// and identifier collisions are fatal.
func NewView(s *ir.Schema, names *naming.Config) (*View, error) {
	if names == nil {
		names = naming.Default
	}
	v := &View{
		Schema:  s,
		Names:   names,
		types:   map[string]string{},
		props:   map[*ir.Property]string{},
		rels:    map[*ir.Relationship]string{},
		members: map[string]string{},
	}
	var fatal []error
	for _, err := range unjoin(s.Validate()) {
		if onto2schema.IsUnsupportedCardinality(err) {
			v.Warnings = append(v.Warnings, err)
			continue
		}
		fatal = append(fatal, err)
	}
	if len(fatal) > 0 {
		return nil, errors.Join(fatal...)
	}
	types := naming.NewScope("types", builtinTypes...)
	for _, n := range s.Types() {
		id, err := types.Claim(names.TypeName(n.Label))
		if err != nil {
			return nil, err
		}
		v.types[n.Label] = id
	}
	for _, n := range s.Types() {
		fields := naming.NewScope(n.Label, metadataFields...)
		for _, p := range n.Properties {
			id, err := fields.Claim(names.FieldName(p.Name))
			if err != nil {
				return nil, err
			}
			v.props[p] = id
		}
		for _, r := range s.Outgoing(n.Label) {
			id, err := fields.Claim(names.FieldName(r.Type))
			if err != nil {
				return nil, err
			}
			v.rels[r] = id
		}
		if !n.Enum {
			continue
		}
		members := naming.NewScope(n.Label)
		for _, m := range s.Members(n.Label) {
			id, err := members.Claim(names.MemberName(m.Label))
			if err != nil {
				return nil, err
			}
			v.members[m.Label] = id
		}
	}
	return v, nil
}

// unjoin flattens an error tree built by errors.Join.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unjoin(e)...)
		}
		return out
	}
	return []error{err}
}

// Type returns the type name of the node labelled label.
func (v *View) Type(label string) string { return v.types[label] }

// Field returns the field name of a property.
func (v *View) Field(p *ir.Property) string { return v.props[p] }

// Link returns the field name of a relationship on its start node.
func (v *View) Link(r *ir.Relationship) string { return v.rels[r] }

// Member returns the member name of an enumeration member.
func (v *View) Member(label string) string { return v.members[label] }

// Classes returns the class nodes rendered as object types.
func (v *View) Classes() []*ir.Node {
	var out []*ir.Node
	for _, n := range v.Schema.Types() {
		if n.Kind == ir.KindClass && !n.Enum {
			out = append(out, n)
		}
	}
	return out
}

// Enums returns the class nodes rendered as enumerations.
func (v *View) Enums() []*ir.Node {
	var out []*ir.Node
	for _, n := range v.Schema.Types() {
		if n.Enum {
			out = append(out, n)
		}
	}
	return out
}

// Links returns the relationships rendered as fields of n: those ending at
// a class. Enumerations have none.
func (v *View) Links(n *ir.Node) []*ir.Relationship {
	if n.Enum {
		return nil
	}
	var out []*ir.Relationship
	for _, r := range v.Schema.Outgoing(n.Label) {
		if end := v.Schema.Node(r.EndLabel); end != nil && end.Kind == ir.KindClass {
			out = append(out, r)
		}
	}
	return out
}

// IsEnum reports whether the node labelled label renders as an enumeration.
func (v *View) IsEnum(label string) bool { return v.Schema.IsEnum(label) }

// Cardinality returns the cardinality a backend renders: unsupported values
// fall back to ZeroOrMany.
func Cardinality(c ir.Cardinality) ir.Cardinality { return c.OrFallback() }
