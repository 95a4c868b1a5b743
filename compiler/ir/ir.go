// Package ir defines the neutral schema representation extracted from a
// materialized axiom graph and consumed by every emitter.
package ir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

// NodeKind tells what an IR node stands for.
type NodeKind string

// Node kinds.
const (
	KindClass      NodeKind = "Class"
	KindDatatype   NodeKind = "Datatype"
	KindEnumMember NodeKind = "EnumMember"
)

// Schema is the result of one extraction. Its slices are ordered
// deterministically and must not be modified after construction.
type Schema struct {
	Nodes         []*Node         `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
}

// Node is a class, datatype or enumeration member.
type Node struct {
	Label       string      `json:"label"`
	URI         string      `json:"uri,omitempty"`
	Kind        NodeKind    `json:"kind"`
	Description string      `json:"description,omitempty"`
	Properties  []*Property `json:"properties,omitempty"`
	// Parents holds the labels of the direct superclasses.
	Parents []string `json:"parents,omitempty"`
	// Enum marks a class rendered as an enumeration of its members.
	Enum bool `json:"enum,omitempty"`
	// Owner is the enumeration class label of an EnumMember.
	Owner string `json:"owner,omitempty"`
}

// Property is a data-valued field of a node.
type Property struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Mandatory   bool        `json:"mandatory"`
	Cardinality Cardinality `json:"cardinality"`
	URI         string      `json:"uri,omitempty"`
}

// Relationship is an object-valued link between two nodes.
type Relationship struct {
	Type        string             `json:"type"`
	StartLabel  string             `json:"start_node_label"`
	EndLabel    string             `json:"end_node_label"`
	Cardinality Cardinality        `json:"cardinality"`
	Requirement Requirement        `json:"requirement"`
	Description string             `json:"description,omitempty"`
	URI         string             `json:"uri,omitempty"`
	Kind        axiom.PropertyKind `json:"property_kind,omitempty"`
	InferredBy  string             `json:"inferred_by,omitempty"`
}

// Node returns the node with the given label, or nil.
func (s *Schema) Node(label string) *Node {
	for _, n := range s.Nodes {
		if n.Label == label {
			return n
		}
	}
	return nil
}

// Labels returns the node labels in order.
func (s *Schema) Labels() []string {
	out := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n.Label
	}
	return out
}

// Outgoing returns the relationships starting at label, in order.
func (s *Schema) Outgoing(label string) []*Relationship {
	var out []*Relationship
	for _, r := range s.Relationships {
		if r.StartLabel == label {
			out = append(out, r)
		}
	}
	return out
}

// Members returns the enumeration members owned by label.
func (s *Schema) Members(label string) []*Node {
	var out []*Node
	for _, n := range s.Nodes {
		if n.Kind == KindEnumMember && n.Owner == label {
			out = append(out, n)
		}
	}
	return out
}

// IsEnum reports whether the node labelled label renders as an enumeration.
func (s *Schema) IsEnum(label string) bool {
	n := s.Node(label)
	return n != nil && n.Kind == KindClass && n.Enum
}

// Types returns the class and datatype nodes, skipping enumeration members.
func (s *Schema) Types() []*Node {
	var out []*Node
	for _, n := range s.Nodes {
		if n.Kind != KindEnumMember {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks the structural invariants of s and returns every
// violation joined into one error.
func (s *Schema) Validate() error {
	var errs []error
	add := func(node, field, format string, args ...any) {
		errs = append(errs, onto2schema.NewValidationError(node, field, fmt.Sprintf(format, args...)))
	}
	labels := make(map[string]*Node, len(s.Nodes))
	for _, n := range s.Nodes {
		switch {
		case n.Label == "":
			add("", "", "node %q has an empty label", n.URI)
			continue
		case labels[n.Label] != nil:
			add(n.Label, "", "duplicate node label")
			continue
		}
		labels[n.Label] = n
		switch n.Kind {
		case KindClass, KindDatatype, KindEnumMember:
		default:
			add(n.Label, "", "unknown kind %q", n.Kind)
		}
		names := map[string]bool{}
		for _, p := range n.Properties {
			if p.Name == "" {
				add(n.Label, "", "property with empty name")
				continue
			}
			if names[p.Name] {
				add(n.Label, p.Name, "duplicate property")
			}
			names[p.Name] = true
			if !p.Cardinality.Valid() {
				errs = append(errs, onto2schema.NewUnsupportedCardinalityError(n.Label, p.Name, string(p.Cardinality)))
			} else if p.Mandatory != p.Cardinality.Required() {
				add(n.Label, p.Name, "mandatory=%t contradicts cardinality %s", p.Mandatory, p.Cardinality)
			}
		}
	}
	members := map[string]int{}
	for _, n := range s.Nodes {
		if n.Kind == KindEnumMember {
			members[n.Owner]++
		}
	}
	for _, n := range s.Nodes {
		switch {
		case n.Kind == KindEnumMember:
			owner := labels[n.Owner]
			if owner == nil || owner.Kind != KindClass || !owner.Enum {
				add(n.Label, "", "enumeration member owner %q is not an enumeration class", n.Owner)
			}
		case n.Enum && len(n.Properties) > 0:
			add(n.Label, "", "enumeration class carries %d datatype properties", len(n.Properties))
		case n.Enum && members[n.Label] == 0:
			add(n.Label, "", "enumeration class has no members")
		}
		for _, p := range n.Parents {
			if labels[p] == nil {
				add(n.Label, "", "parent %q is not a node", p)
			}
		}
	}
	for _, r := range s.Relationships {
		for _, end := range []string{r.StartLabel, r.EndLabel} {
			if labels[end] == nil {
				add(r.StartLabel, r.Type, "endpoint %q is not a node", end)
			}
		}
		if !r.Cardinality.Valid() {
			errs = append(errs, onto2schema.NewUnsupportedCardinalityError(r.StartLabel, r.Type, string(r.Cardinality)))
		}
		if !r.Requirement.Valid() {
			add(r.StartLabel, r.Type, "unknown requirement %q", r.Requirement)
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	c := &Schema{
		Nodes:         make([]*Node, len(s.Nodes)),
		Relationships: make([]*Relationship, len(s.Relationships)),
	}
	for i, n := range s.Nodes {
		nc := *n
		nc.Parents = slices.Clone(n.Parents)
		nc.Properties = nil
		for _, p := range n.Properties {
			pc := *p
			nc.Properties = append(nc.Properties, &pc)
		}
		c.Nodes[i] = &nc
	}
	for i, r := range s.Relationships {
		rc := *r
		c.Relationships[i] = &rc
	}
	return c
}
