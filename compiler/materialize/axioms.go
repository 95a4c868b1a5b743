package materialize

import (
	"context"
	"strconv"
	"strings"

	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/ir"
)

// edgeKeys identify a materialized edge between two nodes. Edges derived
// from distinct axioms stay distinct so deduplication can see them.
var edgeKeys = []string{axiom.KeyURI, axiom.KeyInferredBy, axiom.KeyAxiom}

// RelationshipType derives the edge type of a property: the local name of
// its URI restricted to [A-Za-z0-9_], falling back to its label.
func RelationshipType(prop *axiom.Node) string {
	for _, s := range []string{axiom.LocalName(prop.URI()), prop.Label()} {
		if t := sanitize(s); t != "" {
			return t
		}
	}
	return "relatedTo"
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.':
			b.WriteByte('_')
		}
	}
	t := strings.Trim(b.String(), "_")
	if t != "" && t[0] >= '0' && t[0] <= '9' {
		t = "_" + t
	}
	if axiom.VocabularyEdges[t] {
		t = "_" + t
	}
	return t
}

// DefaultCardinality is the raw cardinality of a property without any
// restriction detail.
func DefaultCardinality(functional bool) string {
	if functional {
		return "0..1"
	}
	return "0..*"
}

// RestrictionCardinality computes the raw cardinality of a restriction.
// An exact (qualified) cardinality is used verbatim as "N". Otherwise, if
// any bound is given or the filler is existential, the result is
// "lower..upper" where lower defaults to 1 for existential fillers and 0
// otherwise, and upper defaults to 1 for functional properties and "*"
// otherwise. Without any detail DefaultCardinality applies.
func RestrictionCardinality(r axiom.Props, functional, existential bool) string {
	for _, k := range []string{axiom.KeyCardinality, axiom.KeyQualifiedCardinality} {
		if n, ok := r.Int(k); ok {
			return strconv.FormatInt(n, 10)
		}
	}
	minV, hasMin := firstInt(r, axiom.KeyMinCardinality, axiom.KeyMinQualified)
	maxV, hasMax := firstInt(r, axiom.KeyMaxCardinality, axiom.KeyMaxQualified)
	if !hasMin && !hasMax && !existential {
		return DefaultCardinality(functional)
	}
	lower, upper := "0", "*"
	switch {
	case hasMin:
		lower = strconv.FormatInt(minV, 10)
	case existential:
		lower = "1"
	}
	switch {
	case hasMax:
		upper = strconv.FormatInt(maxV, 10)
	case functional:
		upper = "1"
	}
	return lower + ".." + upper
}

func firstInt(p axiom.Props, keys ...string) (int64, bool) {
	for _, k := range keys {
		if n, ok := p.Int(k); ok {
			return n, true
		}
	}
	return 0, false
}

// requirement derives the requirement of a raw cardinality. Unparseable
// values are optional.
func requirement(raw string) string {
	c, err := ir.ParseCardinality(raw)
	if err != nil {
		return axiom.Optional
	}
	return string(c.Requirement())
}

// edgeProps returns the props of an edge materialized from prop.
func edgeProps(prop *axiom.Node, kind axiom.PropertyKind, raw, inferredBy, axiomID string) axiom.Props {
	p := axiom.Props{}
	for _, k := range axiom.AnnotationKeys {
		if v, ok := prop.Props[k]; ok {
			p[k] = v
		}
	}
	p[axiom.KeyMaterialized] = true
	p[axiom.KeyCardinalityRaw] = raw
	p[axiom.KeyRequirement] = requirement(raw)
	p[axiom.KeyPropertyType] = kind.String()
	p[axiom.KeyInferredBy] = inferredBy
	p[axiom.KeyAxiom] = axiomID
	return p
}

// listHeads returns the rdf list cells reached from n through edges of typ.
// Edges leading to anything but a list cell are ignored.
func listHeads(ctx context.Context, r axiom.Reader, n *axiom.Node, typ string) ([]*axiom.Node, error) {
	targets, err := axiom.Targets(ctx, r, n.ID, typ)
	if err != nil {
		return nil, err
	}
	var heads []*axiom.Node
	for _, t := range targets {
		cell, err := isCell(ctx, r, t)
		if err != nil {
			return nil, err
		}
		if cell {
			heads = append(heads, t)
		}
	}
	return heads, nil
}

func isCell(ctx context.Context, r axiom.Reader, n *axiom.Node) (bool, error) {
	if n.URI() == axiom.RDFNil {
		return true, nil
	}
	es, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeFirst}, From: n.ID})
	return len(es) > 0, err
}

// members collects the items of the lists starting at heads, in order and
// without duplicates, along with the ids of every visited cell.
func members(ctx context.Context, r axiom.Reader, heads []*axiom.Node) (items []*axiom.Node, cells []int64, err error) {
	seen := map[int64]bool{}
	for _, h := range heads {
		is, cs, err := axiom.ListItems(ctx, r, h)
		if err != nil {
			return nil, nil, err
		}
		for _, it := range is {
			if !seen[it.ID] {
				seen[it.ID] = true
				items = append(items, it)
			}
		}
		for _, c := range cs {
			cells = append(cells, c.ID)
		}
	}
	return items, cells, nil
}

// propertyKind classifies a property node by its labels. The second result
// is false for nodes carrying neither kind label.
func propertyKind(n *axiom.Node) (axiom.PropertyKind, bool) {
	switch {
	case n.HasLabel(axiom.LabelObjectProperty):
		return axiom.ObjectProperty, true
	case n.HasLabel(axiom.LabelDatatypeProperty):
		return axiom.DatatypeProperty, true
	default:
		return 0, false
	}
}
