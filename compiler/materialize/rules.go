package materialize

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

// Rules returns the rule list of one materialization pass.
func Rules(kind axiom.PropertyKind) []Rule {
	rules := []Rule{
		DomainRange{Property: kind},
		Restriction{Property: kind},
		NoRange{Property: kind},
		UnionOf{Property: kind},
	}
	if kind == axiom.ObjectProperty {
		rules = append(rules, OneOf{})
	}
	return rules
}

func ruleName(k RuleKind, kind axiom.PropertyKind) string {
	name := strings.ToLower(string(k))
	if kind.Valid() {
		name += "_" + strings.ToLower(strings.TrimSuffix(kind.String(), "Property"))
	}
	return name
}

// DomainRange turns every property with both a domain and a range into a
// direct edge from each domain class to each range node, then deletes the
// domain and range axiom edges.
type DomainRange struct {
	applier
	Property axiom.PropertyKind
}

// Kind implements Rule.
func (DomainRange) Kind() RuleKind { return KindDomainRange }

// Name implements Rule.
func (d DomainRange) Name() string { return ruleName(KindDomainRange, d.Property) }

// Match implements Rule.
func (d DomainRange) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	props, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{d.Property.Label()}})
	if err != nil {
		return nil, err
	}
	var rws []Rewrite
	for _, p := range props {
		domains, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeDomain}, From: p.ID})
		if err != nil {
			return nil, err
		}
		ranges, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeRange}, From: p.ID})
		if err != nil {
			return nil, err
		}
		if len(domains) == 0 || len(ranges) == 0 {
			continue
		}
		var (
			rw  = Rewrite{Subject: p.Display()}
			typ = RelationshipType(p)
			raw = DefaultCardinality(p.HasLabel(axiom.LabelFunctionalProperty))
		)
		for _, dom := range domains {
			for _, rng := range ranges {
				rw.Merge = append(rw.Merge, EdgeSpec{
					Type:  typ,
					From:  dom.To,
					To:    rng.To,
					Keys:  edgeKeys,
					Props: edgeProps(p, d.Property, raw, axiom.InferredDomainRange, p.URI()),
				})
			}
			rw.Delete = append(rw.Delete, dom.ID)
		}
		for _, rng := range ranges {
			rw.Delete = append(rw.Delete, rng.ID)
		}
		rws = append(rws, rw)
	}
	return rws, nil
}

// NoRange materializes properties that have a domain but no range to the
// shared "undefined" placeholder of their kind, so no edge is left dangling.
type NoRange struct {
	applier
	Property axiom.PropertyKind
}

// Kind implements Rule.
func (NoRange) Kind() RuleKind { return KindNoRange }

// Name implements Rule.
func (n NoRange) Name() string { return ruleName(KindNoRange, n.Property) }

// Match implements Rule.
func (n NoRange) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	props, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{n.Property.Label()}})
	if err != nil {
		return nil, err
	}
	uri, label := n.Property.Placeholder()
	placeholder := &NodeSpec{
		Labels: []string{axiom.LabelResource, label},
		Key:    axiom.KeyURI,
		Props:  axiom.Props{axiom.KeyURI: uri, axiom.KeyLabel: axiom.UndefinedLabel},
	}
	var rws []Rewrite
	for _, p := range props {
		ranges, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeRange}, From: p.ID})
		if err != nil {
			return nil, err
		}
		if len(ranges) > 0 {
			continue
		}
		domains, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeDomain}, From: p.ID})
		if err != nil || len(domains) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		rw := Rewrite{Subject: p.Display()}
		raw := DefaultCardinality(p.HasLabel(axiom.LabelFunctionalProperty))
		for _, dom := range domains {
			rw.Merge = append(rw.Merge, EdgeSpec{
				Type:   RelationshipType(p),
				From:   dom.To,
				Target: placeholder,
				Keys:   edgeKeys,
				Props:  edgeProps(p, n.Property, raw, axiom.InferredNoRange, p.URI()),
			})
			rw.Delete = append(rw.Delete, dom.ID)
		}
		rws = append(rws, rw)
	}
	return rws, nil
}

// fillerEdges are the restriction edges pointing at a filler, in order of
// preference.
var fillerEdges = []string{axiom.EdgeSomeValuesFrom, axiom.EdgeAllValuesFrom, axiom.EdgeOnClass, axiom.EdgeOnDataRange}

// Restriction turns every class that is a subclass (or equivalent) of a
// property restriction into a direct edge to the restriction filler, with
// the cardinality computed from the restriction. Consumed restrictions are
// deleted; malformed ones are reported and left in place.
type Restriction struct {
	applier
	Property axiom.PropertyKind
}

// Kind implements Rule.
func (Restriction) Kind() RuleKind { return KindRestriction }

// Name implements Rule.
func (rs Restriction) Name() string { return ruleName(KindRestriction, rs.Property) }

// Match implements Rule.
func (rs Restriction) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	restrictions, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{axiom.LabelRestriction}})
	if err != nil {
		return nil, err
	}
	var rws []Rewrite
	for _, res := range restrictions {
		rw, ok, err := rs.match(ctx, r, res)
		if err != nil {
			return nil, err
		}
		if ok {
			rws = append(rws, rw)
		}
	}
	return rws, nil
}

func (rs Restriction) match(ctx context.Context, r axiom.Reader, res *axiom.Node) (Rewrite, bool, error) {
	rw := Rewrite{Subject: res.Display()}
	malformed := func(reason string) (Rewrite, bool, error) {
		rw.Err = &onto2schema.MalformedAxiomError{Rule: string(KindRestriction), Node: res.Display(), Reason: reason}
		return rw, true, nil
	}
	onProps, err := axiom.Targets(ctx, r, res.ID, axiom.EdgeOnProperty)
	if err != nil {
		return rw, false, err
	}
	var (
		filler      *axiom.Node
		fillerEdge  string
		existential bool
	)
	for _, typ := range fillerEdges {
		ts, err := axiom.Targets(ctx, r, res.ID, typ)
		if err != nil {
			return rw, false, err
		}
		if len(ts) == 0 {
			continue
		}
		if typ == axiom.EdgeSomeValuesFrom {
			existential = true
		}
		if filler == nil {
			filler, fillerEdge = ts[0], typ
		}
	}
	if len(onProps) == 1 {
		if k, ok := propertyKind(onProps[0]); ok && k != rs.Property {
			return rw, false, nil
		}
	}
	switch {
	case len(onProps) == 0 && filler == nil:
		return malformed("missing onProperty and filler")
	case len(onProps) == 0:
		return malformed("missing onProperty")
	case filler == nil:
		return malformed("missing filler")
	case len(onProps) > 1:
		return malformed(fmt.Sprintf("%d onProperty references", len(onProps)))
	}
	prop := onProps[0]
	kind, ok := propertyKind(prop)
	if !ok {
		kind = axiom.ObjectProperty
		if fillerEdge == axiom.EdgeOnDataRange || filler.HasLabel(axiom.LabelDatatype) {
			kind = axiom.DatatypeProperty
		}
	}
	if kind != rs.Property {
		return rw, false, nil
	}
	incoming, err := r.Edges(ctx, axiom.EdgeQuery{To: res.ID})
	if err != nil {
		return rw, false, err
	}
	var subjects []*axiom.Edge
	for _, e := range incoming {
		if e.Type == axiom.EdgeSubClassOf || e.Type == axiom.EdgeEquivalentClass {
			subjects = append(subjects, e)
		}
	}
	if len(subjects) == 0 && len(incoming) > 0 {
		// Nested in another class expression.
		return rw, false, nil
	}
	var (
		typ = RelationshipType(prop)
		raw = RestrictionCardinality(res.Props, prop.HasLabel(axiom.LabelFunctionalProperty), existential)
	)
	for _, s := range subjects {
		rw.Merge = append(rw.Merge, EdgeSpec{
			Type:  typ,
			From:  s.From,
			To:    filler.ID,
			Keys:  edgeKeys,
			Props: edgeProps(prop, kind, raw, axiom.InferredRestriction, res.Display()),
		})
		rw.Delete = append(rw.Delete, s.ID)
	}
	if len(subjects) == len(incoming) {
		rw.Detach = append(rw.Detach, res.ID)
	}
	return rw, true, nil
}

// UnionOf rewrites union constructs. For object properties, every
// materialized edge to or from an anonymous class whose members are given by
// an owl__unionOf list is replaced by one edge per member, and the anonymous
// class is deleted with its list. An anonymous class still referenced by
// unconsumed axioms is left for a later iteration. For datatype properties,
// the owl__unionOf list of a datatype collapses into an ordered list of
// member URIs stored on the datatype itself.
type UnionOf struct {
	applier
	Property axiom.PropertyKind
}

// Kind implements Rule.
func (UnionOf) Kind() RuleKind { return KindUnionOf }

// Name implements Rule.
func (u UnionOf) Name() string { return ruleName(KindUnionOf, u.Property) }

// Match implements Rule.
func (u UnionOf) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	label := axiom.LabelClass
	if u.Property == axiom.DatatypeProperty {
		label = axiom.LabelDatatype
	}
	nodes, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{label}})
	if err != nil {
		return nil, err
	}
	var rws []Rewrite
	for _, n := range nodes {
		if u.Property == axiom.ObjectProperty && n.Label() != "" {
			continue
		}
		heads, err := listHeads(ctx, r, n, axiom.EdgeUnionOf)
		if err != nil {
			return nil, err
		}
		if len(heads) == 0 {
			continue
		}
		items, cells, err := members(ctx, r, heads)
		if err != nil {
			return nil, err
		}
		var rw Rewrite
		var ok bool
		if u.Property == axiom.DatatypeProperty {
			rw, ok = u.datatype(n, items, cells), true
		} else {
			rw, ok, err = u.class(ctx, r, n, items, cells)
		}
		if err != nil {
			return nil, err
		}
		if ok {
			rws = append(rws, rw)
		}
	}
	return rws, nil
}

func (UnionOf) datatype(n *axiom.Node, items []*axiom.Node, cells []int64) Rewrite {
	uris := make([]any, 0, len(items))
	for _, it := range items {
		uris = append(uris, it.URI())
	}
	return Rewrite{
		Subject: n.Display(),
		Props:   []PropsSpec{{Node: n.ID, Props: axiom.Props{axiom.KeyUnionOf: uris}}},
		Detach:  cells,
	}
}

func (UnionOf) class(ctx context.Context, r axiom.Reader, n *axiom.Node, items []*axiom.Node, cells []int64) (Rewrite, bool, error) {
	in, err := r.Edges(ctx, axiom.EdgeQuery{To: n.ID})
	if err != nil {
		return Rewrite{}, false, err
	}
	out, err := r.Edges(ctx, axiom.EdgeQuery{From: n.ID})
	if err != nil {
		return Rewrite{}, false, err
	}
	var incident []*axiom.Edge
	for _, e := range append(in, out...) {
		if e.Type == axiom.EdgeUnionOf && e.From == n.ID {
			continue
		}
		if !e.Materialized() {
			return Rewrite{}, false, nil
		}
		incident = append(incident, e)
	}
	if len(incident) == 0 {
		return Rewrite{}, false, nil
	}
	rw := Rewrite{Subject: n.Display()}
	for _, e := range incident {
		for _, m := range items {
			spec := EdgeSpec{Type: e.Type, From: e.From, To: m.ID, Keys: edgeKeys, Props: e.Props.Clone()}
			if e.From == n.ID {
				spec.From, spec.To = m.ID, e.To
			}
			spec.Props[axiom.KeyInferredBy] = axiom.InferredUnionOf
			rw.Merge = append(rw.Merge, spec)
		}
		rw.Delete = append(rw.Delete, e.ID)
	}
	rw.Detach = append(append(rw.Detach, cells...), n.ID)
	return rw, true, nil
}

// OneOf rewrites enumerated classes: every member of an owl__oneOf list
// becomes a direct owl__oneOf edge from the class, and a rdf__type edge from
// the member, and the list is deleted.
type OneOf struct {
	applier
}

// Kind implements Rule.
func (OneOf) Kind() RuleKind { return KindOneOf }

// Name implements Rule.
func (OneOf) Name() string { return ruleName(KindOneOf, 0) }

// Match implements Rule.
func (OneOf) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	classes, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{axiom.LabelClass}})
	if err != nil {
		return nil, err
	}
	var rws []Rewrite
	for _, c := range classes {
		heads, err := listHeads(ctx, r, c, axiom.EdgeOneOf)
		if err != nil {
			return nil, err
		}
		if len(heads) == 0 {
			continue
		}
		items, cells, err := members(ctx, r, heads)
		if err != nil {
			return nil, err
		}
		rw := Rewrite{Subject: c.Display(), Detach: cells}
		for _, m := range items {
			rw.Merge = append(rw.Merge,
				EdgeSpec{
					Type:  axiom.EdgeOneOf,
					From:  c.ID,
					To:    m.ID,
					Keys:  []string{axiom.KeyInferredBy},
					Props: axiom.Props{axiom.KeyInferredBy: axiom.InferredOneOf},
				},
				EdgeSpec{Type: axiom.EdgeType, From: m.ID, To: c.ID},
			)
		}
		rws = append(rws, rw)
	}
	return rws, nil
}

// Dedup collapses materialized edges between the same nodes that share
// type, uri and provenance, keeping the edge with the lowest id. The raw
// cardinalities of the removed edges are recorded on the kept one.
type Dedup struct {
	applier
}

// Kind implements Rule.
func (Dedup) Kind() RuleKind { return KindDedup }

// Name implements Rule.
func (Dedup) Name() string { return ruleName(KindDedup, 0) }

// Match implements Rule.
func (Dedup) Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error) {
	edges, err := r.Edges(ctx, axiom.EdgeQuery{Props: axiom.Props{axiom.KeyMaterialized: true}})
	if err != nil {
		return nil, err
	}
	type key struct {
		from, to        int64
		typ, uri, infer string
	}
	var (
		order  []key
		groups = map[key][]*axiom.Edge{}
	)
	for _, e := range edges {
		k := key{e.From, e.To, e.Type, e.URI(), e.Props.String(axiom.KeyInferredBy)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	var rws []Rewrite
	for _, k := range order {
		g := groups[k]
		if len(g) < 2 {
			continue
		}
		keep := g[0]
		var dups []any
		for _, d := range keep.Props.Strings(axiom.KeyDuplicates) {
			dups = append(dups, d)
		}
		rw := Rewrite{Subject: fmt.Sprintf("#%d -[%s]-> #%d", k.from, k.typ, k.to)}
		for _, e := range g[1:] {
			dups = append(dups, e.Props.String(axiom.KeyCardinalityRaw))
			for _, d := range e.Props.Strings(axiom.KeyDuplicates) {
				dups = append(dups, d)
			}
			rw.Delete = append(rw.Delete, e.ID)
		}
		props := keep.Props.Clone()
		props[axiom.KeyDuplicates] = dups
		rw.Merge = []EdgeSpec{{Type: keep.Type, From: keep.From, To: keep.To, Keys: edgeKeys, Props: props}}
		rws = append(rws, rw)
	}
	return rws, nil
}
