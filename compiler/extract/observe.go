package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/ir"
)

// observation is one materialized edge seen from a class, possibly through
// inheritance.
type observation struct {
	edge  *axiom.Edge
	owner int64 // class declaring the edge
}

func (o observation) inferredBy() string { return o.edge.Props.String(axiom.KeyInferredBy) }

// identity distinguishes structurally distinct axioms.
func (o observation) identity() string {
	return fmt.Sprintf("%s|%d|%s", o.edge.URI(), o.owner, o.edge.Props.String(axiom.KeyAxiom))
}

func defaultDerived(o observation) bool {
	switch o.inferredBy() {
	case axiom.InferredDomainRange, axiom.InferredNoRange:
		return true
	}
	return false
}

// group is the set of observations of one predicate from one node. For
// relationships it is also keyed by target.
type group struct {
	typ    string
	target int64
	obs    []observation
}

// significant returns the observations that decide the cardinality:
// restriction-derived observations override domain and range defaults.
func (g *group) significant() []observation {
	if !slices.ContainsFunc(g.obs, func(o observation) bool { return !defaultDerived(o) }) {
		return g.obs
	}
	return slices.DeleteFunc(slices.Clone(g.obs), defaultDerived)
}

// duplicateKeys reports whether the predicate was observed more than once
// with the same provenance from distinct axioms, either directly or through
// edges collapsed by deduplication.
func duplicateKeys(obs []observation) bool {
	seen := map[string]string{}
	for _, o := range obs {
		if len(o.edge.Props.Strings(axiom.KeyDuplicates)) > 0 {
			return true
		}
		id := o.identity()
		if prev, ok := seen[o.inferredBy()]; ok && prev != id {
			return true
		}
		seen[o.inferredBy()] = id
	}
	return false
}

// cardinality merges the observations of g. Unparsable raw values are
// reported and counted as ZeroOrMany.
func (g *group) cardinality(owner string) (ir.Cardinality, []error) {
	var (
		obs  = g.significant()
		tags = make([]ir.Cardinality, 0, len(obs))
		errs []error
	)
	for _, o := range obs {
		raw := o.edge.Props.String(axiom.KeyCardinalityRaw)
		c, err := ir.ParseCardinality(raw)
		if err != nil {
			errs = append(errs, onto2schema.NewUnsupportedCardinalityError(owner, g.typ, raw))
			c = ir.ZeroOrMany
		}
		tags = append(tags, c)
	}
	return ir.Merge(tags, duplicateKeys(obs)), errs
}

// lead returns the observation annotations are taken from: the first one of
// the most specific class.
func (g *group) lead() observation {
	return g.significant()[0]
}

// description returns the first non-empty edge description.
func (g *group) description() string {
	for _, o := range g.significant() {
		if d := o.edge.Props.String(axiom.KeyDefinition); d != "" {
			return d
		}
		if d := o.edge.Props.String(axiom.KeyComment); d != "" {
			return d
		}
	}
	return ""
}

// groups collects the observations of a class chain, keyed by predicate and
// target, in first-seen order.
type groups struct {
	order []*group
	index map[string]*group
}

func (gs *groups) add(typ string, target int64, o observation) {
	if gs.index == nil {
		gs.index = map[string]*group{}
	}
	key := fmt.Sprintf("%s\x00%d", typ, target)
	g, ok := gs.index[key]
	if !ok {
		g = &group{typ: typ, target: target}
		gs.index[key] = g
		gs.order = append(gs.order, g)
	}
	g.obs = append(g.obs, o)
}

// datatypeName returns the IR type of a datatype node. A collapsed union
// yields its member local names joined by '|'.
func datatypeName(n *axiom.Node) string {
	if members := n.Props.Strings(axiom.KeyUnionOf); len(members) > 0 {
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = axiom.LocalName(m)
		}
		return strings.Join(names, "|")
	}
	return nodeLabel(n)
}

func nodeLabel(n *axiom.Node) string {
	if l := n.Label(); l != "" {
		return l
	}
	if l := axiom.LocalName(n.URI()); l != "" {
		return l
	}
	return axiom.LabelResource
}
