package extract

import (
	"context"
	"slices"
	"strings"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

// snapshot is an immutable in-memory index of the parts of a committed
// graph the extractor reads. It is built once per extraction, so per-class
// workers never touch the store.
type snapshot struct {
	nodes    map[int64]*axiom.Node
	classes  []*axiom.Node // labelled classes, ascending id
	out      map[int64][]*axiom.Edge
	parents  map[int64][]int64
	members  map[int64][]int64 // class id -> typed instance ids
	memberOf map[int64][]int64
}

func load(ctx context.Context, r axiom.Reader) (*snapshot, error) {
	nodes, err := r.Nodes(ctx, axiom.NodeQuery{})
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		nodes:    make(map[int64]*axiom.Node, len(nodes)),
		out:      map[int64][]*axiom.Edge{},
		parents:  map[int64][]int64{},
		members:  map[int64][]int64{},
		memberOf: map[int64][]int64{},
	}
	for _, n := range nodes {
		s.nodes[n.ID] = n
		if n.HasLabel(axiom.LabelClass) && n.Label() != "" && !placeholder(n) {
			s.classes = append(s.classes, n)
		}
	}
	edges, err := r.Edges(ctx, axiom.EdgeQuery{Props: axiom.Props{axiom.KeyMaterialized: true}})
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		s.out[e.From] = append(s.out[e.From], e)
	}
	sub, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeSubClassOf}})
	if err != nil {
		return nil, err
	}
	for _, e := range sub {
		if p := s.nodes[e.To]; p != nil && s.isClass(p) {
			s.parents[e.From] = append(s.parents[e.From], e.To)
		}
	}
	typed, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeType, axiom.EdgeOneOf}})
	if err != nil {
		return nil, err
	}
	for _, e := range typed {
		class, member := e.To, e.From
		if e.Type == axiom.EdgeOneOf {
			class, member = e.From, e.To
		}
		c, m := s.nodes[class], s.nodes[member]
		if c == nil || m == nil || !s.isClass(c) || m.HasLabel(axiom.LabelClass) || m.Label() == "" {
			continue
		}
		if !slices.Contains(s.members[class], member) {
			s.members[class] = append(s.members[class], member)
			s.memberOf[member] = append(s.memberOf[member], class)
		}
	}
	for _, ids := range s.members {
		slices.Sort(ids)
	}
	return s, nil
}

func (s *snapshot) isClass(n *axiom.Node) bool {
	return n.HasLabel(axiom.LabelClass) && n.Label() != ""
}

func placeholder(n *axiom.Node) bool {
	u := n.URI()
	return u == axiom.UndefinedClass || u == axiom.UndefinedType
}

// ancestors returns the superclasses of id in breadth-first order.
func (s *snapshot) ancestors(id int64) []int64 {
	var (
		out  []int64
		seen = map[int64]bool{id: true}
		next = s.parents[id]
	)
	for len(next) > 0 {
		var level []int64
		for _, p := range next {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			level = append(level, s.parents[p]...)
		}
		next = level
	}
	return out
}

// resolve maps a requested label to one class. It tries the exact label,
// the URI and finally a case-insensitive label match; the first step with
// any match decides.
func (s *snapshot) resolve(label string) (*axiom.Node, error) {
	label = strings.TrimSpace(label)
	steps := []func(*axiom.Node) bool{
		func(n *axiom.Node) bool { return n.Label() == label },
		func(n *axiom.Node) bool { return n.URI() == label },
		func(n *axiom.Node) bool { return strings.EqualFold(n.Label(), label) },
	}
	for _, match := range steps {
		var found []*axiom.Node
		for _, c := range s.classes {
			if match(c) && !slices.ContainsFunc(found, func(f *axiom.Node) bool { return f.URI() == c.URI() }) {
				found = append(found, c)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			uris := make([]string, len(found))
			for i, f := range found {
				uris[i] = f.URI()
			}
			slices.Sort(uris)
			return nil, onto2schema.NewAmbiguousLabelError(label, uris)
		}
	}
	return nil, onto2schema.NewMissingNodeError(label)
}
