// Package memgraph implements an in-memory axiom.Store.
//
// Writers are serialized and work on a private copy of the graph that
// replaces the committed snapshot when the batch succeeds, so readers never
// observe a partially applied batch.
package memgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

type graph struct {
	nodes    map[int64]*axiom.Node
	edges    map[int64]*axiom.Edge
	out      map[int64]map[int64]struct{}
	in       map[int64]map[int64]struct{}
	nextNode int64
	nextEdge int64
}

func newGraph() *graph {
	return &graph{
		nodes: make(map[int64]*axiom.Node),
		edges: make(map[int64]*axiom.Edge),
		out:   make(map[int64]map[int64]struct{}),
		in:    make(map[int64]map[int64]struct{}),
	}
}

func (g *graph) clone() *graph {
	c := &graph{
		nodes:    make(map[int64]*axiom.Node, len(g.nodes)),
		edges:    make(map[int64]*axiom.Edge, len(g.edges)),
		out:      make(map[int64]map[int64]struct{}, len(g.out)),
		in:       make(map[int64]map[int64]struct{}, len(g.in)),
		nextNode: g.nextNode,
		nextEdge: g.nextEdge,
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.Clone()
	}
	for id, e := range g.edges {
		c.edges[id] = e.Clone()
	}
	for id, set := range g.out {
		c.out[id] = cloneSet(set)
	}
	for id, set := range g.in {
		c.in[id] = cloneSet(set)
	}
	return c
}

func cloneSet(s map[int64]struct{}) map[int64]struct{} {
	c := make(map[int64]struct{}, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Store is an in-memory property graph.
type Store struct {
	mu     sync.Mutex // serializes writers
	snap   atomic.Pointer[graph]
	closed atomic.Bool
}

var _ axiom.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.snap.Store(newGraph())
	return s
}

// View implements axiom.Store.
func (s *Store) View(ctx context.Context, fn func(axiom.Reader) error) error {
	if s.closed.Load() {
		return onto2schema.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&reader{g: s.snap.Load()})
}

// Update implements axiom.Store.
func (s *Store) Update(ctx context.Context, batch string, fn func(axiom.Tx) error) error {
	if s.closed.Load() {
		return onto2schema.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.snap.Load().clone()
	if err := fn(&tx{reader{g: g}}); err != nil {
		return onto2schema.NewStoreError(batch, err)
	}
	if err := ctx.Err(); err != nil {
		return onto2schema.NewStoreError(batch, err)
	}
	s.snap.Store(g)
	return nil
}

// Close implements axiom.Store.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// Stats returns the number of nodes and edges in the committed snapshot.
func (s *Store) Stats() (nodes, edges int) {
	g := s.snap.Load()
	return len(g.nodes), len(g.edges)
}

type reader struct {
	g *graph
}

func (r *reader) Node(_ context.Context, id int64) (*axiom.Node, error) {
	n, ok := r.g.nodes[id]
	if !ok {
		return nil, nil
	}
	return n.Clone(), nil
}

func (r *reader) Nodes(ctx context.Context, q axiom.NodeQuery) ([]*axiom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*axiom.Node
	for _, n := range r.g.nodes {
		if q.Match(n) {
			out = append(out, n.Clone())
		}
	}
	axiom.SortNodes(out)
	return out, nil
}

func (r *reader) Edges(ctx context.Context, q axiom.EdgeQuery) ([]*axiom.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*axiom.Edge
	visit := func(id int64) {
		if e := r.g.edges[id]; e != nil && q.Match(e) {
			out = append(out, e.Clone())
		}
	}
	switch {
	case q.From != 0:
		for id := range r.g.out[q.From] {
			visit(id)
		}
	case q.To != 0:
		for id := range r.g.in[q.To] {
			visit(id)
		}
	default:
		for id := range r.g.edges {
			visit(id)
		}
	}
	axiom.SortEdges(out)
	return out, nil
}

type tx struct {
	reader
}

func (t *tx) CreateNode(_ context.Context, labels []string, props axiom.Props) (*axiom.Node, error) {
	t.g.nextNode++
	n := &axiom.Node{ID: t.g.nextNode, Labels: dedupLabels(nil, labels), Props: setProps(nil, props)}
	t.g.nodes[n.ID] = n
	return n.Clone(), nil
}

func (t *tx) MergeNode(ctx context.Context, labels []string, key string, props axiom.Props) (*axiom.Node, bool, error) {
	v, ok := props[key]
	if !ok {
		return nil, false, fmt.Errorf("memgraph: merge key %q missing from props", key)
	}
	var found *axiom.Node
	for _, n := range t.g.nodes {
		if n.HasLabels(labels...) && axiom.ValueEqual(n.Props[key], v) && (found == nil || n.ID < found.ID) {
			found = n
		}
	}
	if found == nil {
		// A node with the key but lacking some labels is still the same node.
		for _, n := range t.g.nodes {
			if axiom.ValueEqual(n.Props[key], v) && (found == nil || n.ID < found.ID) {
				found = n
			}
		}
	}
	if found == nil {
		n, err := t.CreateNode(ctx, labels, props)
		return n, true, err
	}
	found.Labels = dedupLabels(found.Labels, labels)
	found.Props = setProps(found.Props, props)
	return found.Clone(), false, nil
}

func (t *tx) SetNodeProps(_ context.Context, id int64, props axiom.Props) error {
	n, ok := t.g.nodes[id]
	if !ok {
		return fmt.Errorf("memgraph: node %d not found", id)
	}
	n.Props = setProps(n.Props, props)
	return nil
}

func (t *tx) MergeEdge(_ context.Context, typ string, from, to int64, keys []string, props axiom.Props) (*axiom.Edge, bool, error) {
	if t.g.nodes[from] == nil || t.g.nodes[to] == nil {
		return nil, false, fmt.Errorf("memgraph: edge %s endpoints %d->%d not found", typ, from, to)
	}
	var found *axiom.Edge
	for id := range t.g.out[from] {
		e := t.g.edges[id]
		if e.Type != typ || e.To != to || !sameKeys(e.Props, props, keys) {
			continue
		}
		if found == nil || e.ID < found.ID {
			found = e
		}
	}
	if found != nil {
		found.Props = setProps(found.Props, props)
		return found.Clone(), false, nil
	}
	t.g.nextEdge++
	e := &axiom.Edge{ID: t.g.nextEdge, Type: typ, From: from, To: to, Props: setProps(nil, props)}
	t.g.edges[e.ID] = e
	link(t.g.out, from, e.ID)
	link(t.g.in, to, e.ID)
	return e.Clone(), true, nil
}

func (t *tx) DeleteEdge(_ context.Context, id int64) error {
	e, ok := t.g.edges[id]
	if !ok {
		return nil
	}
	delete(t.g.edges, id)
	delete(t.g.out[e.From], id)
	delete(t.g.in[e.To], id)
	return nil
}

func (t *tx) DeleteNode(ctx context.Context, id int64, detach bool) error {
	if _, ok := t.g.nodes[id]; !ok {
		return nil
	}
	attached := len(t.g.out[id]) + len(t.g.in[id])
	if attached > 0 && !detach {
		return fmt.Errorf("memgraph: node %d still has %d edges", id, attached)
	}
	for eid := range cloneSet(t.g.out[id]) {
		_ = t.DeleteEdge(ctx, eid)
	}
	for eid := range cloneSet(t.g.in[id]) {
		_ = t.DeleteEdge(ctx, eid)
	}
	delete(t.g.nodes, id)
	delete(t.g.out, id)
	delete(t.g.in, id)
	return nil
}

func link(m map[int64]map[int64]struct{}, node, edge int64) {
	set, ok := m[node]
	if !ok {
		set = make(map[int64]struct{})
		m[node] = set
	}
	set[edge] = struct{}{}
}

func sameKeys(have, want axiom.Props, keys []string) bool {
	for _, k := range keys {
		if !axiom.ValueEqual(have[k], want[k]) {
			return false
		}
	}
	return true
}

func dedupLabels(have, add []string) []string {
	out := append([]string(nil), have...)
	for _, l := range add {
		dup := false
		for _, h := range out {
			if h == l {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

func setProps(dst, src axiom.Props) axiom.Props {
	if dst == nil {
		dst = axiom.Props{}
	}
	for k, v := range src.Clone() {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}
