// Package extract assembles the IR of a materialized axiom graph.
//
// An extraction reads one committed snapshot of the store, resolves the
// requested class labels, flattens every class over its inheritance chain,
// merges the cardinality observations of each predicate and detects
// enumerations. Datatype-valued edges become properties of their source
// node; object-valued edges become relationships.
package extract

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// Scope controls how far an extraction follows relationships.
type Scope string

// Scopes.
const (
	// ScopeShallow extracts the requested classes and their ancestors and
	// adds relationship targets as reference nodes without properties.
	ScopeShallow Scope = "shallow"
	// ScopeClosure extracts relationship targets transitively.
	ScopeClosure Scope = "closure"
)

// ParseScope parses a scope name. The empty string means ScopeShallow.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "", ScopeShallow:
		return ScopeShallow, nil
	case ScopeClosure:
		return sc, nil
	default:
		return "", fmt.Errorf("extract: unknown scope %q", s)
	}
}

// DefaultWorkers is the default number of classes assembled concurrently.
const DefaultWorkers = 4

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// WithMetrics sets the metrics the extractor reports to.
func WithMetrics(m *Metrics) Option {
	return func(x *Extractor) { x.metrics = m }
}

// WithWorkers bounds the number of classes assembled concurrently.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithScope sets the scope used when Extract is called without one.
func WithScope(s Scope) Option {
	return func(x *Extractor) { x.scope = s }
}

// WithNaming sets the namespace configuration used to disambiguate
// duplicate labels.
func WithNaming(c *naming.Config) Option {
	return func(x *Extractor) {
		if c != nil {
			x.names = c
		}
	}
}

// Extractor reads IR schemas out of a materialized store. It is safe for
// concurrent use.
type Extractor struct {
	store   axiom.Store
	logger  *slog.Logger
	metrics *Metrics
	workers int
	scope   Scope
	names   *naming.Config
}

// New returns an Extractor for store.
func New(store axiom.Store, opts ...Option) *Extractor {
	x := &Extractor{
		store:   store,
		logger:  slog.Default(),
		workers: DefaultWorkers,
		scope:   ScopeShallow,
		names:   naming.Default,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract builds the IR of the classes named by labels, or of every
// labelled class when labels is empty. An empty scope means the
// extractor's default scope.
//
// Unresolved labels and unsupported cardinalities do not fail the
// extraction: the schema is returned together with an error joining a
// MissingNodeError, AmbiguousLabelError or UnsupportedCardinalityError per
// problem. A nil schema means the extraction failed as a whole.
func (x *Extractor) Extract(ctx context.Context, labels []string, scope Scope) (*ir.Schema, error) {
	if scope == "" {
		scope = x.scope
	}
	if _, err := ParseScope(string(scope)); err != nil {
		return nil, err
	}
	var (
		start    = time.Now()
		schema   *ir.Schema
		problems []error
	)
	err := x.store.View(ctx, func(r axiom.Reader) error {
		s, err := load(ctx, r)
		if err != nil {
			return err
		}
		roots, errs := x.roots(ctx, s, labels)
		problems = append(problems, errs...)
		a := &assembly{x: x, s: s, bodies: map[int64]*body{}}
		if err := a.extract(ctx, roots, scope); err != nil {
			return err
		}
		schema, errs = a.schema()
		problems = append(problems, errs...)
		return nil
	})
	if x.metrics != nil {
		x.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	x.logger.InfoContext(ctx, "extraction finished",
		"labels", labels,
		"scope", scope,
		"nodes", len(schema.Nodes),
		"relationships", len(schema.Relationships),
		"problems", len(problems),
		"duration", time.Since(start),
	)
	return schema, errors.Join(problems...)
}

func (x *Extractor) roots(ctx context.Context, s *snapshot, labels []string) ([]int64, []error) {
	if len(labels) == 0 {
		ids := make([]int64, len(s.classes))
		for i, c := range s.classes {
			ids[i] = c.ID
		}
		return ids, nil
	}
	var (
		ids  []int64
		errs []error
	)
	for _, l := range labels {
		n, err := s.resolve(l)
		if err != nil {
			outcome := "missing"
			if onto2schema.IsAmbiguousLabel(err) {
				outcome = "ambiguous"
			}
			x.metrics.observe(outcome, 1)
			x.logger.WarnContext(ctx, "unresolved class label", "label", l, "error", err)
			errs = append(errs, err)
			continue
		}
		if !slices.Contains(ids, n.ID) {
			ids = append(ids, n.ID)
		}
	}
	return ids, errs
}

// body holds the predicate groups of one fully extracted class.
type body struct {
	props []*group // datatype predicates, any target
	rels  []*group // object predicates, one per target
}

// class groups the materialized edges of id and its ancestors.
func (s *snapshot) class(id int64) *body {
	var dt, obj groups
	for _, cid := range append([]int64{id}, s.ancestors(id)...) {
		for _, e := range s.out[cid] {
			t := s.nodes[e.To]
			if t == nil {
				continue
			}
			o := observation{edge: e, owner: cid}
			if t.HasLabel(axiom.LabelDatatype) || e.Props.String(axiom.KeyPropertyType) == axiom.DatatypeProperty.String() {
				dt.add(e.Type, 0, o)
				continue
			}
			if target, ok := s.target(t); ok {
				obj.add(e.Type, target, o)
			}
		}
	}
	return &body{props: dt.order, rels: obj.order}
}

// target maps a relationship target to the node it renders as: classes
// stand for themselves, typed instances for their class.
func (s *snapshot) target(n *axiom.Node) (int64, bool) {
	switch {
	case n.HasLabel(axiom.LabelClass):
		// Anonymous class expressions left unrewritten have no IR form.
		return n.ID, n.Label() != ""
	case len(s.memberOf[n.ID]) > 0:
		return s.memberOf[n.ID][0], true
	case n.HasLabel(axiom.LabelNamedIndividual):
		return 0, false
	default:
		return n.ID, true
	}
}

// assembly is the state of one extraction.
type assembly struct {
	x      *Extractor
	s      *snapshot
	full   []int64 // fully extracted classes, in extraction order
	bodies map[int64]*body
}

// expand returns ids and their ancestors that are not extracted yet.
func (a *assembly) expand(ids []int64) []int64 {
	var out []int64
	add := func(id int64) {
		if _, done := a.bodies[id]; done || slices.Contains(out, id) {
			return
		}
		if n := a.s.nodes[id]; n != nil && a.s.isClass(n) {
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
		for _, p := range a.s.ancestors(id) {
			add(p)
		}
	}
	return out
}

func (a *assembly) extract(ctx context.Context, roots []int64, scope Scope) error {
	next := a.expand(roots)
	for len(next) > 0 {
		bodies := make([]*body, len(next))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.x.workers)
		for i, id := range next {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				bodies[i] = a.s.class(id)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		var targets []int64
		for i, id := range next {
			a.full = append(a.full, id)
			a.bodies[id] = bodies[i]
			for _, r := range bodies[i].rels {
				targets = append(targets, r.target)
			}
		}
		a.x.metrics.observe("extracted", len(next))
		if scope != ScopeClosure {
			break
		}
		next = a.expand(targets)
	}
	return nil
}

// schema builds the IR from the extracted bodies.
func (a *assembly) schema() (*ir.Schema, []error) {
	present := map[int64]bool{}
	targeted := map[int64]bool{}
	for _, id := range a.full {
		present[id] = true
		for _, r := range a.bodies[id].rels {
			present[r.target] = true
			targeted[r.target] = true
		}
	}
	ids := make([]int64, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// A class with instances is an enumeration when it has no relationships
	// of its own and something points at it or it carries no data.
	// Reference classes outside the extraction are judged on their snapshot
	// body.
	enum := map[int64]bool{}
	for _, id := range ids {
		if len(a.s.members[id]) == 0 {
			continue
		}
		b := a.bodies[id]
		if b == nil {
			b = a.s.class(id)
		}
		if len(b.rels) == 0 && (targeted[id] || len(b.props) == 0) {
			enum[id] = true
		}
	}
	var (
		memberIDs []int64
		owner     = map[int64]int64{}
	)
	for _, id := range ids {
		if !enum[id] {
			continue
		}
		for _, m := range a.s.members[id] {
			if _, ok := owner[m]; !ok {
				owner[m] = id
				memberIDs = append(memberIDs, m)
			}
		}
	}
	labels := a.labels(append(slices.Clone(ids), memberIDs...))

	var (
		schema = &ir.Schema{}
		errs   []error
	)
	for _, id := range ids {
		n := a.s.nodes[id]
		node := &ir.Node{
			Label:       labels[id],
			URI:         n.URI(),
			Kind:        ir.KindClass,
			Description: n.Description(),
			Enum:        enum[id],
		}
		for _, p := range a.s.parents[id] {
			if present[p] && !slices.Contains(node.Parents, labels[p]) {
				node.Parents = append(node.Parents, labels[p])
			}
		}
		slices.Sort(node.Parents)
		if b := a.bodies[id]; b != nil {
			if !enum[id] {
				for _, g := range b.props {
					p, perrs := a.property(node.Label, g)
					node.Properties = append(node.Properties, p)
					errs = append(errs, perrs...)
				}
				slices.SortFunc(node.Properties, func(x, y *ir.Property) int { return cmp.Compare(x.Name, y.Name) })
			}
			for _, g := range b.rels {
				r, rerrs := a.relationship(node.Label, labels[g.target], g)
				schema.Relationships = append(schema.Relationships, r)
				errs = append(errs, rerrs...)
			}
		}
		schema.Nodes = append(schema.Nodes, node)
	}
	slices.SortFunc(schema.Nodes, func(x, y *ir.Node) int { return cmp.Compare(x.Label, y.Label) })

	members := make([]*ir.Node, 0, len(memberIDs))
	for _, id := range memberIDs {
		n := a.s.nodes[id]
		members = append(members, &ir.Node{
			Label:       labels[id],
			URI:         n.URI(),
			Kind:        ir.KindEnumMember,
			Description: n.Description(),
			Owner:       labels[owner[id]],
		})
	}
	slices.SortFunc(members, func(x, y *ir.Node) int {
		return cmp.Or(cmp.Compare(x.Owner, y.Owner), cmp.Compare(x.Label, y.Label))
	})
	schema.Nodes = append(schema.Nodes, members...)

	slices.SortFunc(schema.Relationships, func(x, y *ir.Relationship) int {
		return cmp.Or(
			cmp.Compare(x.StartLabel, y.StartLabel),
			cmp.Compare(x.Type, y.Type),
			cmp.Compare(x.EndLabel, y.EndLabel),
		)
	})
	return schema, errs
}

// labels assigns unique IR labels. A label shared by distinct nodes is
// qualified with the namespace prefix of each node, then numbered.
func (a *assembly) labels(ids []int64) map[int64]string {
	count := map[string]int{}
	for _, id := range ids {
		count[nodeLabel(a.s.nodes[id])]++
	}
	var (
		out   = make(map[int64]string, len(ids))
		taken = map[string]bool{}
	)
	for _, id := range ids {
		if l := nodeLabel(a.s.nodes[id]); count[l] == 1 {
			out[id], taken[l] = l, true
		}
	}
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		n := a.s.nodes[id]
		l := nodeLabel(n)
		candidate := l
		if p, _, ok := a.x.names.QName(n.URI()); ok {
			candidate = fmt.Sprintf("%s (%s)", l, p)
		}
		for i := 2; taken[candidate]; i++ {
			candidate = fmt.Sprintf("%s %d", l, i)
		}
		out[id], taken[candidate] = candidate, true
	}
	return out
}

func (a *assembly) property(owner string, g *group) (*ir.Property, []error) {
	card, errs := g.cardinality(owner)
	var types []string
	for _, o := range g.significant() {
		if t := datatypeName(a.s.nodes[o.edge.To]); !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return &ir.Property{
		Name:        g.typ,
		Type:        strings.Join(types, "|"),
		Description: g.description(),
		Mandatory:   card.Required(),
		Cardinality: card,
		URI:         g.lead().edge.URI(),
	}, errs
}

func (a *assembly) relationship(start, end string, g *group) (*ir.Relationship, []error) {
	card, errs := g.cardinality(start)
	lead := g.lead()
	return &ir.Relationship{
		Type:        g.typ,
		StartLabel:  start,
		EndLabel:    end,
		Cardinality: card,
		Requirement: card.Requirement(),
		Description: g.description(),
		URI:         lead.edge.URI(),
		Kind:        axiom.ObjectProperty,
		InferredBy:  lead.inferredBy(),
	}, errs
}
