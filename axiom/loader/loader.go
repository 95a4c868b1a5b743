// Package loader reads ontology fixtures written in YAML and stores them as
// axioms in the graph encoding the materializer understands.
//
// A fixture looks like:
//
//	namespace: http://example.org/hr#
//	classes:
//	  - id: Person
//	    label: Person
//	    restrictions:
//	      - onProperty: hasName
//	        someValuesFrom: xsd:string
//	        maxCardinality: 1
//	  - id: Organization
//	properties:
//	  - id: hasEmployer
//	    kind: object
//	    functional: true
//	    domain: Person
//	    range: Organization
//	individuals:
//	  - id: Active
//	    types: [Status]
//
// References are resolved against the namespace unless they are absolute
// URIs or use a known prefix such as xsd:.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/onto2schema/axiom"
)

// Ontology is the decoded fixture.
type Ontology struct {
	Namespace   string            `yaml:"namespace"`
	Prefixes    map[string]string `yaml:"prefixes,omitempty"`
	Classes     []Class           `yaml:"classes"`
	Datatypes   []Datatype        `yaml:"datatypes,omitempty"`
	Properties  []Property        `yaml:"properties"`
	Individuals []Individual      `yaml:"individuals,omitempty"`
}

// Class declares an owl class.
type Class struct {
	ID           string        `yaml:"id"`
	Label        string        `yaml:"label,omitempty"`
	Definition   string        `yaml:"definition,omitempty"`
	SubClassOf   Refs          `yaml:"subClassOf,omitempty"`
	Restrictions []Restriction `yaml:"restrictions,omitempty"`
	OneOf        Refs          `yaml:"oneOf,omitempty"`
	UnionOf      Refs          `yaml:"unionOf,omitempty"`
	Relations    []Relation    `yaml:"relations,omitempty"`
}

// Datatype declares a named datatype, optionally as a union of others.
type Datatype struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label,omitempty"`
	UnionOf Refs   `yaml:"unionOf,omitempty"`
}

// Restriction is an anonymous superclass constraining one property.
type Restriction struct {
	OnProperty     string `yaml:"onProperty,omitempty"`
	SomeValuesFrom string `yaml:"someValuesFrom,omitempty"`
	AllValuesFrom  string `yaml:"allValuesFrom,omitempty"`
	OnClass        string `yaml:"onClass,omitempty"`
	OnDataRange    string `yaml:"onDataRange,omitempty"`

	Cardinality             *int `yaml:"cardinality,omitempty"`
	QualifiedCardinality    *int `yaml:"qualifiedCardinality,omitempty"`
	MinCardinality          *int `yaml:"minCardinality,omitempty"`
	MaxCardinality          *int `yaml:"maxCardinality,omitempty"`
	MinQualifiedCardinality *int `yaml:"minQualifiedCardinality,omitempty"`
	MaxQualifiedCardinality *int `yaml:"maxQualifiedCardinality,omitempty"`
}

// Relation is an extra edge of a class, e.g. owl:equivalentClass.
type Relation struct {
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
}

// Property declares an object or datatype property.
type Property struct {
	ID         string `yaml:"id"`
	Kind       string `yaml:"kind,omitempty"`
	Functional bool   `yaml:"functional,omitempty"`
	Label      string `yaml:"label,omitempty"`
	Definition string `yaml:"definition,omitempty"`
	Domain     Refs   `yaml:"domain,omitempty"`
	Range      Range  `yaml:"range,omitempty"`
}

// Individual declares a named individual and its types.
type Individual struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label,omitempty"`
	Definition string `yaml:"definition,omitempty"`
	Types      Refs   `yaml:"types,omitempty"`
}

// Refs is a list of references that may be written as a single scalar.
type Refs []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Refs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*r = Refs{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*r = list
		return nil
	default:
		return fmt.Errorf("loader: line %d: expected a reference or a list of references", value.Line)
	}
}

// Range is a property range: one or more references, or a union.
type Range struct {
	Refs    Refs
	UnionOf Refs
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var u struct {
			UnionOf Refs `yaml:"unionOf"`
		}
		if err := value.Decode(&u); err != nil {
			return err
		}
		if len(u.UnionOf) == 0 {
			return fmt.Errorf("loader: line %d: range mapping requires unionOf", value.Line)
		}
		r.UnionOf = u.UnionOf
		return nil
	}
	return value.Decode(&r.Refs)
}

// IsZero reports whether no range is declared.
func (r Range) IsZero() bool { return len(r.Refs) == 0 && len(r.UnionOf) == 0 }

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Ontology, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var o Ontology
	if err := dec.Decode(&o); err != nil {
		if err == io.EOF {
			return &o, nil
		}
		return nil, fmt.Errorf("loader: decode: %w", err)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// ParseFile decodes the fixture at path.
func ParseFile(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	o, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

func (o *Ontology) validate() error {
	for i, c := range o.Classes {
		if c.ID == "" {
			return fmt.Errorf("loader: classes[%d]: missing id", i)
		}
	}
	for i, p := range o.Properties {
		if p.ID == "" {
			return fmt.Errorf("loader: properties[%d]: missing id", i)
		}
		if p.Kind != "" {
			if _, ok := axiom.ParsePropertyKind(p.Kind); !ok {
				return fmt.Errorf("loader: property %s: unknown kind %q", p.ID, p.Kind)
			}
		}
	}
	for i, d := range o.Individuals {
		if d.ID == "" {
			return fmt.Errorf("loader: individuals[%d]: missing id", i)
		}
	}
	return nil
}

// StandardPrefixes returns a fresh map of the prefixes every fixture may use.
func StandardPrefixes() map[string]string {
	return map[string]string{
		"xsd":  axiom.NamespaceXSD,
		"owl":  axiom.NamespaceOWL,
		"rdf":  axiom.NamespaceRDF,
		"rdfs": axiom.NamespaceRDFS,
		"skos": axiom.NamespaceSKOS,
		"dct":  axiom.NamespaceDCT,
	}
}

// Resolve expands a reference into a URI.
func (o *Ontology) Resolve(ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "urn:") || strings.HasPrefix(ref, "_:") {
		return ref
	}
	if prefix, local, ok := strings.Cut(ref, ":"); ok {
		if ns, ok := o.Prefixes[prefix]; ok {
			return ns + local
		}
		if ns, ok := StandardPrefixes()[prefix]; ok {
			return ns + local
		}
	}
	return o.Namespace + ref
}

func isDatatypeURI(uri string) bool {
	return strings.HasPrefix(uri, axiom.NamespaceXSD) || uri == axiom.NamespaceRDFS+"Literal" || uri == axiom.NamespaceRDF+"langString"
}

// Stats counts the graph elements written by Load.
type Stats struct {
	NodesCreated int
	EdgesCreated int
}

// Load writes the ontology into s in a single batch. Loading the same
// ontology twice leaves the graph unchanged.
func (o *Ontology) Load(ctx context.Context, s axiom.Store) (*Stats, error) {
	st := &Stats{}
	err := s.Update(ctx, "load_ontology", func(tx axiom.Tx) error {
		l := &load{o: o, tx: tx, ctx: ctx, stats: st, datatypes: map[string]bool{}}
		return l.run()
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

type load struct {
	o         *Ontology
	tx        axiom.Tx
	ctx       context.Context
	stats     *Stats
	datatypes map[string]bool
}

func (l *load) run() error {
	for _, d := range l.o.Datatypes {
		l.datatypes[l.o.Resolve(d.ID)] = true
	}
	for _, c := range l.o.Classes {
		if _, err := l.declare(l.o.Resolve(c.ID), axiom.LabelClass, c.Label, c.Definition, nil); err != nil {
			return err
		}
	}
	for _, d := range l.o.Datatypes {
		if _, err := l.declare(l.o.Resolve(d.ID), axiom.LabelDatatype, d.Label, "", nil); err != nil {
			return err
		}
	}
	for _, p := range l.o.Properties {
		labels := []string{l.propertyKind(p).Label()}
		if p.Functional {
			labels = append(labels, axiom.LabelFunctionalProperty)
		}
		if _, err := l.declare(l.o.Resolve(p.ID), labels[0], p.Label, p.Definition, labels[1:]); err != nil {
			return err
		}
	}
	for _, d := range l.o.Individuals {
		if _, err := l.declare(l.o.Resolve(d.ID), axiom.LabelNamedIndividual, d.Label, d.Definition, nil); err != nil {
			return err
		}
	}
	for _, c := range l.o.Classes {
		if err := l.class(c); err != nil {
			return fmt.Errorf("loader: class %s: %w", c.ID, err)
		}
	}
	for _, d := range l.o.Datatypes {
		if len(d.UnionOf) == 0 {
			continue
		}
		uri := l.o.Resolve(d.ID)
		n, err := l.ref(uri)
		if err != nil {
			return err
		}
		if err := l.list(n, axiom.EdgeUnionOf, uri, d.UnionOf); err != nil {
			return err
		}
	}
	for _, p := range l.o.Properties {
		if err := l.property(p); err != nil {
			return fmt.Errorf("loader: property %s: %w", p.ID, err)
		}
	}
	for _, d := range l.o.Individuals {
		n, err := l.ref(l.o.Resolve(d.ID))
		if err != nil {
			return err
		}
		for _, t := range d.Types {
			c, err := l.ref(l.o.Resolve(t))
			if err != nil {
				return err
			}
			if err := l.edge(axiom.EdgeType, n, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *load) propertyKind(p Property) axiom.PropertyKind {
	if k, ok := axiom.ParsePropertyKind(p.Kind); ok {
		return k
	}
	refs := p.Range.Refs
	if len(p.Range.UnionOf) > 0 {
		refs = p.Range.UnionOf
	}
	if len(refs) == 0 {
		return axiom.ObjectProperty
	}
	for _, r := range refs {
		uri := l.o.Resolve(r)
		if !isDatatypeURI(uri) && !l.datatypes[uri] {
			return axiom.ObjectProperty
		}
	}
	return axiom.DatatypeProperty
}

// declare merges a node for a declared term and returns it.
func (l *load) declare(uri, kind, label, definition string, extra []string) (*axiom.Node, error) {
	if label == "" {
		label = axiom.LocalName(uri)
	}
	props := axiom.Props{axiom.KeyURI: uri, axiom.KeyLabel: label}
	if definition != "" {
		props[axiom.KeyDefinition] = definition
	}
	labels := append([]string{axiom.LabelResource, kind}, extra...)
	n, created, err := l.tx.MergeNode(l.ctx, labels, axiom.KeyURI, props)
	if created {
		l.stats.NodesCreated++
	}
	return n, err
}

// ref returns the node of uri, creating an undeclared class or datatype
// node for it when missing. Existing nodes are returned untouched.
func (l *load) ref(uri string) (*axiom.Node, error) {
	kind := axiom.LabelClass
	if isDatatypeURI(uri) || l.datatypes[uri] {
		kind = axiom.LabelDatatype
	}
	return l.refAs(uri, kind)
}

// refAs is like ref with an explicit node label for missing nodes.
// An empty kind creates a bare resource.
func (l *load) refAs(uri, kind string) (*axiom.Node, error) {
	n, err := axiom.NodeByURI(l.ctx, l.tx, uri)
	if err != nil || n != nil {
		return n, err
	}
	if kind == "" {
		kind = axiom.LabelResource
	}
	return l.declare(uri, kind, "", "", nil)
}

// anonymous merges a blank node with a deterministic identifier.
func (l *load) anonymous(id string, labels ...string) (*axiom.Node, error) {
	n, created, err := l.tx.MergeNode(l.ctx, append([]string{axiom.LabelResource}, labels...), axiom.KeyURI, axiom.Props{axiom.KeyURI: id})
	if created {
		l.stats.NodesCreated++
	}
	return n, err
}

func (l *load) edge(typ string, from, to *axiom.Node) error {
	_, created, err := l.tx.MergeEdge(l.ctx, typ, from.ID, to.ID, nil, nil)
	if created {
		l.stats.EdgesCreated++
	}
	return err
}

// list attaches an rdf list of refs to owner through an edge of type typ.
func (l *load) list(owner *axiom.Node, typ, id string, refs Refs) error {
	var prev *axiom.Node
	for i, r := range refs {
		cell, err := l.anonymous(id + "/list/" + strconv.Itoa(i))
		if err != nil {
			return err
		}
		item, err := l.ref(l.o.Resolve(r))
		if err != nil {
			return err
		}
		if err := l.edge(axiom.EdgeFirst, cell, item); err != nil {
			return err
		}
		if prev == nil {
			err = l.edge(typ, owner, cell)
		} else {
			err = l.edge(axiom.EdgeRest, prev, cell)
		}
		if err != nil {
			return err
		}
		prev = cell
	}
	return nil
}

func (l *load) class(c Class) error {
	uri := l.o.Resolve(c.ID)
	n, err := l.ref(uri)
	if err != nil {
		return err
	}
	for _, s := range c.SubClassOf {
		parent, err := l.ref(l.o.Resolve(s))
		if err != nil {
			return err
		}
		if err := l.edge(axiom.EdgeSubClassOf, n, parent); err != nil {
			return err
		}
	}
	for i, r := range c.Restrictions {
		if err := l.restriction(n, "_:"+axiom.LocalName(uri)+"/restriction/"+strconv.Itoa(i), r); err != nil {
			return err
		}
	}
	if len(c.OneOf) > 0 {
		if err := l.list(n, axiom.EdgeOneOf, "_:"+axiom.LocalName(uri)+"/oneOf", c.OneOf); err != nil {
			return err
		}
	}
	if len(c.UnionOf) > 0 {
		if err := l.list(n, axiom.EdgeUnionOf, "_:"+axiom.LocalName(uri)+"/unionOf", c.UnionOf); err != nil {
			return err
		}
	}
	for _, rel := range c.Relations {
		target, err := l.ref(l.o.Resolve(rel.Target))
		if err != nil {
			return err
		}
		typ := rel.Type
		if prefix, local, ok := strings.Cut(typ, ":"); ok {
			typ = prefix + "__" + local
		}
		if err := l.edge(typ, n, target); err != nil {
			return err
		}
	}
	return nil
}

func (l *load) restriction(class *axiom.Node, id string, r Restriction) error {
	props := axiom.Props{axiom.KeyURI: id}
	for key, v := range map[string]*int{
		axiom.KeyCardinality:          r.Cardinality,
		axiom.KeyQualifiedCardinality: r.QualifiedCardinality,
		axiom.KeyMinCardinality:       r.MinCardinality,
		axiom.KeyMaxCardinality:       r.MaxCardinality,
		axiom.KeyMinQualified:         r.MinQualifiedCardinality,
		axiom.KeyMaxQualified:         r.MaxQualifiedCardinality,
	} {
		if v != nil {
			props[key] = int64(*v)
		}
	}
	n, created, err := l.tx.MergeNode(l.ctx, []string{axiom.LabelResource, axiom.LabelRestriction}, axiom.KeyURI, props)
	if err != nil {
		return err
	}
	if created {
		l.stats.NodesCreated++
	}
	if err := l.edge(axiom.EdgeSubClassOf, class, n); err != nil {
		return err
	}
	if r.OnProperty != "" {
		p, err := l.refAs(l.o.Resolve(r.OnProperty), "")
		if err != nil {
			return err
		}
		if err := l.edge(axiom.EdgeOnProperty, n, p); err != nil {
			return err
		}
	}
	fillers := []struct{ typ, ref string }{
		{axiom.EdgeSomeValuesFrom, r.SomeValuesFrom},
		{axiom.EdgeAllValuesFrom, r.AllValuesFrom},
		{axiom.EdgeOnClass, r.OnClass},
		{axiom.EdgeOnDataRange, r.OnDataRange},
	}
	for _, f := range fillers {
		if f.ref == "" {
			continue
		}
		filler, err := l.ref(l.o.Resolve(f.ref))
		if err != nil {
			return err
		}
		if err := l.edge(f.typ, n, filler); err != nil {
			return err
		}
	}
	return nil
}

func (l *load) property(p Property) error {
	n, err := l.ref(l.o.Resolve(p.ID))
	if err != nil {
		return err
	}
	for _, d := range p.Domain {
		c, err := l.ref(l.o.Resolve(d))
		if err != nil {
			return err
		}
		if err := l.edge(axiom.EdgeDomain, n, c); err != nil {
			return err
		}
	}
	for _, r := range p.Range.Refs {
		target, err := l.ref(l.o.Resolve(r))
		if err != nil {
			return err
		}
		if err := l.edge(axiom.EdgeRange, n, target); err != nil {
			return err
		}
	}
	if len(p.Range.UnionOf) == 0 {
		return nil
	}
	id := "_:" + axiom.LocalName(n.URI()) + "/range"
	kind := axiom.LabelClass
	if l.propertyKind(p) == axiom.DatatypeProperty {
		kind = axiom.LabelDatatype
	}
	u, err := l.anonymous(id, kind)
	if err != nil {
		return err
	}
	if err := l.edge(axiom.EdgeRange, n, u); err != nil {
		return err
	}
	return l.list(u, axiom.EdgeUnionOf, id, p.Range.UnionOf)
}
