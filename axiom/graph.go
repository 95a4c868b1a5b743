// Package axiom defines the property graph model that ontology axioms are
// stored in, together with the narrow store interface the compiler uses to
// read and rewrite them.
package axiom

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Props holds the properties of a node or an edge. Values are strings,
// booleans, numbers or slices of those.
type Props map[string]any

// Clone returns a shallow copy of p. Slice values are copied as well.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	c := make(Props, len(p))
	for k, v := range p {
		if s, ok := v.([]any); ok {
			v = append([]any(nil), s...)
		}
		c[k] = v
	}
	return c
}

// String returns the value of key as a string, or "" if absent.
func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value of key as a boolean.
func (p Props) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int returns the value of key as an integer. The second result reports
// whether key holds an integral value.
func (p Props) Int(key string) (int64, bool) {
	return ToInt(p[key])
}

// Strings returns the value of key as a list of strings.
func (p Props) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Matches reports whether every key of want is present in p with an equal value.
func (p Props) Matches(want Props) bool {
	for k, v := range want {
		got, ok := p[k]
		if !ok || !ValueEqual(got, v) {
			return false
		}
	}
	return true
}

// Node is a vertex of the axiom graph.
type Node struct {
	ID     int64
	Labels []string
	Props  Props
}

// HasLabel reports whether n carries label l.
func (n *Node) HasLabel(l string) bool {
	return slices.Contains(n.Labels, l)
}

// HasLabels reports whether n carries every label of ls.
func (n *Node) HasLabels(ls ...string) bool {
	for _, l := range ls {
		if !n.HasLabel(l) {
			return false
		}
	}
	return true
}

// URI returns the uri property of n.
func (n *Node) URI() string { return n.Props.String(KeyURI) }

// Label returns the human readable label of n.
func (n *Node) Label() string { return n.Props.String(KeyLabel) }

// Description returns the definition of n, falling back to its comment.
func (n *Node) Description() string {
	if d := n.Props.String(KeyDefinition); d != "" {
		return d
	}
	return n.Props.String(KeyComment)
}

// Display returns a short identification of n for logs and errors.
func (n *Node) Display() string {
	switch {
	case n.URI() != "":
		return n.URI()
	case n.Label() != "":
		return n.Label()
	default:
		return "#" + strconv.FormatInt(n.ID, 10)
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	return &Node{ID: n.ID, Labels: append([]string(nil), n.Labels...), Props: n.Props.Clone()}
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	ID    int64
	Type  string
	From  int64
	To    int64
	Props Props
}

// URI returns the uri property of e.
func (e *Edge) URI() string { return e.Props.String(KeyURI) }

// Materialized reports whether e was produced by the materializer.
func (e *Edge) Materialized() bool { return e.Props.Bool(KeyMaterialized) }

// Clone returns a deep copy of e.
func (e *Edge) Clone() *Edge {
	return &Edge{ID: e.ID, Type: e.Type, From: e.From, To: e.To, Props: e.Props.Clone()}
}

// NodeQuery selects nodes. Zero fields match everything.
type NodeQuery struct {
	Labels []string // All labels must be present
	Props  Props    // All props must be equal
}

// Match reports whether n satisfies q.
func (q NodeQuery) Match(n *Node) bool {
	return n.HasLabels(q.Labels...) && n.Props.Matches(q.Props)
}

// EdgeQuery selects edges. Zero fields match everything.
type EdgeQuery struct {
	Types []string // Any of the types
	From  int64
	To    int64
	Props Props
}

// Match reports whether e satisfies q.
func (q EdgeQuery) Match(e *Edge) bool {
	if len(q.Types) > 0 && !slices.Contains(q.Types, e.Type) {
		return false
	}
	if q.From != 0 && e.From != q.From {
		return false
	}
	if q.To != 0 && e.To != q.To {
		return false
	}
	return e.Props.Matches(q.Props)
}

// SortNodes orders nodes by ascending id.
func SortNodes(ns []*Node) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
}

// SortEdges orders edges by ascending id.
func SortEdges(es []*Edge) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// LocalName returns the part of a URI after its last '#', '/' or ':'.
func LocalName(uri string) string {
	if i := strings.LastIndexAny(uri, "#/:"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// ToInt converts numeric property values (including their decoded JSON
// forms) to int64.
func ToInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ValueEqual compares two property values. Numbers compare by value
// regardless of their Go type and slices compare element-wise.
func ValueEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case []any:
		bv, ok := toSlice(b)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []string:
		s := make([]any, len(av))
		for i, e := range av {
			s[i] = e
		}
		return ValueEqual(s, b)
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toSlice(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case []string:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = e
		}
		return s, true
	default:
		return nil, false
	}
}
