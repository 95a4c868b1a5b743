package materialize

import (
	"context"
	"fmt"

	"github.com/syssam/onto2schema/axiom"
)

// RuleKind names a family of rewrite rules.
type RuleKind string

// Rule kinds.
const (
	KindDomainRange RuleKind = "DomainRange"
	KindRestriction RuleKind = "Restriction"
	KindNoRange     RuleKind = "NoRange"
	KindUnionOf     RuleKind = "UnionOf"
	KindOneOf       RuleKind = "OneOf"
	KindDedup       RuleKind = "Dedup"
)

// Rule is one idempotent rewrite pass. Match inspects a snapshot and
// describes the rewrites it would make; Apply performs one of them. Rules
// never depend on each other's order: a rule that sees axioms another rule
// has yet to consume simply matches nothing and is retried by the driver.
type Rule interface {
	Kind() RuleKind
	// Name is unique within a rule list and names the store batch.
	Name() string
	Match(ctx context.Context, r axiom.Reader) ([]Rewrite, error)
	Apply(ctx context.Context, tx axiom.Tx, rw Rewrite) error
}

// Rewrite is a declarative description of one graph rewrite. Apply merges
// the edges, sets the node props, deletes the edges and finally
// detach-deletes the nodes, in that order.
type Rewrite struct {
	// Subject identifies the axiom being rewritten, for logs.
	Subject string
	Merge   []EdgeSpec
	Props   []PropsSpec
	Delete  []int64 // Edge ids
	Detach  []int64 // Node ids
	// Err marks an axiom that cannot be rewritten. Such rewrites are
	// reported and never applied.
	Err error
}

// EdgeSpec describes an edge to merge.
type EdgeSpec struct {
	Type string
	From int64
	To   int64
	// Target, when set, is merged first and replaces To.
	Target *NodeSpec
	Keys   []string
	Props  axiom.Props
}

// NodeSpec describes a node to merge by Key.
type NodeSpec struct {
	Labels []string
	Key    string
	Props  axiom.Props
}

// PropsSpec sets props on a node.
type PropsSpec struct {
	Node  int64
	Props axiom.Props
}

// Empty reports whether rw changes nothing.
func (rw Rewrite) Empty() bool {
	return len(rw.Merge) == 0 && len(rw.Props) == 0 && len(rw.Delete) == 0 && len(rw.Detach) == 0
}

// applier implements Rule.Apply for declarative rewrites.
type applier struct{}

func (applier) Apply(ctx context.Context, tx axiom.Tx, rw Rewrite) error {
	if rw.Err != nil {
		return nil
	}
	for _, e := range rw.Merge {
		to := e.To
		if e.Target != nil {
			n, _, err := tx.MergeNode(ctx, e.Target.Labels, e.Target.Key, e.Target.Props)
			if err != nil {
				return fmt.Errorf("merge node %v: %w", e.Target.Props[e.Target.Key], err)
			}
			to = n.ID
		}
		if _, _, err := tx.MergeEdge(ctx, e.Type, e.From, to, e.Keys, e.Props); err != nil {
			return fmt.Errorf("merge edge %s: %w", e.Type, err)
		}
	}
	for _, p := range rw.Props {
		if err := tx.SetNodeProps(ctx, p.Node, p.Props); err != nil {
			return fmt.Errorf("set props on #%d: %w", p.Node, err)
		}
	}
	for _, id := range rw.Delete {
		if err := tx.DeleteEdge(ctx, id); err != nil {
			return fmt.Errorf("delete edge #%d: %w", id, err)
		}
	}
	for _, id := range rw.Detach {
		if err := tx.DeleteNode(ctx, id, true); err != nil {
			return fmt.Errorf("delete node #%d: %w", id, err)
		}
	}
	return nil
}
