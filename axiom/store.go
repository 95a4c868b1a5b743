package axiom

import (
	"context"
	"log/slog"
	"time"
)

// Reader is a read-only view of a committed graph snapshot.
// Query results are ordered by ascending id.
type Reader interface {
	// Node returns the node with the given id, or nil if it does not exist.
	Node(ctx context.Context, id int64) (*Node, error)
	// Nodes returns the nodes matching q.
	Nodes(ctx context.Context, q NodeQuery) ([]*Node, error)
	// Edges returns the edges matching q.
	Edges(ctx context.Context, q EdgeQuery) ([]*Edge, error)
}

// Tx is a write batch. All changes made through a Tx become visible to
// readers atomically when the batch commits.
type Tx interface {
	Reader

	// CreateNode adds a new node.
	CreateNode(ctx context.Context, labels []string, props Props) (*Node, error)

	// MergeNode finds a node carrying all labels whose props[key] equals the
	// given value, or creates it. An existing node receives the missing labels
	// and has the given props set. The boolean result reports creation.
	MergeNode(ctx context.Context, labels []string, key string, props Props) (*Node, bool, error)

	// SetNodeProps sets the given props on a node. A nil value removes the key.
	SetNodeProps(ctx context.Context, id int64, props Props) error

	// MergeEdge finds an edge of the same type between from and to whose
	// props agree with props on every key of keys, or creates it. An existing
	// edge has its props updated. The boolean result reports creation.
	MergeEdge(ctx context.Context, typ string, from, to int64, keys []string, props Props) (*Edge, bool, error)

	// DeleteEdge removes an edge. Deleting a missing edge is a no-op.
	DeleteEdge(ctx context.Context, id int64) error

	// DeleteNode removes a node. With detach, its edges are removed too;
	// without it, a node that still has edges is an error. Deleting a missing
	// node is a no-op.
	DeleteNode(ctx context.Context, id int64, detach bool) error
}

// Store is a property graph holding ontology axioms.
type Store interface {
	// View runs fn against the last committed snapshot.
	View(ctx context.Context, fn func(Reader) error) error
	// Update runs fn in a named write batch. If fn returns an error the
	// batch is discarded; otherwise it is committed.
	Update(ctx context.Context, batch string, fn func(Tx) error) error
	// Close releases the resources held by the store.
	Close() error
}

// Logged returns a Store that logs every batch with its name, duration and outcome.
func Logged(s Store, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggedStore{Store: s, logger: logger}
}

type loggedStore struct {
	Store
	logger *slog.Logger
}

func (s *loggedStore) Update(ctx context.Context, batch string, fn func(Tx) error) error {
	start := time.Now()
	err := s.Store.Update(ctx, batch, fn)
	if err != nil {
		s.logger.WarnContext(ctx, "store batch failed", "batch", batch, "duration", time.Since(start), "error", err)
		return err
	}
	s.logger.DebugContext(ctx, "store batch committed", "batch", batch, "duration", time.Since(start))
	return nil
}

func (s *loggedStore) View(ctx context.Context, fn func(Reader) error) error {
	start := time.Now()
	err := s.Store.View(ctx, fn)
	s.logger.DebugContext(ctx, "store view", "duration", time.Since(start), "error", err)
	return err
}

// FindOne returns the first node matching q, or nil.
func FindOne(ctx context.Context, r Reader, q NodeQuery) (*Node, error) {
	ns, err := r.Nodes(ctx, q)
	if err != nil || len(ns) == 0 {
		return nil, err
	}
	return ns[0], nil
}

// NodeByURI returns the first node with the given uri, or nil.
func NodeByURI(ctx context.Context, r Reader, uri string) (*Node, error) {
	return FindOne(ctx, r, NodeQuery{Props: Props{KeyURI: uri}})
}

// Targets returns the end nodes of the edges of type typ leaving from.
func Targets(ctx context.Context, r Reader, from int64, typ string) ([]*Node, error) {
	es, err := r.Edges(ctx, EdgeQuery{Types: []string{typ}, From: from})
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(es))
	for _, e := range es {
		n, err := r.Node(ctx, e.To)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// Sources returns the start nodes of the edges of type typ arriving at to.
func Sources(ctx context.Context, r Reader, to int64, typ string) ([]*Node, error) {
	es, err := r.Edges(ctx, EdgeQuery{Types: []string{typ}, To: to})
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(es))
	for _, e := range es {
		n, err := r.Node(ctx, e.From)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListItems walks an rdf list starting at head and returns its items in order.
// Cycles and missing cells end the walk. The visited cell nodes are returned
// as well so callers can delete the scaffolding.
func ListItems(ctx context.Context, r Reader, head *Node) (items, cells []*Node, err error) {
	seen := map[int64]bool{}
	for cur := head; cur != nil && !seen[cur.ID] && cur.URI() != RDFNil; {
		seen[cur.ID] = true
		cells = append(cells, cur)
		firsts, err := Targets(ctx, r, cur.ID, EdgeFirst)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, firsts...)
		rests, err := Targets(ctx, r, cur.ID, EdgeRest)
		if err != nil {
			return nil, nil, err
		}
		cur = nil
		if len(rests) > 0 {
			cur = rests[0]
		}
	}
	return items, cells, nil
}
