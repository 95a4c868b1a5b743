// Package sqlgraph implements axiom.Store on top of a relational database.
//
// Nodes and edges live in two tables and carry their labels and properties
// as JSON documents. Every batch runs in a database transaction, and reads run
// in a read transaction, so readers observe committed batches only.
package sqlgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/dialect"
	dsql "github.com/syssam/onto2schema/dialect/sql"
)

// Table names.
const (
	NodesTable = "axiom_nodes"
	EdgesTable = "axiom_edges"
)

// Store is a SQL backed axiom.Store.
type Store struct {
	drv     dialect.Driver
	dialect string
	logger  *slog.Logger
	mu      sync.Mutex // single writer
	closed  atomic.Bool
}

var _ axiom.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open returns a Store over drv, creating the tables if needed.
func Open(ctx context.Context, drv dialect.Driver, opts ...Option) (*Store, error) {
	s := &Store{drv: drv, dialect: drv.Dialect(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if !dialect.Valid(s.dialect) {
		return nil, onto2schema.NewConfigError("dialect", s.dialect, "unsupported store dialect")
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dialect) {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("sqlgraph: migrate: %w", err)
		}
	}
	s.logger.DebugContext(ctx, "axiom store ready", "dialect", s.dialect)
	return nil
}

func schemaStatements(name string) []string {
	switch name {
	case dialect.MySQL:
		return []string{
			"CREATE TABLE IF NOT EXISTS axiom_nodes (id BIGINT AUTO_INCREMENT PRIMARY KEY, labels LONGTEXT NOT NULL, props LONGTEXT NOT NULL)",
			"CREATE TABLE IF NOT EXISTS axiom_edges (id BIGINT AUTO_INCREMENT PRIMARY KEY, type VARCHAR(255) NOT NULL, src BIGINT NOT NULL, dst BIGINT NOT NULL, props LONGTEXT NOT NULL, INDEX axiom_edges_src (src), INDEX axiom_edges_dst (dst))",
		}
	case dialect.Postgres:
		return []string{
			"CREATE TABLE IF NOT EXISTS axiom_nodes (id BIGSERIAL PRIMARY KEY, labels TEXT NOT NULL, props TEXT NOT NULL)",
			"CREATE TABLE IF NOT EXISTS axiom_edges (id BIGSERIAL PRIMARY KEY, type TEXT NOT NULL, src BIGINT NOT NULL, dst BIGINT NOT NULL, props TEXT NOT NULL)",
			"CREATE INDEX IF NOT EXISTS axiom_edges_src ON axiom_edges (src)",
			"CREATE INDEX IF NOT EXISTS axiom_edges_dst ON axiom_edges (dst)",
		}
	default:
		return []string{
			"CREATE TABLE IF NOT EXISTS axiom_nodes (id INTEGER PRIMARY KEY AUTOINCREMENT, labels TEXT NOT NULL, props TEXT NOT NULL)",
			"CREATE TABLE IF NOT EXISTS axiom_edges (id INTEGER PRIMARY KEY AUTOINCREMENT, type TEXT NOT NULL, src INTEGER NOT NULL, dst INTEGER NOT NULL, props TEXT NOT NULL)",
			"CREATE INDEX IF NOT EXISTS axiom_edges_src ON axiom_edges (src)",
			"CREATE INDEX IF NOT EXISTS axiom_edges_dst ON axiom_edges (dst)",
		}
	}
}

// View implements axiom.Store.
func (s *Store) View(ctx context.Context, fn func(axiom.Reader) error) error {
	if s.closed.Load() {
		return onto2schema.ErrStoreClosed
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return onto2schema.NewStoreError("view", err)
	}
	err = fn(&reader{eq: tx})
	return errors.Join(err, tx.Rollback())
}

// Update implements axiom.Store.
func (s *Store) Update(ctx context.Context, batch string, fn func(axiom.Tx) error) error {
	if s.closed.Load() {
		return onto2schema.ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return onto2schema.NewStoreError(batch, err)
	}
	if err := fn(&writer{reader: reader{eq: tx}, dialect: s.dialect}); err != nil {
		return onto2schema.NewStoreError(batch, errors.Join(err, rollback(tx)))
	}
	if err := tx.Commit(); err != nil {
		return onto2schema.NewStoreError(batch, err)
	}
	return nil
}

func rollback(tx dialect.Tx) error {
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("sqlgraph: rollback: %w", err)
	}
	return nil
}

// Close implements axiom.Store.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.drv.Close()
}

type reader struct {
	eq dialect.ExecQuerier
}

func (r *reader) Node(ctx context.Context, id int64) (*axiom.Node, error) {
	ns, err := r.queryNodes(ctx, "SELECT id, labels, props FROM axiom_nodes WHERE id = ?", id)
	if err != nil || len(ns) == 0 {
		return nil, err
	}
	return ns[0], nil
}

func (r *reader) Nodes(ctx context.Context, q axiom.NodeQuery) ([]*axiom.Node, error) {
	ns, err := r.queryNodes(ctx, "SELECT id, labels, props FROM axiom_nodes ORDER BY id")
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(ns, func(n *axiom.Node) bool { return !q.Match(n) }), nil
}

func (r *reader) Edges(ctx context.Context, q axiom.EdgeQuery) ([]*axiom.Edge, error) {
	var (
		query = "SELECT id, type, src, dst, props FROM axiom_edges"
		where []string
		args  []any
	)
	if q.From != 0 {
		where = append(where, "src = ?")
		args = append(args, q.From)
	}
	if q.To != 0 {
		where = append(where, "dst = ?")
		args = append(args, q.To)
	}
	if len(q.Types) == 1 {
		where = append(where, "type = ?")
		args = append(args, q.Types[0])
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	es, err := r.queryEdges(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(es, func(e *axiom.Edge) bool { return !q.Match(e) }), nil
}

func (r *reader) queryNodes(ctx context.Context, query string, args ...any) ([]*axiom.Node, error) {
	rows := &dsql.Rows{}
	if err := r.eq.Query(ctx, query, nonNil(args), rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*axiom.Node
	for rows.Next() {
		var (
			n             = &axiom.Node{}
			labels, props string
		)
		if err := rows.Scan(&n.ID, &labels, &props); err != nil {
			return nil, fmt.Errorf("sqlgraph: scan node: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &n.Labels); err != nil {
			return nil, fmt.Errorf("sqlgraph: decode labels of node %d: %w", n.ID, err)
		}
		p, err := decodeProps(props)
		if err != nil {
			return nil, fmt.Errorf("sqlgraph: decode props of node %d: %w", n.ID, err)
		}
		n.Props = p
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *reader) queryEdges(ctx context.Context, query string, args ...any) ([]*axiom.Edge, error) {
	rows := &dsql.Rows{}
	if err := r.eq.Query(ctx, query, nonNil(args), rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*axiom.Edge
	for rows.Next() {
		var (
			e     = &axiom.Edge{}
			props string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.From, &e.To, &props); err != nil {
			return nil, fmt.Errorf("sqlgraph: scan edge: %w", err)
		}
		p, err := decodeProps(props)
		if err != nil {
			return nil, fmt.Errorf("sqlgraph: decode props of edge %d: %w", e.ID, err)
		}
		e.Props = p
		out = append(out, e)
	}
	return out, rows.Err()
}

type writer struct {
	reader
	dialect string
}

func (w *writer) CreateNode(ctx context.Context, labels []string, props axiom.Props) (*axiom.Node, error) {
	n := &axiom.Node{Labels: mergeLabels(nil, labels), Props: setProps(nil, props)}
	lb, err := json.Marshal(n.Labels)
	if err != nil {
		return nil, err
	}
	pb, err := encodeProps(n.Props)
	if err != nil {
		return nil, err
	}
	if n.ID, err = w.insert(ctx, "INSERT INTO axiom_nodes (labels, props) VALUES (?, ?)", string(lb), pb); err != nil {
		return nil, err
	}
	return n, nil
}

func (w *writer) MergeNode(ctx context.Context, labels []string, key string, props axiom.Props) (*axiom.Node, bool, error) {
	v, ok := props[key]
	if !ok {
		return nil, false, fmt.Errorf("sqlgraph: merge key %q missing from props", key)
	}
	all, err := w.Nodes(ctx, axiom.NodeQuery{Props: axiom.Props{key: v}})
	if err != nil {
		return nil, false, err
	}
	var found *axiom.Node
	for _, n := range all {
		if n.HasLabels(labels...) {
			found = n
			break
		}
	}
	if found == nil && len(all) > 0 {
		found = all[0]
	}
	if found == nil {
		n, err := w.CreateNode(ctx, labels, props)
		return n, err == nil, err
	}
	found.Labels = mergeLabels(found.Labels, labels)
	found.Props = setProps(found.Props, props)
	lb, err := json.Marshal(found.Labels)
	if err != nil {
		return nil, false, err
	}
	pb, err := encodeProps(found.Props)
	if err != nil {
		return nil, false, err
	}
	if err := w.eq.Exec(ctx, "UPDATE axiom_nodes SET labels = ?, props = ? WHERE id = ?", []any{string(lb), pb, found.ID}, nil); err != nil {
		return nil, false, err
	}
	return found, false, nil
}

func (w *writer) SetNodeProps(ctx context.Context, id int64, props axiom.Props) error {
	n, err := w.Node(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("sqlgraph: node %d not found", id)
	}
	pb, err := encodeProps(setProps(n.Props, props))
	if err != nil {
		return err
	}
	return w.eq.Exec(ctx, "UPDATE axiom_nodes SET props = ? WHERE id = ?", []any{pb, id}, nil)
}

func (w *writer) MergeEdge(ctx context.Context, typ string, from, to int64, keys []string, props axiom.Props) (*axiom.Edge, bool, error) {
	for _, id := range []int64{from, to} {
		n, err := w.Node(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if n == nil {
			return nil, false, fmt.Errorf("sqlgraph: edge %s endpoint %d not found", typ, id)
		}
	}
	es, err := w.Edges(ctx, axiom.EdgeQuery{Types: []string{typ}, From: from, To: to})
	if err != nil {
		return nil, false, err
	}
	for _, e := range es {
		if !sameKeys(e.Props, props, keys) {
			continue
		}
		e.Props = setProps(e.Props, props)
		pb, err := encodeProps(e.Props)
		if err != nil {
			return nil, false, err
		}
		if err := w.eq.Exec(ctx, "UPDATE axiom_edges SET props = ? WHERE id = ?", []any{pb, e.ID}, nil); err != nil {
			return nil, false, err
		}
		return e, false, nil
	}
	e := &axiom.Edge{Type: typ, From: from, To: to, Props: setProps(nil, props)}
	pb, err := encodeProps(e.Props)
	if err != nil {
		return nil, false, err
	}
	if e.ID, err = w.insert(ctx, "INSERT INTO axiom_edges (type, src, dst, props) VALUES (?, ?, ?, ?)", typ, from, to, pb); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (w *writer) DeleteEdge(ctx context.Context, id int64) error {
	return w.eq.Exec(ctx, "DELETE FROM axiom_edges WHERE id = ?", []any{id}, nil)
}

func (w *writer) DeleteNode(ctx context.Context, id int64, detach bool) error {
	if !detach {
		rows := &dsql.Rows{}
		if err := w.eq.Query(ctx, "SELECT COUNT(*) FROM axiom_edges WHERE src = ? OR dst = ?", []any{id, id}, rows); err != nil {
			return err
		}
		var n int64
		if rows.Next() {
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("sqlgraph: node %d still has %d edges", id, n)
		}
	} else if err := w.eq.Exec(ctx, "DELETE FROM axiom_edges WHERE src = ? OR dst = ?", []any{id, id}, nil); err != nil {
		return err
	}
	return w.eq.Exec(ctx, "DELETE FROM axiom_nodes WHERE id = ?", []any{id}, nil)
}

// insert executes an INSERT statement and returns the generated id.
func (w *writer) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if w.dialect == dialect.Postgres {
		rows := &dsql.Rows{}
		if err := w.eq.Query(ctx, query+" RETURNING id", args, rows); err != nil {
			return 0, err
		}
		defer rows.Close()
		if !rows.Next() {
			return 0, fmt.Errorf("sqlgraph: insert returned no id: %w", rows.Err())
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	var res dsql.Result
	if err := w.eq.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func encodeProps(p axiom.Props) (string, error) {
	if p == nil {
		p = axiom.Props{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("sqlgraph: encode props: %w", err)
	}
	return string(b), nil
}

func decodeProps(s string) (axiom.Props, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	p := axiom.Props{}
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

func sameKeys(have, want axiom.Props, keys []string) bool {
	for _, k := range keys {
		if !axiom.ValueEqual(have[k], want[k]) {
			return false
		}
	}
	return true
}

func mergeLabels(have, add []string) []string {
	out := append([]string{}, have...)
	for _, l := range add {
		if !slices.Contains(out, l) {
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
