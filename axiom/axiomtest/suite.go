// Package axiomtest provides a behavioural test suite shared by every
// axiom.Store implementation.
package axiomtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema/axiom"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) axiom.Store

// Run executes the store suite against stores returned by open.
func Run(t *testing.T, open Opener) {
	t.Run("CreateAndQuery", func(t *testing.T) { testCreateAndQuery(t, open(t)) })
	t.Run("MergeNode", func(t *testing.T) { testMergeNode(t, open(t)) })
	t.Run("MergeEdge", func(t *testing.T) { testMergeEdge(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("SetNodeProps", func(t *testing.T) { testSetNodeProps(t, open(t)) })
}

func testCreateAndQuery(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	var a, b *axiom.Node
	err := s.Update(ctx, "create", func(tx axiom.Tx) error {
		var err error
		a, err = tx.CreateNode(ctx, []string{axiom.LabelResource, axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#A", axiom.KeyLabel: "A"})
		if err != nil {
			return err
		}
		b, err = tx.CreateNode(ctx, []string{axiom.LabelResource, axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#B", "rank": 2})
		if err != nil {
			return err
		}
		_, err = tx.CreateNode(ctx, []string{axiom.LabelResource, axiom.LabelDatatype}, axiom.Props{axiom.KeyURI: axiom.NamespaceXSD + "string"})
		if err != nil {
			return err
		}
		_, _, err = tx.MergeEdge(ctx, axiom.EdgeSubClassOf, b.ID, a.ID, nil, nil)
		return err
	})
	require.NoError(t, err)
	require.NotZero(t, a.ID)
	require.Less(t, a.ID, b.ID)

	err = s.View(ctx, func(r axiom.Reader) error {
		classes, err := r.Nodes(ctx, axiom.NodeQuery{Labels: []string{axiom.LabelClass}})
		require.NoError(t, err)
		require.Len(t, classes, 2)
		assert.Equal(t, "urn:t#A", classes[0].URI())
		assert.Equal(t, "A", classes[0].Label())

		ranked, err := r.Nodes(ctx, axiom.NodeQuery{Props: axiom.Props{"rank": 2}})
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, b.ID, ranked[0].ID)

		n, err := r.Node(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.True(t, n.HasLabel(axiom.LabelClass))

		missing, err := r.Node(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, missing)

		edges, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{axiom.EdgeSubClassOf}, To: a.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, b.ID, edges[0].From)

		parents, err := axiom.Targets(ctx, r, b.ID, axiom.EdgeSubClassOf)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, a.ID, parents[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func testMergeNode(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	labels := []string{axiom.LabelResource, axiom.LabelClass}
	var first int64
	for i := range 2 {
		err := s.Update(ctx, "merge", func(tx axiom.Tx) error {
			n, created, err := tx.MergeNode(ctx, labels, axiom.KeyURI, axiom.Props{axiom.KeyURI: "urn:t#A", axiom.KeyLabel: "A"})
			if err != nil {
				return err
			}
			assert.Equal(t, i == 0, created)
			if i == 0 {
				first = n.ID
			}
			assert.Equal(t, first, n.ID)
			return nil
		})
		require.NoError(t, err)
	}
	err := s.Update(ctx, "merge-labels", func(tx axiom.Tx) error {
		n, created, err := tx.MergeNode(ctx, []string{axiom.LabelClass, axiom.LabelNamedIndividual}, axiom.KeyURI, axiom.Props{axiom.KeyURI: "urn:t#A"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, n.HasLabels(axiom.LabelClass, axiom.LabelNamedIndividual, axiom.LabelResource))
		assert.Equal(t, "A", n.Label())
		return nil
	})
	require.NoError(t, err)
	err = s.View(ctx, func(r axiom.Reader) error {
		ns, err := r.Nodes(ctx, axiom.NodeQuery{})
		require.NoError(t, err)
		assert.Len(t, ns, 1)
		return nil
	})
	require.NoError(t, err)
}

func testMergeEdge(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	var a, b *axiom.Node
	require.NoError(t, s.Update(ctx, "nodes", func(tx axiom.Tx) error {
		var err error
		if a, err = tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#A"}); err != nil {
			return err
		}
		b, err = tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#B"})
		return err
	}))
	keys := []string{axiom.KeyURI, axiom.KeyInferredBy}
	for i := range 2 {
		require.NoError(t, s.Update(ctx, "edge", func(tx axiom.Tx) error {
			_, created, err := tx.MergeEdge(ctx, "worksFor", a.ID, b.ID, keys, axiom.Props{
				axiom.KeyURI:            "urn:t#worksFor",
				axiom.KeyInferredBy:     axiom.InferredDomainRange,
				axiom.KeyCardinalityRaw: "0..1",
			})
			assert.Equal(t, i == 0, created)
			return err
		}))
	}
	// A different provenance key is a different edge.
	require.NoError(t, s.Update(ctx, "edge", func(tx axiom.Tx) error {
		_, created, err := tx.MergeEdge(ctx, "worksFor", a.ID, b.ID, keys, axiom.Props{
			axiom.KeyURI:        "urn:t#worksFor",
			axiom.KeyInferredBy: axiom.InferredRestriction,
		})
		assert.True(t, created)
		return err
	}))
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		es, err := r.Edges(ctx, axiom.EdgeQuery{Types: []string{"worksFor"}, From: a.ID})
		require.NoError(t, err)
		require.Len(t, es, 2)
		assert.Equal(t, "0..1", es[0].Props.String(axiom.KeyCardinalityRaw))
		assert.Less(t, es[0].ID, es[1].ID)
		matched, err := r.Edges(ctx, axiom.EdgeQuery{Props: axiom.Props{axiom.KeyInferredBy: axiom.InferredRestriction}})
		require.NoError(t, err)
		assert.Len(t, matched, 1)
		return nil
	}))
}

func testDelete(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	var a, b *axiom.Node
	var e *axiom.Edge
	require.NoError(t, s.Update(ctx, "nodes", func(tx axiom.Tx) error {
		var err error
		if a, err = tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#A"}); err != nil {
			return err
		}
		if b, err = tx.CreateNode(ctx, []string{axiom.LabelRestriction}, nil); err != nil {
			return err
		}
		e, _, err = tx.MergeEdge(ctx, axiom.EdgeSubClassOf, a.ID, b.ID, nil, nil)
		return err
	}))
	err := s.Update(ctx, "delete-attached", func(tx axiom.Tx) error {
		return tx.DeleteNode(ctx, b.ID, false)
	})
	require.Error(t, err)

	require.NoError(t, s.Update(ctx, "delete", func(tx axiom.Tx) error {
		if err := tx.DeleteEdge(ctx, e.ID); err != nil {
			return err
		}
		// Idempotent deletes.
		if err := tx.DeleteEdge(ctx, e.ID); err != nil {
			return err
		}
		if err := tx.DeleteNode(ctx, b.ID, false); err != nil {
			return err
		}
		return tx.DeleteNode(ctx, 424242, true)
	}))

	require.NoError(t, s.Update(ctx, "detach", func(tx axiom.Tx) error {
		c, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, nil)
		if err != nil {
			return err
		}
		if _, _, err := tx.MergeEdge(ctx, axiom.EdgeSubClassOf, c.ID, a.ID, nil, nil); err != nil {
			return err
		}
		return tx.DeleteNode(ctx, a.ID, true)
	}))
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		ns, err := r.Nodes(ctx, axiom.NodeQuery{})
		require.NoError(t, err)
		assert.Len(t, ns, 1)
		es, err := r.Edges(ctx, axiom.EdgeQuery{})
		require.NoError(t, err)
		assert.Empty(t, es)
		return nil
	}))
}

var errAbort = errors.New("abort")

func testRollback(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	err := s.Update(ctx, "aborted", func(tx axiom.Tx) error {
		if _, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#A"}); err != nil {
			return err
		}
		ns, err := tx.Nodes(ctx, axiom.NodeQuery{})
		require.NoError(t, err)
		assert.Len(t, ns, 1, "a batch sees its own writes")
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		ns, err := r.Nodes(ctx, axiom.NodeQuery{})
		require.NoError(t, err)
		assert.Empty(t, ns)
		return nil
	}))
}

func testSetNodeProps(t *testing.T, s axiom.Store) {
	defer s.Close()
	ctx := context.Background()
	var id int64
	require.NoError(t, s.Update(ctx, "create", func(tx axiom.Tx) error {
		n, err := tx.CreateNode(ctx, []string{axiom.LabelDatatype}, axiom.Props{axiom.KeyURI: "urn:t#D", "tmp": "x"})
		if err != nil {
			return err
		}
		id = n.ID
		return tx.SetNodeProps(ctx, id, axiom.Props{"tmp": nil, axiom.KeyUnionOf: []any{"xsd:string", "xsd:int"}})
	}))
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		n, err := r.Node(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, n)
		_, ok := n.Props["tmp"]
		assert.False(t, ok)
		assert.Equal(t, []string{"xsd:string", "xsd:int"}, n.Props.Strings(axiom.KeyUnionOf))
		return nil
	}))
}
