package memgraph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/axiom/axiomtest"
)

func TestStore(t *testing.T) {
	axiomtest.Run(t, func(*testing.T) axiom.Store { return New() })
}

func TestClosed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	err := s.View(context.Background(), func(axiom.Reader) error { return nil })
	assert.True(t, errors.Is(err, onto2schema.ErrStoreClosed))
	err = s.Update(context.Background(), "x", func(axiom.Tx) error { return nil })
	assert.True(t, errors.Is(err, onto2schema.ErrStoreClosed))
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Update(ctx, "slow", func(tx axiom.Tx) error {
			if _, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, nil); err != nil {
				return err
			}
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		ns, err := r.Nodes(ctx, axiom.NodeQuery{})
		require.NoError(t, err)
		assert.Empty(t, ns, "uncommitted batch must not be visible")
		return nil
	}))
	close(release)
	wg.Wait()
	n, _ := s.Stats()
	assert.Equal(t, 1, n)
}

func TestReadersGetCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	var id int64
	require.NoError(t, s.Update(ctx, "create", func(tx axiom.Tx) error {
		n, err := tx.CreateNode(ctx, []string{axiom.LabelClass}, axiom.Props{axiom.KeyLabel: "A"})
		id = n.ID
		return err
	}))
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		n, _ := r.Node(ctx, id)
		n.Props[axiom.KeyLabel] = "mutated"
		return nil
	}))
	require.NoError(t, s.View(ctx, func(r axiom.Reader) error {
		n, _ := r.Node(ctx, id)
		assert.Equal(t, "A", n.Label())
		return nil
	}))
}

func TestBatchErrorWrapped(t *testing.T) {
	s := New()
	cause := errors.New("boom")
	err := s.Update(context.Background(), "failing", func(axiom.Tx) error { return cause })
	require.Error(t, err)
	assert.True(t, onto2schema.IsStoreError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"failing"`)
}
