package tree

import (
	"context"

	"github.com/voxtree-dev/voxtree/utils"
)

// LeafManager snapshots a tree's leaf nodes into a flat slice so they can be
// processed in parallel without touching the tree's structure. The snapshot
// goes stale when leaves are added to or removed from the tree; call Rebuild
// after such changes.
type LeafManager[T comparable] struct {
	tree   *Tree[T]
	leaves []*LeafNode[T]
}

// NewLeafManager returns a manager holding a snapshot of t's current leaves.
func NewLeafManager[T comparable](t *Tree[T]) *LeafManager[T] {
	m := &LeafManager[T]{tree: t}
	m.Rebuild()
	return m
}

// Rebuild refreshes the leaf snapshot from the tree.
func (m *LeafManager[T]) Rebuild() {
	m.leaves = m.leaves[:0]
	m.tree.ForEachLeaf(func(leaf *LeafNode[T]) {
		m.leaves = append(m.leaves, leaf)
	})
}

// Tree returns the managed tree.
func (m *LeafManager[T]) Tree() *Tree[T] { return m.tree }

// Len returns the number of snapshotted leaves.
func (m *LeafManager[T]) Len() int { return len(m.leaves) }

// Leaf returns the i-th snapshotted leaf.
func (m *LeafManager[T]) Leaf(i int) *LeafNode[T] { return m.leaves[i] }

// Leaves returns the snapshot slice itself; callers must not append to it.
func (m *LeafManager[T]) Leaves() []*LeafNode[T] { return m.leaves }

// EnsureAuxBuffers allocates the scratch buffer of every snapshotted leaf,
// initialized to a copy of the leaf's values.
func (m *LeafManager[T]) EnsureAuxBuffers() {
	for _, leaf := range m.leaves {
		leaf.EnsureAuxBuffer()
	}
}

// SwapLeafBuffers exchanges the primary and scratch buffers of every
// snapshotted leaf that has a scratch buffer.
func (m *LeafManager[T]) SwapLeafBuffers() {
	for _, leaf := range m.leaves {
		leaf.SwapBuffers()
	}
}

// ForEach runs fn over the snapshotted leaves, split into chunks of at least
// grainSize leaves processed concurrently. A grainSize of zero runs serially.
func (m *LeafManager[T]) ForEach(ctx context.Context, grainSize int, fn func(i int, leaf *LeafNode[T]) error) error {
	return utils.ParallelForRange(ctx, len(m.leaves), grainSize, func(ctx context.Context, from, to int) error {
		for i := from; i < to; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i, m.leaves[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
