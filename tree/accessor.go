package tree

import "github.com/voxtree-dev/voxtree/coords"

// ValueAccessor caches the most recently visited leaf so that spatially
// coherent access patterns skip the root-to-leaf descent. Accessors are not
// safe for concurrent use; give each goroutine its own.
type ValueAccessor[T comparable] struct {
	tree       *Tree[T]
	leafOrigin coords.Coord
	leaf       *LeafNode[T]
}

// NewValueAccessor returns an accessor bound to the given tree.
func NewValueAccessor[T comparable](t *Tree[T]) *ValueAccessor[T] {
	return &ValueAccessor[T]{tree: t}
}

// Tree returns the underlying tree.
func (a *ValueAccessor[T]) Tree() *Tree[T] { return a.tree }

// Clear drops the cached leaf. Call it after any structural change to the
// tree made outside this accessor.
func (a *ValueAccessor[T]) Clear() { a.leaf = nil }

func (a *ValueAccessor[T]) cached(c coords.Coord) *LeafNode[T] {
	if a.leaf != nil && LeafOrigin(c) == a.leafOrigin {
		return a.leaf
	}
	return nil
}

func (a *ValueAccessor[T]) cache(leaf *LeafNode[T]) *LeafNode[T] {
	a.leaf = leaf
	if leaf != nil {
		a.leafOrigin = leaf.Origin()
	}
	return leaf
}

// GetValue returns the value at c.
func (a *ValueAccessor[T]) GetValue(c coords.Coord) T {
	v, _ := a.Probe(c)
	return v
}

// Probe returns the value and active state at c.
func (a *ValueAccessor[T]) Probe(c coords.Coord) (T, bool) {
	if leaf := a.cached(c); leaf != nil {
		off := LeafVoxelOffset(c)
		return leaf.Value(off), leaf.IsValueOn(off)
	}
	if leaf := a.tree.ProbeLeaf(c); leaf != nil {
		a.cache(leaf)
		off := LeafVoxelOffset(c)
		return leaf.Value(off), leaf.IsValueOn(off)
	}
	return a.tree.Probe(c)
}

// IsValueOn reports whether the voxel at c is active.
func (a *ValueAccessor[T]) IsValueOn(c coords.Coord) bool {
	_, on := a.Probe(c)
	return on
}

// SetValue sets the voxel at c to v and marks it active.
func (a *ValueAccessor[T]) SetValue(c coords.Coord, v T) {
	a.TouchLeaf(c).SetValueOn(LeafVoxelOffset(c), v)
}

// SetValueOff sets the voxel at c to v and marks it inactive.
func (a *ValueAccessor[T]) SetValueOff(c coords.Coord, v T) {
	a.TouchLeaf(c).SetValueOff(LeafVoxelOffset(c), v)
}

// SetActiveState changes the active state of the voxel at c, keeping its
// value.
func (a *ValueAccessor[T]) SetActiveState(c coords.Coord, on bool) {
	if _, cur := a.Probe(c); cur == on {
		return
	}
	a.TouchLeaf(c).SetActiveState(LeafVoxelOffset(c), on)
}

// TouchLeaf returns the leaf containing c, creating it if necessary.
func (a *ValueAccessor[T]) TouchLeaf(c coords.Coord) *LeafNode[T] {
	if leaf := a.cached(c); leaf != nil {
		return leaf
	}
	return a.cache(a.tree.TouchLeaf(c))
}

// ProbeLeaf returns the leaf containing c, or nil.
func (a *ValueAccessor[T]) ProbeLeaf(c coords.Coord) *LeafNode[T] {
	if leaf := a.cached(c); leaf != nil {
		return leaf
	}
	if leaf := a.tree.ProbeLeaf(c); leaf != nil {
		return a.cache(leaf)
	}
	return nil
}
