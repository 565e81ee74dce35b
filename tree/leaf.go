// Package tree implements a sparse hierarchical tree for volumetric fields on
// an unbounded integer lattice. Topology (which voxels are active) and values
// are stored only where the field deviates from a background value: the tree
// has a sparse root, two levels of fixed-branching internal nodes whose slots
// are either child pointers or constant tiles, and dense 8x8x8 leaf nodes at
// the bottom.
package tree

import "github.com/voxtree-dev/voxtree/coords"

const (
	// LeafLog2Dim is the base-two logarithm of a leaf node's edge length.
	LeafLog2Dim = 3
	// LeafDim is the edge length of a leaf node in voxels.
	LeafDim = 1 << LeafLog2Dim
	// LeafSize is the number of voxels in a leaf node.
	LeafSize = LeafDim * LeafDim * LeafDim
)

// LeafNode is the bottom level of the tree: a dense block of LeafDim^3 voxels,
// each with a stored value and an independent active bit. A leaf may carry one
// auxiliary buffer of the same shape, used by algorithms that must read old
// values while writing new ones.
type LeafNode[T any] struct {
	origin coords.Coord
	mask   LeafMask
	buf    []T
	aux    []T
}

// NewLeafNode returns a leaf with the given aligned origin and every voxel
// inactive with the given value.
func NewLeafNode[T any](origin coords.Coord, background T) *LeafNode[T] {
	buf := make([]T, LeafSize)
	for i := range buf {
		buf[i] = background
	}
	return &LeafNode[T]{origin: origin, buf: buf}
}

// LeafOrigin returns the origin of the leaf containing the coordinate.
func LeafOrigin(c coords.Coord) coords.Coord {
	return coords.Coord{X: c.X &^ (LeafDim - 1), Y: c.Y &^ (LeafDim - 1), Z: c.Z &^ (LeafDim - 1)}
}

// LeafVoxelOffset returns the linear offset of the coordinate within its leaf.
// The z component occupies the low bits, matching LeafMask's layout.
func LeafVoxelOffset(c coords.Coord) uint {
	return uint(c.X&(LeafDim-1))<<(2*LeafLog2Dim) |
		uint(c.Y&(LeafDim-1))<<LeafLog2Dim |
		uint(c.Z&(LeafDim-1))
}

// OffsetToCoord returns the global coordinate of the voxel at the given
// linear offset within this leaf.
func (l *LeafNode[T]) OffsetToCoord(offset uint) coords.Coord {
	return l.origin.Offset(
		int32(offset>>(2*LeafLog2Dim)),
		int32(offset>>LeafLog2Dim)&(LeafDim-1),
		int32(offset)&(LeafDim-1),
	)
}

// Origin returns the minimum corner of the leaf's bounding box.
func (l *LeafNode[T]) Origin() coords.Coord { return l.origin }

// BBox returns the leaf's bounding box.
func (l *LeafNode[T]) BBox() coords.CoordBBox {
	return coords.CubeBBox(l.origin, LeafDim)
}

// Mask returns a pointer to the leaf's active mask.
func (l *LeafNode[T]) Mask() *LeafMask { return &l.mask }

// Buffer returns the primary value buffer (index 0) or the auxiliary buffer
// (index 1). The auxiliary buffer is nil until allocated by a LeafManager.
func (l *LeafNode[T]) Buffer(idx int) []T {
	if idx == 0 {
		return l.buf
	}
	return l.aux
}

// Value returns the stored value at the given offset.
func (l *LeafNode[T]) Value(offset uint) T { return l.buf[offset] }

// SetValueOn stores a value and marks the voxel active.
func (l *LeafNode[T]) SetValueOn(offset uint, v T) {
	l.buf[offset] = v
	l.mask.SetOn(offset)
}

// SetValueOff stores a value and marks the voxel inactive.
func (l *LeafNode[T]) SetValueOff(offset uint, v T) {
	l.buf[offset] = v
	l.mask.SetOff(offset)
}

// SetActiveState marks the voxel active or inactive without touching its
// stored value.
func (l *LeafNode[T]) SetActiveState(offset uint, on bool) {
	l.mask.Set(offset, on)
}

// IsValueOn reports whether the voxel at the given offset is active.
func (l *LeafNode[T]) IsValueOn(offset uint) bool { return l.mask.IsOn(offset) }

// OnVoxelCount returns the number of active voxels in the leaf.
func (l *LeafNode[T]) OnVoxelCount() int { return l.mask.CountOn() }

// IsEmpty reports whether the leaf has no active voxels.
func (l *LeafNode[T]) IsEmpty() bool { return l.mask.IsEmpty() }

// IsDense reports whether every voxel in the leaf is active.
func (l *LeafNode[T]) IsDense() bool { return l.mask.IsFull() }

// Fill sets every voxel to the given value and active state.
func (l *LeafNode[T]) Fill(v T, active bool) {
	for i := range l.buf {
		l.buf[i] = v
	}
	l.mask.SetAll(active)
}

// IsConstant reports whether all voxels share one active state and, under the
// given equality, one value; if so it returns that value and state.
func (l *LeafNode[T]) IsConstant(equal func(T, T) bool) (T, bool, bool) {
	var zero T
	if l.mask.IsEmpty() {
		v := l.buf[0]
		for _, b := range l.buf[1:] {
			if !equal(v, b) {
				return zero, false, false
			}
		}
		return v, false, true
	}
	if !l.mask.IsFull() {
		return zero, false, false
	}
	v := l.buf[0]
	for _, b := range l.buf[1:] {
		if !equal(v, b) {
			return zero, false, false
		}
	}
	return v, true, true
}

// EnsureAuxBuffer allocates the auxiliary buffer if missing and copies the
// primary buffer into it.
func (l *LeafNode[T]) EnsureAuxBuffer() {
	if l.aux == nil {
		l.aux = make([]T, LeafSize)
	}
	copy(l.aux, l.buf)
}

// SwapBuffers exchanges the primary and auxiliary buffers. It is a no-op if
// the auxiliary buffer has not been allocated.
func (l *LeafNode[T]) SwapBuffers() {
	if l.aux != nil {
		l.buf, l.aux = l.aux, l.buf
	}
}

// ForEachOn calls fn for every active voxel with its global coordinate and
// stored value.
func (l *LeafNode[T]) ForEachOn(fn func(c coords.Coord, offset uint, v T)) {
	l.mask.ForEachOn(func(offset uint) {
		fn(l.OffsetToCoord(offset), offset, l.buf[offset])
	})
}

// Clone returns a deep copy of the leaf. The auxiliary buffer is not copied.
func (l *LeafNode[T]) Clone() *LeafNode[T] {
	out := &LeafNode[T]{origin: l.origin, mask: l.mask, buf: make([]T, LeafSize)}
	copy(out.buf, l.buf)
	return out
}
