package tree

import (
	"sort"

	"github.com/voxtree-dev/voxtree/coords"
)

// Tree is a sparse hierarchical voxel grid. Values are stored in 8x8x8 leaf
// nodes at the bottom of a fixed three-level hierarchy; constant regions are
// represented by tiles at any level. Unset space reads back as the inactive
// background value.
//
// A Tree is not safe for concurrent mutation. Concurrent reads, and
// concurrent writes to disjoint leaf nodes obtained up front (for example via
// a LeafManager), are safe.
type Tree[T comparable] struct {
	background T
	root       map[coords.Coord]*rootEntry[T]
}

// rootEntry is one root-table slot: either a child node or a constant tile
// spanning RootTileDim voxels per axis.
type rootEntry[T comparable] struct {
	node   *internalNode[T]
	tile   T
	active bool
}

// NewTree returns an empty tree with the given background value.
func NewTree[T comparable](background T) *Tree[T] {
	return &Tree[T]{
		background: background,
		root:       make(map[coords.Coord]*rootEntry[T]),
	}
}

// RootKey returns the root-table key (the origin of the root-level sub-cube)
// for a coordinate.
func RootKey(c coords.Coord) coords.Coord {
	const m = ^int32(RootTileDim - 1)
	return coords.NewCoord(c.X&m, c.Y&m, c.Z&m)
}

// Background returns the tree's background value.
func (t *Tree[T]) Background() T { return t.background }

// SetBackground changes the background value without touching stored voxels.
func (t *Tree[T]) SetBackground(v T) { t.background = v }

// Clear removes all nodes and tiles.
func (t *Tree[T]) Clear() {
	t.root = make(map[coords.Coord]*rootEntry[T])
}

// Empty reports whether the tree stores no nodes or tiles at all.
func (t *Tree[T]) Empty() bool { return len(t.root) == 0 }

func (t *Tree[T]) upperNode(c coords.Coord, create bool) *internalNode[T] {
	key := RootKey(c)
	entry, ok := t.root[key]
	if !ok {
		if !create {
			return nil
		}
		entry = &rootEntry[T]{tile: t.background}
		t.root[key] = entry
	}
	if entry.node == nil {
		if !create {
			return nil
		}
		node := newInternalNode(key, 2, t.background)
		if entry.active {
			node.fillAll(entry.tile, true)
		} else if entry.tile != t.background {
			node.fillAll(entry.tile, false)
		}
		entry.node = node
	}
	return entry.node
}

// GetValue returns the value at c, which is the background for unset space.
func (t *Tree[T]) GetValue(c coords.Coord) T {
	v, _ := t.Probe(c)
	return v
}

// Probe returns the value and active state at c.
func (t *Tree[T]) Probe(c coords.Coord) (T, bool) {
	entry, ok := t.root[RootKey(c)]
	if !ok {
		return t.background, false
	}
	if entry.node == nil {
		return entry.tile, entry.active
	}
	return entry.node.getValue(c)
}

// IsValueOn reports whether the voxel at c is active.
func (t *Tree[T]) IsValueOn(c coords.Coord) bool {
	_, on := t.Probe(c)
	return on
}

// SetValue sets the voxel at c to v and marks it active.
func (t *Tree[T]) SetValue(c coords.Coord, v T) {
	t.TouchLeaf(c).SetValueOn(LeafVoxelOffset(c), v)
}

// SetValueOff sets the voxel at c to v and marks it inactive.
func (t *Tree[T]) SetValueOff(c coords.Coord, v T) {
	t.TouchLeaf(c).SetValueOff(LeafVoxelOffset(c), v)
}

// SetActiveState changes the active state of the voxel at c, keeping its
// value.
func (t *Tree[T]) SetActiveState(c coords.Coord, on bool) {
	if _, cur := t.Probe(c); cur == on {
		return
	}
	t.TouchLeaf(c).SetActiveState(LeafVoxelOffset(c), on)
}

// TouchLeaf returns the leaf node containing c, creating it (and expanding
// any tile covering c) if necessary.
func (t *Tree[T]) TouchLeaf(c coords.Coord) *LeafNode[T] {
	return t.upperNode(c, true).touchLeaf(c, t.background)
}

// ProbeLeaf returns the leaf node containing c, or nil if none exists.
func (t *Tree[T]) ProbeLeaf(c coords.Coord) *LeafNode[T] {
	node := t.upperNode(c, false)
	if node == nil {
		return nil
	}
	return node.probeLeaf(c)
}

// Fill sets every coordinate in bbox to v with the given active state,
// representing fully covered node spans as constant tiles.
func (t *Tree[T]) Fill(bbox coords.CoordBBox, v T, active bool) {
	if bbox.IsEmpty() {
		return
	}
	minKey := RootKey(bbox.Min)
	maxKey := RootKey(bbox.Max)
	for x := minKey.X; x <= maxKey.X; x += RootTileDim {
		for y := minKey.Y; y <= maxKey.Y; y += RootTileDim {
			for z := minKey.Z; z <= maxKey.Z; z += RootTileDim {
				key := coords.NewCoord(x, y, z)
				rootBox := coords.CubeBBox(key, RootTileDim)
				if bbox.ContainsBBox(rootBox) {
					t.root[key] = &rootEntry[T]{tile: v, active: active}
					continue
				}
				t.upperNode(key, true).fill(bbox, v, active, t.background)
			}
		}
	}
}

// ActiveVoxelCount returns the number of active voxels, counting each active
// tile as its full voxel extent.
func (t *Tree[T]) ActiveVoxelCount() uint64 {
	var count uint64
	for _, entry := range t.root {
		if entry.node != nil {
			count += entry.node.onVoxelCount()
		} else if entry.active {
			const edge = uint64(RootTileDim)
			count += edge * edge * edge
		}
	}
	return count
}

// ActiveTileCount returns the number of active tiles at all levels.
func (t *Tree[T]) ActiveTileCount() uint64 {
	var count uint64
	for _, entry := range t.root {
		if entry.node != nil {
			count += entry.node.onTileCount()
		} else if entry.active {
			count++
		}
	}
	return count
}

// LeafCount returns the number of leaf nodes.
func (t *Tree[T]) LeafCount() int {
	count := 0
	for _, entry := range t.root {
		if entry.node != nil {
			count += entry.node.leafCount()
		}
	}
	return count
}

// NonLeafCount returns the number of interior nodes, including the root.
func (t *Tree[T]) NonLeafCount() int {
	count := 1
	for _, entry := range t.root {
		if entry.node != nil {
			count += entry.node.internalCount()
		}
	}
	return count
}

// HasActiveValues reports whether any voxel or tile is active.
func (t *Tree[T]) HasActiveValues() bool {
	for _, entry := range t.root {
		if entry.node != nil {
			if entry.node.hasActiveValues() {
				return true
			}
		} else if entry.active {
			return true
		}
	}
	return false
}

// sortedRootKeys returns the root-table keys in x-major order, so traversals
// do not inherit the map's randomized iteration order.
func (t *Tree[T]) sortedRootKeys() []coords.Coord {
	keys := make([]coords.Coord, 0, len(t.root))
	for key := range t.root {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return keys
}

// ForEachLeaf visits every leaf node in a stable traversal order.
func (t *Tree[T]) ForEachLeaf(fn func(*LeafNode[T])) {
	for _, key := range t.sortedRootKeys() {
		if entry := t.root[key]; entry.node != nil {
			entry.node.forEachLeaf(fn)
		}
	}
}

// ForEachActiveTile visits every active tile with its bounding box and value,
// in the same stable order as ForEachLeaf.
func (t *Tree[T]) ForEachActiveTile(fn func(bbox coords.CoordBBox, v T)) {
	for _, key := range t.sortedRootKeys() {
		entry := t.root[key]
		if entry.node != nil {
			entry.node.forEachActiveTile(fn)
		} else if entry.active {
			fn(coords.CubeBBox(key, RootTileDim), entry.tile)
		}
	}
}

// PruneInactive collapses nodes whose values are all inactive and constant
// into inactive tiles of that value, and removes entries reduced to the
// background.
func (t *Tree[T]) PruneInactive() {
	for key, entry := range t.root {
		if entry.node == nil {
			if !entry.active && entry.tile == t.background {
				delete(t.root, key)
			}
			continue
		}
		if entry.node.pruneInactive(t.background) {
			delete(t.root, key)
		}
	}
}

// Prune collapses constant nodes (under the given equality) into tiles,
// preserving active states. Passing nil uses exact equality.
func (t *Tree[T]) Prune(equal func(T, T) bool) {
	if equal == nil {
		equal = func(a, b T) bool { return a == b }
	}
	for key, entry := range t.root {
		if entry.node == nil {
			if !entry.active && equal(entry.tile, t.background) {
				delete(t.root, key)
			}
			continue
		}
		if entry.node.prune(equal, t.background) {
			delete(t.root, key)
			continue
		}
		if v, active, ok := entry.node.isConstant(equal); ok {
			entry.node = nil
			entry.tile = v
			entry.active = active
		}
	}
}

// VoxelizeActiveTiles expands every active tile into dense leaf voxels.
func (t *Tree[T]) VoxelizeActiveTiles() {
	for key, entry := range t.root {
		if entry.node == nil {
			if !entry.active {
				continue
			}
			node := newInternalNode(key, 2, t.background)
			node.fillAll(entry.tile, true)
			entry.node = node
		}
		entry.node.voxelizeActiveTiles(t.background)
	}
}

// DeepCopy returns an independent copy of the tree.
func (t *Tree[T]) DeepCopy() *Tree[T] {
	out := NewTree(t.background)
	for key, entry := range t.root {
		cp := &rootEntry[T]{tile: entry.tile, active: entry.active}
		if entry.node != nil {
			cp.node = entry.node.clone()
		}
		out.root[key] = cp
	}
	return out
}

// EvalActiveBoundingBox returns the tight index-space bounding box of the
// active voxels and tiles, or an empty box for a topologically empty tree.
func (t *Tree[T]) EvalActiveBoundingBox() coords.CoordBBox {
	bbox := coords.EmptyBBox()
	t.ForEachActiveTile(func(b coords.CoordBBox, _ T) {
		bbox = bbox.ExpandBBox(b)
	})
	t.ForEachLeaf(func(leaf *LeafNode[T]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, _ T) {
			bbox = bbox.ExpandCoord(c)
		})
	})
	return bbox
}
