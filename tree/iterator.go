package tree

import "github.com/voxtree-dev/voxtree/coords"

// ActiveValue is one run of active space: either a single voxel (Count 1,
// BBox a single coordinate) or a constant tile covering Count voxels.
type ActiveValue[T comparable] struct {
	BBox  coords.CoordBBox
	Value T
	Count uint64
}

// VisitActiveValues calls fn for every active voxel and active tile of the
// tree. Tiles are reported once with their full voxel count, so summing
// Count over all visits yields ActiveVoxelCount. Returning false from fn
// stops the visit.
func VisitActiveValues[T comparable](t *Tree[T], fn func(av ActiveValue[T]) bool) {
	stopped := false
	t.ForEachActiveTile(func(bbox coords.CoordBBox, v T) {
		if stopped {
			return
		}
		if !fn(ActiveValue[T]{BBox: bbox, Value: v, Count: bbox.Volume()}) {
			stopped = true
		}
	})
	if stopped {
		return
	}
	t.ForEachLeaf(func(leaf *LeafNode[T]) {
		if stopped {
			return
		}
		leaf.ForEachOn(func(c coords.Coord, _ uint, v T) {
			if stopped {
				return
			}
			if !fn(ActiveValue[T]{BBox: coords.NewCoordBBox(c, c), Value: v, Count: 1}) {
				stopped = true
			}
		})
	})
}

// VisitAllValues calls fn for every stored value, active or not: each leaf
// voxel once, and each tile (including inactive non-background tiles) once
// with its voxel count.
func VisitAllValues[T comparable](t *Tree[T], fn func(av ActiveValue[T], active bool) bool) {
	stopped := false
	var walk func(n *internalNode[T])
	walk = func(n *internalNode[T]) {
		if stopped {
			return
		}
		cfg := n.config()
		for i := 0; i < cfg.numChildren && !stopped; i++ {
			if n.childMask.isOn(i) {
				if n.level == 1 {
					leaf := n.leaves[i]
					for off := uint(0); off < LeafSize && !stopped; off++ {
						c := leaf.OffsetToCoord(off)
						av := ActiveValue[T]{BBox: coords.NewCoordBBox(c, c), Value: leaf.Value(off), Count: 1}
						if !fn(av, leaf.IsValueOn(off)) {
							stopped = true
						}
					}
				} else {
					walk(n.inodes[i])
				}
				continue
			}
			bbox := coords.CubeBBox(n.childOrigin(i), 1<<cfg.childLog2Dim)
			av := ActiveValue[T]{BBox: bbox, Value: n.tiles[i], Count: bbox.Volume()}
			if !fn(av, n.valueMask.isOn(i)) {
				stopped = true
			}
		}
	}
	for key, entry := range t.root {
		if stopped {
			return
		}
		if entry.node != nil {
			walk(entry.node)
			continue
		}
		bbox := coords.CubeBBox(key, RootTileDim)
		av := ActiveValue[T]{BBox: bbox, Value: entry.tile, Count: bbox.Volume()}
		if !fn(av, entry.active) {
			stopped = true
		}
	}
}
