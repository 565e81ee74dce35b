package tree

import "github.com/voxtree-dev/voxtree/coords"

// TopologyUnion activates in dst every voxel and tile that is active in src.
// Values already stored in dst are preserved; newly activated voxels keep the
// value dst stored there (the background for unset space).
func TopologyUnion[T, U comparable](dst *Tree[T], src *Tree[U]) {
	src.ForEachActiveTile(func(bbox coords.CoordBBox, _ U) {
		activateRegion(dst, bbox)
	})
	src.ForEachLeaf(func(srcLeaf *LeafNode[U]) {
		if srcLeaf.IsEmpty() {
			return
		}
		dstLeaf := dst.TouchLeaf(srcLeaf.Origin())
		dstLeaf.Mask().Or(srcLeaf.Mask())
	})
}

// TopologyIntersection deactivates every voxel of dst that is not active in
// src and prunes the result.
func TopologyIntersection[T, U comparable](dst *Tree[T], src *Tree[U]) {
	dst.VoxelizeActiveTiles()
	acc := NewValueAccessor(src)
	dst.ForEachLeaf(func(leaf *LeafNode[T]) {
		leaf.Mask().ForEachOn(func(offset uint) {
			if !acc.IsValueOn(leaf.OffsetToCoord(offset)) {
				leaf.Mask().SetOff(offset)
			}
		})
	})
	dst.PruneInactive()
}

// TopologyDifference deactivates every voxel of dst that is active in src and
// prunes the result.
func TopologyDifference[T, U comparable](dst *Tree[T], src *Tree[U]) {
	dst.VoxelizeActiveTiles()
	acc := NewValueAccessor(src)
	dst.ForEachLeaf(func(leaf *LeafNode[T]) {
		leaf.Mask().ForEachOn(func(offset uint) {
			if acc.IsValueOn(leaf.OffsetToCoord(offset)) {
				leaf.Mask().SetOff(offset)
			}
		})
	})
	dst.PruneInactive()
}

// MaskFromTree returns a boolean tree with the same active topology as src.
// Active tiles stay tiles; leaf masks are copied directly.
func MaskFromTree[T comparable](src *Tree[T]) *Tree[bool] {
	out := NewTree(false)
	src.ForEachActiveTile(func(bbox coords.CoordBBox, _ T) {
		out.Fill(bbox, true, true)
	})
	src.ForEachLeaf(func(srcLeaf *LeafNode[T]) {
		if srcLeaf.IsEmpty() {
			return
		}
		dstLeaf := out.TouchLeaf(srcLeaf.Origin())
		srcLeaf.Mask().ForEachOn(func(offset uint) {
			dstLeaf.SetValueOn(offset, true)
		})
	})
	return out
}

// activateRegion marks every voxel of bbox active in dst, preserving stored
// values. Leaf-aligned spans are handled a leaf at a time.
func activateRegion[T comparable](dst *Tree[T], bbox coords.CoordBBox) {
	if bbox.IsEmpty() {
		return
	}
	minLeaf := LeafOrigin(bbox.Min)
	maxLeaf := LeafOrigin(bbox.Max)
	for x := minLeaf.X; x <= maxLeaf.X; x += LeafDim {
		for y := minLeaf.Y; y <= maxLeaf.Y; y += LeafDim {
			for z := minLeaf.Z; z <= maxLeaf.Z; z += LeafDim {
				origin := coords.NewCoord(x, y, z)
				leafBox := coords.CubeBBox(origin, LeafDim)
				leaf := dst.TouchLeaf(origin)
				if bbox.ContainsBBox(leafBox) {
					leaf.Mask().SetAll(true)
					continue
				}
				leafBox.Intersect(bbox).ForEach(func(c coords.Coord) bool {
					leaf.Mask().SetOn(LeafVoxelOffset(c))
					return true
				})
			}
		}
	}
}
