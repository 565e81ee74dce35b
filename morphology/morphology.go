// Package morphology implements topological dilation and erosion of the
// active voxels of a sparse tree.
package morphology

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/tree"
)

// NearestNeighbors selects the connectivity pattern used by dilation and
// erosion.
type NearestNeighbors int

const (
	// NNFace connects the six face neighbors (Manhattan distance 1).
	NNFace NearestNeighbors = 6
	// NNFaceEdge adds the twelve edge neighbors.
	NNFaceEdge NearestNeighbors = 18
	// NNFaceEdgeVertex adds the eight vertex neighbors for full 26-connectivity.
	NNFaceEdgeVertex NearestNeighbors = 26
)

// TilePolicy controls how DilateActiveValues treats active tiles.
type TilePolicy int

const (
	// IgnoreTiles leaves active tiles untouched and does not dilate from them.
	IgnoreTiles TilePolicy = iota
	// ExpandTiles densifies active tiles into leaf voxels before dilating.
	ExpandTiles
	// PreserveTiles dilates outward from tile boundaries while keeping the
	// tiles themselves intact.
	PreserveTiles
)

// neighborOffsets lists unit offsets in precedence order: the six faces, then
// the twelve edges, then the eight vertices. When two source voxels activate
// the same neighbor in one pass the earlier source in this order wins.
var neighborOffsets = [26][3]int32{
	{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1},

	{-1, -1, 0}, {-1, 1, 0}, {1, -1, 0}, {1, 1, 0},
	{-1, 0, -1}, {-1, 0, 1}, {1, 0, -1}, {1, 0, 1},
	{0, -1, -1}, {0, -1, 1}, {0, 1, -1}, {0, 1, 1},

	{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}, {-1, 1, 1},
	{1, -1, -1}, {1, -1, 1}, {1, 1, -1}, {1, 1, 1},
}

func offsetsFor(nn NearestNeighbors) [][3]int32 {
	switch nn {
	case NNFaceEdge:
		return neighborOffsets[:18]
	case NNFaceEdgeVertex:
		return neighborOffsets[:26]
	default:
		return neighborOffsets[:6]
	}
}

// leafSnap captures a leaf and a copy of its active mask taken before a
// morphology pass, so the pass reads pre-pass topology while writing new.
type leafSnap[T comparable] struct {
	leaf *tree.LeafNode[T]
	mask tree.LeafMask
}

func snapshotLeaves[T comparable](t *tree.Tree[T]) []leafSnap[T] {
	var snaps []leafSnap[T]
	t.ForEachLeaf(func(leaf *tree.LeafNode[T]) {
		if !leaf.IsEmpty() {
			snaps = append(snaps, leafSnap[T]{leaf: leaf, mask: *leaf.Mask()})
		}
	})
	sort.Slice(snaps, func(i, j int) bool {
		a, b := snaps[i].leaf.Origin(), snaps[j].leaf.Origin()
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return snaps
}

// DilateVoxels grows the active voxel set by the given number of iterations.
// Each iteration activates every inactive neighbor of an active leaf voxel
// under the chosen connectivity, copying the value of the voxel that
// activated it. Active tiles are not used as dilation sources and are never
// modified.
func DilateVoxels[T comparable](t *tree.Tree[T], iterations int, nn NearestNeighbors) {
	offsets := offsetsFor(nn)
	acc := tree.NewValueAccessor(t)
	for i := 0; i < iterations; i++ {
		dilateFromSnapshot(acc, snapshotLeaves(t), offsets)
	}
}

func dilateFromSnapshot[T comparable](acc *tree.ValueAccessor[T], snaps []leafSnap[T], offsets [][3]int32) {
	for _, snap := range snaps {
		leaf := snap.leaf
		snap.mask.ForEachOn(func(offset uint) {
			c := leaf.OffsetToCoord(offset)
			v := leaf.Value(offset)
			for _, d := range offsets {
				nc := c.Offset(d[0], d[1], d[2])
				if acc.IsValueOn(nc) {
					continue
				}
				acc.SetValue(nc, v)
			}
		})
	}
}

// DilateActiveValues grows the active set like DilateVoxels but with explicit
// control over active tiles. Unlike DilateVoxels it never writes values:
// newly active voxels keep whatever they already stored, so inactive ghost
// values in the narrow band are promoted and untouched voxels stay at the
// background.
func DilateActiveValues[T comparable](t *tree.Tree[T], iterations int, nn NearestNeighbors, policy TilePolicy) {
	offsets := offsetsFor(nn)
	acc := tree.NewValueAccessor(t)
	if policy == ExpandTiles {
		t.VoxelizeActiveTiles()
		acc.Clear()
	}
	for i := 0; i < iterations; i++ {
		snaps := snapshotLeaves(t)
		if policy == PreserveTiles {
			// The shell must come from the tiles as they are now; the voxel
			// pass below still dilates only the pre-pass voxel topology.
			dilateTileBoundaries(t, acc, offsets)
		}
		activateFromSnapshot(acc, snaps, offsets)
	}
}

// activateFromSnapshot marks every neighbor of a pre-pass active voxel active
// without disturbing its stored value.
func activateFromSnapshot[T comparable](acc *tree.ValueAccessor[T], snaps []leafSnap[T], offsets [][3]int32) {
	for _, snap := range snaps {
		leaf := snap.leaf
		snap.mask.ForEachOn(func(offset uint) {
			c := leaf.OffsetToCoord(offset)
			for _, d := range offsets {
				acc.SetActiveState(c.Offset(d[0], d[1], d[2]), true)
			}
		})
	}
}

// dilateTileBoundaries activates the one-voxel shell around every active
// tile, leaving the tiles themselves untouched.
func dilateTileBoundaries[T comparable](t *tree.Tree[T], acc *tree.ValueAccessor[T], offsets [][3]int32) {
	var tiles []coords.CoordBBox
	t.ForEachActiveTile(func(bbox coords.CoordBBox, _ T) {
		tiles = append(tiles, bbox)
	})
	for _, tile := range tiles {
		for _, d := range offsets {
			shifted := coords.NewCoordBBox(
				tile.Min.Offset(d[0], d[1], d[2]),
				tile.Max.Offset(d[0], d[1], d[2]),
			)
			shifted.ForEach(func(c coords.Coord) bool {
				if !tile.Contains(c) {
					acc.SetActiveState(c, true)
				}
				return true
			})
		}
	}
}

// ErodeVoxels shrinks the active voxel set by the given number of iterations.
// A leaf voxel stays active only when all of its face neighbors were active
// before the iteration; neighbors covered by active tiles count as active.
// Tiles themselves are never eroded. Leaves left without active voxels are
// pruned away. Only face connectivity is implemented.
func ErodeVoxels[T comparable](t *tree.Tree[T], iterations int, nn NearestNeighbors) error {
	if nn != NNFace {
		return errors.Errorf("erosion with %d-neighbor connectivity is not implemented", int(nn))
	}
	offsets := offsetsFor(nn)
	for i := 0; i < iterations; i++ {
		snaps := snapshotLeaves(t)
		if len(snaps) == 0 {
			break
		}
		masks := make(map[coords.Coord]*tree.LeafMask, len(snaps))
		for si := range snaps {
			masks[snaps[si].leaf.Origin()] = &snaps[si].mask
		}
		wasOn := func(c coords.Coord) bool {
			if m, ok := masks[tree.LeafOrigin(c)]; ok {
				return m.IsOn(tree.LeafVoxelOffset(c))
			}
			_, on := t.Probe(c)
			return on
		}
		for _, snap := range snaps {
			leaf := snap.leaf
			snap.mask.ForEachOn(func(offset uint) {
				c := leaf.OffsetToCoord(offset)
				for _, d := range offsets {
					if !wasOn(c.Offset(d[0], d[1], d[2])) {
						leaf.Mask().SetOff(offset)
						return
					}
				}
			})
		}
	}
	t.PruneInactive()
	return nil
}
