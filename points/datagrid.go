package points

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/tree"
)

// DataGrid indexes a point list by voxel. Its tree stores, per active voxel,
// the end offset of that voxel's points within the owning leaf's arrays, and
// each leaf carries the point data reordered by voxel. Group membership
// travels with the points as per-leaf flag arrays.
type DataGrid struct {
	tree      *tree.Tree[int32]
	transform *grid.Transform
	order     []string
	leaves    map[coords.Coord]*leafPoints
}

// leafPoints holds one leaf's share of the point data, ordered by voxel
// offset. offsets is the dense cumulative end-offset table: the points of
// the voxel at linear offset o occupy [offsets[o-1], offsets[o]).
type leafPoints struct {
	offsets   [tree.LeafSize]int32
	positions []r3.Vector
	groups    map[string][]bool
}

// CreateIndexGrid buckets the list's points by voxel under the given
// transform. A nil transform means unit voxels.
func CreateIndexGrid(list *List, transform *grid.Transform) *DataGrid {
	if transform == nil {
		transform = grid.NewLinearTransform(1)
	}
	dg := &DataGrid{
		tree:      tree.NewTree[int32](0),
		transform: transform,
		order:     list.Groups(),
		leaves:    make(map[coords.Coord]*leafPoints),
	}

	buckets := make(map[coords.Coord][]located)
	for i := 0; i < list.Len(); i++ {
		c := transform.WorldToIndexCoord(list.Position(i))
		origin := tree.LeafOrigin(c)
		buckets[origin] = append(buckets[origin], located{index: i, offset: tree.LeafVoxelOffset(c)})
	}

	for origin, pts := range buckets {
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].offset < pts[b].offset })
		lp := &leafPoints{
			positions: make([]r3.Vector, len(pts)),
			groups:    make(map[string][]bool, len(dg.order)),
		}
		for _, name := range dg.order {
			lp.groups[name] = make([]bool, len(pts))
		}
		for j, p := range pts {
			lp.positions[j] = list.Position(p.index)
			for _, name := range dg.order {
				lp.groups[name][j] = list.InGroup(name, p.index)
			}
		}
		dg.rebuildOffsets(origin, lp, pts)
		dg.leaves[origin] = lp
	}
	return dg
}

// located pairs a point's list index with its linear voxel offset inside the
// destination leaf.
type located struct {
	index  int
	offset uint
}

// rebuildOffsets recomputes a leaf's cumulative table and the tree's
// per-voxel end offsets from the located points, which must be voxel sorted.
func (dg *DataGrid) rebuildOffsets(origin coords.Coord, lp *leafPoints, pts []located) {
	var counts [tree.LeafSize]int32
	for _, p := range pts {
		counts[p.offset]++
	}
	var running int32
	leaf := dg.tree.TouchLeaf(origin)
	for o := uint(0); o < tree.LeafSize; o++ {
		running += counts[o]
		lp.offsets[o] = running
		if counts[o] > 0 {
			leaf.SetValueOn(o, running)
		}
	}
}

// Transform returns the index transform.
func (dg *DataGrid) Transform() *grid.Transform { return dg.transform }

// Tree returns the underlying offset tree.
func (dg *DataGrid) Tree() *tree.Tree[int32] { return dg.tree }

// Count returns the total number of indexed points.
func (dg *DataGrid) Count() int {
	n := 0
	for _, lp := range dg.leaves {
		n += len(lp.positions)
	}
	return n
}

// Groups returns the group names in registration order.
func (dg *DataGrid) Groups() []string {
	out := make([]string, len(dg.order))
	copy(out, dg.order)
	return out
}

// HasGroup reports whether the named group is present.
func (dg *DataGrid) HasGroup(name string) bool {
	for _, g := range dg.order {
		if g == name {
			return true
		}
	}
	return false
}

// PointsInVoxel returns the world-space positions stored in the voxel.
func (dg *DataGrid) PointsInVoxel(c coords.Coord) []r3.Vector {
	lp, ok := dg.leaves[tree.LeafOrigin(c)]
	if !ok {
		return nil
	}
	o := tree.LeafVoxelOffset(c)
	start := int32(0)
	if o > 0 {
		start = lp.offsets[o-1]
	}
	return lp.positions[start:lp.offsets[o]]
}

// ForEachPoint visits every indexed point in leaf-then-voxel order.
func (dg *DataGrid) ForEachPoint(fn func(p r3.Vector)) {
	dg.tree.ForEachLeaf(func(leaf *tree.LeafNode[int32]) {
		lp, ok := dg.leaves[leaf.Origin()]
		if !ok {
			return
		}
		for _, p := range lp.positions {
			fn(p)
		}
	})
}

// DeleteFromGroups removes every point that belongs to any of the named
// groups, or every point that belongs to none of them when invert is set.
// Groups that are not registered contribute no members. Unless inverted and
// when drop is set, the named groups that exist are removed afterwards.
// Empty leaves are pruned.
func (dg *DataGrid) DeleteFromGroups(groups []string, invert, drop bool) error {
	if len(groups) == 0 {
		return errors.New("no groups given")
	}
	existing := make([]string, 0, len(groups))
	for _, name := range groups {
		if dg.HasGroup(name) {
			existing = append(existing, name)
		}
	}

	for origin, lp := range dg.leaves {
		keep := make([]bool, len(lp.positions))
		for i := range lp.positions {
			member := false
			for _, name := range existing {
				if lp.groups[name][i] {
					member = true
					break
				}
			}
			keep[i] = member == invert
		}
		dg.filterLeaf(origin, lp, keep)
	}

	if drop && !invert {
		dg.dropGroups(existing)
	}
	dg.tree.PruneInactive()
	return nil
}

// filterLeaf rewrites one leaf's arrays keeping only the flagged points,
// then rebuilds its offsets. Emptied leaves are removed outright.
func (dg *DataGrid) filterLeaf(origin coords.Coord, lp *leafPoints, keep []bool) {
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	if kept == len(keep) {
		return
	}
	leaf := dg.tree.TouchLeaf(origin)
	if kept == 0 {
		delete(dg.leaves, origin)
		leaf.Fill(0, false)
		return
	}

	positions := make([]r3.Vector, 0, kept)
	filtered := make(map[string][]bool, len(lp.groups))
	for name := range lp.groups {
		filtered[name] = make([]bool, 0, kept)
	}

	var counts [tree.LeafSize]int32
	for i, k := range keep {
		if !k {
			continue
		}
		positions = append(positions, lp.positions[i])
		for name := range lp.groups {
			filtered[name] = append(filtered[name], lp.groups[name][i])
		}
		o := tree.LeafVoxelOffset(dg.transform.WorldToIndexCoord(lp.positions[i]))
		counts[o]++
	}
	lp.positions = positions
	lp.groups = filtered

	var running int32
	for o := uint(0); o < tree.LeafSize; o++ {
		running += counts[o]
		lp.offsets[o] = running
		if counts[o] > 0 {
			leaf.SetValueOn(o, running)
		} else {
			leaf.SetValueOff(o, 0)
		}
	}
}

// dropGroups removes the named groups from the descriptor and from every
// leaf's flag arrays.
func (dg *DataGrid) dropGroups(names []string) {
	for _, name := range names {
		for i, g := range dg.order {
			if g == name {
				dg.order = append(dg.order[:i], dg.order[i+1:]...)
				break
			}
		}
		for _, lp := range dg.leaves {
			delete(lp.groups, name)
		}
	}
}
