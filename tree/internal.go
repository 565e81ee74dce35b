package tree

import "github.com/voxtree-dev/voxtree/coords"

// The tree uses a fixed two-level internal configuration above the leaves:
// the lower internal level branches 16 ways per axis over leaves, the upper
// level branches 32 ways per axis over lower nodes. An upper node therefore
// spans 4096 voxels per axis, which is also the root's tile granularity.
const (
	lowerLog2Branch = 4
	upperLog2Branch = 5

	lowerChildLog2Dim = LeafLog2Dim                      // child of a lower node is a leaf
	upperChildLog2Dim = lowerChildLog2Dim + lowerLog2Branch // child of an upper node is a lower node

	lowerTotalLog2Dim = lowerChildLog2Dim + lowerLog2Branch
	upperTotalLog2Dim = upperChildLog2Dim + upperLog2Branch

	lowerNumChildren = 1 << (3 * lowerLog2Branch)
	upperNumChildren = 1 << (3 * upperLog2Branch)

	// RootTileLog2Dim is the base-two logarithm of the edge length spanned by
	// one root-level entry.
	RootTileLog2Dim = upperTotalLog2Dim
	// RootTileDim is the edge length in voxels spanned by one root entry.
	RootTileDim = 1 << RootTileLog2Dim
)

type nodeConfig struct {
	log2Branch   uint
	childLog2Dim uint
	totalLog2Dim uint
	numChildren  int
}

// levelConfig is indexed by internal level (1 = above leaves, 2 = below root).
var levelConfig = [3]nodeConfig{
	{},
	{lowerLog2Branch, lowerChildLog2Dim, lowerTotalLog2Dim, lowerNumChildren},
	{upperLog2Branch, upperChildLog2Dim, upperTotalLog2Dim, upperNumChildren},
}

// internalNode is a fixed-branching interior node. Each slot is either a child
// pointer (childMask set) or a constant tile: a single value whose active
// state is tracked by valueMask and which stands in for the whole child-sized
// sub-cube.
type internalNode[T comparable] struct {
	origin coords.Coord
	level  uint8

	childMask nodeMask
	valueMask nodeMask
	tiles     []T

	// Exactly one of these is used, selected by level.
	leaves []*LeafNode[T]
	inodes []*internalNode[T]
}

func newInternalNode[T comparable](origin coords.Coord, level uint8, background T) *internalNode[T] {
	cfg := levelConfig[level]
	n := &internalNode[T]{
		origin:    origin,
		level:     level,
		childMask: newNodeMask(cfg.numChildren),
		valueMask: newNodeMask(cfg.numChildren),
		tiles:     make([]T, cfg.numChildren),
	}
	for i := range n.tiles {
		n.tiles[i] = background
	}
	if level == 1 {
		n.leaves = make([]*LeafNode[T], cfg.numChildren)
	} else {
		n.inodes = make([]*internalNode[T], cfg.numChildren)
	}
	return n
}

func (n *internalNode[T]) config() nodeConfig { return levelConfig[n.level] }

// childIndex returns the slot index of the child sub-cube containing c.
func (n *internalNode[T]) childIndex(c coords.Coord) int {
	cfg := n.config()
	mask := int32(1<<cfg.log2Branch - 1)
	x := (c.X >> cfg.childLog2Dim) & mask
	y := (c.Y >> cfg.childLog2Dim) & mask
	z := (c.Z >> cfg.childLog2Dim) & mask
	return int(x)<<(2*cfg.log2Branch) | int(y)<<cfg.log2Branch | int(z)
}

// childOrigin returns the origin of the child sub-cube at the given slot.
func (n *internalNode[T]) childOrigin(i int) coords.Coord {
	cfg := n.config()
	mask := int32(1<<cfg.log2Branch - 1)
	x := (int32(i) >> (2 * cfg.log2Branch)) & mask
	y := (int32(i) >> cfg.log2Branch) & mask
	z := int32(i) & mask
	return n.origin.Offset(x<<cfg.childLog2Dim, y<<cfg.childLog2Dim, z<<cfg.childLog2Dim)
}

func (n *internalNode[T]) childVoxelVolume() uint64 {
	cfg := n.config()
	edge := uint64(1) << cfg.childLog2Dim
	return edge * edge * edge
}

// expandTile turns the tile at slot i into a child node densely filled with
// the tile's value and active state.
func (n *internalNode[T]) expandTile(i int, background T) {
	v, active := n.tiles[i], n.valueMask.isOn(i)
	origin := n.childOrigin(i)
	if n.level == 1 {
		leaf := NewLeafNode(origin, background)
		leaf.Fill(v, active)
		n.leaves[i] = leaf
	} else {
		child := newInternalNode(origin, n.level-1, background)
		child.fillAll(v, active)
		n.inodes[i] = child
	}
	n.childMask.setOn(i)
	n.valueMask.setOff(i)
	n.tiles[i] = background
}

// fillAll sets every slot of the node to a constant tile, dropping children.
func (n *internalNode[T]) fillAll(v T, active bool) {
	cfg := n.config()
	for i := 0; i < cfg.numChildren; i++ {
		n.tiles[i] = v
		n.valueMask.set(i, active)
	}
	n.childMask = newNodeMask(cfg.numChildren)
	if n.level == 1 {
		for i := range n.leaves {
			n.leaves[i] = nil
		}
	} else {
		for i := range n.inodes {
			n.inodes[i] = nil
		}
	}
}

func (m nodeMask) set(i int, on bool) {
	if on {
		m.setOn(i)
	} else {
		m.setOff(i)
	}
}

func (n *internalNode[T]) getValue(c coords.Coord) (T, bool) {
	i := n.childIndex(c)
	if !n.childMask.isOn(i) {
		return n.tiles[i], n.valueMask.isOn(i)
	}
	if n.level == 1 {
		leaf := n.leaves[i]
		off := LeafVoxelOffset(c)
		return leaf.Value(off), leaf.IsValueOn(off)
	}
	return n.inodes[i].getValue(c)
}

// touchLeaf descends to the leaf containing c, creating children (and
// expanding tiles) as needed.
func (n *internalNode[T]) touchLeaf(c coords.Coord, background T) *LeafNode[T] {
	i := n.childIndex(c)
	if !n.childMask.isOn(i) {
		if n.valueMask.isOn(i) {
			n.expandTile(i, background)
		} else {
			origin := n.childOrigin(i)
			if n.level == 1 {
				n.leaves[i] = NewLeafNode(origin, n.tiles[i])
			} else {
				n.inodes[i] = newInternalNode(origin, n.level-1, n.tiles[i])
			}
			n.childMask.setOn(i)
			n.valueMask.setOff(i)
		}
	}
	if n.level == 1 {
		return n.leaves[i]
	}
	return n.inodes[i].touchLeaf(c, background)
}

// probeLeaf returns the leaf containing c without modifying the tree, or nil.
func (n *internalNode[T]) probeLeaf(c coords.Coord) *LeafNode[T] {
	i := n.childIndex(c)
	if !n.childMask.isOn(i) {
		return nil
	}
	if n.level == 1 {
		return n.leaves[i]
	}
	return n.inodes[i].probeLeaf(c)
}

// probeTile reports the tile value and active state covering c when no leaf
// stores it, with ok=false if a leaf exists there instead.
func (n *internalNode[T]) probeTile(c coords.Coord) (T, bool, bool) {
	i := n.childIndex(c)
	if !n.childMask.isOn(i) {
		return n.tiles[i], n.valueMask.isOn(i), true
	}
	if n.level == 1 {
		var zero T
		return zero, false, false
	}
	return n.inodes[i].probeTile(c)
}

func (n *internalNode[T]) onVoxelCount() uint64 {
	var count uint64
	n.valueMask.forEachOn(func(i int) {
		if !n.childMask.isOn(i) {
			count += n.childVoxelVolume()
		}
	})
	n.childMask.forEachOn(func(i int) {
		if n.level == 1 {
			count += uint64(n.leaves[i].OnVoxelCount())
		} else {
			count += n.inodes[i].onVoxelCount()
		}
	})
	return count
}

func (n *internalNode[T]) onTileCount() uint64 {
	var count uint64
	n.valueMask.forEachOn(func(i int) {
		if !n.childMask.isOn(i) {
			count++
		}
	})
	if n.level > 1 {
		n.childMask.forEachOn(func(i int) {
			count += n.inodes[i].onTileCount()
		})
	}
	return count
}

func (n *internalNode[T]) leafCount() int {
	count := 0
	n.childMask.forEachOn(func(i int) {
		if n.level == 1 {
			count++
		} else {
			count += n.inodes[i].leafCount()
		}
	})
	return count
}

func (n *internalNode[T]) internalCount() int {
	count := 1
	if n.level > 1 {
		n.childMask.forEachOn(func(i int) {
			count += n.inodes[i].internalCount()
		})
	}
	return count
}

func (n *internalNode[T]) hasActiveValues() bool {
	if !n.valueMask.isEmpty() {
		return true
	}
	found := false
	n.childMask.forEachOn(func(i int) {
		if found {
			return
		}
		if n.level == 1 {
			found = !n.leaves[i].IsEmpty()
		} else {
			found = n.inodes[i].hasActiveValues()
		}
	})
	return found
}

func (n *internalNode[T]) forEachLeaf(fn func(*LeafNode[T])) {
	n.childMask.forEachOn(func(i int) {
		if n.level == 1 {
			fn(n.leaves[i])
		} else {
			n.inodes[i].forEachLeaf(fn)
		}
	})
}

// forEachActiveTile visits every active tile with its bounding box and value.
func (n *internalNode[T]) forEachActiveTile(fn func(bbox coords.CoordBBox, v T)) {
	cfg := n.config()
	n.valueMask.forEachOn(func(i int) {
		if !n.childMask.isOn(i) {
			fn(coords.CubeBBox(n.childOrigin(i), 1<<cfg.childLog2Dim), n.tiles[i])
		}
	})
	if n.level > 1 {
		n.childMask.forEachOn(func(i int) {
			n.inodes[i].forEachActiveTile(fn)
		})
	}
}

// fill assigns the value and active state to every coordinate of bbox that
// lies inside this node, using constant tiles for fully covered child slots.
func (n *internalNode[T]) fill(bbox coords.CoordBBox, v T, active bool, background T) {
	cfg := n.config()
	nodeBox := coords.CubeBBox(n.origin, 1<<cfg.totalLog2Dim)
	clipped := bbox.Intersect(nodeBox)
	if clipped.IsEmpty() {
		return
	}
	childDim := int32(1) << cfg.childLog2Dim
	minIdx := clipped.Min.Sub(n.origin)
	maxIdx := clipped.Max.Sub(n.origin)
	for cx := minIdx.X >> cfg.childLog2Dim; cx <= maxIdx.X>>cfg.childLog2Dim; cx++ {
		for cy := minIdx.Y >> cfg.childLog2Dim; cy <= maxIdx.Y>>cfg.childLog2Dim; cy++ {
			for cz := minIdx.Z >> cfg.childLog2Dim; cz <= maxIdx.Z>>cfg.childLog2Dim; cz++ {
				i := int(cx)<<(2*cfg.log2Branch) | int(cy)<<cfg.log2Branch | int(cz)
				childBox := coords.CubeBBox(n.childOrigin(i), childDim)
				if clipped.ContainsBBox(childBox) {
					// Whole child slot is covered: collapse to a tile.
					if n.childMask.isOn(i) {
						n.childMask.setOff(i)
						if n.level == 1 {
							n.leaves[i] = nil
						} else {
							n.inodes[i] = nil
						}
					}
					n.tiles[i] = v
					n.valueMask.set(i, active)
					continue
				}
				if !n.childMask.isOn(i) {
					if n.valueMask.isOn(i) {
						n.expandTile(i, background)
					} else {
						origin := n.childOrigin(i)
						if n.level == 1 {
							n.leaves[i] = NewLeafNode(origin, n.tiles[i])
						} else {
							n.inodes[i] = newInternalNode(origin, n.level-1, n.tiles[i])
						}
						n.childMask.setOn(i)
						n.valueMask.setOff(i)
					}
				}
				if n.level == 1 {
					leaf := n.leaves[i]
					sub := clipped.Intersect(childBox)
					sub.ForEach(func(c coords.Coord) bool {
						off := LeafVoxelOffset(c)
						leaf.buf[off] = v
						leaf.mask.Set(off, active)
						return true
					})
				} else {
					n.inodes[i].fill(clipped, v, active, background)
				}
			}
		}
	}
}

// pruneInactive collapses all-inactive constant children back into inactive
// tiles and reports whether the node itself reduced to a single inactive
// background tile.
func (n *internalNode[T]) pruneInactive(background T) bool {
	n.childMask.forEachOn(func(i int) {
		if n.level == 1 {
			leaf := n.leaves[i]
			if v, active, ok := leaf.IsConstant(func(a, b T) bool { return a == b }); ok && !active {
				n.leaves[i] = nil
				n.childMask.setOff(i)
				n.tiles[i] = v
				n.valueMask.setOff(i)
			}
		} else if n.inodes[i].pruneInactive(background) {
			n.inodes[i] = nil
			n.childMask.setOff(i)
			n.tiles[i] = background
			n.valueMask.setOff(i)
		}
	})
	if !n.childMask.isEmpty() || !n.valueMask.isEmpty() {
		return false
	}
	for _, v := range n.tiles {
		if v != background {
			return false
		}
	}
	return true
}

// prune collapses constant children (under the given equality) into tiles of
// their shared value, preserving the active state, and reports whether this
// node reduced to a single inactive background tile.
func (n *internalNode[T]) prune(equal func(T, T) bool, background T) bool {
	n.childMask.forEachOn(func(i int) {
		if n.level == 1 {
			leaf := n.leaves[i]
			if v, active, ok := leaf.IsConstant(equal); ok {
				n.leaves[i] = nil
				n.childMask.setOff(i)
				n.tiles[i] = v
				n.valueMask.set(i, active)
			}
		} else {
			child := n.inodes[i]
			if child.prune(equal, background) {
				n.inodes[i] = nil
				n.childMask.setOff(i)
				n.tiles[i] = background
				n.valueMask.setOff(i)
			} else if v, active, ok := child.isConstant(equal); ok {
				n.inodes[i] = nil
				n.childMask.setOff(i)
				n.tiles[i] = v
				n.valueMask.set(i, active)
			}
		}
	})
	if !n.childMask.isEmpty() || !n.valueMask.isEmpty() {
		return false
	}
	for _, v := range n.tiles {
		if !equal(v, background) {
			return false
		}
	}
	return true
}

// isConstant reports whether the node consists solely of tiles that share one
// value and active state.
func (n *internalNode[T]) isConstant(equal func(T, T) bool) (T, bool, bool) {
	var zero T
	if !n.childMask.isEmpty() {
		return zero, false, false
	}
	v := n.tiles[0]
	active := n.valueMask.isOn(0)
	for i, t := range n.tiles {
		if !equal(t, v) || n.valueMask.isOn(i) != active {
			return zero, false, false
		}
	}
	return v, active, true
}

// voxelizeActiveTiles expands every active tile in this subtree into dense
// leaf voxels.
func (n *internalNode[T]) voxelizeActiveTiles(background T) {
	n.valueMask.forEachOn(func(i int) {
		if !n.childMask.isOn(i) {
			n.expandTile(i, background)
		}
	})
	if n.level > 1 {
		n.childMask.forEachOn(func(i int) {
			n.inodes[i].voxelizeActiveTiles(background)
		})
	}
}

func (n *internalNode[T]) clone() *internalNode[T] {
	cfg := n.config()
	out := &internalNode[T]{
		origin:    n.origin,
		level:     n.level,
		childMask: newNodeMask(cfg.numChildren),
		valueMask: newNodeMask(cfg.numChildren),
		tiles:     make([]T, cfg.numChildren),
	}
	copy(out.childMask, n.childMask)
	copy(out.valueMask, n.valueMask)
	copy(out.tiles, n.tiles)
	if n.level == 1 {
		out.leaves = make([]*LeafNode[T], cfg.numChildren)
		n.childMask.forEachOn(func(i int) {
			out.leaves[i] = n.leaves[i].Clone()
		})
	} else {
		out.inodes = make([]*internalNode[T], cfg.numChildren)
		n.childMask.forEachOn(func(i int) {
			out.inodes[i] = n.inodes[i].clone()
		})
	}
	return out
}
