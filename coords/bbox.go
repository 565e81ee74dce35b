package coords

import (
	"fmt"
	"sort"
)

// CoordBBox is an axis-aligned bounding box on the integer lattice with
// inclusive bounds. The zero value is an empty box.
type CoordBBox struct {
	Min, Max Coord
}

// NewCoordBBox returns the bounding box [min, max].
func NewCoordBBox(min, max Coord) CoordBBox {
	return CoordBBox{Min: min, Max: max}
}

// EmptyBBox returns a box for which IsEmpty is true and which expands
// correctly under ExpandCoord.
func EmptyBBox() CoordBBox {
	const minInt32, maxInt32 = int32(-1 << 31), int32(1<<31 - 1)
	return CoordBBox{Min: UniformCoord(maxInt32), Max: UniformCoord(minInt32)}
}

// CubeBBox returns the axis-aligned cube with the given minimum corner and
// edge length.
func CubeBBox(origin Coord, dim int32) CoordBBox {
	return CoordBBox{Min: origin, Max: origin.Offset(dim-1, dim-1, dim-1)}
}

// IsEmpty reports whether the box contains no coordinates.
func (b CoordBBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Dim returns the extent along each axis (max-min+1), or zero extents for an
// empty box.
func (b CoordBBox) Dim() Coord {
	if b.IsEmpty() {
		return Coord{}
	}
	return Coord{X: b.Max.X - b.Min.X + 1, Y: b.Max.Y - b.Min.Y + 1, Z: b.Max.Z - b.Min.Z + 1}
}

// Volume returns the number of coordinates in the box.
func (b CoordBBox) Volume() uint64 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Dim()
	return uint64(d.X) * uint64(d.Y) * uint64(d.Z)
}

// Contains reports whether the coordinate lies inside the box.
func (b CoordBBox) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// ContainsBBox reports whether the other box lies entirely inside this one.
func (b CoordBBox) ContainsBBox(o CoordBBox) bool {
	return o.IsEmpty() || (b.Contains(o.Min) && b.Contains(o.Max))
}

// Intersect returns the intersection of the two boxes.
func (b CoordBBox) Intersect(o CoordBBox) CoordBBox {
	return CoordBBox{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
}

// Overlaps reports whether the two boxes share at least one coordinate.
func (b CoordBBox) Overlaps(o CoordBBox) bool {
	return !b.Intersect(o).IsEmpty()
}

// ExpandCoord grows the box to include the coordinate.
func (b CoordBBox) ExpandCoord(c Coord) CoordBBox {
	return CoordBBox{Min: b.Min.Min(c), Max: b.Max.Max(c)}
}

// ExpandBBox grows the box to include the other box.
func (b CoordBBox) ExpandBBox(o CoordBBox) CoordBBox {
	if o.IsEmpty() {
		return b
	}
	return CoordBBox{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Expand grows the box by padding voxels on every side.
func (b CoordBBox) Expand(padding int32) CoordBBox {
	return CoordBBox{
		Min: b.Min.Offset(-padding, -padding, -padding),
		Max: b.Max.Offset(padding, padding, padding),
	}
}

// SortedExtents returns the box extents sorted by increasing magnitude.
func (b CoordBBox) SortedExtents() [3]int32 {
	d := b.Dim()
	ext := []int32{d.X, d.Y, d.Z}
	sort.Slice(ext, func(i, j int) bool { return ext[i] < ext[j] })
	return [3]int32{ext[0], ext[1], ext[2]}
}

// ForEach calls fn for every coordinate in the box in x-major order. Iteration
// stops early if fn returns false.
func (b CoordBBox) ForEach(fn func(Coord) bool) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				if !fn(Coord{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}

func (b CoordBBox) String() string {
	return fmt.Sprintf("%v -> %v", b.Min, b.Max)
}
