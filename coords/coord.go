// Package coords defines the integer lattice primitives that sparse volumetric
// trees are addressed by: a signed 3D coordinate and an inclusive axis-aligned
// bounding box over it.
package coords

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Coord is a signed coordinate on the integer lattice.
type Coord struct {
	X, Y, Z int32
}

// NewCoord is a convenience constructor for a Coord.
func NewCoord(x, y, z int32) Coord {
	return Coord{X: x, Y: y, Z: z}
}

// UniformCoord returns the coordinate (v, v, v).
func UniformCoord(v int32) Coord {
	return Coord{X: v, Y: v, Z: v}
}

// FromVector returns the lattice coordinate containing the given world point,
// i.e. the floor of each component.
func FromVector(v r3.Vector) Coord {
	return Coord{X: floorInt32(v.X), Y: floorInt32(v.Y), Z: floorInt32(v.Z)}
}

func floorInt32(v float64) int32 {
	i := int32(v)
	if float64(i) > v {
		i--
	}
	return i
}

// Vector returns the coordinate as a world-space vector.
func (c Coord) Vector() r3.Vector {
	return r3.Vector{X: float64(c.X), Y: float64(c.Y), Z: float64(c.Z)}
}

// Offset returns the coordinate translated by (dx, dy, dz).
func (c Coord) Offset(dx, dy, dz int32) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Add returns the componentwise sum of two coordinates.
func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Sub returns the componentwise difference of two coordinates.
func (c Coord) Sub(o Coord) Coord {
	return Coord{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

// Min returns the componentwise minimum of two coordinates.
func (c Coord) Min(o Coord) Coord {
	return Coord{X: min32(c.X, o.X), Y: min32(c.Y, o.Y), Z: min32(c.Z, o.Z)}
}

// Max returns the componentwise maximum of two coordinates.
func (c Coord) Max(o Coord) Coord {
	return Coord{X: max32(c.X, o.X), Y: max32(c.Y, o.Y), Z: max32(c.Z, o.Z)}
}

// Comp returns the component along the given axis (0=x, 1=y, 2=z).
func (c Coord) Comp(axis int) int32 {
	switch axis {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// SetComp returns the coordinate with the component along the given axis
// replaced by v.
func (c Coord) SetComp(axis int, v int32) Coord {
	switch axis {
	case 0:
		c.X = v
	case 1:
		c.Y = v
	default:
		c.Z = v
	}
	return c
}

func (c Coord) String() string {
	return fmt.Sprintf("[%d, %d, %d]", c.X, c.Y, c.Z)
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
