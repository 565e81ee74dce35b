package coords

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCoordArithmetic(t *testing.T) {
	a := NewCoord(1, -2, 3)
	b := NewCoord(4, 5, -6)

	test.That(t, a.Add(b), test.ShouldResemble, NewCoord(5, 3, -3))
	test.That(t, a.Sub(b), test.ShouldResemble, NewCoord(-3, -7, 9))
	test.That(t, a.Min(b), test.ShouldResemble, NewCoord(1, -2, -6))
	test.That(t, a.Max(b), test.ShouldResemble, NewCoord(4, 5, 3))
	test.That(t, a.Offset(1, 1, 1), test.ShouldResemble, NewCoord(2, -1, 4))
	test.That(t, UniformCoord(7), test.ShouldResemble, NewCoord(7, 7, 7))

	for axis := 0; axis < 3; axis++ {
		c := a.SetComp(axis, 42)
		test.That(t, c.Comp(axis), test.ShouldEqual, 42)
	}
	test.That(t, a.String(), test.ShouldEqual, "[1, -2, 3]")
}

func TestFromVectorFloors(t *testing.T) {
	test.That(t, FromVector(r3.Vector{X: 1.9, Y: 2.0, Z: 3.1}), test.ShouldResemble, NewCoord(1, 2, 3))
	// Negative values floor toward minus infinity, not toward zero.
	test.That(t, FromVector(r3.Vector{X: -0.5, Y: -1.0, Z: -1.5}), test.ShouldResemble, NewCoord(-1, -1, -2))
	test.That(t, NewCoord(2, -3, 4).Vector(), test.ShouldResemble, r3.Vector{X: 2, Y: -3, Z: 4})
}

func TestBBoxGeometry(t *testing.T) {
	b := NewCoordBBox(NewCoord(-1, -1, -1), NewCoord(2, 3, 4))

	test.That(t, b.IsEmpty(), test.ShouldBeFalse)
	test.That(t, b.Dim(), test.ShouldResemble, NewCoord(4, 5, 6))
	test.That(t, b.Volume(), test.ShouldEqual, 120)
	test.That(t, b.SortedExtents(), test.ShouldResemble, [3]int32{4, 5, 6})

	test.That(t, b.Contains(NewCoord(2, 3, 4)), test.ShouldBeTrue)
	test.That(t, b.Contains(NewCoord(3, 0, 0)), test.ShouldBeFalse)
	test.That(t, b.ContainsBBox(CubeBBox(NewCoord(0, 0, 0), 2)), test.ShouldBeTrue)
	test.That(t, b.ContainsBBox(CubeBBox(NewCoord(0, 0, 0), 8)), test.ShouldBeFalse)

	cube := CubeBBox(NewCoord(8, 8, 8), 8)
	test.That(t, cube.Max, test.ShouldResemble, NewCoord(15, 15, 15))
	test.That(t, cube.Volume(), test.ShouldEqual, 512)
}

func TestBBoxCombination(t *testing.T) {
	a := CubeBBox(NewCoord(0, 0, 0), 4)
	b := CubeBBox(NewCoord(2, 2, 2), 4)

	inter := a.Intersect(b)
	test.That(t, inter, test.ShouldResemble, NewCoordBBox(NewCoord(2, 2, 2), NewCoord(3, 3, 3)))
	test.That(t, a.Overlaps(b), test.ShouldBeTrue)
	test.That(t, a.Overlaps(CubeBBox(NewCoord(10, 0, 0), 2)), test.ShouldBeFalse)

	test.That(t, a.ExpandBBox(b), test.ShouldResemble, NewCoordBBox(NewCoord(0, 0, 0), NewCoord(5, 5, 5)))
	test.That(t, a.Expand(1), test.ShouldResemble, NewCoordBBox(NewCoord(-1, -1, -1), NewCoord(4, 4, 4)))
}

func TestEmptyBBox(t *testing.T) {
	e := EmptyBBox()
	test.That(t, e.IsEmpty(), test.ShouldBeTrue)
	test.That(t, e.Volume(), test.ShouldEqual, 0)
	test.That(t, e.Dim(), test.ShouldResemble, Coord{})

	e = e.ExpandCoord(NewCoord(3, -2, 1))
	test.That(t, e, test.ShouldResemble, NewCoordBBox(NewCoord(3, -2, 1), NewCoord(3, -2, 1)))
	e = e.ExpandCoord(NewCoord(-1, 4, 1))
	test.That(t, e, test.ShouldResemble, NewCoordBBox(NewCoord(-1, -2, 1), NewCoord(3, 4, 1)))

	// Expanding by an empty box is a no-op.
	test.That(t, e.ExpandBBox(EmptyBBox()), test.ShouldResemble, e)
}

func TestBBoxForEach(t *testing.T) {
	b := NewCoordBBox(NewCoord(0, 0, 0), NewCoord(1, 1, 1))

	var visited []Coord
	b.ForEach(func(c Coord) bool {
		visited = append(visited, c)
		return true
	})
	test.That(t, len(visited), test.ShouldEqual, 8)
	// x-major order: z varies fastest.
	test.That(t, visited[0], test.ShouldResemble, NewCoord(0, 0, 0))
	test.That(t, visited[1], test.ShouldResemble, NewCoord(0, 0, 1))
	test.That(t, visited[7], test.ShouldResemble, NewCoord(1, 1, 1))

	count := 0
	b.ForEach(func(Coord) bool {
		count++
		return count < 3
	})
	test.That(t, count, test.ShouldEqual, 3)
}
