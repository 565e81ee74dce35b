package points

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
)

func TestListGroups(t *testing.T) {
	l := NewList()
	test.That(t, l.Add(r3.Vector{X: 1}), test.ShouldEqual, 0)
	test.That(t, l.Add(r3.Vector{X: 2}), test.ShouldEqual, 1)

	test.That(t, l.AddGroup("a"), test.ShouldBeNil)
	test.That(t, l.AddGroup("a"), test.ShouldNotBeNil)
	test.That(t, l.SetGroup("a", 1), test.ShouldBeNil)
	test.That(t, l.SetGroup("missing", 0), test.ShouldNotBeNil)
	test.That(t, l.SetGroup("a", 7), test.ShouldNotBeNil)

	test.That(t, l.InGroup("a", 0), test.ShouldBeFalse)
	test.That(t, l.InGroup("a", 1), test.ShouldBeTrue)

	// Points added later start outside existing groups.
	l.Add(r3.Vector{X: 3})
	test.That(t, l.InGroup("a", 2), test.ShouldBeFalse)
	test.That(t, l.Groups(), test.ShouldResemble, []string{"a"})
}

func sixPoints(t *testing.T) *List {
	t.Helper()
	l := NewList()
	for _, p := range []r3.Vector{
		{X: 1, Y: 1, Z: 1},
		{X: 1, Y: 2, Z: 1},
		{X: 2, Y: 1, Z: 1},
		{X: 2, Y: 2, Z: 1},
		{X: 100, Y: 100, Z: 100},
		{X: 100, Y: 101, Z: 100},
	} {
		l.Add(p)
	}
	for _, g := range []string{"test1", "test2", "test4"} {
		test.That(t, l.AddGroup(g), test.ShouldBeNil)
	}
	test.That(t, l.SetGroup("test1", 0, 5), test.ShouldBeNil)
	test.That(t, l.SetGroup("test2", 2, 3, 5), test.ShouldBeNil)
	return l
}

func TestCreateIndexGrid(t *testing.T) {
	dg := CreateIndexGrid(sixPoints(t), nil)
	test.That(t, dg.Count(), test.ShouldEqual, 6)
	// Four points share one leaf, two another.
	test.That(t, dg.Tree().LeafCount(), test.ShouldEqual, 2)
	test.That(t, dg.Tree().ActiveVoxelCount(), test.ShouldEqual, 6)

	got := dg.PointsInVoxel(coords.NewCoord(1, 2, 1))
	test.That(t, got, test.ShouldResemble, []r3.Vector{{X: 1, Y: 2, Z: 1}})
	test.That(t, dg.PointsInVoxel(coords.NewCoord(50, 50, 50)), test.ShouldBeEmpty)

	var visited int
	dg.ForEachPoint(func(r3.Vector) { visited++ })
	test.That(t, visited, test.ShouldEqual, 6)
}

func TestCreateIndexGridClusteredVoxel(t *testing.T) {
	l := NewList()
	// Three points in one voxel, one in a face neighbor.
	l.Add(r3.Vector{X: 4.1, Y: 4, Z: 4})
	l.Add(r3.Vector{X: 4.2, Y: 4, Z: 4})
	l.Add(r3.Vector{X: 3.9, Y: 4, Z: 4})
	l.Add(r3.Vector{X: 5, Y: 4, Z: 4})

	dg := CreateIndexGrid(l, nil)
	test.That(t, len(dg.PointsInVoxel(coords.NewCoord(4, 4, 4))), test.ShouldEqual, 3)
	test.That(t, len(dg.PointsInVoxel(coords.NewCoord(5, 4, 4))), test.ShouldEqual, 1)
	test.That(t, dg.Tree().ActiveVoxelCount(), test.ShouldEqual, 2)
}

func TestDeleteFromGroups(t *testing.T) {
	dg := CreateIndexGrid(sixPoints(t), nil)
	test.That(t, dg.DeleteFromGroups([]string{"test1", "test2", "test3"}, false, true), test.ShouldBeNil)

	// test1={0,5} and test2={2,3,5} cover four of the six points.
	test.That(t, dg.Count(), test.ShouldEqual, 2)
	test.That(t, dg.PointsInVoxel(coords.NewCoord(1, 2, 1)),
		test.ShouldResemble, []r3.Vector{{X: 1, Y: 2, Z: 1}})
	test.That(t, dg.PointsInVoxel(coords.NewCoord(100, 100, 100)),
		test.ShouldResemble, []r3.Vector{{X: 100, Y: 100, Z: 100}})

	test.That(t, dg.HasGroup("test1"), test.ShouldBeFalse)
	test.That(t, dg.HasGroup("test2"), test.ShouldBeFalse)
	test.That(t, dg.HasGroup("test3"), test.ShouldBeFalse)
	test.That(t, dg.HasGroup("test4"), test.ShouldBeTrue)

	// The emptied voxels and leaves are gone.
	test.That(t, dg.Tree().ActiveVoxelCount(), test.ShouldEqual, 2)
	test.That(t, dg.Tree().LeafCount(), test.ShouldEqual, 2)

	test.That(t, dg.DeleteFromGroups(nil, false, true), test.ShouldNotBeNil)
}

func TestDeleteFromGroupsInverted(t *testing.T) {
	dg := CreateIndexGrid(sixPoints(t), nil)
	// Inverted: keep only members of test1, and keep the group itself.
	test.That(t, dg.DeleteFromGroups([]string{"test1"}, true, true), test.ShouldBeNil)
	test.That(t, dg.Count(), test.ShouldEqual, 2)
	test.That(t, dg.HasGroup("test1"), test.ShouldBeTrue)
	test.That(t, dg.PointsInVoxel(coords.NewCoord(1, 1, 1)),
		test.ShouldResemble, []r3.Vector{{X: 1, Y: 1, Z: 1}})
	test.That(t, dg.PointsInVoxel(coords.NewCoord(100, 101, 100)),
		test.ShouldResemble, []r3.Vector{{X: 100, Y: 101, Z: 100}})
}

func TestDeleteFromGroupsKeepDescriptor(t *testing.T) {
	dg := CreateIndexGrid(sixPoints(t), nil)
	test.That(t, dg.DeleteFromGroups([]string{"test1"}, false, false), test.ShouldBeNil)
	test.That(t, dg.Count(), test.ShouldEqual, 4)
	test.That(t, dg.HasGroup("test1"), test.ShouldBeTrue)
}

func TestToMask(t *testing.T) {
	l := sixPoints(t)
	mask, err := ToMask(context.Background(), l, nil, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Tree().ActiveVoxelCount(), test.ShouldEqual, 6)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(2, 2, 1)), test.ShouldBeTrue)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(3, 3, 1)), test.ShouldBeFalse)

	// Parallel rasterization produces the same topology.
	parallel, err := ToMask(context.Background(), l, nil, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parallel.Tree().ActiveVoxelCount(), test.ShouldEqual, 6)
	test.That(t, parallel.Tree().IsValueOn(coords.NewCoord(100, 101, 100)), test.ShouldBeTrue)

	// A coarser transform merges nearby points into shared voxels.
	coarse, err := ToMask(context.Background(), l, grid.NewLinearTransform(4), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, coarse.Tree().ActiveVoxelCount(), test.ShouldBeLessThan, 6)
}