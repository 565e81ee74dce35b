package gridmath

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/tree"
)

func TestStatsReducer(t *testing.T) {
	s := NewStats()
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	test.That(t, s.Size(), test.ShouldEqual, 5)
	test.That(t, s.Mean(), test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, s.Min(), test.ShouldEqual, 1)
	test.That(t, s.Max(), test.ShouldEqual, 5)
	test.That(t, s.Variance(), test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, s.StdDev(), test.ShouldAlmostEqual, math.Sqrt(2), 1e-12)
}

func TestStatsJoinMatchesSequential(t *testing.T) {
	values := []float64{3, -1, 4, 1, -5, 9, 2, 6, 5, 3.5}

	all := NewStats()
	for _, v := range values {
		all.Add(v)
	}

	a, b := NewStats(), NewStats()
	for _, v := range values[:4] {
		a.Add(v)
	}
	for _, v := range values[4:] {
		b.Add(v)
	}
	a.Join(b)

	test.That(t, a.Size(), test.ShouldEqual, all.Size())
	test.That(t, a.Mean(), test.ShouldAlmostEqual, all.Mean(), 1e-12)
	test.That(t, a.Mean(), test.ShouldAlmostEqual, floats.Sum(values)/float64(len(values)), 1e-12)
	test.That(t, a.Variance(), test.ShouldAlmostEqual, all.Variance(), 1e-12)
	test.That(t, a.Min(), test.ShouldEqual, all.Min())
	test.That(t, a.Max(), test.ShouldEqual, all.Max())
}

func TestStatsAddNMatchesRepeatedAdd(t *testing.T) {
	a := NewStats()
	a.AddN(2.5, 100)
	a.Add(7)

	b := NewStats()
	for i := 0; i < 100; i++ {
		b.Add(2.5)
	}
	b.Add(7)

	test.That(t, a.Mean(), test.ShouldAlmostEqual, b.Mean(), 1e-10)
	test.That(t, a.Variance(), test.ShouldAlmostEqual, b.Variance(), 1e-10)
}

func TestHistogram(t *testing.T) {
	h, err := NewHistogram(0, 10, 5)
	test.That(t, err, test.ShouldBeNil)
	h.Add(1)
	h.Add(3)
	h.AddN(5, 3)
	h.Add(11) // out of range
	test.That(t, h.Total(), test.ShouldEqual, 5)
	test.That(t, h.Outliers(), test.ShouldEqual, 1)
	test.That(t, h.Count(0), test.ShouldEqual, 1)
	test.That(t, h.Count(1), test.ShouldEqual, 1)
	test.That(t, h.Count(2), test.ShouldEqual, 3)

	_, err = NewHistogram(5, 5, 10)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewHistogram(0, 1, 0)
	test.That(t, err, test.ShouldNotBeNil)

	other, err := NewHistogram(0, 1, 5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Join(other), test.ShouldNotBeNil)
}

func TestActiveStatsWeighsTiles(t *testing.T) {
	tr := tree.NewTree[float32](0)
	// One active tile of 512 voxels holding 2, and one voxel holding 10.
	tr.Fill(coords.CubeBBox(coords.NewCoord(0, 0, 0), 8), 2, true)
	tr.SetValue(coords.NewCoord(100, 0, 0), 10)

	for _, threaded := range []bool{false, true} {
		s := ActiveStats(tr, threaded)
		test.That(t, s.Size(), test.ShouldEqual, 513)
		test.That(t, s.Mean(), test.ShouldAlmostEqual, (512*2+10)/513.0, 1e-9)
		test.That(t, s.Min(), test.ShouldEqual, 2)
		test.That(t, s.Max(), test.ShouldEqual, 10)

		e := ActiveExtrema(tr, threaded)
		test.That(t, e.Size(), test.ShouldEqual, 513)
		test.That(t, e.Range(), test.ShouldEqual, 8)
	}
}

func TestActiveHistogramOverTree(t *testing.T) {
	tr := tree.NewTree[float32](0)
	for i := int32(0); i < 100; i++ {
		tr.SetValue(coords.NewCoord(i, 0, 0), float32(i%10))
	}
	h, err := ActiveHistogram(tr, 0, 10, 10, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Total(), test.ShouldEqual, 100)
	for i := 0; i < 10; i++ {
		test.That(t, h.Count(i), test.ShouldEqual, 10)
	}
}

// fillSphereSDF stores the exact signed distance to a sphere over a dense
// box around it.
func fillSphereSDF(tr *tree.Tree[float32], center coords.Coord, radius, padding int32) {
	box := coords.NewCoordBBox(
		center.Offset(-radius-padding, -radius-padding, -radius-padding),
		center.Offset(radius+padding, radius+padding, radius+padding),
	)
	box.ForEach(func(c coords.Coord) bool {
		d := c.Sub(center)
		dist := math.Sqrt(float64(d.X*d.X+d.Y*d.Y+d.Z*d.Z)) - float64(radius)
		tr.SetValue(c, float32(dist))
		return true
	})
}

func TestSphereDerivatives(t *testing.T) {
	tr := tree.NewTree[float32](0)
	center := coords.NewCoord(0, 0, 0)
	const radius = 10
	fillSphereSDF(tr, center, radius, 4)
	acc := tree.NewValueAccessor(tr)

	// On the surface along +x the gradient is the unit x direction.
	p := coords.NewCoord(radius, 0, 0)
	g := Gradient(acc, p, 1)
	test.That(t, g.X, test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, g.Y, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, g.Z, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, GradientNorm(acc, p, 1), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, UpwindGradientNorm(acc, p, 1), test.ShouldAlmostEqual, 1, 5e-2)

	test.That(t, MeanCurvature(acc, p, 1), test.ShouldAlmostEqual, 1.0/radius, 1e-3)
	test.That(t, GaussianCurvature(acc, p, 1), test.ShouldAlmostEqual, 1.0/(radius*radius), 1e-3)

	// Off-axis surface point.
	q := coords.NewCoord(6, 8, 0) // |q| = 10
	test.That(t, GradientNorm(acc, q, 1), test.ShouldAlmostEqual, 1, 1e-2)
	test.That(t, MeanCurvature(acc, q, 1), test.ShouldAlmostEqual, 1.0/radius, 1e-2)
}

func TestLaplacianOfQuadratic(t *testing.T) {
	// f = x^2 + y^2 + z^2 has Laplacian 6 everywhere.
	tr := tree.NewTree[float32](0)
	box := coords.NewCoordBBox(coords.NewCoord(-3, -3, -3), coords.NewCoord(3, 3, 3))
	box.ForEach(func(c coords.Coord) bool {
		tr.SetValue(c, float32(c.X*c.X+c.Y*c.Y+c.Z*c.Z))
		return true
	})
	acc := tree.NewValueAccessor(tr)
	test.That(t, Laplacian(acc, coords.NewCoord(0, 0, 0), 1), test.ShouldAlmostEqual, 6, 1e-6)
	test.That(t, Laplacian(acc, coords.NewCoord(1, 1, 1), 1), test.ShouldAlmostEqual, 6, 1e-6)
}

func TestBoxStencilMedian(t *testing.T) {
	tr := tree.NewTree[float32](0)
	n := float32(0)
	coords.CubeBBox(coords.NewCoord(0, 0, 0), 3).ForEach(func(c coords.Coord) bool {
		tr.SetValue(c, n)
		n++
		return true
	})
	acc := tree.NewValueAccessor(tr)
	s := NewBoxStencil(acc, 1)
	s.Gather(coords.NewCoord(1, 1, 1))
	// 27 distinct values 0..26: the median is 13.
	test.That(t, s.Median(), test.ShouldEqual, 13)
	test.That(t, s.Mean(), test.ShouldEqual, 13)
}

func TestOperatorStats(t *testing.T) {
	tr := tree.NewTree[float32](0)
	fillSphereSDF(tr, coords.NewCoord(0, 0, 0), 8, 3)
	s := OperatorStats(tr, true, func(acc *tree.ValueAccessor[float32], c coords.Coord) float64 {
		return GradientNorm(acc, c, 1)
	})
	test.That(t, s.Size(), test.ShouldEqual, tr.ActiveVoxelCount())
	// Interior voxels of a dense SDF block have gradient norm near one;
	// only the outermost shell sees the background.
	test.That(t, s.Mean(), test.ShouldAlmostEqual, 1, 0.5)
}
