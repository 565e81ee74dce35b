package potential

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/levelset"
	"github.com/voxtree-dev/voxtree/tree"
)

func colliderSphere(t *testing.T) *grid.Float {
	t.Helper()
	g, err := levelset.CreateSphere(1.5, r3.Vector{}, 0.25, 3)
	test.That(t, err, test.ShouldBeNil)
	return g
}

func TestCreateMask(t *testing.T) {
	sphere := colliderSphere(t)

	// The isosurface sits at index y = 6; a dilation of 5 forms an outward
	// band from there.
	mask, err := CreateMask(sphere, 5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(0, 5, 0)), test.ShouldBeFalse)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(0, 6, 0)), test.ShouldBeTrue)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(0, 10, 0)), test.ShouldBeTrue)
	test.That(t, mask.Tree().IsValueOn(coords.NewCoord(0, 11, 0)), test.ShouldBeFalse)

	// The minimum band is one voxel either side of the isosurface.
	minimum, err := CreateMask(sphere, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, minimum.Tree().IsValueOn(coords.NewCoord(0, 5, 0)), test.ShouldBeFalse)
	test.That(t, minimum.Tree().IsValueOn(coords.NewCoord(0, 6, 0)), test.ShouldBeTrue)
	test.That(t, minimum.Tree().IsValueOn(coords.NewCoord(0, 7, 0)), test.ShouldBeTrue)
	test.That(t, minimum.Tree().IsValueOn(coords.NewCoord(0, 8, 0)), test.ShouldBeFalse)

	// Dilations below two clamp to the minimum band.
	for _, dilation := range []int{-1, 0, 1} {
		clamped, err := CreateMask(sphere, dilation)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, clamped.Tree().ActiveVoxelCount(),
			test.ShouldEqual, minimum.Tree().ActiveVoxelCount())
	}

	// Non-uniform voxels are rejected.
	stretched, err := grid.NewTransformFromMatrix(mgl64.Scale3D(0.1, 0.2, 0.3))
	test.That(t, err, test.ShouldBeNil)
	sphere.SetTransform(stretched)
	_, err = CreateMask(sphere, 5)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNeumannVelocities(t *testing.T) {
	sphere := colliderSphere(t)
	domain, err := CreateMask(sphere, 5)
	test.That(t, err, test.ShouldBeNil)

	wind := r3.Vector{Z: 10}

	// The same potential arises whether the wind arrives as a grid
	// background or as the background velocity argument.
	windGrid := grid.New(wind)
	windGrid.SetTransform(sphere.Transform())
	fromGrid, err := CreateNeumannVelocities(sphere, domain, windGrid, r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	fromBackground, err := CreateNeumannVelocities(sphere, domain, nil, wind)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, fromBackground.Tree().ActiveVoxelCount(), test.ShouldBeGreaterThan, 0)
	test.That(t, fromGrid.Tree().ActiveVoxelCount(),
		test.ShouldEqual, fromBackground.Tree().ActiveVoxelCount())

	bgAcc := tree.NewValueAccessor(fromBackground.Tree())
	fromGrid.Tree().ForEachLeaf(func(leaf *tree.LeafNode[r3.Vector]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, v r3.Vector) {
			test.That(t, bgAcc.IsValueOn(c), test.ShouldBeTrue)
			test.That(t, v, test.ShouldResemble, bgAcc.GetValue(c))
		})
	})

	// Supplying the wind through both doubles the boundary velocity.
	fromBoth, err := CreateNeumannVelocities(sphere, domain, windGrid, wind)
	test.That(t, err, test.ShouldBeNil)
	fromBoth.Tree().ForEachLeaf(func(leaf *tree.LeafNode[r3.Vector]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, v r3.Vector) {
			test.That(t, v, test.ShouldResemble, bgAcc.GetValue(c).Mul(2))
		})
	})

	// Zero boundary velocities leave the grid empty.
	zero, err := CreateNeumannVelocities(sphere, domain, nil, r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zero.Tree().ActiveVoxelCount(), test.ShouldEqual, 0)

	// The collider must be a level set.
	fog := colliderSphere(t)
	fog.SetClass(grid.ClassFogVolume)
	_, err = CreateNeumannVelocities(fog, domain, nil, wind)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUniformStream(t *testing.T) {
	// A cube of Neumann voxels with constant velocity (0, 0, 1): the scalar
	// potential must recover the staggered z coordinate and the flow the
	// input velocity.
	mask := grid.New(false)
	maskAcc := tree.NewValueAccessor(mask.Tree())
	neumann := grid.New(r3.Vector{})
	neumannAcc := tree.NewValueAccessor(neumann.Tree())
	stream := r3.Vector{Z: 1}
	for i := int32(-20); i < 20; i++ {
		for j := int32(-20); j < 20; j++ {
			for k := int32(-20); k < 20; k++ {
				c := coords.NewCoord(i, j, k)
				maskAcc.SetValue(c, true)
				neumannAcc.SetValue(c, stream)
			}
		}
	}

	potential, state, err := ComputeScalarPotential(mask, neumann, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state.Success, test.ShouldBeTrue)
	test.That(t, state.Iterations, test.ShouldBeGreaterThan, 0)
	test.That(t, state.Iterations, test.ShouldBeLessThan, 2000)
	test.That(t, state.AbsoluteError, test.ShouldBeLessThan, 1e-6)
	test.That(t, potential.ActiveVoxelCount(), test.ShouldEqual, mask.ActiveVoxelCount())

	potential.Tree().ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, v float32) {
			staggeredZ := float64(c.Z) + 0.5
			test.That(t, float64(v), test.ShouldAlmostEqual, staggeredZ, 0.1)
		})
	})

	flow, err := ComputeFlow(potential, neumann, r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, flow.ActiveVoxelCount(), test.ShouldEqual, mask.ActiveVoxelCount())
	test.That(t, flow.Class(), test.ShouldEqual, grid.ClassStaggered)
	test.That(t, flow.VectorType(), test.ShouldEqual, grid.VecContravariant)
	flow.Tree().ForEachLeaf(func(leaf *tree.LeafNode[r3.Vector]) {
		leaf.ForEachOn(func(_ coords.Coord, _ uint, v r3.Vector) {
			test.That(t, v.X, test.ShouldAlmostEqual, 0, 1e-6)
			test.That(t, v.Y, test.ShouldAlmostEqual, 0, 1e-6)
			test.That(t, v.Z, test.ShouldAlmostEqual, 1, 1e-6)
		})
	})
}

func TestFlowAroundSphere(t *testing.T) {
	sphere := colliderSphere(t)
	domain, err := CreateMask(sphere, 20)
	test.That(t, err, test.ShouldBeNil)

	wind := r3.Vector{Z: 1}
	neumann, err := CreateNeumannVelocities(sphere, domain, nil, wind)
	test.That(t, err, test.ShouldBeNil)

	potential, state, err := ComputeScalarPotential(domain, neumann, NewConjugateGradient(4000, 1e-8))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state.Success, test.ShouldBeTrue)

	// Away from the collider and the outer boundary the potential is
	// harmonic: the discrete Laplacian vanishes.
	pot := tree.NewValueAccessor(potential.Tree())
	dx := 0.25
	for _, c := range []coords.Coord{
		coords.NewCoord(12, 0, 0),
		coords.NewCoord(0, 12, 5),
		coords.NewCoord(0, 0, -16),
	} {
		center := float64(pot.GetValue(c))
		sum := -6 * center
		for _, d := range faceOffsets {
			sum += float64(pot.GetValue(c.Offset(d[0], d[1], d[2])))
		}
		test.That(t, sum/(dx*dx), test.ShouldAlmostEqual, 0, 1e-2)
	}

	flow, err := ComputeFlow(potential, neumann, r3.Vector{})
	test.That(t, err, test.ShouldBeNil)

	// On the axis behind the sphere the flow approaches the wind from
	// below: u = U(1 - R^3/r^3), about 0.95 at r = 4 for R = 1.5.
	flowAcc := tree.NewValueAccessor(flow.Tree())
	probe := coords.NewCoord(0, 0, 16)
	v := flowAcc.GetValue(probe)
	test.That(t, math.Abs(v.X), test.ShouldBeLessThan, 0.1)
	test.That(t, math.Abs(v.Y), test.ShouldBeLessThan, 0.1)
	test.That(t, v.Z, test.ShouldBeGreaterThan, 0.8)
	test.That(t, v.Z, test.ShouldBeLessThan, 1.1)

	// A background wind shifts the reported flow by exactly that wind.
	relative, err := ComputeFlow(potential, neumann, wind)
	test.That(t, err, test.ShouldBeNil)
	relAcc := tree.NewValueAccessor(relative.Tree())
	rel := relAcc.GetValue(probe)
	test.That(t, rel.Z, test.ShouldAlmostEqual, v.Z-1, 1e-6)
}

func TestComputeScalarPotentialErrors(t *testing.T) {
	empty := grid.New(false)
	_, _, err := ComputeScalarPotential(empty, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	stretched, terr := grid.NewTransformFromMatrix(mgl64.Scale3D(1, 2, 3))
	test.That(t, terr, test.ShouldBeNil)
	empty.SetTransform(stretched)
	_, _, err = ComputeScalarPotential(empty, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func matVec(n int, fn func(i int) float64) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, fn(i))
	}
	return v
}

func TestConjugateGradientSolvesSmallSystem(t *testing.T) {
	// 1-D Poisson with Dirichlet-like diagonal boosting: A = tridiag(-1, 2, -1).
	const n = 10
	a := NewSparseSystem(n)
	for i := 0; i < n; i++ {
		cols := []int{i}
		vals := []float64{2}
		if i > 0 {
			cols = append(cols, i-1)
			vals = append(vals, -1)
		}
		if i < n-1 {
			cols = append(cols, i+1)
			vals = append(vals, -1)
		}
		a.AppendRow(cols, vals)
	}
	b := matVec(n, func(int) float64 { return 1 })

	cg := NewConjugateGradient(100, 1e-10)
	x, state := cg.Solve(a, b)
	test.That(t, state.Success, test.ShouldBeTrue)

	// Verify A x = b.
	ax := matVec(n, func(int) float64 { return 0 })
	a.MulVec(ax, x)
	for i := 0; i < n; i++ {
		test.That(t, ax.AtVec(i), test.ShouldAlmostEqual, 1, 1e-8)
	}
}
