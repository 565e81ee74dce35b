package potential

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/tree"
)

// ComputeScalarPotential solves the Laplace equation over the active voxels
// of the domain. Faces between a domain voxel and the outside carry a
// Neumann flux taken from the neumann grid sampled at the domain voxel, so
// the collider boundary and the open far field both enter through the right
// hand side. A nil solver uses conjugate gradient with 2000 iterations and
// an absolute tolerance of 1e-8; a nil neumann grid means zero flux
// everywhere.
func ComputeScalarPotential(
	domain *grid.Bool,
	neumann *grid.Vec,
	solver Solver,
) (*grid.Float, State, error) {
	dx, err := domain.Transform().UniformVoxelSize()
	if err != nil {
		return nil, State{}, err
	}
	if solver == nil {
		solver = NewConjugateGradient(2000, 1e-8)
	}

	dt := domain.Tree()
	if dt.ActiveTileCount() > 0 {
		dt.VoxelizeActiveTiles()
	}

	// Assign a row to every active voxel in leaf traversal order.
	var cells []coords.Coord
	rows := make(map[coords.Coord]int)
	dt.ForEachLeaf(func(leaf *tree.LeafNode[bool]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, _ bool) {
			rows[c] = len(cells)
			cells = append(cells, c)
		})
	})
	if len(cells) == 0 {
		return nil, State{}, errors.New("empty solve domain")
	}

	var velAcc *tree.ValueAccessor[r3.Vector]
	if neumann != nil {
		velAcc = tree.NewValueAccessor(neumann.Tree())
	}

	a := NewSparseSystem(len(cells))
	b := mat.NewVecDense(len(cells), nil)
	cols := make([]int, 0, 7)
	vals := make([]float64, 0, 7)
	for i, c := range cells {
		cols = cols[:0]
		vals = vals[:0]
		degree := 0
		flux := 0.0
		for _, d := range faceOffsets {
			n := c.Offset(d[0], d[1], d[2])
			if j, ok := rows[n]; ok {
				degree++
				cols = append(cols, j)
				vals = append(vals, -1)
				continue
			}
			// Open face: the outward normal flux is prescribed.
			if velAcc != nil {
				v := velAcc.GetValue(c)
				flux += float64(d[0])*v.X + float64(d[1])*v.Y + float64(d[2])*v.Z
			}
		}
		cols = append(cols, i)
		vals = append(vals, float64(degree))
		a.AppendRow(cols, vals)
		b.SetVec(i, flux*dx)
	}

	x, state := solver.Solve(a, b)

	out := grid.New[float32](0)
	out.SetTransform(domain.Transform())
	acc := tree.NewValueAccessor(out.Tree())
	for i, c := range cells {
		acc.SetValue(c, float32(x.AtVec(i)))
	}
	return out, state, nil
}

// ComputeFlow reconstructs the velocity field from the scalar potential: a
// staggered forward-difference gradient on every active potential voxel,
// overridden by the prescribed velocity at Neumann voxels. A non-zero
// background velocity is subtracted so the result is the perturbation from
// the far-field stream.
func ComputeFlow(
	potential *grid.Float,
	neumann *grid.Vec,
	background r3.Vector,
) (*grid.Vec, error) {
	dx, err := potential.Transform().UniformVoxelSize()
	if err != nil {
		return nil, err
	}

	out := grid.New(r3.Vector{})
	out.SetTransform(potential.Transform())
	out.SetClass(grid.ClassStaggered)
	out.SetVectorType(grid.VecContravariant)
	outAcc := tree.NewValueAccessor(out.Tree())

	var velAcc *tree.ValueAccessor[r3.Vector]
	if neumann != nil {
		velAcc = tree.NewValueAccessor(neumann.Tree())
	}
	pot := tree.NewValueAccessor(potential.Tree())

	inv := 1 / dx
	potential.Tree().ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, phi float32) {
			var v r3.Vector
			if velAcc != nil && velAcc.IsValueOn(c) {
				v = velAcc.GetValue(c)
			} else {
				v = r3.Vector{
					X: float64(pot.GetValue(c.Offset(1, 0, 0))-phi) * inv,
					Y: float64(pot.GetValue(c.Offset(0, 1, 0))-phi) * inv,
					Z: float64(pot.GetValue(c.Offset(0, 0, 1))-phi) * inv,
				}
			}
			outAcc.SetValue(c, v.Sub(background))
		})
	})
	return out, nil
}
