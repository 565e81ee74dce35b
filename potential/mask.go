package potential

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/levelset"
	"github.com/voxtree-dev/voxtree/morphology"
	"github.com/voxtree-dev/voxtree/tree"
)

// CreateMask builds the solve domain for a collider: a band dilated outward
// from the collider surface by the given number of voxels, excluding the
// collider interior. Dilations below two are clamped so the band always has
// at least one voxel on either side of the isosurface.
func CreateMask(collider *grid.Float, dilation int) (*grid.Bool, error) {
	if _, err := collider.Transform().UniformVoxelSize(); err != nil {
		return nil, err
	}
	if dilation < 2 {
		dilation = 2
	}

	interior, err := levelset.SDFInteriorMask(collider, 0)
	if err != nil {
		return nil, err
	}

	mask := grid.New(false)
	mask.SetTransform(collider.Transform())
	mask.SetTree(interior.Tree().DeepCopy())
	morphology.DilateActiveValues(mask.Tree(), dilation, morphology.NNFace, morphology.ExpandTiles)
	tree.TopologyDifference(mask.Tree(), interior.Tree())
	mask.Tree().PruneInactive()
	return mask, nil
}

// CreateNeumannVelocities computes the boundary velocities for the solve:
// the domain voxels that share a face with the collider interior, carrying
// the sampled velocity grid value plus the background velocity. Voxels whose
// resulting velocity is zero are left inactive, so a zero boundary produces
// an empty grid.
func CreateNeumannVelocities(
	collider *grid.Float,
	domain *grid.Bool,
	velocity *grid.Vec,
	background r3.Vector,
) (*grid.Vec, error) {
	if collider.Class() != grid.ClassLevelSet {
		return nil, errors.Errorf("collider must be a level set, got class %v", collider.Class())
	}
	dx, err := collider.Transform().UniformVoxelSize()
	if err != nil {
		return nil, err
	}
	if velocity != nil {
		vdx, err := velocity.Transform().UniformVoxelSize()
		if err != nil {
			return nil, err
		}
		if vdx != dx {
			return nil, errors.Errorf("velocity voxel size %g does not match collider %g", vdx, dx)
		}
	}

	interior, err := levelset.SDFInteriorMask(collider, 0)
	if err != nil {
		return nil, err
	}
	intAcc := tree.NewValueAccessor(interior.Tree())

	out := grid.New(r3.Vector{})
	out.SetTransform(collider.Transform())
	out.SetVectorType(grid.VecContravariant)
	outAcc := tree.NewValueAccessor(out.Tree())

	var velAcc *tree.ValueAccessor[r3.Vector]
	if velocity != nil {
		velAcc = tree.NewValueAccessor(velocity.Tree())
	}

	dt := domain.Tree()
	if dt.ActiveTileCount() > 0 {
		dt.VoxelizeActiveTiles()
	}
	dt.ForEachLeaf(func(leaf *tree.LeafNode[bool]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, _ bool) {
			shell := false
			for _, d := range faceOffsets {
				if intAcc.IsValueOn(c.Offset(d[0], d[1], d[2])) {
					shell = true
					break
				}
			}
			if !shell {
				return
			}
			v := background
			if velAcc != nil {
				v = v.Add(velAcc.GetValue(c))
			}
			if v != (r3.Vector{}) {
				outAcc.SetValue(c, v)
			}
		})
	})
	return out, nil
}

// faceOffsets are the six face-neighbor steps.
var faceOffsets = [6][3]int32{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}
