package levelset

import (
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/tree"
)

// requireLevelSet checks the preconditions shared by the level-set
// operations: the grid must be classed as a level set, non-empty, and have a
// uniform transform.
func requireLevelSet(g *grid.Float) (float64, error) {
	if g.Class() != grid.ClassLevelSet {
		return 0, errors.Errorf("grid %q is classed %q, expected a level set", g.Name(), g.Class())
	}
	if !g.Tree().HasActiveValues() {
		return 0, errors.Errorf("grid %q has no active values", g.Name())
	}
	return g.Transform().UniformVoxelSize()
}

// signedValue reads the signed distance at c, valid both in the band and in
// the inactive interior and exterior.
func signedValue(acc *tree.ValueAccessor[float32], c coords.Coord) float32 {
	v, _ := acc.Probe(c)
	return v
}

// InteriorMask returns a boolean grid that is active exactly where the level
// set is negative, including the inactive interior region.
func InteriorMask(g *grid.Float) (*grid.Bool, error) {
	if _, err := requireLevelSet(g); err != nil {
		return nil, err
	}
	mask := grid.New(false)
	mask.SetTransform(g.Transform())
	mask.SetName(g.Name() + "_interior")
	mt := mask.Tree()
	tree.VisitAllValues(g.Tree(), func(av tree.ActiveValue[float32], _ bool) bool {
		if av.Value < 0 {
			mt.Fill(av.BBox, true, true)
		}
		return true
	})
	mt.Prune(nil)
	return mask, nil
}

// SDFInteriorMask returns a boolean grid that is active where the signed
// distance field is below the given isovalue. Unlike InteriorMask it accepts
// any float grid regardless of class.
func SDFInteriorMask(g *grid.Float, isovalue float32) (*grid.Bool, error) {
	if !g.Tree().HasActiveValues() {
		return nil, errors.New("cannot build an interior mask from an empty grid")
	}
	mask := grid.New(false)
	mask.SetTransform(g.Transform())
	mask.SetName(g.Name() + "_interior")
	mt := mask.Tree()
	tree.VisitAllValues(g.Tree(), func(av tree.ActiveValue[float32], _ bool) bool {
		if av.Value < isovalue {
			mt.Fill(av.BBox, true, true)
		}
		return true
	})
	mt.Prune(nil)
	return mask, nil
}

// SDFToFogVolume converts a level set into a fog volume in place: interior
// values become densities in (0, 1], growing from the surface inward, and
// the exterior becomes inactive background zero.
func SDFToFogVolume(g *grid.Float) error {
	if _, err := requireLevelSet(g); err != nil {
		return err
	}
	// Density ramps from zero at the surface to one at the inner band edge.
	cutoff := g.Background()

	tr := g.Tree()
	// Interior tiles saturate to full density.
	tr.VoxelizeActiveTiles()
	newTree := tree.NewTree[float32](0)
	acc := tree.NewValueAccessor(newTree)
	tree.VisitAllValues(tr, func(av tree.ActiveValue[float32], _ bool) bool {
		if av.Value >= 0 {
			return true
		}
		fog := -av.Value / cutoff
		if fog > 1 {
			fog = 1
		}
		av.BBox.ForEach(func(c coords.Coord) bool {
			acc.SetValue(c, fog)
			return true
		})
		return true
	})
	newTree.Prune(nil)
	g.SetTree(newTree)
	g.SetClass(grid.ClassFogVolume)
	return nil
}

// CSGUnion replaces a with the union of the two level sets and leaves b
// untouched. Both grids must share a transform.
func CSGUnion(a, b *grid.Float) error {
	return csgOp(a, b, func(va, vb float32) float32 {
		if vb < va {
			return vb
		}
		return va
	})
}

// CSGIntersection replaces a with the intersection of the two level sets.
func CSGIntersection(a, b *grid.Float) error {
	return csgOp(a, b, func(va, vb float32) float32 {
		if vb > va {
			return vb
		}
		return va
	})
}

// CSGDifference replaces a with a minus b.
func CSGDifference(a, b *grid.Float) error {
	return csgOp(a, b, func(va, vb float32) float32 {
		if -vb > va {
			return -vb
		}
		return va
	})
}

func csgOp(a, b *grid.Float, combine func(va, vb float32) float32) error {
	wa, err := requireLevelSet(a)
	if err != nil {
		return err
	}
	wb, err := requireLevelSet(b)
	if err != nil {
		return err
	}
	if wa != wb {
		return errors.Errorf("csg operands have different voxel sizes %g and %g", wa, wb)
	}
	background := a.Background()

	out := tree.NewTree(background)
	outAcc := tree.NewValueAccessor(out)
	accA := tree.NewValueAccessor(a.Tree())
	accB := tree.NewValueAccessor(b.Tree())

	// Evaluate the combined distance at every stored non-exterior region of
	// either operand: band voxels, interior ghost voxels, and interior tiles.
	// Pure exterior regions of both operands stay at the background, which is
	// correct for all three operations. Repeat visits write the same value,
	// so no deduplication is needed.
	process := func(av tree.ActiveValue[float32], active bool) bool {
		if !active && av.Value >= 0 {
			return true
		}
		av.BBox.ForEach(func(c coords.Coord) bool {
			v := combine(signedValue(accA, c), signedValue(accB, c))
			switch {
			case v >= background:
				// Exterior: already the background.
			case v <= -background:
				outAcc.SetValueOff(c, -background)
			default:
				outAcc.SetValue(c, v)
			}
			return true
		})
		return true
	}
	tree.VisitAllValues(a.Tree(), process)
	tree.VisitAllValues(b.Tree(), process)

	out.PruneInactive()
	a.SetTree(out)
	return nil
}
