// Package levelset builds and maintains narrow-band signed distance fields:
// construction of primitive shapes, renormalization and band resizing,
// surface measures, CSG, and conversions to other volume types.
package levelset

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/tree"
)

// DefaultHalfWidth is the conventional narrow-band half-width in voxels.
const DefaultHalfWidth = 3.0

// CreateSphere returns a narrow-band level set of a sphere. The radius and
// center are in world units, halfWidth in voxels. Voxels within the band
// store the exact signed distance clamped to [-w, w] where w is
// halfWidth*voxelSize; the interior is filled with the inactive value -w and
// the exterior is left at the background w.
func CreateSphere(radius float64, center r3.Vector, voxelSize, halfWidth float64) (*grid.Float, error) {
	if radius <= 0 {
		return nil, errors.Errorf("sphere radius must be positive, got %g", radius)
	}
	if voxelSize <= 0 {
		return nil, errors.Errorf("voxel size must be positive, got %g", voxelSize)
	}
	if halfWidth <= 0 {
		return nil, errors.Errorf("narrow-band half-width must be positive, got %g", halfWidth)
	}

	w := halfWidth * voxelSize
	background := float32(w)
	g := grid.New[float32](background)
	g.SetTransform(grid.NewLinearTransform(voxelSize))
	g.SetClass(grid.ClassLevelSet)
	g.SetName("sphere")

	dist := func(c coords.Coord) float64 {
		p := g.Transform().IndexCoordToWorld(c)
		return p.Sub(center).Norm() - radius
	}

	// Index-space bounds of the sphere plus its band.
	extent := radius + w
	lo := g.Transform().WorldToIndex(center.Sub(r3.Vector{X: extent, Y: extent, Z: extent}))
	hi := g.Transform().WorldToIndex(center.Add(r3.Vector{X: extent, Y: extent, Z: extent}))
	bbox := coords.NewCoordBBox(
		coords.NewCoord(floor32(lo.X)-1, floor32(lo.Y)-1, floor32(lo.Z)-1),
		coords.NewCoord(ceil32(hi.X)+1, ceil32(hi.Y)+1, ceil32(hi.Z)+1),
	)

	tr := g.Tree()
	acc := tree.NewValueAccessor(tr)

	// Walk leaf-aligned blocks so fully interior or exterior blocks are
	// classified without visiting their voxels. The cheap conservative bound
	// is the distance at the block center against half the block diagonal.
	halfDiag := math.Sqrt(3) * 4 * voxelSize
	minLeaf := tree.LeafOrigin(bbox.Min)
	maxLeaf := tree.LeafOrigin(bbox.Max)
	for x := minLeaf.X; x <= maxLeaf.X; x += tree.LeafDim {
		for y := minLeaf.Y; y <= maxLeaf.Y; y += tree.LeafDim {
			for z := minLeaf.Z; z <= maxLeaf.Z; z += tree.LeafDim {
				origin := coords.NewCoord(x, y, z)
				centerDist := dist(origin.Offset(4, 4, 4))
				switch {
				case centerDist-halfDiag >= w:
					// Entirely outside the band: stays background.
					continue
				case centerDist+halfDiag <= -w:
					// Entirely inside: an inactive interior tile.
					tr.Fill(coords.CubeBBox(origin, tree.LeafDim), -background, false)
					continue
				}
				coords.CubeBBox(origin, tree.LeafDim).ForEach(func(c coords.Coord) bool {
					d := dist(c)
					switch {
					case d <= -w:
						acc.SetValueOff(c, -background)
					case d >= w:
						// Exterior stays at the background value.
					default:
						acc.SetValue(c, float32(d))
					}
					return true
				})
			}
		}
	}
	tr.PruneInactive()
	return g, nil
}

func floor32(v float64) int32 { return int32(math.Floor(v)) }

func ceil32(v float64) int32 { return int32(math.Ceil(v)) }
