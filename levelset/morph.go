package levelset

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/gridmath"
	"github.com/voxtree-dev/voxtree/tree"
)

// Offset moves the level-set surface outward by the given world-space
// distance (negative distances move it inward). The offset is applied in
// steps no larger than half the band width, renormalizing after each step so
// the surface never leaves the band.
func (t *Tracker) Offset(ctx context.Context, distance float64) error {
	if distance == 0 {
		return nil
	}
	gamma := float64(t.grid.Background())
	maxStep := 0.5 * gamma
	remaining := distance
	for remaining != 0 {
		step := remaining
		if math.Abs(step) > maxStep {
			step = math.Copysign(maxStep, step)
		}
		remaining -= step

		delta := float32(step)
		t.grid.Tree().ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
			buf := leaf.Buffer(0)
			leaf.ForEachOn(func(_ coords.Coord, offset uint, v float32) {
				buf[offset] = v - delta
			})
		})
		if err := t.Track(ctx); err != nil {
			return err
		}
	}
	return nil
}

// morphTolerance stops the morph once the largest remaining speed, measured
// as a fraction of the voxel size, drops below this value.
const morphTolerance = 0.01

// Morph evolves the tracker's level set toward the target signed distance
// field. The normal speed at every band voxel is the local value difference
// between the two fields, so the surface comes to rest where they agree.
// Each step is bounded by the CFL condition and followed by a renormalizing
// Track, and maxSteps caps the total number of steps.
func (t *Tracker) Morph(ctx context.Context, target *grid.Float, maxSteps int) error {
	wt, err := requireLevelSet(target)
	if err != nil {
		return errors.Wrap(err, "morph target")
	}
	if math.Abs(wt-t.dx) > 1e-9 {
		return errors.Errorf("voxel size mismatch: %g vs %g", t.dx, wt)
	}
	if maxSteps <= 0 {
		maxSteps = 100
	}

	for step := 0; step < maxSteps; step++ {
		maxSpeed := 0.0
		tacc := tree.NewValueAccessor(target.Tree())
		t.grid.Tree().ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
			leaf.ForEachOn(func(c coords.Coord, _ uint, v float32) {
				s := math.Abs(float64(v - signedValue(tacc, c)))
				if s > maxSpeed {
					maxSpeed = s
				}
			})
		})
		if maxSpeed < morphTolerance*t.dx {
			return nil
		}
		dt := cflFactor * t.dx / maxSpeed

		m := tree.NewLeafManager(t.grid.Tree())
		m.EnsureAuxBuffers()
		err := m.ForEach(ctx, t.grainSize, func(_ int, leaf *tree.LeafNode[float32]) error {
			acc := tree.NewValueAccessor(t.grid.Tree())
			tgt := tree.NewValueAccessor(target.Tree())
			aux := leaf.Buffer(1)
			leaf.ForEachOn(func(c coords.Coord, offset uint, v float32) {
				s := float64(v - signedValue(tgt, c))
				norm := math.Sqrt(gridmath.SignedGodunovNormSqGrad(acc, c, t.dx, s > 0))
				aux[offset] = v - float32(dt*s*norm)
			})
			return nil
		})
		if err != nil {
			return err
		}
		m.SwapLeafBuffers()

		if err := t.Track(ctx); err != nil {
			return err
		}
	}
	return nil
}
