package diagnostics

import (
	"context"
	"fmt"

	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/utils"
)

// CheckLevelSet runs the full battery of narrow-band level-set validity
// checks and returns the findings as a message, empty when the grid is a
// well-formed level set. Structural problems (class, transform, background)
// are reported the same way as value failures.
func CheckLevelSet(g *grid.Float) string {
	var structural string
	if g.Class() != grid.ClassLevelSet {
		structural += fmt.Sprintf("grid class is %v, expected %v\n", g.Class(), grid.ClassLevelSet)
	}
	dx, err := g.Transform().UniformVoxelSize()
	if err != nil {
		structural += "transform does not have a uniform voxel size\n"
		return structural
	}
	bg := float64(g.Background())
	if bg <= 0 {
		structural += fmt.Sprintf("background %g is not positive\n", bg)
		return structural
	}
	if bg < 1.5*dx {
		structural += fmt.Sprintf("band half-width %g voxels is below the minimum of 1.5\n", bg/dx)
	}
	if g.Tree().ActiveTileCount() > 0 {
		structural += "level sets must not contain active tiles\n"
	}

	checks := []Check{CheckFinite()}
	// Active values must stay inside the band; voxels beyond the background
	// belong to the inactive exterior or interior.
	if rangeCheck, err := CheckRange(float32(-bg), float32(bg)); err == nil {
		checks = append(checks, rangeCheck)
	}
	// A loose eikonal bound: the band edge is one-sided so the tolerance is
	// wider than the interior ±10%.
	if eik, err := CheckEikonal(g, 0.5, 1.5); err == nil {
		checks = append(checks, eik)
	}

	// Each sweep only reads the tree, so the battery fans out; findings are
	// reported in check order regardless of which sweep finishes first.
	diags := make([]*Diagnose, len(checks))
	fs := make([]utils.SimpleFunc, len(checks))
	for i, check := range checks {
		i, check := i, check
		diags[i] = NewDiagnose(g)
		fs[i] = func(context.Context) error {
			diags[i].Run(check, false)
			return nil
		}
	}
	// The sweeps never return errors.
	//nolint:errcheck
	utils.RunInParallel(context.Background(), fs)
	for _, d := range diags {
		structural += d.Message()
	}
	return structural
}

// CheckFogVolume validates a fog-volume grid: finite densities in [0, 1]
// with a zero background. The returned message is empty when it passes.
func CheckFogVolume(g *grid.Float) string {
	var structural string
	if g.Class() != grid.ClassFogVolume {
		structural += fmt.Sprintf("grid class is %v, expected %v\n", g.Class(), grid.ClassFogVolume)
	}
	if bg := g.Background(); bg != 0 {
		structural += fmt.Sprintf("background %g is not zero\n", bg)
	}

	d := NewDiagnose(g)
	d.Run(CheckFinite(), false)
	if rangeCheck, err := CheckRange(0, 1); err == nil {
		d.Run(rangeCheck, false)
	}
	return structural + d.Message()
}
