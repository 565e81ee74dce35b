// Package diagnostics validates grid values without mutating them. Checks
// are predicates over single voxels; Diagnose runs a check across a grid and
// reports the findings as counts and a message rather than as errors, so a
// caller can inspect a broken grid instead of just failing on it.
package diagnostics

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/gridmath"
	"github.com/voxtree-dev/voxtree/tree"
)

// Check is a per-value predicate with a human-readable description of what a
// failing value looks like.
type Check struct {
	name string
	// voxelOnly restricts the check to leaf voxels, for predicates that
	// read a neighborhood stencil and so are meaningless on tiles.
	voxelOnly bool
	fail      func(acc *tree.ValueAccessor[float32], c coords.Coord, v float32) bool
}

// Name describes the failure condition the check looks for.
func (c Check) Name() string { return c.name }

// CheckNaN fails on not-a-number values.
func CheckNaN() Check {
	return Check{
		name: "NaN values",
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			return math.IsNaN(float64(v))
		},
	}
}

// CheckInf fails on infinite values.
func CheckInf() Check {
	return Check{
		name: "infinite values",
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			return math.IsInf(float64(v), 0)
		},
	}
}

// CheckFinite fails on values that are NaN or infinite.
func CheckFinite() Check {
	return Check{
		name: "non-finite values",
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			f := float64(v)
			return math.IsNaN(f) || math.IsInf(f, 0)
		},
	}
}

// CheckMin fails on values below the given minimum.
func CheckMin(min float32) Check {
	return Check{
		name: fmt.Sprintf("values below %g", min),
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			return v < min
		},
	}
}

// CheckMax fails on values above the given maximum.
func CheckMax(max float32) Check {
	return Check{
		name: fmt.Sprintf("values above %g", max),
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			return v > max
		},
	}
}

// CheckRange fails on values outside the closed interval [min, max].
func CheckRange(min, max float32) (Check, error) {
	if min > max {
		return Check{}, errors.Errorf("invalid range [%g, %g]", min, max)
	}
	return Check{
		name: fmt.Sprintf("values outside [%g, %g]", min, max),
		fail: func(_ *tree.ValueAccessor[float32], _ coords.Coord, v float32) bool {
			return v < min || v > max
		},
	}, nil
}

// CheckNormGrad fails where the central-difference gradient magnitude falls
// outside [minNorm, maxNorm]. The grid must have a uniform voxel size.
func CheckNormGrad(g *grid.Float, minNorm, maxNorm float64) (Check, error) {
	if minNorm > maxNorm {
		return Check{}, errors.Errorf("invalid gradient-norm range [%g, %g]", minNorm, maxNorm)
	}
	dx, err := g.Transform().UniformVoxelSize()
	if err != nil {
		return Check{}, err
	}
	return Check{
		name:      fmt.Sprintf("gradient norm outside [%g, %g]", minNorm, maxNorm),
		voxelOnly: true,
		fail: func(acc *tree.ValueAccessor[float32], c coords.Coord, _ float32) bool {
			n := gridmath.GradientNorm(acc, c, dx)
			return n < minNorm || n > maxNorm
		},
	}, nil
}

// CheckEikonal fails where the Godunov upwind gradient magnitude falls
// outside [minNorm, maxNorm]. Compared to CheckNormGrad the upwind stencil
// is one-sided at the band edge, so it tolerates the clamped values there.
func CheckEikonal(g *grid.Float, minNorm, maxNorm float64) (Check, error) {
	if minNorm > maxNorm {
		return Check{}, errors.Errorf("invalid gradient-norm range [%g, %g]", minNorm, maxNorm)
	}
	dx, err := g.Transform().UniformVoxelSize()
	if err != nil {
		return Check{}, err
	}
	return Check{
		name:      fmt.Sprintf("upwind gradient norm outside [%g, %g]", minNorm, maxNorm),
		voxelOnly: true,
		fail: func(acc *tree.ValueAccessor[float32], c coords.Coord, _ float32) bool {
			n := gridmath.UpwindGradientNorm(acc, c, dx)
			return n < minNorm || n > maxNorm
		},
	}, nil
}

// Diagnose runs checks over a grid and accumulates the findings.
type Diagnose struct {
	grid         *grid.Float
	valueCount   uint64
	failureCount uint64
	message      strings.Builder
	mask         *grid.Bool
}

// NewDiagnose returns an empty diagnosis for the given grid.
func NewDiagnose(g *grid.Float) *Diagnose {
	return &Diagnose{grid: g}
}

// Run applies the check to every active value of the grid, tiles included
// unless the check is stencil based. When updateMask is set, failing voxels
// are recorded in the failure mask. It returns the message for this check
// alone, empty when everything passed.
func (d *Diagnose) Run(check Check, updateMask bool) string {
	t := d.grid.Tree()
	acc := tree.NewValueAccessor(t)
	var mt *tree.Tree[bool]
	if updateMask {
		if d.mask == nil {
			d.mask = grid.New(false)
			d.mask.SetTransform(d.grid.Transform())
		}
		mt = d.mask.Tree()
	}

	var visited, failed uint64
	t.ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
		leaf.ForEachOn(func(c coords.Coord, _ uint, v float32) {
			visited++
			if !check.fail(acc, c, v) {
				return
			}
			failed++
			if mt != nil {
				mt.SetValue(c, true)
			}
		})
	})
	if !check.voxelOnly {
		t.ForEachActiveTile(func(bbox coords.CoordBBox, v float32) {
			n := bbox.Volume()
			visited += n
			if !check.fail(acc, bbox.Min, v) {
				return
			}
			failed += n
			if mt != nil {
				mt.Fill(bbox, true, true)
			}
		})
	}

	d.valueCount += visited
	d.failureCount += failed
	if failed == 0 {
		return ""
	}
	msg := fmt.Sprintf("%d of %d values failed: %s\n", failed, visited, check.Name())
	d.message.WriteString(msg)
	return msg
}

// ValueCount returns the number of values visited across all runs.
func (d *Diagnose) ValueCount() uint64 { return d.valueCount }

// FailureCount returns the number of failing values across all runs.
func (d *Diagnose) FailureCount() uint64 { return d.failureCount }

// Passed reports whether no check has failed so far.
func (d *Diagnose) Passed() bool { return d.failureCount == 0 }

// Message returns the accumulated findings, empty when all checks passed.
func (d *Diagnose) Message() string { return d.message.String() }

// FailureMask returns the mask of failing voxels, nil when no Run was asked
// to record one or nothing failed.
func (d *Diagnose) FailureMask() *grid.Bool {
	if d.mask == nil || !d.mask.Tree().HasActiveValues() {
		return nil
	}
	return d.mask
}
