package levelset

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/gridmath"
	"github.com/voxtree-dev/voxtree/morphology"
	"github.com/voxtree-dev/voxtree/tree"
	"github.com/voxtree-dev/voxtree/utils"
)

// SpatialScheme selects the finite-difference scheme used for the upwind
// gradient during renormalization.
type SpatialScheme int

const (
	// FirstBias is first-order one-sided differencing.
	FirstBias SpatialScheme = iota
	// SecondBias is second-order one-sided differencing.
	SecondBias
)

// TemporalScheme selects the time integration used during renormalization.
type TemporalScheme int

const (
	// TVDRK1 is forward Euler.
	TVDRK1 TemporalScheme = iota
	// TVDRK2 is second-order TVD Runge-Kutta.
	TVDRK2
	// TVDRK3 is third-order TVD Runge-Kutta.
	TVDRK3
)

// cflFactor scales the renormalization time step relative to the voxel size.
const cflFactor = 0.3

// Tracker maintains a narrow-band level set: it renormalizes the field back
// to a signed distance and can widen or shrink the band.
type Tracker struct {
	grid      *grid.Float
	dx        float64
	spatial   SpatialScheme
	temporal  TemporalScheme
	normCount int
	grainSize int
	interrupt utils.Interrupter
	logger    golog.Logger
}

// NewTracker returns a tracker for the given level-set grid. The grid must be
// classed as a level set with a uniform transform and a non-empty band.
func NewTracker(g *grid.Float, logger golog.Logger) (*Tracker, error) {
	dx, err := requireLevelSet(g)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		grid:      g,
		dx:        dx,
		temporal:  TVDRK1,
		grainSize: 1,
		interrupt: utils.NullInterrupter{},
		logger:    logger,
	}, nil
}

// SetSpatialScheme selects the spatial differencing scheme.
func (t *Tracker) SetSpatialScheme(s SpatialScheme) { t.spatial = s }

// SpatialScheme returns the current spatial scheme.
func (t *Tracker) SpatialScheme() SpatialScheme { return t.spatial }

// SetTemporalScheme selects the time integration scheme.
func (t *Tracker) SetTemporalScheme(s TemporalScheme) { t.temporal = s }

// TemporalScheme returns the current temporal scheme.
func (t *Tracker) TemporalScheme() TemporalScheme { return t.temporal }

// SetNormCount fixes the number of renormalization sweeps per Track call.
// Zero restores the default, which is derived from the band width and the
// CFL-bounded time step.
func (t *Tracker) SetNormCount(n int) {
	if n < 0 {
		n = 0
	}
	t.normCount = n
}

// NormCount returns the configured sweep count, zero meaning automatic.
func (t *Tracker) NormCount() int { return t.normCount }

// SetGrainSize sets the per-worker leaf chunk; zero forces serial execution.
func (t *Tracker) SetGrainSize(n int) { t.grainSize = n }

// SetInterrupter installs an interrupter checked between sweeps.
func (t *Tracker) SetInterrupter(i utils.Interrupter) {
	if i == nil {
		i = utils.NullInterrupter{}
	}
	t.interrupt = i
}

// HalfWidth returns the band half-width in voxels.
func (t *Tracker) HalfWidth() float64 {
	return float64(t.grid.Background()) / t.dx
}

// Track renormalizes the band back to a signed distance field and rebuilds
// the band topology: voxels whose distance leaves the band are deactivated
// onto the appropriate side and the result is pruned.
func (t *Tracker) Track(ctx context.Context) error {
	t.interrupt.Start("level set track")
	defer t.interrupt.End()

	// Grow the band one voxel so the surface can move outward, then
	// renormalize for long enough for information to cross the band.
	morphology.DilateVoxels(t.grid.Tree(), 1, morphology.NNFace)
	gamma := float64(t.grid.Background())
	sweeps := t.normCount
	if sweeps == 0 {
		sweeps = int(math.Ceil(gamma/(cflFactor*t.dx))) + 1
	}
	if err := t.normalize(ctx, sweeps); err != nil {
		return err
	}
	t.rebuildBand()
	return nil
}

// Resize changes the band half-width, given in voxels. It reports whether
// anything changed: resizing to the current width is a no-op.
func (t *Tracker) Resize(ctx context.Context, halfWidth float64) (bool, error) {
	if halfWidth <= 0 {
		return false, errors.Errorf("band half-width must be positive, got %g", halfWidth)
	}
	current := t.HalfWidth()
	if math.Abs(halfWidth-current) < 1e-9 {
		return false, nil
	}
	t.logger.Debugw("resizing level set band", "from", current, "to", halfWidth)

	if halfWidth > current {
		// Widen: dilate enough new voxels into the band, then renormalize so
		// they acquire distances.
		extra := int(math.Ceil(halfWidth - current))
		morphology.DilateVoxels(t.grid.Tree(), extra, morphology.NNFace)
		t.grid.Tree().SetBackground(float32(halfWidth * t.dx))
		sweeps := int(math.Ceil(halfWidth/cflFactor)) + 1
		if err := t.normalize(ctx, sweeps); err != nil {
			return false, err
		}
	} else {
		t.grid.Tree().SetBackground(float32(halfWidth * t.dx))
	}
	t.rebuildBand()
	return true, nil
}

// normalize integrates d(phi)/dt = sign(phi)(1 - |grad phi|) for the given
// number of sweeps.
func (t *Tracker) normalize(ctx context.Context, sweeps int) error {
	dt := cflFactor * t.dx
	for i := 0; i < sweeps; i++ {
		if t.interrupt.WasInterrupted(i * 100 / sweeps) {
			return errors.New("level set normalization interrupted")
		}
		var err error
		switch t.temporal {
		case TVDRK2:
			err = t.rk2Sweep(ctx, dt)
		case TVDRK3:
			err = t.rk3Sweep(ctx, dt)
		default:
			err = t.eulerSweep(ctx, dt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// speed returns sign(phi)*(1 - |grad phi|) at c with the configured scheme.
func (t *Tracker) speed(acc *tree.ValueAccessor[float32], c coords.Coord) float64 {
	phi := float64(acc.GetValue(c))
	var norm float64
	if t.spatial == SecondBias {
		norm = math.Sqrt(t.secondBiasNormSq(acc, c))
	} else {
		norm = gridmath.UpwindGradientNorm(acc, c, t.dx)
	}
	// Smoothed sign keeps the zero crossing in place.
	s := phi / math.Sqrt(phi*phi+t.dx*t.dx)
	return s * (1 - norm)
}

// secondBiasNormSq is the Godunov norm built from second-order one-sided
// differences, falling back toward first order at the band edge where the
// wider stencil reads the background.
func (t *Tracker) secondBiasNormSq(acc *tree.ValueAccessor[float32], c coords.Coord) float64 {
	phi := float64(acc.GetValue(c))
	inv := 1 / (2 * t.dx)
	normSq := 0.0
	for axis := 0; axis < 3; axis++ {
		var d [5]float64
		for i := -2; i <= 2; i++ {
			n := c
			n.SetComp(axis, n.Comp(axis)+int32(i))
			d[i+2] = float64(acc.GetValue(n))
		}
		minus := (3*phi - 4*d[1] + d[0]) * inv
		plus := (-3*phi + 4*d[3] - d[2]) * inv
		var v float64
		if phi > 0 {
			v = math.Max(math.Max(minus, 0), -math.Min(plus, 0))
		} else {
			v = math.Max(-math.Min(minus, 0), math.Max(plus, 0))
		}
		normSq += v * v
	}
	return normSq
}

// eulerSweep advances one forward-Euler step, reading primary buffers and
// writing scratch buffers.
func (t *Tracker) eulerSweep(ctx context.Context, dt float64) error {
	m := tree.NewLeafManager(t.grid.Tree())
	m.EnsureAuxBuffers()
	err := m.ForEach(ctx, t.grainSize, func(_ int, leaf *tree.LeafNode[float32]) error {
		acc := tree.NewValueAccessor(t.grid.Tree())
		aux := leaf.Buffer(1)
		leaf.ForEachOn(func(c coords.Coord, offset uint, v float32) {
			aux[offset] = v + float32(dt*t.speed(acc, c))
		})
		return nil
	})
	if err != nil {
		return err
	}
	m.SwapLeafBuffers()
	return nil
}

// rk2Sweep advances one second-order TVD Runge-Kutta step.
func (t *Tracker) rk2Sweep(ctx context.Context, dt float64) error {
	orig := t.grid.Tree().DeepCopy()
	if err := t.eulerSweep(ctx, dt); err != nil {
		return err
	}
	if err := t.eulerSweep(ctx, dt); err != nil {
		return err
	}
	return t.average(ctx, orig, 0.5)
}

// rk3Sweep advances one third-order TVD Runge-Kutta step.
func (t *Tracker) rk3Sweep(ctx context.Context, dt float64) error {
	orig := t.grid.Tree().DeepCopy()
	if err := t.eulerSweep(ctx, dt); err != nil {
		return err
	}
	if err := t.eulerSweep(ctx, dt); err != nil {
		return err
	}
	// phi2 = 3/4 phi0 + 1/4 (phi1 + dt L(phi1))
	if err := t.average(ctx, orig, 0.25); err != nil {
		return err
	}
	if err := t.eulerSweep(ctx, dt); err != nil {
		return err
	}
	// phi(n+1) = 1/3 phi0 + 2/3 (phi2 + dt L(phi2))
	return t.average(ctx, orig, 2.0/3.0)
}

// average blends the current field into orig: phi = (1-w)*orig + w*phi.
func (t *Tracker) average(ctx context.Context, orig *tree.Tree[float32], w float64) error {
	origAcc := tree.NewValueAccessor(orig)
	m := tree.NewLeafManager(t.grid.Tree())
	return m.ForEach(ctx, 0, func(_ int, leaf *tree.LeafNode[float32]) error {
		buf := leaf.Buffer(0)
		leaf.ForEachOn(func(c coords.Coord, offset uint, v float32) {
			o := float64(origAcc.GetValue(c))
			buf[offset] = float32((1-w)*o + w*float64(v))
		})
		return nil
	})
}

// rebuildBand deactivates voxels whose distance left the band, clamping them
// to the signed background, and prunes the result.
func (t *Tracker) rebuildBand() {
	background := t.grid.Background()
	t.grid.Tree().ForEachLeaf(func(leaf *tree.LeafNode[float32]) {
		leaf.ForEachOn(func(_ coords.Coord, offset uint, v float32) {
			switch {
			case v >= background:
				leaf.SetValueOff(offset, background)
			case v <= -background:
				leaf.SetValueOff(offset, -background)
			}
		})
	})
	t.grid.Tree().PruneInactive()
}
