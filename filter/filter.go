// Package filter smooths or offsets the voxel values of a scalar grid.
// Filtering processes the voxels of active leaf nodes; constant tiles pass
// through untouched.
package filter

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/gridmath"
	"github.com/voxtree-dev/voxtree/tree"
	"github.com/voxtree-dev/voxtree/utils"
)

// Filter applies smoothing kernels to a scalar grid. A Filter is configured
// once and can run several operations; it is not safe for concurrent use.
type Filter struct {
	grid      *grid.Float
	grainSize int
	interrupt utils.Interrupter
	logger    golog.Logger

	mask       *grid.Float
	minMask    float64
	maxMask    float64
	invertMask bool
}

// New returns a filter for the given grid. The default grain size of one
// leaf enables parallel execution; see SetGrainSize.
func New(g *grid.Float, logger golog.Logger) *Filter {
	return &Filter{
		grid:      g,
		grainSize: 1,
		interrupt: utils.NullInterrupter{},
		logger:    logger,
		minMask:   0,
		maxMask:   1,
	}
}

// SetGrainSize sets the number of leaves each worker processes at a time.
// Zero forces serial execution.
func (f *Filter) SetGrainSize(n int) { f.grainSize = n }

// GrainSize returns the current grain size.
func (f *Filter) GrainSize() int { return f.grainSize }

// SetInterrupter installs an interrupter checked between passes. A nil
// interrupter restores the default, which never interrupts.
func (f *Filter) SetInterrupter(i utils.Interrupter) {
	if i == nil {
		i = utils.NullInterrupter{}
	}
	f.interrupt = i
}

// SetMask installs an alpha mask: each output voxel becomes
// (1-a)*original + a*filtered, where a derives from the mask value at the
// voxel. A nil mask disables masking.
func (f *Filter) SetMask(mask *grid.Float) { f.mask = mask }

// SetMaskRange maps mask values onto alpha: values at or below min give
// alpha 0, values at or above max give alpha 1. It returns an error unless
// min is strictly less than max.
func (f *Filter) SetMaskRange(min, max float64) error {
	if !(min < max) {
		return errors.Errorf("invalid mask range [%g, %g]: min must be less than max", min, max)
	}
	f.minMask, f.maxMask = min, max
	return nil
}

// SetInvertMask flips the alpha mask so masked-in regions become masked out.
func (f *Filter) SetInvertMask(invert bool) { f.invertMask = invert }

// Mean applies a separable box filter of the given half-width: one iteration
// runs a 1-D pass along each of the three axes. A width below one is clamped
// to one.
func (f *Filter) Mean(ctx context.Context, width, iterations int) error {
	width = maxInt(1, width)
	f.interrupt.Start("mean filter")
	defer f.interrupt.End()
	f.logger.Debugw("mean filter", "width", width, "iterations", iterations)

	m := tree.NewLeafManager(f.grid.Tree())
	m.EnsureAuxBuffers()
	for i := 0; i < iterations; i++ {
		for axis := 0; axis < 3; axis++ {
			if f.interrupt.WasInterrupted(-1) {
				return errors.New("mean filter interrupted")
			}
			if err := f.boxPass(ctx, m, width, axis); err != nil {
				return err
			}
		}
	}
	return nil
}

// Gaussian approximates a Gaussian blur of the given half-width: each
// iteration runs four box-filter iterations.
func (f *Filter) Gaussian(ctx context.Context, width, iterations int) error {
	for i := 0; i < iterations; i++ {
		if err := f.Mean(ctx, width, 4); err != nil {
			return err
		}
	}
	return nil
}

// Median applies a dense median filter of the given half-width. With the
// even sample counts that can arise on cube faces the lower-middle element
// is chosen.
func (f *Filter) Median(ctx context.Context, width, iterations int) error {
	width = maxInt(1, width)
	f.interrupt.Start("median filter")
	defer f.interrupt.End()
	f.logger.Debugw("median filter", "width", width, "iterations", iterations)

	m := tree.NewLeafManager(f.grid.Tree())
	m.EnsureAuxBuffers()
	for i := 0; i < iterations; i++ {
		if f.interrupt.WasInterrupted(-1) {
			return errors.New("median filter interrupted")
		}
		err := m.ForEach(ctx, f.grainSize, func(_ int, leaf *tree.LeafNode[float32]) error {
			acc := tree.NewValueAccessor(f.grid.Tree())
			stencil := gridmath.NewBoxStencil(acc, width)
			aux := leaf.Buffer(1)
			leaf.ForEachOn(func(c coords.Coord, offset uint, orig float32) {
				stencil.Gather(c)
				aux[offset] = f.blend(c, orig, stencil.Median())
			})
			return nil
		})
		if err != nil {
			return err
		}
		m.SwapLeafBuffers()
	}
	return nil
}

// Offset adds the given offset to every active voxel, in place.
func (f *Filter) Offset(ctx context.Context, offset float32) error {
	f.interrupt.Start("offset filter")
	defer f.interrupt.End()
	f.logger.Debugw("offset filter", "offset", offset)

	m := tree.NewLeafManager(f.grid.Tree())
	return m.ForEach(ctx, f.grainSize, func(_ int, leaf *tree.LeafNode[float32]) error {
		buf := leaf.Buffer(0)
		leaf.ForEachOn(func(c coords.Coord, off uint, orig float32) {
			buf[off] = f.blend(c, orig, orig+offset)
		})
		return nil
	})
}

// boxPass runs one 1-D box pass along the given axis, reading primary
// buffers and writing scratch buffers, then swaps.
func (f *Filter) boxPass(ctx context.Context, m *tree.LeafManager[float32], width, axis int) error {
	frac := float32(1) / float32(2*width+1)
	err := m.ForEach(ctx, f.grainSize, func(_ int, leaf *tree.LeafNode[float32]) error {
		acc := tree.NewValueAccessor(f.grid.Tree())
		aux := leaf.Buffer(1)
		leaf.ForEachOn(func(c coords.Coord, offset uint, orig float32) {
			var sum float32
			for d := -width; d <= width; d++ {
				n := c
				n.SetComp(axis, n.Comp(axis)+int32(d))
				sum += acc.GetValue(n)
			}
			aux[offset] = f.blend(c, orig, sum*frac)
		})
		return nil
	})
	if err != nil {
		return err
	}
	m.SwapLeafBuffers()
	return nil
}

// blend mixes the filtered value with the original according to the alpha
// mask, or returns the filtered value unchanged when no mask is set.
func (f *Filter) blend(c coords.Coord, orig, filtered float32) float32 {
	if f.mask == nil {
		return filtered
	}
	a := (float64(f.mask.Tree().GetValue(c)) - f.minMask) / (f.maxMask - f.minMask)
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	if f.invertMask {
		a = 1 - a
	}
	return orig + float32(a)*(filtered-orig)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
