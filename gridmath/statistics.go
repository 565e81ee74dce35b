package gridmath

import (
	"context"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/tree"
)

// statGrainSize is the number of leaves one worker processes at a time when a
// reduction runs threaded.
const statGrainSize = 32

// ActiveExtrema reduces the active values of a tree, weighting each active
// tile by its voxel count.
func ActiveExtrema(t *tree.Tree[float32], threaded bool) Extrema {
	result := NewExtrema()
	t.ForEachActiveTile(func(bbox coords.CoordBBox, v float32) {
		result.AddN(float64(v), bbox.Volume())
	})
	partials := reduceLeaves(t, threaded, func(leaf *tree.LeafNode[float32]) Extrema {
		e := NewExtrema()
		leaf.ForEachOn(func(_ coords.Coord, _ uint, v float32) {
			e.Add(float64(v))
		})
		return e
	})
	for _, p := range partials {
		result.Join(p)
	}
	return result
}

// ActiveStats reduces the active values of a tree into mean, variance, and
// extrema, weighting each active tile by its voxel count.
func ActiveStats(t *tree.Tree[float32], threaded bool) Stats {
	result := NewStats()
	t.ForEachActiveTile(func(bbox coords.CoordBBox, v float32) {
		result.AddN(float64(v), bbox.Volume())
	})
	partials := reduceLeaves(t, threaded, func(leaf *tree.LeafNode[float32]) Stats {
		s := NewStats()
		leaf.ForEachOn(func(_ coords.Coord, _ uint, v float32) {
			s.Add(float64(v))
		})
		return s
	})
	for _, p := range partials {
		result.Join(p)
	}
	return result
}

// ActiveHistogram bins the active values of a tree into a histogram over
// [min, max], weighting each active tile by its voxel count.
func ActiveHistogram(t *tree.Tree[float32], min, max float64, numBins int, threaded bool) (*Histogram, error) {
	result, err := NewHistogram(min, max, numBins)
	if err != nil {
		return nil, err
	}
	t.ForEachActiveTile(func(bbox coords.CoordBBox, v float32) {
		result.AddN(float64(v), bbox.Volume())
	})
	partials := reduceLeaves(t, threaded, func(leaf *tree.LeafNode[float32]) *Histogram {
		h, _ := NewHistogram(min, max, numBins)
		leaf.ForEachOn(func(_ coords.Coord, _ uint, v float32) {
			h.Add(float64(v))
		})
		return h
	})
	for _, p := range partials {
		if err := result.Join(p); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// OperatorStats reduces op evaluated at every active leaf voxel. Active tiles
// are skipped: the operators this is meant for (gradients, curvatures) are
// constant-zero inside constant regions and meaningless at tile granularity.
func OperatorStats(t *tree.Tree[float32], threaded bool, op func(acc *tree.ValueAccessor[float32], c coords.Coord) float64) Stats {
	result := NewStats()
	partials := reduceLeaves(t, threaded, func(leaf *tree.LeafNode[float32]) Stats {
		s := NewStats()
		acc := tree.NewValueAccessor(t)
		leaf.ForEachOn(func(c coords.Coord, _ uint, _ float32) {
			s.Add(op(acc, c))
		})
		return s
	})
	for _, p := range partials {
		result.Join(p)
	}
	return result
}

// reduceLeaves maps fn over every leaf, one partial result per leaf, either
// serially or in parallel.
func reduceLeaves[T comparable, R any](t *tree.Tree[T], threaded bool, fn func(*tree.LeafNode[T]) R) []R {
	m := tree.NewLeafManager(t)
	partials := make([]R, m.Len())
	grain := 0
	if threaded {
		grain = statGrainSize
	}
	// Leaf workers never return errors and the context is never cancelled.
	//nolint:errcheck
	m.ForEach(context.Background(), grain, func(i int, leaf *tree.LeafNode[T]) error {
		partials[i] = fn(leaf)
		return nil
	})
	return partials
}
