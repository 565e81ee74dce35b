package points

import (
	"context"
	"sync"

	"github.com/voxtree-dev/voxtree/grid"
	"github.com/voxtree-dev/voxtree/tree"
	"github.com/voxtree-dev/voxtree/utils"
)

// ToMask rasterizes the list into a boolean grid: one active voxel per
// occupied cell under the transform. A nil transform means unit voxels.
// Grain size 0 rasterizes serially; otherwise points are split into chunks
// of roughly that size, rasterized into per-worker trees and merged by
// topology union.
func ToMask(ctx context.Context, list *List, transform *grid.Transform, grainSize int) (*grid.Bool, error) {
	if transform == nil {
		transform = grid.NewLinearTransform(1)
	}
	out := grid.New(false)
	out.SetTransform(transform)

	if grainSize <= 0 || list.Len() <= grainSize {
		rasterize(list, transform, out.Tree(), 0, list.Len())
		return out, nil
	}

	var (
		mu       sync.Mutex
		partials []*tree.Tree[bool]
	)
	err := utils.ParallelForRange(ctx, list.Len(), grainSize, func(_ context.Context, from, to int) error {
		t := tree.NewTree(false)
		rasterize(list, transform, t, from, to)
		mu.Lock()
		partials = append(partials, t)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, t := range partials {
		tree.TopologyUnion(out.Tree(), t)
	}
	return out, nil
}

func rasterize(list *List, transform *grid.Transform, t *tree.Tree[bool], from, to int) {
	acc := tree.NewValueAccessor(t)
	for i := from; i < to; i++ {
		acc.SetValue(transform.WorldToIndexCoord(list.Position(i)), true)
	}
}
