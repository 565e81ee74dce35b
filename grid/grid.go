// Package grid pairs a sparse voxel tree with a spatial transform and
// metadata describing how its values should be interpreted.
package grid

import (
	"github.com/golang/geo/r3"

	"github.com/voxtree-dev/voxtree/tree"
)

// Class describes the interpretation of a grid's values.
type Class int

const (
	// ClassUnknown is the default for freshly created grids.
	ClassUnknown Class = iota
	// ClassLevelSet marks a narrow-band signed distance field.
	ClassLevelSet
	// ClassFogVolume marks a density field in [0, 1].
	ClassFogVolume
	// ClassStaggered marks a vector field with staggered (face-centered)
	// components.
	ClassStaggered
)

func (c Class) String() string {
	switch c {
	case ClassLevelSet:
		return "level set"
	case ClassFogVolume:
		return "fog volume"
	case ClassStaggered:
		return "staggered"
	default:
		return "unknown"
	}
}

// VectorType describes how vector values transform with the grid.
type VectorType int

const (
	// VecInvariant values are independent of the transform (colors, offsets).
	VecInvariant VectorType = iota
	// VecCovariant values transform like gradients (normals).
	VecCovariant
	// VecContravariant values transform like positions and velocities.
	VecContravariant
)

// Grid couples a tree with a transform, a class, and a name.
type Grid[T comparable] struct {
	tree      *tree.Tree[T]
	transform *Transform
	class     Class
	vecType   VectorType
	name      string
}

// Float is a grid of scalar float32 values.
type Float = Grid[float32]

// Bool is a grid of boolean mask values.
type Bool = Grid[bool]

// Vec is a grid of 3-vector values.
type Vec = Grid[r3.Vector]

// Int32 is a grid of int32 values.
type Int32 = Grid[int32]

// New returns a grid with an empty tree, the given background value, and a
// unit linear transform.
func New[T comparable](background T) *Grid[T] {
	return &Grid[T]{
		tree:      tree.NewTree(background),
		transform: NewLinearTransform(1),
	}
}

// FromTree wraps an existing tree in a grid with a unit linear transform.
func FromTree[T comparable](t *tree.Tree[T]) *Grid[T] {
	return &Grid[T]{tree: t, transform: NewLinearTransform(1)}
}

// Tree returns the underlying tree.
func (g *Grid[T]) Tree() *tree.Tree[T] { return g.tree }

// SetTree replaces the underlying tree.
func (g *Grid[T]) SetTree(t *tree.Tree[T]) { g.tree = t }

// Transform returns the grid's index-to-world transform.
func (g *Grid[T]) Transform() *Transform { return g.transform }

// SetTransform replaces the grid's transform. A nil transform resets to the
// unit linear transform.
func (g *Grid[T]) SetTransform(t *Transform) {
	if t == nil {
		t = NewLinearTransform(1)
	}
	g.transform = t
}

// Class returns the grid's class.
func (g *Grid[T]) Class() Class { return g.class }

// SetClass sets the grid's class.
func (g *Grid[T]) SetClass(c Class) { g.class = c }

// VectorType returns how the grid's vector values transform.
func (g *Grid[T]) VectorType() VectorType { return g.vecType }

// SetVectorType sets the vector transformation behavior.
func (g *Grid[T]) SetVectorType(v VectorType) { g.vecType = v }

// Name returns the grid's name.
func (g *Grid[T]) Name() string { return g.name }

// SetName sets the grid's name.
func (g *Grid[T]) SetName(name string) { g.name = name }

// Background returns the tree's background value.
func (g *Grid[T]) Background() T { return g.tree.Background() }

// ActiveVoxelCount returns the tree's active voxel count.
func (g *Grid[T]) ActiveVoxelCount() uint64 { return g.tree.ActiveVoxelCount() }

// DeepCopy returns an independent copy of the grid sharing no tree state.
// The transform is immutable and therefore shared.
func (g *Grid[T]) DeepCopy() *Grid[T] {
	return &Grid[T]{
		tree:      g.tree.DeepCopy(),
		transform: g.transform,
		class:     g.class,
		vecType:   g.vecType,
		name:      g.name,
	}
}
