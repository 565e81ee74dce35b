package grid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/voxtree-dev/voxtree/coords"
)

// Transform maps continuous index space to world space through an affine
// matrix. Index coordinate (i,j,k) corresponds to the center of voxel (i,j,k).
type Transform struct {
	mat mgl64.Mat4
	inv mgl64.Mat4
}

// NewLinearTransform returns a uniform scaling transform with the given voxel
// edge length in world units.
func NewLinearTransform(voxelSize float64) *Transform {
	if voxelSize <= 0 {
		voxelSize = 1
	}
	t, err := NewTransformFromMatrix(mgl64.Scale3D(voxelSize, voxelSize, voxelSize))
	if err != nil {
		// A positive uniform scale is always invertible.
		panic(err)
	}
	return t
}

// NewTransformFromMatrix returns a transform for an arbitrary affine matrix.
// It returns an error when the matrix is singular.
func NewTransformFromMatrix(m mgl64.Mat4) (*Transform, error) {
	inv := m.Inv()
	if inv == (mgl64.Mat4{}) {
		return nil, errors.Errorf("transform matrix %v is not invertible", m)
	}
	return &Transform{mat: m, inv: inv}, nil
}

func apply(m mgl64.Mat4, p r3.Vector) r3.Vector {
	v := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// IndexToWorld maps a continuous index-space point to world space.
func (t *Transform) IndexToWorld(p r3.Vector) r3.Vector { return apply(t.mat, p) }

// WorldToIndex maps a world-space point to continuous index space.
func (t *Transform) WorldToIndex(p r3.Vector) r3.Vector { return apply(t.inv, p) }

// IndexCoordToWorld maps a voxel coordinate to the world-space position of
// its center.
func (t *Transform) IndexCoordToWorld(c coords.Coord) r3.Vector {
	return t.IndexToWorld(c.Vector())
}

// WorldToIndexCoord maps a world-space point to the coordinate of the voxel
// whose center is nearest to it.
func (t *Transform) WorldToIndexCoord(p r3.Vector) coords.Coord {
	idx := t.WorldToIndex(p)
	return coords.NewCoord(
		int32(math.Round(idx.X)),
		int32(math.Round(idx.Y)),
		int32(math.Round(idx.Z)),
	)
}

// VoxelSize returns the world-space edge lengths of one voxel along the
// three index axes.
func (t *Transform) VoxelSize() r3.Vector {
	o := t.IndexToWorld(r3.Vector{})
	return r3.Vector{
		X: t.IndexToWorld(r3.Vector{X: 1}).Sub(o).Norm(),
		Y: t.IndexToWorld(r3.Vector{Y: 1}).Sub(o).Norm(),
		Z: t.IndexToWorld(r3.Vector{Z: 1}).Sub(o).Norm(),
	}
}

// HasUniformScale reports whether the three voxel edge lengths are equal to
// within floating-point tolerance.
func (t *Transform) HasUniformScale() bool {
	s := t.VoxelSize()
	const tol = 1e-9
	return math.Abs(s.X-s.Y) < tol && math.Abs(s.X-s.Z) < tol
}

// UniformVoxelSize returns the shared voxel edge length, or an error when the
// transform does not scale uniformly.
func (t *Transform) UniformVoxelSize() (float64, error) {
	if !t.HasUniformScale() {
		return 0, errors.Errorf("transform with voxel size %v is not uniform", t.VoxelSize())
	}
	return t.VoxelSize().X, nil
}

// Matrix returns the index-to-world matrix.
func (t *Transform) Matrix() mgl64.Mat4 { return t.mat }
