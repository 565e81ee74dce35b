package gridmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/voxtree-dev/voxtree/coords"
	"github.com/voxtree-dev/voxtree/tree"
)

// value reads f at c through the accessor.
func value(acc *tree.ValueAccessor[float32], c coords.Coord) float64 {
	return float64(acc.GetValue(c))
}

// Gradient returns the second-order central-difference gradient at c, for a
// uniform voxel size dx in world units.
func Gradient(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) r3.Vector {
	inv := 1 / (2 * dx)
	return r3.Vector{
		X: (value(acc, c.Offset(1, 0, 0)) - value(acc, c.Offset(-1, 0, 0))) * inv,
		Y: (value(acc, c.Offset(0, 1, 0)) - value(acc, c.Offset(0, -1, 0))) * inv,
		Z: (value(acc, c.Offset(0, 0, 1)) - value(acc, c.Offset(0, 0, -1))) * inv,
	}
}

// GradientNorm returns |grad f| at c using central differences.
func GradientNorm(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	return Gradient(acc, c, dx).Norm()
}

// GodunovNormSqGrad returns the squared norm of the upwind (Godunov) gradient
// at c, taking the upwind direction from the sign of f(c). This is the
// monotone scheme used for renormalizing signed distance fields.
func GodunovNormSqGrad(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	return SignedGodunovNormSqGrad(acc, c, dx, value(acc, c) > 0)
}

// SignedGodunovNormSqGrad is GodunovNormSqGrad with the upwind direction
// chosen by an explicit speed sign rather than by the sign of the field
// itself, as needed when advecting by an external speed function.
func SignedGodunovNormSqGrad(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64, positive bool) float64 {
	phi := value(acc, c)
	inv := 1 / dx

	normSq := 0.0
	for axis := 0; axis < 3; axis++ {
		var lo, hi coords.Coord
		switch axis {
		case 0:
			lo, hi = c.Offset(-1, 0, 0), c.Offset(1, 0, 0)
		case 1:
			lo, hi = c.Offset(0, -1, 0), c.Offset(0, 1, 0)
		default:
			lo, hi = c.Offset(0, 0, -1), c.Offset(0, 0, 1)
		}
		minus := (phi - value(acc, lo)) * inv
		plus := (value(acc, hi) - phi) * inv
		var d float64
		if positive {
			d = math.Max(math.Max(minus, 0), -math.Min(plus, 0))
		} else {
			d = math.Max(-math.Min(minus, 0), math.Max(plus, 0))
		}
		normSq += d * d
	}
	return normSq
}

// UpwindGradientNorm returns the Godunov upwind gradient magnitude at c.
func UpwindGradientNorm(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	return math.Sqrt(GodunovNormSqGrad(acc, c, dx))
}

// Laplacian returns the 7-point Laplacian at c.
func Laplacian(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	center := value(acc, c)
	sum := value(acc, c.Offset(1, 0, 0)) + value(acc, c.Offset(-1, 0, 0)) +
		value(acc, c.Offset(0, 1, 0)) + value(acc, c.Offset(0, -1, 0)) +
		value(acc, c.Offset(0, 0, 1)) + value(acc, c.Offset(0, 0, -1))
	return (sum - 6*center) / (dx * dx)
}

// hessian holds the second-order partial derivatives at a point.
type hessian struct {
	xx, yy, zz, xy, xz, yz float64
}

func secondDerivatives(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) hessian {
	center := value(acc, c)
	invSq := 1 / (dx * dx)
	invCross := 1 / (4 * dx * dx)
	return hessian{
		xx: (value(acc, c.Offset(1, 0, 0)) - 2*center + value(acc, c.Offset(-1, 0, 0))) * invSq,
		yy: (value(acc, c.Offset(0, 1, 0)) - 2*center + value(acc, c.Offset(0, -1, 0))) * invSq,
		zz: (value(acc, c.Offset(0, 0, 1)) - 2*center + value(acc, c.Offset(0, 0, -1))) * invSq,
		xy: (value(acc, c.Offset(1, 1, 0)) + value(acc, c.Offset(-1, -1, 0)) -
			value(acc, c.Offset(1, -1, 0)) - value(acc, c.Offset(-1, 1, 0))) * invCross,
		xz: (value(acc, c.Offset(1, 0, 1)) + value(acc, c.Offset(-1, 0, -1)) -
			value(acc, c.Offset(1, 0, -1)) - value(acc, c.Offset(-1, 0, 1))) * invCross,
		yz: (value(acc, c.Offset(0, 1, 1)) + value(acc, c.Offset(0, -1, -1)) -
			value(acc, c.Offset(0, 1, -1)) - value(acc, c.Offset(0, -1, 1))) * invCross,
	}
}

// MeanCurvature returns the mean curvature of the isosurface of f through c.
// For a signed distance field of a sphere of radius r it evaluates to 1/r.
func MeanCurvature(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	g := Gradient(acc, c, dx)
	normSq := g.X*g.X + g.Y*g.Y + g.Z*g.Z
	if normSq < 1e-12 {
		return 0
	}
	h := secondDerivatives(acc, c, dx)
	num := h.xx*(g.Y*g.Y+g.Z*g.Z) +
		h.yy*(g.X*g.X+g.Z*g.Z) +
		h.zz*(g.X*g.X+g.Y*g.Y) -
		2*(h.xy*g.X*g.Y+h.xz*g.X*g.Z+h.yz*g.Y*g.Z)
	return num / (2 * normSq * math.Sqrt(normSq))
}

// GaussianCurvature returns the Gaussian curvature of the isosurface of f
// through c. For a sphere of radius r it evaluates to 1/r^2.
func GaussianCurvature(acc *tree.ValueAccessor[float32], c coords.Coord, dx float64) float64 {
	g := Gradient(acc, c, dx)
	normSq := g.X*g.X + g.Y*g.Y + g.Z*g.Z
	if normSq < 1e-12 {
		return 0
	}
	h := secondDerivatives(acc, c, dx)
	num := g.X*g.X*(h.yy*h.zz-h.yz*h.yz) +
		g.Y*g.Y*(h.xx*h.zz-h.xz*h.xz) +
		g.Z*g.Z*(h.xx*h.yy-h.xy*h.xy) +
		2*(g.X*g.Y*(h.xz*h.yz-h.xy*h.zz)+
			g.Y*g.Z*(h.xy*h.xz-h.yz*h.xx)+
			g.X*g.Z*(h.xy*h.yz-h.xz*h.yy))
	return num / (normSq * normSq)
}

// BoxStencil gathers the dense cube of values centered on a voxel. The cube
// has edge length 2*halfWidth+1.
type BoxStencil struct {
	acc       *tree.ValueAccessor[float32]
	halfWidth int32
	values    []float32
}

// NewBoxStencil returns a stencil of the given half-width reading through acc.
func NewBoxStencil(acc *tree.ValueAccessor[float32], halfWidth int) *BoxStencil {
	hw := int32(halfWidth)
	edge := 2*halfWidth + 1
	return &BoxStencil{
		acc:       acc,
		halfWidth: hw,
		values:    make([]float32, 0, edge*edge*edge),
	}
}

// Gather fills the stencil with the cube of values centered on c.
func (s *BoxStencil) Gather(c coords.Coord) {
	s.values = s.values[:0]
	for i := -s.halfWidth; i <= s.halfWidth; i++ {
		for j := -s.halfWidth; j <= s.halfWidth; j++ {
			for k := -s.halfWidth; k <= s.halfWidth; k++ {
				s.values = append(s.values, s.acc.GetValue(c.Offset(i, j, k)))
			}
		}
	}
}

// Median returns the lower-middle element of the gathered values: for an even
// count N it returns element (N-1)/2 of the sorted cube.
func (s *BoxStencil) Median() float32 {
	sorted := make([]float32, len(s.values))
	copy(sorted, s.values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[(len(sorted)-1)/2]
}

// Mean returns the arithmetic mean of the gathered values.
func (s *BoxStencil) Mean() float32 {
	var sum float64
	for _, v := range s.values {
		sum += float64(v)
	}
	return float32(sum / float64(len(s.values)))
}
