// Package potential solves incompressible potential flow over a sparse
// domain: a Laplace equation with Neumann boundary conditions at a collider
// surface, followed by a staggered-gradient velocity reconstruction.
package potential

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State reports the outcome of a linear solve.
type State struct {
	Success       bool
	Iterations    int
	AbsoluteError float64
}

// SparseSystem is a symmetric matrix in compressed sparse row form.
type SparseSystem struct {
	n      int
	indptr []int
	cols   []int
	vals   []float64
}

// NewSparseSystem returns an empty n by n system. Rows must be appended in
// order.
func NewSparseSystem(n int) *SparseSystem {
	return &SparseSystem{n: n, indptr: make([]int, 1, n+1)}
}

// Dim returns the number of rows.
func (s *SparseSystem) Dim() int { return s.n }

// AppendRow adds the next row's column indices and values.
func (s *SparseSystem) AppendRow(cols []int, vals []float64) {
	s.cols = append(s.cols, cols...)
	s.vals = append(s.vals, vals...)
	s.indptr = append(s.indptr, len(s.cols))
}

// MulVec stores the product of the system with x into dst.
func (s *SparseSystem) MulVec(dst *mat.VecDense, x *mat.VecDense) {
	for i := 0; i < s.n; i++ {
		sum := 0.0
		for j := s.indptr[i]; j < s.indptr[i+1]; j++ {
			sum += s.vals[j] * x.AtVec(s.cols[j])
		}
		dst.SetVec(i, sum)
	}
}

// Solver solves the linear system Ax = b.
type Solver interface {
	Solve(a *SparseSystem, b *mat.VecDense) (*mat.VecDense, State)
}

// ConjugateGradient is the default Solver: plain conjugate gradient from a
// zero initial guess. The pure-Neumann Laplacian is positive semi-definite
// with a constant null space; starting from zero keeps the iterates
// orthogonal to it, so the solve converges to the mean-zero solution.
type ConjugateGradient struct {
	MaxIterations int
	Tolerance     float64
}

// NewConjugateGradient returns a solver with the given iteration cap and
// absolute residual tolerance.
func NewConjugateGradient(maxIterations int, tolerance float64) *ConjugateGradient {
	return &ConjugateGradient{MaxIterations: maxIterations, Tolerance: tolerance}
}

// Solve runs conjugate gradient until the residual norm drops below the
// tolerance or the iteration cap is reached.
func (cg *ConjugateGradient) Solve(a *SparseSystem, b *mat.VecDense) (*mat.VecDense, State) {
	n := a.Dim()
	x := mat.NewVecDense(n, nil)
	r := mat.NewVecDense(n, nil)
	r.CopyVec(b)
	p := mat.NewVecDense(n, nil)
	p.CopyVec(r)
	ap := mat.NewVecDense(n, nil)

	rsq := mat.Dot(r, r)
	state := State{AbsoluteError: math.Sqrt(rsq)}
	if state.AbsoluteError <= cg.Tolerance {
		state.Success = true
		return x, state
	}

	for i := 0; i < cg.MaxIterations; i++ {
		a.MulVec(ap, p)
		denom := mat.Dot(p, ap)
		if denom == 0 {
			break
		}
		alpha := rsq / denom
		x.AddScaledVec(x, alpha, p)
		r.AddScaledVec(r, -alpha, ap)

		rsqNew := mat.Dot(r, r)
		state.Iterations = i + 1
		state.AbsoluteError = math.Sqrt(rsqNew)
		if state.AbsoluteError <= cg.Tolerance {
			state.Success = true
			return x, state
		}
		p.AddScaledVec(r, rsqNew/rsq, p)
		rsq = rsqNew
	}
	return x, state
}
