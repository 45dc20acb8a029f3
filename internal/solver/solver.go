// Package solver wraps the sparse modified-nodal-analysis system that all
// components stamp into each step. The factorization algorithm itself is
// the library's concern; this package only owns assembly, accumulation and
// the fatal-on-singular contract.
package solver

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// Ground is the node index representing the reference node. Stamps against
// it are discarded.
const Ground = -1

// System holds the assembled sparse matrix and right-side vector for one
// timestep. Node and branch indices are zero-based; the 1-based indexing of
// the underlying library is confined to this package.
type System struct {
	size int
	m    *sparse.Matrix
	b    []float64
}

// New creates an empty system of the given dimension (node voltages plus
// source branch currents).
func New(size int) (*System, error) {
	if size <= 0 {
		return nil, fmt.Errorf("system dimension must be positive, got %d", size)
	}
	cfg := &sparse.Configuration{
		Real:          true,
		Complex:       false,
		ModifiedNodal: true,
		Translate:     true,
	}
	m, err := sparse.Create(int64(size), cfg)
	if err != nil {
		return nil, fmt.Errorf("creating sparse system of dimension %d: %w", size, err)
	}
	return &System{size: size, m: m, b: make([]float64, size+1)}, nil
}

// Size returns the system dimension.
func (s *System) Size() int { return s.size }

// Clear zeroes the matrix and right-side vector ahead of re-stamping.
func (s *System) Clear() {
	s.m.Clear()
	for i := range s.b {
		s.b[i] = 0
	}
}

// AddMatrix accumulates v into matrix cell (i, j). Multiple components may
// stamp overlapping cells; contributions sum. Ground indices are discarded.
func (s *System) AddMatrix(i, j int, v float64) {
	if i == Ground || j == Ground {
		return
	}
	s.m.GetElement(int64(i+1), int64(j+1)).Real += v
}

// AddRightSide accumulates v into row i of the right-side vector.
func (s *System) AddRightSide(i int, v float64) {
	if i == Ground {
		return
	}
	s.b[i+1] += v
}

// At reads the current accumulated value of matrix cell (i, j).
func (s *System) At(i, j int) float64 {
	if i == Ground || j == Ground {
		return 0
	}
	return s.m.GetElement(int64(i+1), int64(j+1)).Real
}

// RightSideAt reads the current accumulated value of right-side row i.
func (s *System) RightSideAt(i int) float64 {
	if i == Ground {
		return 0
	}
	return s.b[i+1]
}

// Solve factors the assembled matrix and solves for the unknown vector. A
// singular or otherwise unsolvable system is fatal to the run and is
// surfaced to the caller; it is never retried here.
func (s *System) Solve() ([]float64, error) {
	s.m.MNAPreorder()
	s.m.Factor()
	x, err := s.m.Solve(s.b)
	if err != nil {
		return nil, fmt.Errorf("solving %dx%d system: %w", s.size, s.size, err)
	}
	out := make([]float64, s.size)
	copy(out, x[1:s.size+1])
	return out, nil
}

// Destroy releases the underlying sparse storage.
func (s *System) Destroy() {
	s.m.Destroy()
}
