package eigenface

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Center returns a copy of x with the model mean subtracted from every row.
func Center(x mat.Matrix, m *Model) (*mat.Dense, error) {
	n, p := x.Dims()
	if p != m.Dim() {
		return nil, fmt.Errorf("%w: %d columns, model has %d pixels", ErrShape, p, m.Dim())
	}
	xc := mat.DenseCopyOf(x)
	for i := range n {
		row := xc.RawRowView(i)
		for j, mu := range m.mean {
			row[j] -= mu
		}
	}
	return xc, nil
}

// Project maps mean-centered samples into the model subspace: xc·V (N×k).
// Centering is the caller's job because a sample is compared against
// several models, each with its own mean.
func Project(xc mat.Matrix, m *Model) (*mat.Dense, error) {
	_, p := xc.Dims()
	if p != m.Dim() {
		return nil, fmt.Errorf("%w: %d columns, model has %d pixels", ErrShape, p, m.Dim())
	}
	var z mat.Dense
	z.Mul(xc, m.eigenvectors)
	return &z, nil
}

// Reconstruct maps projections back to pixel space: z·Vᵀ plus the mean
// on every row (N×P).
func Reconstruct(z mat.Matrix, m *Model) (*mat.Dense, error) {
	n, k := z.Dims()
	if k != m.Components() {
		return nil, fmt.Errorf("%w: %d coordinates, model has %d components", ErrShape, k, m.Components())
	}
	var r mat.Dense
	r.Mul(z, m.eigenvectors.T())
	for i := range n {
		row := r.RawRowView(i)
		for j, mu := range m.mean {
			row[j] += mu
		}
	}
	return &r, nil
}

// ReconstructRelative centers x on the model mean, projects and
// reconstructs it. x is left untouched.
func ReconstructRelative(x mat.Matrix, m *Model) (z, r *mat.Dense, err error) {
	xc, err := Center(x, m)
	if err != nil {
		return nil, nil, err
	}
	z, err = Project(xc, m)
	if err != nil {
		return nil, nil, err
	}
	r, err = Reconstruct(z, m)
	if err != nil {
		return nil, nil, err
	}
	return z, r, nil
}

// RowMSE returns the mean squared difference between matching rows of a and b.
func RowMSE(a, b mat.Matrix) ([]float64, error) {
	n, p := a.Dims()
	bn, bp := b.Dims()
	if n != bn || p != bp {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShape, n, p, bn, bp)
	}
	var diff mat.Dense
	diff.Sub(a, b)
	mse := make([]float64, n)
	for i := range n {
		var sum float64
		for _, d := range diff.RawRowView(i) {
			sum += d * d
		}
		mse[i] = sum / float64(p)
	}
	return mse, nil
}
