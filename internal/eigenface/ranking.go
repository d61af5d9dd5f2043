package eigenface

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// collapseTol is the norm below which a re-orthogonalized column is treated
// as linearly dependent on the columns before it.
const collapseTol = 1e-8

// RankByMagnitude returns the indices of values ordered by descending |λ|.
// Equal magnitudes keep solver order, lowest index first. Sign and phase
// are discarded: -3 and 3i both rank as 3.
func RankByMagnitude(values []complex128) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cmplx.Abs(values[order[a]]) > cmplx.Abs(values[order[b]])
	})
	return order
}

// selectComponents keeps the first k ranked eigenpairs. Each eigenvalue is
// taken as the magnitude of its own pair and each eigenvector as the real
// part of its column.
func selectComponents(values []complex128, vectors *mat.CDense, order []int, k int) ([]float64, *mat.Dense) {
	p, _ := vectors.Dims()
	eigenvalues := make([]float64, k)
	eigenvectors := mat.NewDense(p, k, nil)
	for col := range k {
		src := order[col]
		eigenvalues[col] = cmplx.Abs(values[src])
		for row := range p {
			eigenvectors.Set(row, col, real(vectors.At(row, src)))
		}
	}
	return eigenvalues, eigenvectors
}

// orthonormalize applies modified Gram-Schmidt to the columns of v in place,
// left to right. Columns from distinct eigenspaces are already orthogonal and
// only get renormalized; columns sharing an eigenspace stay inside it.
func orthonormalize(v *mat.Dense) error {
	_, k := v.Dims()
	cols := make([][]float64, k)
	for j := range k {
		cols[j] = mat.Col(nil, j, v)
	}
	for j := range k {
		for i := range j {
			floats.AddScaled(cols[j], -floats.Dot(cols[i], cols[j]), cols[i])
		}
		norm := floats.Norm(cols[j], 2)
		if norm < collapseTol || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return &NumericInstabilityError{
				Op:     "orthonormalize eigenvectors",
				Reason: fmt.Sprintf("eigenvector column %d is degenerate", j),
			}
		}
		floats.Scale(1/norm, cols[j])
	}
	for j := range k {
		v.SetCol(j, cols[j])
	}
	return nil
}
