package eigenface

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ValidateComponentCount checks that k components can be retained from
// n samples of p pixels.
func ValidateComponentCount(k, n, p int) error {
	if k <= 0 || k > n || k > p {
		return &InvalidComponentCountError{K: k, Samples: n, Pixels: p}
	}
	return nil
}

// BuildModel computes the top-k eigen-basis of the N×P data matrix x.
//
// The P×P covariance of the centered samples (denominator N−1) is handed to
// a general eigensolver. Eigenvalues are ranked by magnitude with
// RankByMagnitude and eigenvectors keep their real part; see
// selectComponents. The retained columns are re-orthonormalized before the
// model is returned. x is not modified.
func BuildModel(x mat.Matrix, k int) (*Model, error) {
	n, p := x.Dims()
	if err := ValidateComponentCount(k, n, p); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, &NumericInstabilityError{Op: "covariance", Reason: "at least two samples are required"}
	}

	mean := columnMeans(x)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	if !finite(symmetricData(&cov)) {
		return nil, &NumericInstabilityError{Op: "covariance", Reason: "non-finite covariance entries"}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(&cov, mat.EigenRight); !ok {
		return nil, &NumericInstabilityError{Op: "eigen-decomposition", Reason: "factorization did not converge"}
	}
	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	order := RankByMagnitude(values)
	eigenvalues, eigenvectors := selectComponents(values, &vectors, order, k)
	if !finite(eigenvalues) || !finite(eigenvectors.RawMatrix().Data) {
		return nil, &NumericInstabilityError{Op: "eigen-decomposition", Reason: "non-finite eigenpairs"}
	}
	if err := orthonormalize(eigenvectors); err != nil {
		return nil, err
	}

	return &Model{
		mean:         mean,
		eigenvalues:  eigenvalues,
		eigenvectors: eigenvectors,
	}, nil
}

func columnMeans(x mat.Matrix) []float64 {
	n, p := x.Dims()
	mean := make([]float64, p)
	col := make([]float64, n)
	for j := range p {
		mat.Col(col, j, x)
		mean[j] = stat.Mean(col, nil)
	}
	return mean
}

// symmetricData returns the upper triangle of s, row by row.
func symmetricData(s *mat.SymDense) []float64 {
	n := s.SymmetricDim()
	out := make([]float64, 0, n*(n+1)/2)
	for i := range n {
		for j := i; j < n; j++ {
			out = append(out, s.At(i, j))
		}
	}
	return out
}
