package eigenface

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is a subject's eigen-basis: the training mean (length P), the
// retained eigenvalue magnitudes (length k) and the matching eigenvectors
// as the columns of a P×k matrix. A Model is never mutated after
// construction; accessors hand out copies.
type Model struct {
	mean         []float64
	eigenvalues  []float64
	eigenvectors *mat.Dense
}

// NewModel assembles a model from its three arrays, e.g. when loading a
// persisted record. eigenvectors must be len(mean)×len(eigenvalues).
func NewModel(mean, eigenvalues []float64, eigenvectors mat.Matrix) (*Model, error) {
	if eigenvectors == nil {
		return nil, fmt.Errorf("%w: nil eigenvectors", ErrShape)
	}
	p, k := eigenvectors.Dims()
	if p != len(mean) || k != len(eigenvalues) {
		return nil, fmt.Errorf("%w: eigenvectors %dx%d, mean %d, eigenvalues %d",
			ErrShape, p, k, len(mean), len(eigenvalues))
	}
	if k < 1 || k > p {
		return nil, &InvalidComponentCountError{K: k, Samples: k, Pixels: p}
	}
	m := &Model{
		mean:         append([]float64(nil), mean...),
		eigenvalues:  append([]float64(nil), eigenvalues...),
		eigenvectors: mat.DenseCopyOf(eigenvectors),
	}
	if !finite(m.mean) || !finite(m.eigenvalues) || !finite(m.eigenvectors.RawMatrix().Data) {
		return nil, &NumericInstabilityError{Op: "load model", Reason: "non-finite values"}
	}
	return m, nil
}

// Dim returns P, the number of pixels per sample.
func (m *Model) Dim() int { return len(m.mean) }

// Components returns k, the number of retained eigenvectors.
func (m *Model) Components() int { return len(m.eigenvalues) }

// Mean returns a copy of the training mean.
func (m *Model) Mean() []float64 {
	return append([]float64(nil), m.mean...)
}

// Eigenvalues returns a copy of the retained eigenvalue magnitudes.
func (m *Model) Eigenvalues() []float64 {
	return append([]float64(nil), m.eigenvalues...)
}

// Eigenvectors returns a copy of the P×k eigenvector matrix.
func (m *Model) Eigenvectors() *mat.Dense {
	return mat.DenseCopyOf(m.eigenvectors)
}

// Eigenvector returns a copy of column i, an "eigenface".
func (m *Model) Eigenvector(i int) []float64 {
	return mat.Col(nil, i, m.eigenvectors)
}

type modelJSON struct {
	Mean         []float64   `json:"mean"`
	Eigenvalues  []float64   `json:"eigenvalues"`
	Eigenvectors [][]float64 `json:"eigenvectors"` // P rows of k values
}

// MarshalJSON encodes the model as three named arrays.
func (m *Model) MarshalJSON() ([]byte, error) {
	p, k := m.eigenvectors.Dims()
	rows := make([][]float64, p)
	for i := range p {
		rows[i] = make([]float64, k)
		mat.Row(rows[i], i, m.eigenvectors)
	}
	return json.Marshal(modelJSON{
		Mean:         m.mean,
		Eigenvalues:  m.eigenvalues,
		Eigenvectors: rows,
	})
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	k := len(raw.Eigenvalues)
	if len(raw.Eigenvectors) == 0 || k == 0 {
		return fmt.Errorf("%w: empty eigenvectors", ErrShape)
	}
	v := mat.NewDense(len(raw.Eigenvectors), k, nil)
	for i, row := range raw.Eigenvectors {
		if len(row) != k {
			return fmt.Errorf("%w: eigenvector row %d has %d values, want %d", ErrShape, i, len(row), k)
		}
		v.SetRow(i, row)
	}
	built, err := NewModel(raw.Mean, raw.Eigenvalues, v)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
