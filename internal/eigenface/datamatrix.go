package eigenface

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Grid is a grayscale image sample. Pix is row-major: row 0 first.
type Grid struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGrid allocates a zeroed width×height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the intensity at column x, row y.
func (g *Grid) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// Set stores the intensity at column x, row y.
func (g *Grid) Set(x, y int, v float64) {
	g.Pix[y*g.Width+x] = v
}

// SampleSource supplies grayscale samples by identifier.
// Implementations report absence with an error wrapping ErrMissingSample.
type SampleSource interface {
	Sample(id string) (*Grid, error)
}

// MapSource is an in-memory SampleSource.
type MapSource map[string]*Grid

// Sample implements SampleSource.
func (m MapSource) Sample(id string) (*Grid, error) {
	g, ok := m[id]
	if !ok || g == nil {
		return nil, ErrMissingSample
	}
	return g, nil
}

// BuildDataMatrix flattens the samples named by ids into an N×P matrix,
// one row per identifier in input order, P = width*height.
// Every sample must already be exactly width×height; nothing is resized.
func BuildDataMatrix(ids []string, src SampleSource, width, height int) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, ErrNoSamples
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: roi size %dx%d", ErrDimensionMismatch, width, height)
	}

	p := width * height
	x := mat.NewDense(len(ids), p, nil)
	for i, id := range ids {
		g, err := src.Sample(id)
		if err != nil {
			if errors.Is(err, ErrMissingSample) {
				return nil, &MissingSampleError{ID: id}
			}
			return nil, fmt.Errorf("load sample %q: %w", id, err)
		}
		if g == nil {
			return nil, &MissingSampleError{ID: id}
		}
		if g.Width != width || g.Height != height || len(g.Pix) != p {
			return nil, &DimensionMismatchError{
				ID: id, Width: g.Width, Height: g.Height,
				WantWidth: width, WantHeight: height,
			}
		}
		if !finite(g.Pix) {
			return nil, &NumericInstabilityError{Op: fmt.Sprintf("load sample %q", id), Reason: "non-finite pixel value"}
		}
		x.SetRow(i, g.Pix)
	}
	return x, nil
}

// RowGrid reshapes row i of a data matrix back into a width×height grid.
func RowGrid(x mat.Matrix, i, width, height int) *Grid {
	g := NewGrid(width, height)
	mat.Row(g.Pix, i, x)
	return g
}
