// Package facespace finds the training sample nearest to a projected
// crop inside one model's face space.
package facespace

import (
	"errors"
	"fmt"

	"github.com/coder/hnsw"
	"gonum.org/v1/gonum/floats"

	"github.com/kozaktomas/eigenface/internal/modelstore"
)

const maxNeighbors = 16

var (
	ErrEmptyIndex        = errors.New("facespace: index has no samples")
	ErrDimensionMismatch = errors.New("facespace: coordinate dimension mismatch")
)

// Match is a training sample and its Euclidean distance to the query.
type Match struct {
	SampleID string
	Distance float64
}

// Index is an HNSW graph over the training projections of one model.
// The graph is never modified after NewIndex, so concurrent searches are safe.
type Index struct {
	graph   *hnsw.Graph[int]
	samples []modelstore.TrainingSample
	dim     int
}

// NewIndex builds an index over samples. All samples must share the same
// number of coordinates.
func NewIndex(samples []modelstore.TrainingSample) (*Index, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyIndex
	}

	g := hnsw.NewGraph[int]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	dim := len(samples[0].Coords)
	for i, s := range samples {
		if len(s.Coords) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: sample %s has %d coordinates, want %d",
				ErrDimensionMismatch, s.ID, len(s.Coords), dim)
		}
		g.Add(hnsw.MakeNode(i, toVector(s.Coords)))
	}

	return &Index{
		graph:   g,
		samples: append([]modelstore.TrainingSample(nil), samples...),
		dim:     dim,
	}, nil
}

// FromRecord indexes the training samples of a stored model.
func FromRecord(rec *modelstore.Record) (*Index, error) {
	ix, err := NewIndex(rec.Training)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", rec.Subject, err)
	}
	return ix, nil
}

// Len returns the number of indexed samples.
func (ix *Index) Len() int {
	return len(ix.samples)
}

// Nearest returns the indexed sample closest to coords. The distance is
// recomputed in double precision.
func (ix *Index) Nearest(coords []float64) (Match, error) {
	if len(coords) != ix.dim {
		return Match{}, fmt.Errorf("%w: query has %d coordinates, want %d", ErrDimensionMismatch, len(coords), ix.dim)
	}

	neighbors := ix.graph.Search(toVector(coords), 1)

	if len(neighbors) == 0 {
		return Match{}, ErrEmptyIndex
	}
	s := ix.samples[neighbors[0].Key]
	return Match{SampleID: s.ID, Distance: floats.Distance(s.Coords, coords, 2)}, nil
}

func toVector(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
