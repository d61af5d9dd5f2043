package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/facespace"
	"github.com/kozaktomas/eigenface/internal/modelstore"
)

// Gallery is a read-only set of subject models sharing one ROI size. It
// is safe for concurrent use.
type Gallery struct {
	recs    []*modelstore.Record
	models  []*eigenface.Model
	indexes []*facespace.Index // nil for records without training samples
	width   int
	height  int
}

// Prediction is the classification of a single crop.
type Prediction struct {
	Subject string
	Index   int
	MSE     []float64 // per model, in gallery order
	Nearest *facespace.Match
}

// NewGallery indexes recs. Gallery order is recs order and decides ties.
func NewGallery(recs []*modelstore.Record) (*Gallery, error) {
	if len(recs) == 0 {
		return nil, eigenface.ErrNoModels
	}
	g := &Gallery{
		recs:    recs,
		models:  modelstore.Models(recs),
		indexes: make([]*facespace.Index, len(recs)),
		width:   recs[0].Width,
		height:  recs[0].Height,
	}
	for i, rec := range recs {
		if rec.Width != g.width || rec.Height != g.height {
			return nil, fmt.Errorf("%w: model %s is %dx%d, model %s is %dx%d", eigenface.ErrDimensionMismatch,
				rec.Subject, rec.Width, rec.Height, recs[0].Subject, g.width, g.height)
		}
		if len(rec.Training) == 0 {
			continue
		}
		ix, err := facespace.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.indexes[i] = ix
	}
	return g, nil
}

// ROI returns the crop size every model expects.
func (g *Gallery) ROI() (width, height int) {
	return g.width, g.height
}

// Records returns the gallery's records in order.
func (g *Gallery) Records() []*modelstore.Record {
	return append([]*modelstore.Record(nil), g.recs...)
}

// Subjects returns the subject names in gallery order.
func (g *Gallery) Subjects() []string {
	names := make([]string, len(g.recs))
	for i, rec := range g.recs {
		names[i] = rec.Subject
	}
	return names
}

// Classify scores x, one sample per row, against every model.
func (g *Gallery) Classify(x mat.Matrix) (*eigenface.Classification, error) {
	return eigenface.Classify(x, g.models)
}

// Nearest looks up the training sample of model m closest to coords. It
// returns nil when the model has no indexed samples.
func (g *Gallery) Nearest(m int, coords []float64) (*facespace.Match, error) {
	ix := g.indexes[m]
	if ix == nil {
		return nil, nil
	}
	match, err := ix.Nearest(coords)
	if err != nil {
		return nil, fmt.Errorf("nearest training sample of %s: %w", g.recs[m].Subject, err)
	}
	return &match, nil
}

// Predict classifies a single crop.
func (g *Gallery) Predict(id string, grid *eigenface.Grid) (*Prediction, error) {
	x, err := eigenface.BuildDataMatrix([]string{id}, eigenface.MapSource{id: grid}, g.width, g.height)
	if err != nil {
		return nil, err
	}
	cls, err := g.Classify(x)
	if err != nil {
		return nil, err
	}
	a := cls.Assigned[0]
	p := &Prediction{
		Subject: g.recs[a].Subject,
		Index:   a,
		MSE:     make([]float64, len(g.models)),
	}
	for m, score := range cls.Scores {
		p.MSE[m] = score.MSE[0]
	}
	p.Nearest, err = g.Nearest(a, cls.Scores[a].Projection.RawRowView(0))
	if err != nil {
		return nil, err
	}
	return p, nil
}
