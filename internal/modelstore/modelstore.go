// Package modelstore persists trained subject models together with the
// face-space coordinates of their training samples.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/faces"
)

// ErrNotFound is returned when no model is stored for a subject.
var ErrNotFound = errors.New("model not found")

// TrainingSample is a training crop's projection onto its model's basis.
type TrainingSample struct {
	ID     string    `json:"id"`
	Coords []float64 `json:"coords"`
}

// Record is a persisted subject model.
type Record struct {
	ID         uuid.UUID        `json:"id"`
	Subject    string           `json:"subject"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Components int              `json:"components"`
	CreatedAt  time.Time        `json:"created_at"`
	Model      *eigenface.Model `json:"model"`
	Training   []TrainingSample `json:"training,omitempty"`
}

// Store persists records keyed by normalized subject name. Saving a record
// for a subject replaces the previous one.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, subject string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, subject string) error
}

// NewRecord wraps a trained model. z holds the projections of the training
// samples ids, one row each, and may be nil.
func NewRecord(subject string, width, height int, m *eigenface.Model, ids []string, z mat.Matrix) (*Record, error) {
	rec := &Record{
		ID:         uuid.New(),
		Subject:    subject,
		Width:      width,
		Height:     height,
		Components: m.Components(),
		CreatedAt:  time.Now().UTC(),
		Model:      m,
	}
	if z != nil {
		n, k := z.Dims()
		if n != len(ids) || k != m.Components() {
			return nil, fmt.Errorf("%w: %d training ids, projections %dx%d", eigenface.ErrShape, len(ids), n, k)
		}
		rec.Training = make([]TrainingSample, n)
		for i, id := range ids {
			rec.Training[i] = TrainingSample{ID: id, Coords: mat.Row(nil, i, z)}
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks that the record's metadata agrees with its model.
func (r *Record) Validate() error {
	if Key(r.Subject) == "" {
		return errors.New("record has no subject")
	}
	if r.Model == nil {
		return fmt.Errorf("record %s has no model", r.Subject)
	}
	if r.Width*r.Height != r.Model.Dim() {
		return fmt.Errorf("%w: record %s is %dx%d but model has %d pixels",
			eigenface.ErrShape, r.Subject, r.Width, r.Height, r.Model.Dim())
	}
	if r.Components != r.Model.Components() {
		return fmt.Errorf("%w: record %s declares %d components, model has %d",
			eigenface.ErrShape, r.Subject, r.Components, r.Model.Components())
	}
	for _, s := range r.Training {
		if len(s.Coords) != r.Components {
			return fmt.Errorf("%w: training sample %s has %d coordinates, want %d",
				eigenface.ErrShape, s.ID, len(s.Coords), r.Components)
		}
	}
	return nil
}

// Key returns the storage key for a subject name.
func Key(subject string) string {
	return strings.ReplaceAll(faces.NormalizeSubjectName(subject), " ", "-")
}

// Models returns the models of recs in the same order.
func Models(recs []*Record) []*eigenface.Model {
	models := make([]*eigenface.Model, len(recs))
	for i, r := range recs {
		models[i] = r.Model
	}
	return models
}

// Load fetches the records of subjects in the given order.
func Load(ctx context.Context, s Store, subjects []string) ([]*Record, error) {
	recs := make([]*Record, 0, len(subjects))
	for _, name := range subjects {
		rec, err := s.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load model for %s: %w", name, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
