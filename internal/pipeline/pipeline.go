// Package pipeline trains one eigenface model per subject and scores the
// subjects' test crops against every model.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/facespace"
	"github.com/kozaktomas/eigenface/internal/modelstore"
)

// ErrUnknownSubject is returned when a test subject has no model.
var ErrUnknownSubject = errors.New("no model for subject")

// SourceFunc returns the sample source holding a subject's crops.
type SourceFunc func(subject string) eigenface.SampleSource

// TrainSubject builds the model of one subject from its training ids and
// records the projections of the training samples.
func TrainSubject(p *config.Pipeline, s config.Subject, src SourceFunc) (*modelstore.Record, error) {
	w, h := p.ROISize.Width, p.ROISize.Height
	if err := eigenface.ValidateComponentCount(p.ComponentCount, len(s.Train), w*h); err != nil {
		return nil, fmt.Errorf("subject %s: %w", s.Name, err)
	}

	x, err := eigenface.BuildDataMatrix(s.Train, src(s.Name), w, h)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", s.Name, err)
	}
	m, err := eigenface.BuildModel(x, p.ComponentCount)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", s.Name, err)
	}
	xc, err := eigenface.Center(x, m)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", s.Name, err)
	}
	z, err := eigenface.Project(xc, m)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", s.Name, err)
	}
	return modelstore.NewRecord(s.Name, w, h, m, s.Train, z)
}

// Train builds the models of all subjects in pipeline order. The first
// failure aborts the run.
func Train(p *config.Pipeline, src SourceFunc) ([]*modelstore.Record, error) {
	recs := make([]*modelstore.Record, 0, len(p.Subjects))
	for _, s := range p.Subjects {
		rec, err := TrainSubject(p, s, src)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Test classifies every subject's test crops against recs. Model order in
// recs decides ties. A subject without test ids is skipped.
func Test(p *config.Pipeline, src SourceFunc, recs []*modelstore.Record) (*Report, error) {
	gallery, err := NewGallery(recs)
	if err != nil {
		return nil, err
	}

	report := &Report{Models: make([]string, len(recs))}
	for i, rec := range recs {
		report.Models[i] = rec.Subject
	}

	for _, s := range p.Subjects {
		if len(s.Test) == 0 {
			continue
		}
		want := modelIndex(recs, s.Name)
		if want < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, s.Name)
		}

		x, err := eigenface.BuildDataMatrix(s.Test, src(s.Name), p.ROISize.Width, p.ROISize.Height)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", s.Name, err)
		}
		cls, err := gallery.Classify(x)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", s.Name, err)
		}

		result := SubjectResult{
			Subject:        s.Name,
			Want:           want,
			IDs:            s.Test,
			Classification: cls,
			Nearest:        make([]facespace.Match, len(s.Test)),
		}
		for i, a := range cls.Assigned {
			match, err := gallery.Nearest(a, cls.Scores[a].Projection.RawRowView(i))
			if err != nil {
				return nil, fmt.Errorf("subject %s sample %s: %w", s.Name, s.Test[i], err)
			}
			if match != nil {
				result.Nearest[i] = *match
			}
		}

		correct, total := eigenface.CountCorrect(cls.Assigned, want)
		report.Correct += correct
		report.Total += total
		report.Subjects = append(report.Subjects, result)
	}
	return report, nil
}

// Evaluate trains in memory and tests in one go.
func Evaluate(p *config.Pipeline, src SourceFunc) ([]*modelstore.Record, *Report, error) {
	recs, err := Train(p, src)
	if err != nil {
		return nil, nil, err
	}
	report, err := Test(p, src, recs)
	if err != nil {
		return nil, nil, err
	}
	return recs, report, nil
}

func modelIndex(recs []*modelstore.Record, subject string) int {
	key := modelstore.Key(subject)
	for i, rec := range recs {
		if modelstore.Key(rec.Subject) == key {
			return i
		}
	}
	return -1
}
