package cmd

import (
	"fmt"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/pipeline"
)

// selectSubjects returns the pipeline subjects named by names, in pipeline
// order. All subjects are returned when names is empty.
func selectSubjects(p *config.Pipeline, names []string) ([]config.Subject, error) {
	if len(names) == 0 {
		return p.Subjects, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		s, ok := p.Subject(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownSubject, name)
		}
		wanted[s.Name] = true
	}
	var out []config.Subject
	for _, s := range p.Subjects {
		if wanted[s.Name] {
			out = append(out, s)
		}
	}
	return out, nil
}

// withSubjects returns a copy of p restricted to subjects.
func withSubjects(p *config.Pipeline, subjects []config.Subject) *config.Pipeline {
	cp := *p
	cp.Subjects = subjects
	return &cp
}
