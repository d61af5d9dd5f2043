package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/facespace"
)

// SubjectResult is the classification of one subject's test crops.
type SubjectResult struct {
	Subject        string
	Want           int // index of the subject's own model
	IDs            []string
	Classification *eigenface.Classification
	Nearest        []facespace.Match // in the assigned model's face space
}

// Report is the outcome of a test run.
type Report struct {
	Models   []string
	Subjects []SubjectResult
	Correct  int
	Total    int
}

// Row is one classified test sample.
type Row struct {
	Subject         string    `json:"subject"`
	ID              string    `json:"id"`
	MSE             []float64 `json:"mse"`
	Assigned        string    `json:"assigned"`
	Correct         bool      `json:"correct"`
	NearestSample   string    `json:"nearest_sample,omitempty"`
	NearestDistance float64   `json:"nearest_distance,omitempty"`
}

// Accuracy returns Correct/Total, or 0 for an empty report.
func (r *Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Rows flattens the report, one row per test sample.
func (r *Report) Rows() []Row {
	var rows []Row
	for _, s := range r.Subjects {
		for i, id := range s.IDs {
			a := s.Classification.Assigned[i]
			mse := make([]float64, len(r.Models))
			for m, score := range s.Classification.Scores {
				mse[m] = score.MSE[i]
			}
			row := Row{
				Subject:  s.Subject,
				ID:       id,
				MSE:      mse,
				Assigned: r.Models[a],
				Correct:  a == s.Want,
			}
			if i < len(s.Nearest) {
				row.NearestSample = s.Nearest[i].SampleID
				row.NearestDistance = s.Nearest[i].Distance
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Summary returns the aggregate accuracy line.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d out of %d images correctly identified.", r.Correct, r.Total)
}

// WriteMSE prints the raw MSE vector of every subject against every model.
func (r *Report) WriteMSE(w io.Writer) {
	for _, s := range r.Subjects {
		for m, score := range s.Classification.Scores {
			fmt.Fprintf(w, "MSE: %s unseen compared to %s model\n", s.Subject, r.Models[m])
			fmt.Fprintf(w, "%v\n", score.MSE)
		}
	}
}

// WriteTable prints one line per test sample followed by the summary.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"SUBJECT", "SAMPLE"}
	for _, m := range r.Models {
		header = append(header, "MSE "+strings.ToUpper(m))
	}
	header = append(header, "ASSIGNED", "NEAREST", "OK")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range r.Rows() {
		cols := []string{row.Subject, row.ID}
		for _, v := range row.MSE {
			cols = append(cols, fmt.Sprintf("%.2f", v))
		}
		nearest := "-"
		if row.NearestSample != "" {
			nearest = fmt.Sprintf("%s (%.1f)", row.NearestSample, row.NearestDistance)
		}
		ok := "no"
		if row.Correct {
			ok = "yes"
		}
		cols = append(cols, row.Assigned, nearest, ok)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	_, err := fmt.Fprintf(w, "\n%s\n", r.Summary())
	return err
}

type reportJSON struct {
	Models   []string `json:"models"`
	Samples  []Row    `json:"samples"`
	Correct  int      `json:"correct"`
	Total    int      `json:"total"`
	Accuracy float64  `json:"accuracy"`
}

// WriteJSON encodes the flattened report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reportJSON{
		Models:   r.Models,
		Samples:  r.Rows(),
		Correct:  r.Correct,
		Total:    r.Total,
		Accuracy: r.Accuracy(),
	})
}
