package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/modelstore"
)

const roi = 4

// noisy returns a roi×roi grid of base plus uniform noise in [0, 10).
func noisy(rng *rand.Rand, base float64) *eigenface.Grid {
	g := eigenface.NewGrid(roi, roi)
	for i := range g.Pix {
		g.Pix[i] = base + 10*rng.Float64()
	}
	return g
}

// fixture has a dark subject "arnold" and a bright subject "barack" with
// six training crops each and the arnold/barack test split.
func fixture() (*config.Pipeline, map[string]eigenface.MapSource) {
	p := &config.Pipeline{
		ROISize:        config.ROISize{Width: roi, Height: roi},
		ComponentCount: 3,
		Subjects: []config.Subject{
			{Name: "arnold", Train: []string{"1", "2", "3", "4", "5", "6"}, Test: []string{"7", "8"}},
			{Name: "barack", Train: []string{"1", "2", "3", "4", "5", "6"}, Test: []string{"7", "8", "9", "10"}},
		},
	}
	rng := rand.New(rand.NewSource(7))
	sources := map[string]eigenface.MapSource{"arnold": {}, "barack": {}}
	for i := 1; i <= 10; i++ {
		id := fmt.Sprint(i)
		sources["arnold"][id] = noisy(rng, 20)
		sources["barack"][id] = noisy(rng, 200)
	}
	return p, sources
}

func sourceFunc(sources map[string]eigenface.MapSource) SourceFunc {
	return func(subject string) eigenface.SampleSource { return sources[subject] }
}

func TestTrain(t *testing.T) {
	p, sources := fixture()

	recs, err := Train(p, sourceFunc(sources))
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if len(recs) != 2 || recs[0].Subject != "arnold" || recs[1].Subject != "barack" {
		t.Fatalf("unexpected records %v", recs)
	}
	for _, rec := range recs {
		if rec.Components != 3 || rec.Width != roi || rec.Model.Dim() != roi*roi {
			t.Errorf("%s: unexpected shape %+v", rec.Subject, rec)
		}
		if len(rec.Training) != 6 || rec.Training[0].ID != "1" || len(rec.Training[0].Coords) != 3 {
			t.Errorf("%s: unexpected training samples %+v", rec.Subject, rec.Training)
		}
	}
}

func TestEvaluate(t *testing.T) {
	p, sources := fixture()

	_, report, err := Evaluate(p, sourceFunc(sources))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if report.Total != 6 || report.Correct != 6 {
		t.Errorf("correct/total = %d/%d, want 6/6", report.Correct, report.Total)
	}
	if got := report.Summary(); got != "6 out of 6 images correctly identified." {
		t.Errorf("Summary() = %q", got)
	}
	if report.Accuracy() != 1 {
		t.Errorf("Accuracy() = %v, want 1", report.Accuracy())
	}

	rows := report.Rows()
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Assigned != row.Subject || !row.Correct {
			t.Errorf("%s/%s assigned to %s", row.Subject, row.ID, row.Assigned)
		}
		own := slices.Index(report.Models, row.Subject)
		other := 1 - own
		if row.MSE[own] >= row.MSE[other] {
			t.Errorf("%s/%s: own MSE %v not below %v", row.Subject, row.ID, row.MSE[own], row.MSE[other])
		}
		if !slices.Contains(p.Subjects[own].Train, row.NearestSample) {
			t.Errorf("%s/%s: nearest sample %q is not a training sample", row.Subject, row.ID, row.NearestSample)
		}
	}
}

func TestTest_NearestFindsDuplicate(t *testing.T) {
	p, sources := fixture()
	p.Subjects[0].Test = []string{"copy-of-4"}
	p.Subjects[1].Test = nil
	sources["arnold"]["copy-of-4"] = sources["arnold"]["4"]

	_, report, err := Evaluate(p, sourceFunc(sources))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(report.Subjects) != 1 {
		t.Fatalf("expected only arnold to be tested, got %d subjects", len(report.Subjects))
	}
	match := report.Subjects[0].Nearest[0]
	if match.SampleID != "4" || match.Distance > 1e-9 {
		t.Errorf("nearest = %+v, want sample 4 at distance 0", match)
	}
}

func TestTest_ModelOrderDoesNotChangeOutcome(t *testing.T) {
	p, sources := fixture()
	recs, err := Train(p, sourceFunc(sources))
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	report, err := Test(p, sourceFunc(sources), []*modelstore.Record{recs[1], recs[0]})
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	if report.Models[0] != "barack" || report.Correct != 6 {
		t.Errorf("models %v, correct %d", report.Models, report.Correct)
	}
}

func TestTest_Errors(t *testing.T) {
	p, sources := fixture()
	recs, _ := Train(p, sourceFunc(sources))

	if _, err := Test(p, sourceFunc(sources), nil); !errors.Is(err, eigenface.ErrNoModels) {
		t.Errorf("expected ErrNoModels, got %v", err)
	}
	if _, err := Test(p, sourceFunc(sources), recs[:1]); !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("expected ErrUnknownSubject, got %v", err)
	}

	delete(sources["barack"], "9")
	report, err := Test(p, sourceFunc(sources), recs)
	if !errors.Is(err, eigenface.ErrMissingSample) {
		t.Fatalf("expected ErrMissingSample, got %v", err)
	}
	if report != nil {
		t.Error("expected no partial report")
	}
	if !strings.Contains(err.Error(), "barack") || !strings.Contains(err.Error(), "9") {
		t.Errorf("error should name subject and sample: %v", err)
	}
}

func TestTrain_Errors(t *testing.T) {
	t.Run("too many components", func(t *testing.T) {
		p, sources := fixture()
		p.ComponentCount = 7
		_, err := Train(p, sourceFunc(sources))
		var kerr *eigenface.InvalidComponentCountError
		if !errors.As(err, &kerr) || kerr.K != 7 {
			t.Errorf("expected InvalidComponentCountError, got %v", err)
		}
	})

	t.Run("wrong crop size", func(t *testing.T) {
		p, sources := fixture()
		sources["barack"]["3"] = eigenface.NewGrid(roi+1, roi)
		_, err := Train(p, sourceFunc(sources))
		var dims *eigenface.DimensionMismatchError
		if !errors.As(err, &dims) || dims.ID != "3" {
			t.Errorf("expected DimensionMismatchError for 3, got %v", err)
		}
		if !strings.Contains(err.Error(), "barack") {
			t.Errorf("error should name the subject: %v", err)
		}
	})

	t.Run("single training sample", func(t *testing.T) {
		p, sources := fixture()
		p.ComponentCount = 1
		p.Subjects[0].Train = []string{"1"}
		_, err := Train(p, sourceFunc(sources))
		if !errors.Is(err, eigenface.ErrNumericInstability) {
			t.Errorf("expected ErrNumericInstability, got %v", err)
		}
	})
}

func TestReportOutput(t *testing.T) {
	p, sources := fixture()
	_, report, err := Evaluate(p, sourceFunc(sources))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	var table bytes.Buffer
	if err := report.WriteTable(&table); err != nil {
		t.Fatalf("WriteTable() error: %v", err)
	}
	out := table.String()
	for _, want := range []string{"MSE ARNOLD", "MSE BARACK", "6 out of 6 images correctly identified."} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	var mse bytes.Buffer
	report.WriteMSE(&mse)
	if !strings.Contains(mse.String(), "MSE: barack unseen compared to arnold model") {
		t.Errorf("unexpected MSE output:\n%s", mse.String())
	}

	var js bytes.Buffer
	if err := report.WriteJSON(&js); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	var decoded struct {
		Samples  []Row   `json:"samples"`
		Accuracy float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Samples) != 6 || decoded.Accuracy != 1 {
		t.Errorf("decoded %d samples, accuracy %v", len(decoded.Samples), decoded.Accuracy)
	}
}
