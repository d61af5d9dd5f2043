package eigenface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ModelScore is the outcome of reconstructing a batch under one model.
type ModelScore struct {
	Projection     *mat.Dense // N×k
	Reconstruction *mat.Dense // N×P
	MSE            []float64  // per sample, against the uncentered input
}

// Classification holds one score per model, in model order, and the index
// of the winning model for every sample.
type Classification struct {
	Scores   []ModelScore
	Assigned []int
}

// ScoreModels reconstructs every sample of x under every model and measures
// the reconstruction error against x itself.
func ScoreModels(x mat.Matrix, models []*Model) ([]ModelScore, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	scores := make([]ModelScore, len(models))
	for i, m := range models {
		z, r, err := ReconstructRelative(x, m)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		mse, err := RowMSE(x, r)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		scores[i] = ModelScore{Projection: z, Reconstruction: r, MSE: mse}
	}
	return scores, nil
}

// Argmin returns the index of the smallest value; ties go to the lowest
// index. NaN never wins unless every value is NaN, then index 0 does.
// It returns -1 for an empty slice.
func Argmin(values []float64) int {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < values[best] {
			best = i
		}
	}
	if best < 0 && len(values) > 0 {
		return 0
	}
	return best
}

// Assign picks, for every sample, the model with the lowest MSE.
func Assign(scores []ModelScore) []int {
	if len(scores) == 0 {
		return nil
	}
	n := len(scores[0].MSE)
	assigned := make([]int, n)
	column := make([]float64, len(scores))
	for i := range n {
		for m := range scores {
			column[m] = scores[m].MSE[i]
		}
		assigned[i] = Argmin(column)
	}
	return assigned
}

// Classify scores x against the models and assigns each sample to the
// model that reconstructs it best.
func Classify(x mat.Matrix, models []*Model) (*Classification, error) {
	scores, err := ScoreModels(x, models)
	if err != nil {
		return nil, err
	}
	return &Classification{Scores: scores, Assigned: Assign(scores)}, nil
}

// CountCorrect returns how many assignments equal want, and the total.
func CountCorrect(assigned []int, want int) (correct, total int) {
	for _, a := range assigned {
		if a == want {
			correct++
		}
	}
	return correct, len(assigned)
}
