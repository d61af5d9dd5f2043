package eigenface

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestArgmin(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"empty", nil, -1},
		{"single", []float64{3}, 0},
		{"last wins", []float64{3, 2, 1}, 2},
		{"tie goes to lowest index", []float64{5, 1, 1, 2}, 1},
		{"all equal", []float64{4, 4, 4}, 0},
		{"leading NaN skipped", []float64{math.NaN(), 2, 1}, 2},
		{"NaN between", []float64{3, math.NaN(), 1}, 2},
		{"all NaN", []float64{math.NaN(), math.NaN()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Argmin(tt.values))
		})
	}
}

func TestAssign(t *testing.T) {
	scores := []ModelScore{
		{MSE: []float64{1, 9, 4}},
		{MSE: []float64{2, 3, 4}},
		{MSE: []float64{3, 3, 1}},
	}
	assert.Equal(t, []int{0, 1, 2}, Assign(scores))
	assert.Nil(t, Assign(nil))
}

func TestCountCorrect(t *testing.T) {
	correct, total := CountCorrect([]int{0, 1, 0, 0}, 0)
	assert.Equal(t, 3, correct)
	assert.Equal(t, 4, total)
}

func TestScoreModels_NoModels(t *testing.T) {
	_, err := Classify(mat.NewDense(1, 4, nil), nil)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestScoreModels_ShapeMismatchNamesModel(t *testing.T) {
	m := mustModel(t, population(4, gradient(4, 10), 1, 1), 2)
	_, err := ScoreModels(mat.NewDense(1, 9, nil), []*Model{m})
	require.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "model 0")
}

func TestClassify_OwnModelReconstructsBest(t *testing.T) {
	const width, height = 4, 4
	a := population(6, gradient(width*height, 255), 10, 21)
	b := population(6, checkerboard(width, height, 20, 230), 10, 22)
	modelA := mustModel(t, a, 5)
	modelB := mustModel(t, b, 5)

	res, err := Classify(a, []*Model{modelA, modelB})
	require.NoError(t, err)
	require.Len(t, res.Scores, 2)
	for i := range 6 {
		assert.Less(t, res.Scores[0].MSE[i], res.Scores[1].MSE[i], "sample %d", i)
	}
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, res.Assigned)

	res, err = Classify(b, []*Model{modelA, modelB})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, res.Assigned)
}

func TestClassify_HeldOutSamples(t *testing.T) {
	const width, height = 5, 5
	modelA := mustModel(t, population(8, gradient(width*height, 255), 12, 31), 5)
	modelB := mustModel(t, population(8, checkerboard(width, height, 0, 255), 12, 32), 5)

	testA := population(3, gradient(width*height, 255), 12, 41)
	testB := population(4, checkerboard(width, height, 0, 255), 12, 42)

	resA, err := Classify(testA, []*Model{modelA, modelB})
	require.NoError(t, err)
	resB, err := Classify(testB, []*Model{modelA, modelB})
	require.NoError(t, err)

	correctA, totalA := CountCorrect(resA.Assigned, 0)
	correctB, totalB := CountCorrect(resB.Assigned, 1)
	assert.Equal(t, totalA, correctA)
	assert.Equal(t, totalB, correctB)
}

func TestClassify_Deterministic(t *testing.T) {
	modelA := mustModel(t, population(6, gradient(9, 255), 12, 1), 3)
	modelB := mustModel(t, population(6, checkerboard(3, 3, 0, 255), 12, 2), 3)
	x := population(3, gradient(9, 200), 30, 3)

	first, err := Classify(x, []*Model{modelA, modelB})
	require.NoError(t, err)
	second, err := Classify(x, []*Model{modelA, modelB})
	require.NoError(t, err)

	assert.Equal(t, first.Assigned, second.Assigned)
	for i := range first.Scores {
		assert.Equal(t, first.Scores[i].MSE, second.Scores[i].MSE)
		assert.True(t, mat.Equal(first.Scores[i].Reconstruction, second.Scores[i].Reconstruction))
	}
}

// constantScenario trains an all-zero and an all-255 subject on six
// width×height grids each and classifies two near-zero crops.
func constantScenario(t *testing.T, width, height int) {
	t.Helper()
	const k = 5
	srcA, idsA := constantSource(6, width, height, 0)
	srcB, idsB := constantSource(6, width, height, 255)

	xa, err := BuildDataMatrix(idsA, srcA, width, height)
	require.NoError(t, err)
	xb, err := BuildDataMatrix(idsB, srcB, width, height)
	require.NoError(t, err)
	modelA := mustModel(t, xa, k)
	modelB := mustModel(t, xb, k)
	assertOrthonormal(t, modelA.Eigenvectors())

	test := MapSource{"7": NewGrid(width, height), "8": NewGrid(width, height)}
	for i := range test["8"].Pix {
		test["8"].Pix[i] = 1
	}
	xt, err := BuildDataMatrix([]string{"7", "8"}, test, width, height)
	require.NoError(t, err)

	res, err := Classify(xt, []*Model{modelA, modelB})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, res.Assigned)
	for i := range 2 {
		assert.LessOrEqual(t, res.Scores[0].MSE[i], 1.0+1e-9, "MSE_A sample %d", i)
		assert.InEpsilon(t, 255.0*255.0, res.Scores[1].MSE[i], 0.1, "MSE_B sample %d", i)
	}
	assert.InDelta(t, 0, res.Scores[0].MSE[0], 1e-12)
}

func TestClassify_ConstantSubjects(t *testing.T) {
	constantScenario(t, 10, 10)
}

func TestClassify_ConstantSubjectsFullROI(t *testing.T) {
	if testing.Short() {
		t.Skip("50x50 ROI decomposes a 2500x2500 covariance matrix")
	}
	constantScenario(t, 50, 50)
}
