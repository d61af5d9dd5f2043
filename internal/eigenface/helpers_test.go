package eigenface

import (
	"math/rand"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// constantSource returns n width×height grids filled with value, keyed "1".."n".
func constantSource(n, width, height int, value float64) (MapSource, []string) {
	src := make(MapSource, n)
	ids := make([]string, n)
	for i := range n {
		g := NewGrid(width, height)
		for j := range g.Pix {
			g.Pix[j] = value
		}
		ids[i] = strconv.Itoa(i + 1)
		src[ids[i]] = g
	}
	return src, ids
}

// population draws n samples of p pixels around base with gaussian noise.
func population(n int, base []float64, noise float64, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, len(base), nil)
	for i := range n {
		for j, b := range base {
			x.Set(i, j, b+noise*rng.NormFloat64())
		}
	}
	return x
}

func gradient(p int, scale float64) []float64 {
	out := make([]float64, p)
	for i := range out {
		out[i] = scale * float64(i) / float64(p)
	}
	return out
}

func checkerboard(width, height int, lo, hi float64) []float64 {
	out := make([]float64, width*height)
	for y := range height {
		for x := range width {
			if (x+y)%2 == 0 {
				out[y*width+x] = lo
			} else {
				out[y*width+x] = hi
			}
		}
	}
	return out
}

func mustModel(t *testing.T, x mat.Matrix, k int) *Model {
	t.Helper()
	m, err := BuildModel(x, k)
	if err != nil {
		t.Fatalf("BuildModel(k=%d) error: %v", k, err)
	}
	return m
}
