package linearmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func validateXY(x, y mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return nil
}

// centerColumns returns a copy of x with every column mean removed along with the means.
func centerColumns(x mat.Matrix) (*mat.Dense, []float64) {
	m, n := x.Dims()
	out := mat.NewDense(m, n, nil)
	means := make([]float64, n)
	col := make([]float64, m)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
		for i := range col {
			col[i] -= means[j]
		}
		out.SetCol(j, col)
	}
	return out, means
}

// rowRange copies rows [start, end) of x.
func rowRange(x mat.Matrix, start, end int) *mat.Dense {
	_, n := x.Dims()
	out := mat.NewDense(end-start, n, nil)
	for i := start; i < end; i++ {
		for j := 0; j < n; j++ {
			out.Set(i-start, j, x.At(i, j))
		}
	}
	return out
}

// rSquared averages the coefficient of determination over every target column that varies.
// Constant targets have no defined r squared and are skipped. NaN is returned when no column varies.
func rSquared(pred, y mat.Matrix) float64 {
	m, k := y.Dims()
	est := make([]float64, m)
	val := make([]float64, m)
	var total float64
	var cnt int
	for j := 0; j < k; j++ {
		mat.Col(val, j, y)
		if stat.Variance(val, nil) == 0 {
			continue
		}
		mat.Col(est, j, pred)
		total += stat.RSquaredFrom(est, val, nil)
		cnt++
	}
	if cnt == 0 {
		return math.NaN()
	}
	return total / float64(cnt)
}
