package linearmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// generateData builds y = intercept + x * coef + noise with gaussian features.
func generateData(nObs int, coef [][]float64, intercept []float64, noise float64, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	nFeat := len(coef)
	nTarget := len(intercept)
	x := mat.NewDense(nObs, nFeat, nil)
	y := mat.NewDense(nObs, nTarget, nil)
	for i := 0; i < nObs; i++ {
		for j := 0; j < nFeat; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		for k := 0; k < nTarget; k++ {
			v := intercept[k] + noise*rng.NormFloat64()
			for j := 0; j < nFeat; j++ {
				v += x.At(i, j) * coef[j][k]
			}
			y.Set(i, k, v)
		}
	}
	return x, y
}

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept []float64, coef [][]float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDeltaSlice(t, intercept, model.Intercept(), tol, "intercept")

	c := model.Coef()
	require.NotNil(t, c)
	for j := range coef {
		assert.InDeltaSlice(t, coef[j], c.RawRowView(j), tol, "coefficients")
	}

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol, "score")
}

func TestRidgeRegression(t *testing.T) {
	coef := [][]float64{
		{1.5, -2},
		{0, 3},
		{-0.5, 0.25},
	}
	intercept := []float64{10, -4}

	testData := map[string]struct {
		opt          *RidgeOptions
		expIntercept []float64
		tol          float64
	}{
		"ordinary least squares": {
			opt:          &RidgeOptions{Lambda: 0, FitIntercept: true},
			expIntercept: intercept,
			tol:          1e-9,
		},
		"light penalty": {
			opt:          &RidgeOptions{Lambda: 1e-6, FitIntercept: true},
			expIntercept: intercept,
			tol:          1e-6,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, y := generateData(200, coef, intercept, 0, 1)
			model, err := NewRidgeRegression(td.opt)
			require.Nil(t, err)
			testModel(t, model, x, y, td.expIntercept, coef, td.tol)
		})
	}
}

func TestRidgeShrinks(t *testing.T) {
	coef := [][]float64{{2}, {-3}}
	x, y := generateData(100, coef, []float64{1}, 0.1, 2)

	prev := math.Inf(1)
	for _, lambda := range []float64{0, 10, 100, 1000} {
		model, err := NewRidgeRegression(&RidgeOptions{Lambda: lambda, FitIntercept: true})
		require.Nil(t, err)
		require.Nil(t, model.Fit(x, y))
		norm := mat.Norm(model.Coef(), 2)
		assert.Less(t, norm, prev)
		prev = norm
		assert.Equal(t, lambda, model.Lambda())
	}
}

func TestRidgeNoIntercept(t *testing.T) {
	coef := [][]float64{{2}, {-1}}
	x, y := generateData(50, coef, []float64{0}, 0, 3)
	model, err := NewRidgeRegression(&RidgeOptions{Lambda: 0, FitIntercept: false})
	require.Nil(t, err)
	testModel(t, model, x, y, []float64{0}, coef, 1e-9)

	pred, err := model.Predict(mat.NewDense(1, 2, []float64{1, 1}))
	require.Nil(t, err)
	assert.InDelta(t, 1, pred.At(0, 0), 1e-9)
}

func TestRidgeErrors(t *testing.T) {
	_, err := NewRidgeRegression(&RidgeOptions{Lambda: -1})
	assert.ErrorIs(t, err, ErrNegativeLambda)

	model, err := NewRidgeRegression(nil)
	require.Nil(t, err)

	_, err = model.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.ErrorIs(t, model.Fit(nil, mat.NewDense(1, 1, nil)), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(mat.NewDense(1, 1, nil), nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, model.Fit(mat.NewDense(2, 1, nil), mat.NewDense(3, 1, nil)), ErrTargetLenMismatch)

	x, y := generateData(20, [][]float64{{1}, {1}}, []float64{0}, 0.1, 4)
	require.Nil(t, model.Fit(x, y))
	_, err = model.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
	_, err = model.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)

	var empty *RidgeRegression
	assert.ErrorIs(t, empty.Fit(x, y), ErrNoOptions)
	assert.Nil(t, empty.Coef())
}

func TestRidgeAutoRegression(t *testing.T) {
	coef := [][]float64{
		{1, 0.5},
		{-2, 0},
		{0.5, 1},
	}
	intercept := []float64{3, -1}

	testData := map[string]struct {
		opt *RidgeAutoOptions
	}{
		"serial": {
			opt: &RidgeAutoOptions{
				Lambdas:         []float64{0, 1, 10, 100},
				FitIntercept:    true,
				Parallelization: 1,
				HoldoutFraction: 0.25,
			},
		},
		"parallel": {
			opt: &RidgeAutoOptions{
				Lambdas:         []float64{0, 1, 10, 100},
				FitIntercept:    true,
				Parallelization: 4,
				HoldoutFraction: 0.25,
			},
		},
		"score on training rows": {
			opt: &RidgeAutoOptions{
				Lambdas:      []float64{0, 1, 10, 100},
				FitIntercept: true,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, y := generateData(120, coef, intercept, 0, 5)
			model, err := NewRidgeAutoRegression(td.opt)
			require.Nil(t, err)
			testModel(t, model, x, y, intercept, coef, 1e-6)
			assert.Equal(t, 0.0, model.BestLambda())
			assert.InDelta(t, 1.0, model.BestScore(), 1e-9)
		})
	}
}

func TestRidgeAutoConstantTarget(t *testing.T) {
	coef := [][]float64{{2}, {-1}}
	x, varying := generateData(80, coef, []float64{1}, 0, 9)

	testData := map[string]struct {
		constCols int
		err       error
	}{
		"one constant column":  {constCols: 1},
		"two constant columns": {constCols: 2},
		"only constant columns": {
			constCols: 2,
			err:       ErrNotFitted,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cols := td.constCols
			if td.err == nil {
				cols++
			}
			y := mat.NewDense(80, cols, nil)
			for i := 0; i < 80; i++ {
				if td.err == nil {
					y.Set(i, 0, varying.At(i, 0))
				}
			}

			model, err := NewRidgeAutoRegression(&RidgeAutoOptions{
				Lambdas:         []float64{0, 1},
				FitIntercept:    true,
				Parallelization: 2,
				HoldoutFraction: 0.25,
			})
			require.Nil(t, err)
			err = model.Fit(x, y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, 1.0, model.BestScore(), 1e-9)
			assert.InDelta(t, 1.0, model.Intercept()[0], 1e-9)
			for j := 1; j < cols; j++ {
				assert.InDelta(t, 0.0, model.Intercept()[j], 1e-9)
				assert.InDelta(t, 0.0, model.Coef().At(0, j), 1e-9)
				assert.InDelta(t, 0.0, model.Coef().At(1, j), 1e-9)
			}
		})
	}
}

func TestRidgeAutoOptions(t *testing.T) {
	testData := map[string]struct {
		opt *RidgeAutoOptions
		err error
	}{
		"defaults":         {opt: nil},
		"no lambdas":       {opt: &RidgeAutoOptions{}, err: ErrNoLambdas},
		"negative lambda":  {opt: &RidgeAutoOptions{Lambdas: []float64{1, -1}}, err: ErrNegativeLambda},
		"holdout too high": {opt: &RidgeAutoOptions{Lambdas: []float64{1}, HoldoutFraction: 1}, err: ErrInvalidHoldout},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.GreaterOrEqual(t, opt.Parallelization, 1)
		})
	}

	var empty *RidgeAutoRegression
	_, err := empty.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNotFitted)
}

func BenchmarkRidgeAutoRegression(b *testing.B) {
	coef := make([][]float64, 64)
	for i := range coef {
		coef[i] = []float64{float64(i), -float64(i)}
	}
	x, y := generateData(2000, coef, []float64{1, 2}, 0.5, 6)
	opt := NewDefaultRidgeAutoOptions()
	opt.Parallelization = 4
	for b.Loop() {
		model, err := NewRidgeAutoRegression(opt)
		if err != nil {
			b.Fatal(err)
		}
		if err := model.Fit(x, y); err != nil {
			b.Fatal(err)
		}
	}
}
