package linearmodel

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

const DefaultLambda = 1e-3

// RidgeOptions represents input options to run the Ridge Regression
type RidgeOptions struct {
	// Lambda is the L2 multiplier on the coefficients. 0.0 results in ordinary least squares.
	Lambda float64

	// FitIntercept learns an unpenalized per target offset when set to true
	FitIntercept bool
}

// Validate runs basic validation on Ridge options
func (r *RidgeOptions) Validate() (*RidgeOptions, error) {
	if r == nil {
		r = NewDefaultRidgeOptions()
	}
	if r.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	return r, nil
}

// NewDefaultRidgeOptions returns a default set of Ridge Regression options
func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		Lambda:       DefaultLambda,
		FitIntercept: true,
	}
}

// RidgeRegression solves the multi-output ridge problem with a least squares solve on the
// design matrix augmented by sqrt(lambda) times the identity.
type RidgeRegression struct {
	opt       *RidgeOptions
	coef      *mat.Dense // (features, targets)
	intercept []float64
}

// NewRidgeRegression initializes a ridge model ready for fitting
func NewRidgeRegression(opt *RidgeOptions) (*RidgeRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data with one target per column of y
func (r *RidgeRegression) Fit(x, y mat.Matrix) error {
	if r == nil || r.opt == nil {
		return ErrNoOptions
	}
	if err := validateXY(x, y); err != nil {
		return err
	}
	m, n := x.Dims()
	_, k := y.Dims()

	var xMeans, yMeans []float64
	if r.opt.FitIntercept {
		x, xMeans = centerColumns(x)
		y, yMeans = centerColumns(y)
	}

	aug := mat.NewDense(m+n, n, nil)
	aug.Slice(0, m, 0, n).(*mat.Dense).Copy(x)
	penalty := math.Sqrt(r.opt.Lambda)
	for j := 0; j < n; j++ {
		aug.Set(m+j, j, penalty)
	}
	target := mat.NewDense(m+n, k, nil)
	target.Slice(0, m, 0, k).(*mat.Dense).Copy(y)

	coef := mat.NewDense(n, k, nil)
	if err := coef.Solve(aug, target); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("unable to solve ridge system, %w", err)
		}
		slog.Warn("ill conditioned ridge system", "lambda", r.opt.Lambda, "error", err.Error())
	}
	r.coef = coef

	r.intercept = make([]float64, k)
	if r.opt.FitIntercept {
		for j := 0; j < k; j++ {
			r.intercept[j] = yMeans[j]
			for i := 0; i < n; i++ {
				r.intercept[j] -= xMeans[i] * coef.At(i, j)
			}
		}
	}
	return nil
}

// Predict using the Ridge model, returning one column per target
func (r *RidgeRegression) Predict(x mat.Matrix) (*mat.Dense, error) {
	if r == nil || r.opt == nil {
		return nil, ErrNoOptions
	}
	if r.coef == nil {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	cn, k := r.coef.Dims()
	if n != cn {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, cn, ErrFeatureLenMismatch)
	}
	res := mat.NewDense(m, k, nil)
	res.Mul(x, r.coef)
	for i := 0; i < m; i++ {
		row := res.RawRowView(i)
		for j := range row {
			row[j] += r.intercept[j]
		}
	}
	return res, nil
}

// Score computes the coefficient of determination averaged over the targets that vary
func (r *RidgeRegression) Score(x, y mat.Matrix) (float64, error) {
	if err := validateXY(x, y); err != nil {
		return 0.0, err
	}
	res, err := r.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return rSquared(res, y), nil
}

// Intercept returns the per target intercepts. All zero if FitIntercept is false.
func (r *RidgeRegression) Intercept() []float64 {
	if r == nil {
		return nil
	}
	return append([]float64(nil), r.intercept...)
}

// Coef returns a (features, targets) copy of the trained coefficients.
func (r *RidgeRegression) Coef() *mat.Dense {
	if r == nil || r.coef == nil {
		return nil
	}
	return mat.DenseCopyOf(r.coef)
}

// Lambda returns the regularization the model was fit with.
func (r *RidgeRegression) Lambda() float64 {
	if r == nil || r.opt == nil {
		return 0
	}
	return r.opt.Lambda
}
