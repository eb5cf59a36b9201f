package linearmodel

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const DefaultHoldoutFraction = 0.2

// RidgeAutoOptions represents input options to run the Ridge Regression with automated lambda
// selection
type RidgeAutoOptions struct {
	// Lambdas are the candidate L2 multipliers. Each is fit on the leading rows and scored on the
	// trailing HoldoutFraction of rows.
	Lambdas []float64

	// FitIntercept learns an unpenalized per target offset when set to true
	FitIntercept bool

	// Parallelization bounds the number of candidates fit at once
	Parallelization int

	// HoldoutFraction of trailing rows used to score each candidate. 0 scores on the training rows.
	HoldoutFraction float64
}

// Validate runs basic validation on the automated Ridge options
func (r *RidgeAutoOptions) Validate() (*RidgeAutoOptions, error) {
	if r == nil {
		r = NewDefaultRidgeAutoOptions()
	}
	if len(r.Lambdas) == 0 {
		return nil, ErrNoLambdas
	}
	for _, lambda := range r.Lambdas {
		if lambda < 0 {
			return nil, fmt.Errorf("lambda %f, %w", lambda, ErrNegativeLambda)
		}
	}
	if r.HoldoutFraction < 0 || r.HoldoutFraction >= 1 {
		return nil, fmt.Errorf("holdout fraction %f, %w", r.HoldoutFraction, ErrInvalidHoldout)
	}
	if r.Parallelization < 1 {
		r.Parallelization = 1
	}
	return r, nil
}

// NewDefaultRidgeAutoOptions returns a default set of automated Ridge Regression options
func NewDefaultRidgeAutoOptions() *RidgeAutoOptions {
	return &RidgeAutoOptions{
		Lambdas:         []float64{0, 1e-4, 1e-3, 1e-2, 1e-1, 1, 10},
		FitIntercept:    true,
		Parallelization: 1,
		HoldoutFraction: DefaultHoldoutFraction,
	}
}

// RidgeAutoRegression searches the candidate lambdas in parallel and refits the best one on
// every row.
type RidgeAutoRegression struct {
	opt *RidgeAutoOptions

	scoreMu    sync.Mutex
	bestScore  float64
	bestLambda float64
	bestModel  *RidgeRegression
}

// NewRidgeAutoRegression initializes a Ridge model ready for fitting using automated lambda
// parameter selection
func NewRidgeAutoRegression(opt *RidgeAutoOptions) (*RidgeAutoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeAutoRegression{
		opt:       opt,
		bestScore: math.Inf(-1),
	}, nil
}

// Fit the model according to the given training data
func (r *RidgeAutoRegression) Fit(x, y mat.Matrix) error {
	if r == nil || r.opt == nil {
		return ErrNoOptions
	}
	if err := validateXY(x, y); err != nil {
		return err
	}
	m, _ := x.Dims()

	trainX, trainY, holdX, holdY := x, y, x, y
	holdout := int(float64(m) * r.opt.HoldoutFraction)
	if holdout > 0 && m-holdout > 0 {
		trainX, trainY = rowRange(x, 0, m-holdout), rowRange(y, 0, m-holdout)
		holdX, holdY = rowRange(x, m-holdout, m), rowRange(y, m-holdout, m)
	}

	r.bestScore = math.Inf(-1)
	r.bestModel = nil

	sem := make(chan struct{}, r.opt.Parallelization)
	var wg sync.WaitGroup
	for _, lambda := range r.opt.Lambdas {
		sem <- struct{}{}
		wg.Add(1)

		go r.runRidge(lambda, trainX, trainY, holdX, holdY, &wg, sem)
	}
	wg.Wait()

	if r.bestModel == nil {
		return fmt.Errorf("no lambda produced a valid fit, %w", ErrNotFitted)
	}

	best, err := NewRidgeRegression(&RidgeOptions{
		Lambda:       r.bestLambda,
		FitIntercept: r.opt.FitIntercept,
	})
	if err != nil {
		return err
	}
	if err := best.Fit(x, y); err != nil {
		return fmt.Errorf("unable to refit best lambda %f, %w", r.bestLambda, err)
	}
	r.bestModel = best
	return nil
}

func (r *RidgeAutoRegression) runRidge(lambda float64, x, y, holdX, holdY mat.Matrix, wg *sync.WaitGroup, sem chan struct{}) {
	defer func() {
		wg.Done()
		<-sem
	}()

	reg, err := NewRidgeRegression(&RidgeOptions{
		Lambda:       lambda,
		FitIntercept: r.opt.FitIntercept,
	})
	if err != nil {
		slog.Error("unable to initialize ridge regression", "lambda", lambda, "error", err.Error())
		return
	}
	if err := reg.Fit(x, y); err != nil {
		slog.Error("unable to fit ridge regression", "lambda", lambda, "error", err.Error())
		return
	}
	score, err := reg.Score(holdX, holdY)
	if err != nil {
		slog.Error("unable to compute fit score for ridge regression", "lambda", lambda, "error", err.Error())
		return
	}
	if math.IsNaN(score) {
		slog.Warn("skipping lambda with undefined score", "lambda", lambda)
		return
	}

	r.scoreMu.Lock()
	defer r.scoreMu.Unlock()
	// ties go to the larger lambda so the result does not depend on goroutine order
	if score > r.bestScore || (score == r.bestScore && lambda > r.bestLambda) {
		r.bestScore = score
		r.bestLambda = lambda
		r.bestModel = reg
	}
}

// Predict using the best Ridge model
func (r *RidgeAutoRegression) Predict(x mat.Matrix) (*mat.Dense, error) {
	if r == nil || r.bestModel == nil {
		return nil, ErrNotFitted
	}
	return r.bestModel.Predict(x)
}

// Score computes the coefficient of determination of the prediction
func (r *RidgeAutoRegression) Score(x, y mat.Matrix) (float64, error) {
	if r == nil || r.bestModel == nil {
		return 0.0, ErrNotFitted
	}
	return r.bestModel.Score(x, y)
}

// Intercept returns the per target intercepts of the best model.
func (r *RidgeAutoRegression) Intercept() []float64 {
	if r == nil || r.bestModel == nil {
		return nil
	}
	return r.bestModel.Intercept()
}

// Coef returns the (features, targets) coefficients of the best model.
func (r *RidgeAutoRegression) Coef() *mat.Dense {
	if r == nil || r.bestModel == nil {
		return nil
	}
	return r.bestModel.Coef()
}

// BestLambda is the selected regularization.
func (r *RidgeAutoRegression) BestLambda() float64 {
	return r.bestLambda
}

// BestScore is the holdout coefficient of determination of the selected regularization.
func (r *RidgeAutoRegression) BestScore() float64 {
	return r.bestScore
}
