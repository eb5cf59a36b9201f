// Package linearmodel contains closed form multi-output linear regressions used to fit the output
// projection of the forecasting network on frozen features.
package linearmodel

import (
	"gonum.org/v1/gonum/mat"
)

// Model maps a design matrix of n features to k targets.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) (*mat.Dense, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() []float64
	Coef() *mat.Dense
}
