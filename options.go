package forecaster

import (
	"fmt"

	"github.com/aouyang1/go-timesnet/linearmodel"
	"github.com/aouyang1/go-timesnet/stats"
	"github.com/aouyang1/go-timesnet/timesnet"
)

const (
	DefaultParallelization = 4
	DefaultStride          = 1
	DefaultBatchSize       = 32
	DefaultResidualZscore  = 4.0
)

// Options configures the network architecture and how its projection head is fit. EncIn and COut
// of ModelOptions are derived from the training data at fit time.
type Options struct {
	ModelOptions *timesnet.Options `json:"model_options"`

	// Lambdas are the ridge regularization candidates searched for the projection head.
	Lambdas         []float64 `json:"lambdas"`
	Parallelization int       `json:"parallelization"`
	HoldoutFraction float64   `json:"holdout_fraction"`

	// Stride is the step between consecutive training windows.
	Stride int `json:"stride"`

	// BatchSize bounds the number of windows encoded at once.
	BatchSize int `json:"batch_size"`

	OutlierOptions *stats.OutlierOptions `json:"outlier_options"`
	ResidualZscore float64               `json:"residual_zscore"`
}

// NewDefaultOptions returns the default network with outlier removal and a 4 sigma band.
func NewDefaultOptions() *Options {
	ridge := linearmodel.NewDefaultRidgeAutoOptions()
	return &Options{
		ModelOptions:    timesnet.NewDefaultOptions(),
		Lambdas:         ridge.Lambdas,
		Parallelization: DefaultParallelization,
		HoldoutFraction: ridge.HoldoutFraction,
		Stride:          DefaultStride,
		BatchSize:       DefaultBatchSize,
		OutlierOptions:  stats.NewOutlierOptions(),
		ResidualZscore:  DefaultResidualZscore,
	}
}

// Validate returns a copy of the options with defaults filled in.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	opt := *o

	if opt.ModelOptions == nil {
		opt.ModelOptions = timesnet.NewDefaultOptions()
	}
	modelOpt := *opt.ModelOptions
	modelOpt.EncIn, modelOpt.COut = 1, 1
	validated, err := modelOpt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid model options, %w", err)
	}
	opt.ModelOptions = validated

	if len(opt.Lambdas) == 0 {
		opt.Lambdas = linearmodel.NewDefaultRidgeAutoOptions().Lambdas
	}
	opt.Lambdas = append([]float64(nil), opt.Lambdas...)
	if opt.Parallelization < 1 {
		opt.Parallelization = 1
	}
	if opt.Stride < 1 {
		opt.Stride = DefaultStride
	}
	if opt.BatchSize < 1 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.ResidualZscore <= 0 {
		opt.ResidualZscore = DefaultResidualZscore
	}
	if opt.OutlierOptions != nil {
		outlierOpt, err := opt.OutlierOptions.Validate()
		if err != nil {
			return nil, fmt.Errorf("invalid outlier options, %w", err)
		}
		opt.OutlierOptions = outlierOpt
	}

	if _, err := opt.ridgeOptions().Validate(); err != nil {
		return nil, fmt.Errorf("invalid head options, %w", err)
	}
	return &opt, nil
}

func (o *Options) ridgeOptions() *linearmodel.RidgeAutoOptions {
	return &linearmodel.RidgeAutoOptions{
		Lambdas:         o.Lambdas,
		FitIntercept:    true,
		Parallelization: o.Parallelization,
		HoldoutFraction: o.HoldoutFraction,
	}
}
