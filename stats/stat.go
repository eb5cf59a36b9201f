// Package stats holds small statistics helpers shared by data preparation and the forecaster.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidPercentiles = errors.New("outlier percentiles must satisfy 0 <= lower <= upper <= 1")
	ErrNegativeNumPasses  = errors.New("number of outlier passes must not be negative")
	ErrNegativeTukey      = errors.New("tukey factor must not be negative")
)

// OutlierOptions configures repeated Tukey fence outlier removal.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Validate returns a copy of the options or an error when the fence cannot be built.
func (o *OutlierOptions) Validate() (*OutlierOptions, error) {
	if o == nil {
		return NewOutlierOptions(), nil
	}
	opt := *o
	if opt.LowerPercentile < 0 || opt.UpperPercentile > 1 || opt.LowerPercentile > opt.UpperPercentile {
		return nil, fmt.Errorf("lower=%g upper=%g, %w", opt.LowerPercentile, opt.UpperPercentile, ErrInvalidPercentiles)
	}
	if opt.NumPasses < 0 {
		return nil, fmt.Errorf("num_passes=%d, %w", opt.NumPasses, ErrNegativeNumPasses)
	}
	if opt.TukeyFactor < 0 {
		return nil, fmt.Errorf("tukey_factor=%g, %w", opt.TukeyFactor, ErrNegativeTukey)
	}
	return &opt, nil
}

// Detect runs DetectOutliers with the configured fence.
func (o *OutlierOptions) Detect(y []float64) []int {
	if o == nil {
		o = NewOutlierOptions()
	}
	return DetectOutliers(y, o.LowerPercentile, o.UpperPercentile, o.TukeyFactor)
}

// DetectOutliers returns the indices of values outside the Tukey fence built from the lowerPerc
// and upperPerc quantiles widened by tukeyFactor times their range.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	if len(y) == 0 {
		return nil
	}
	lowerPerc = clamp(lowerPerc, 0.0, 1.0)
	upperPerc = clamp(upperPerc, lowerPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	sort.Float64s(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy)) * upperPerc))
	lowerIdx = min(lowerIdx, len(yCopy)-1)
	upperIdx = min(upperIdx, len(yCopy)-1)

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
