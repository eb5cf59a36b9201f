package timesnet

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-timesnet/tensor"
)

// NormEps is added to the variance before taking the square root.
const NormEps = 1e-5

var ErrNormalizationShape = errors.New("tensor does not match normalization statistics")

// Normalization stores the per sequence statistics of every channel except the last one.
type Normalization struct {
	Means  [][]float64 // (batch, channels-1)
	Stdevs [][]float64 // (batch, channels-1)
}

// Normalize subtracts the time mean and divides by sqrt(population variance + NormEps) for every
// channel except the last of x (batch, time, channels). The last channel is copied untouched.
func Normalize(x *tensor.Tensor) (*tensor.Tensor, *Normalization) {
	batch, steps, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	out := x.Clone()
	data := out.Data()
	norm := &Normalization{
		Means:  make([][]float64, batch),
		Stdevs: make([][]float64, batch),
	}
	for b := 0; b < batch; b++ {
		means := make([]float64, ch-1)
		stdevs := make([]float64, ch-1)
		block := data[b*steps*ch : (b+1)*steps*ch]
		for c := 0; c < ch-1; c++ {
			var mean float64
			for t := 0; t < steps; t++ {
				mean += block[t*ch+c]
			}
			mean /= float64(steps)

			var variance float64
			for t := 0; t < steps; t++ {
				d := block[t*ch+c] - mean
				variance += d * d
			}
			variance /= float64(steps)
			std := math.Sqrt(variance + NormEps)
			for t := 0; t < steps; t++ {
				block[t*ch+c] = (block[t*ch+c] - mean) / std
			}
			means[c] = mean
			stdevs[c] = std
		}
		norm.Means[b] = means
		norm.Stdevs[b] = stdevs
	}
	return out, norm
}

// Denormalize scales and shifts every channel except the last of y (batch, time, channels) back
// to the original level over all of its rows. The last channel is left as is.
func (n *Normalization) Denormalize(y *tensor.Tensor) (*tensor.Tensor, error) {
	if y.NDim() != 3 || y.Dim(0) != len(n.Means) {
		return nil, fmt.Errorf("shape %v for batch %d, %w", y.Shape(), len(n.Means), ErrNormalizationShape)
	}
	batch, steps, ch := y.Dim(0), y.Dim(1), y.Dim(2)
	out := y.Clone()
	data := out.Data()
	for b := 0; b < batch; b++ {
		if ch-1 > len(n.Means[b]) {
			return nil, fmt.Errorf("%d channels with %d statistics, %w", ch, len(n.Means[b]), ErrNormalizationShape)
		}
		block := data[b*steps*ch : (b+1)*steps*ch]
		for t := 0; t < steps; t++ {
			row := block[t*ch : (t+1)*ch]
			for c := 0; c < ch-1; c++ {
				row[c] = row[c]*n.Stdevs[b][c] + n.Means[b][c]
			}
		}
	}
	return out, nil
}
