// Package period finds the dominant cycle lengths of a batch of sequences from the amplitude of
// their real discrete fourier transform.
package period

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/aouyang1/go-timesnet/tensor"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrInvalidInput   = errors.New("input must have shape (batch, time, channels) with non zero sizes")
	ErrTopKOutOfRange = errors.New("top k must be between 1 and half the sequence length")
)

// Options configures the spectral analysis.
type Options struct {
	// Window tapers every series before the transform, see WindowFunc. Empty uses the
	// rectangular window which leaves the series untouched.
	Window string `json:"window"`
}

func NewDefaultOptions() *Options {
	return &Options{Window: WindowRectangular}
}

// Result holds the detected periods in decreasing order of batch averaged amplitude along with
// the frequency bins they came from and the per batch item amplitude of each bin.
type Result struct {
	Periods     []int
	Frequencies []int
	Weights     *tensor.Tensor // (batch, k)
}

// Amplitudes returns the magnitude spectrum of x with shape (batch, T/2+1, channels).
func Amplitudes(x *tensor.Tensor, opt *Options) (*tensor.Tensor, error) {
	if x == nil || x.NDim() != 3 || x.Size() == 0 {
		return nil, ErrInvalidInput
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	batch, steps, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	bins := steps/2 + 1
	out := tensor.New(batch, bins, ch)

	winFunc := WindowFunc(opt.Window)
	fft := fourier.NewFFT(steps)
	seq := make([]float64, steps)
	coeff := make([]complex128, bins)
	data := x.Data()
	outData := out.Data()
	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			for t := 0; t < steps; t++ {
				seq[t] = data[(b*steps+t)*ch+c]
			}
			winFunc(seq)
			coeff = fft.Coefficients(coeff, seq)
			for f, v := range coeff {
				outData[(b*bins+f)*ch+c] = cmplx.Abs(v)
			}
		}
	}
	return out, nil
}

// Detect selects the k strongest non DC frequency bins of x (batch, time, channels) after
// averaging amplitudes over batch and channels. Each bin f maps to period T/f using integer
// division. Weights keep the batch axis and average the amplitude over channels only. Bins with
// equal amplitude are ordered by lower frequency first.
func Detect(x *tensor.Tensor, k int, opt *Options) (*Result, error) {
	if x == nil || x.NDim() != 3 || x.Size() == 0 {
		return nil, ErrInvalidInput
	}
	batch, steps, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	if k < 1 || k > steps/2 {
		return nil, fmt.Errorf("top k %d for sequence length %d, %w", k, steps, ErrTopKOutOfRange)
	}
	amp, err := Amplitudes(x, opt)
	if err != nil {
		return nil, err
	}
	bins := amp.Dim(1)
	ampData := amp.Data()

	total := make([]float64, bins)
	for b := 0; b < batch; b++ {
		for f := 0; f < bins; f++ {
			row := ampData[(b*bins+f)*ch : (b*bins+f+1)*ch]
			for _, v := range row {
				total[f] += v
			}
		}
	}
	// DC only shifts the level and never counts as a cycle
	candidates := make([]int, 0, bins-1)
	for f := 1; f < bins; f++ {
		candidates = append(candidates, f)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return total[candidates[i]] > total[candidates[j]]
	})
	top := candidates[:k]

	res := &Result{
		Periods:     make([]int, k),
		Frequencies: append([]int(nil), top...),
		Weights:     tensor.New(batch, k),
	}
	for i, f := range top {
		res.Periods[i] = steps / f
	}
	weights := res.Weights.Data()
	for b := 0; b < batch; b++ {
		for i, f := range top {
			row := ampData[(b*bins+f)*ch : (b*bins+f+1)*ch]
			var sum float64
			for _, v := range row {
				sum += v
			}
			weights[b*k+i] = sum / float64(ch)
		}
	}
	return res, nil
}

// PaddedLength returns the smallest multiple of p that is at least steps.
func PaddedLength(steps, p int) int {
	if steps%p == 0 {
		return steps
	}
	return (steps/p + 1) * p
}
