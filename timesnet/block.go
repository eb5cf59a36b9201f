package timesnet

import (
	"fmt"

	"github.com/aouyang1/go-timesnet/floatsunrolled"
	"github.com/aouyang1/go-timesnet/inception"
	"github.com/aouyang1/go-timesnet/layers"
	"github.com/aouyang1/go-timesnet/period"
	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
)

// TimesBlock folds a sequence into a (cycles, phase) grid for each dominant period, convolves
// the grid and recombines the per period results weighted by their spectral amplitude.
type TimesBlock struct {
	TopK     int
	Spectral *period.Options

	Conv1 *inception.Block // d_model -> d_ff
	Act   layers.GELU
	Conv2 *inception.Block // d_ff -> d_model
}

func NewTimesBlock(opt *Options, src rand.Source) (*TimesBlock, error) {
	conv1, err := inception.New(opt.Inception, opt.DModel, opt.DFF, opt.NumKernels, src)
	if err != nil {
		return nil, fmt.Errorf("unable to build first inception block, %w", err)
	}
	conv2, err := inception.New(opt.Inception, opt.DFF, opt.DModel, opt.NumKernels, src)
	if err != nil {
		return nil, fmt.Errorf("unable to build second inception block, %w", err)
	}
	return &TimesBlock{
		TopK:     opt.TopK,
		Spectral: &period.Options{Window: opt.SpectralWindow},
		Conv1:    conv1,
		Conv2:    conv2,
	}, nil
}

// Forward maps x (batch, time, channels) to a tensor of the same shape.
func (tb *TimesBlock) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	detected, err := period.Detect(x, tb.TopK, tb.Spectral)
	if err != nil {
		return nil, fmt.Errorf("unable to detect periods, %w", err)
	}
	batch := x.Dim(0)

	branches := make([]*tensor.Tensor, len(detected.Periods))
	for i, p := range detected.Periods {
		branches[i] = tb.fold(x, p)
	}

	weights := layers.Softmax(detected.Weights).Data()
	k := len(branches)

	// residual
	out := x.Clone()
	outData := out.Data()
	block := out.Size() / batch
	for b := 0; b < batch; b++ {
		dst := outData[b*block : (b+1)*block]
		for i, br := range branches {
			floatsunrolled.AddScaled(dst, weights[b*k+i], br.Data()[b*block:(b+1)*block])
		}
	}
	return out, nil
}

// fold pads x at the end to a multiple of p, lays it out as (batch, channels, cycles, p), runs
// the convolutions and crops the result back to the input length.
func (tb *TimesBlock) fold(x *tensor.Tensor, p int) *tensor.Tensor {
	batch, steps, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	length := period.PaddedLength(steps, p)
	padded := x
	if length != steps {
		padded = x.Pad(1, length-steps)
	}

	grid := padded.Reshape(batch, length/p, p, ch).Permute(0, 3, 1, 2)
	grid = layers.Sequential(grid, tb.Conv1, tb.Act, tb.Conv2)

	flat := grid.Permute(0, 2, 3, 1).Reshape(batch, length, ch)
	if length == steps {
		return flat
	}
	return flat.Narrow(1, 0, steps)
}

func (tb *TimesBlock) Parameters() []layers.Param {
	params := layers.Prefix("conv1", tb.Conv1)
	return append(params, layers.Prefix("conv2", tb.Conv2)...)
}
