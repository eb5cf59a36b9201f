// Package layers contains the CPU building blocks of the network: convolutions, linear maps,
// normalization, activations and dropout over tensor.Tensor values.
package layers

import (
	"errors"
	"math"

	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInputRank     = errors.New("input tensor has wrong number of axes")
	ErrInputChannels = errors.New("input channel count does not match layer")
	ErrOutputEmpty   = errors.New("convolution output has no spatial extent")
)

// Module transforms a tensor into another tensor of the same rank.
type Module interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
}

// Sequential feeds x through every module in order.
func Sequential(x *tensor.Tensor, modules ...Module) *tensor.Tensor {
	for _, m := range modules {
		x = m.Forward(x)
	}
	return x
}

// Param is a named learnable tensor.
type Param struct {
	Name  string
	Value *tensor.Tensor
}

// Parameterized is implemented by any layer that owns learnable tensors.
type Parameterized interface {
	Parameters() []Param
}

// Prefix returns the parameters of p with prefix and a dot prepended to every name.
func Prefix(prefix string, p Parameterized) []Param {
	params := p.Parameters()
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Name: prefix + "." + p.Name, Value: p.Value}
	}
	return out
}

// ReLUGain is the kaiming gain for a rectifier, also used for a leaky rectifier with a zero slope.
var ReLUGain = math.Sqrt2

// KaimingNormal fills t with samples from N(0, (gain/sqrt(fan))^2).
func KaimingNormal(t *tensor.Tensor, fan int, gain float64, src rand.Source) {
	if fan < 1 {
		fan = 1
	}
	dist := distuv.Normal{
		Mu:    0,
		Sigma: gain / math.Sqrt(float64(fan)),
		Src:   src,
	}
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
}

// Uniform fills t with samples from U(-bound, bound).
func Uniform(t *tensor.Tensor, bound float64, src rand.Source) {
	data := t.Data()
	if bound <= 0 {
		for i := range data {
			data[i] = 0
		}
		return
	}
	dist := distuv.Uniform{
		Min: -bound,
		Max: bound,
		Src: src,
	}
	for i := range data {
		data[i] = dist.Rand()
	}
}
