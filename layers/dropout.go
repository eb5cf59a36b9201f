package layers

import (
	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
)

// Dropout zeroes elements with probability Rate while training and rescales the survivors
// by 1/(1-Rate). Outside of training it returns its input unchanged.
type Dropout struct {
	Rate     float64
	Training bool

	rng *rand.Rand
}

func NewDropout(rate float64, src rand.Source) *Dropout {
	if src == nil {
		src = rand.NewSource(rand.Uint64())
	}
	return &Dropout{
		Rate: rate,
		rng:  rand.New(src),
	}
}

func (d *Dropout) Forward(x *tensor.Tensor) *tensor.Tensor {
	if !d.Training || d.Rate <= 0 {
		return x
	}
	out := tensor.New(x.Shape()...)
	if d.Rate >= 1 {
		return out
	}
	keep := 1 / (1 - d.Rate)
	src := x.Data()
	dst := out.Data()
	for i, v := range src {
		if d.rng.Float64() >= d.Rate {
			dst[i] = v * keep
		}
	}
	return out
}
