package layers

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-timesnet/tensor"
)

const DefaultLayerNormEps = 1e-5

// LayerNorm normalizes over the last axis and applies a learned scale and shift.
type LayerNorm struct {
	Dim int
	Eps float64

	Gamma *tensor.Tensor
	Beta  *tensor.Tensor
}

func NewLayerNorm(dim int) *LayerNorm {
	l := &LayerNorm{
		Dim:   dim,
		Eps:   DefaultLayerNormEps,
		Gamma: tensor.New(dim),
		Beta:  tensor.New(dim),
	}
	g := l.Gamma.Data()
	for i := range g {
		g[i] = 1
	}
	return l
}

func (l *LayerNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	last := x.NDim() - 1
	if last < 0 || x.Dim(last) != l.Dim {
		panic(fmt.Errorf("layer norm over %d features, got shape %v, %w", l.Dim, x.Shape(), ErrInputChannels))
	}
	out := x.Clone()
	data := out.Data()
	gamma := l.Gamma.Data()
	beta := l.Beta.Data()
	n := float64(l.Dim)
	for start := 0; start < len(data); start += l.Dim {
		row := data[start : start+l.Dim]
		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= n
		var variance float64
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= n
		inv := 1 / math.Sqrt(variance+l.Eps)
		for i, v := range row {
			row[i] = (v-mean)*inv*gamma[i] + beta[i]
		}
	}
	return out
}

func (l *LayerNorm) Parameters() []Param {
	return []Param{
		{Name: "gamma", Value: l.Gamma},
		{Name: "beta", Value: l.Beta},
	}
}
