package layers

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear applies y = x W^T + b over the last axis of a tensor of any rank.
type Linear struct {
	In  int
	Out int

	Weight *tensor.Tensor // (out, in)
	Bias   *tensor.Tensor // (out), nil when the layer has no bias
}

// NewLinear draws weight and bias from U(-1/sqrt(in), 1/sqrt(in)).
func NewLinear(in, out int, bias bool, src rand.Source) *Linear {
	l := &Linear{
		In:     in,
		Out:    out,
		Weight: tensor.New(out, in),
	}
	bound := 1 / math.Sqrt(float64(in))
	Uniform(l.Weight, bound, src)
	if bias {
		l.Bias = tensor.New(out)
		Uniform(l.Bias, bound, src)
	}
	return l
}

func (l *Linear) Forward(x *tensor.Tensor) *tensor.Tensor {
	if x.NDim() < 1 {
		panic(fmt.Errorf("linear expects at least 1 axis, %w", ErrInputRank))
	}
	last := x.NDim() - 1
	if x.Dim(last) != l.In {
		panic(fmt.Errorf("linear expects %d features, got %d, %w", l.In, x.Dim(last), ErrInputChannels))
	}
	outShape := x.Shape()
	outShape[last] = l.Out
	out := tensor.New(outShape...)
	rows := x.Size() / l.In
	if rows == 0 {
		return out
	}

	weight, err := l.Weight.Dense()
	if err != nil {
		panic(fmt.Errorf("linear weight, %w", err))
	}
	in := mat.NewDense(rows, l.In, x.Data())
	res := mat.NewDense(rows, l.Out, out.Data())
	res.Mul(in, weight.T())
	if l.Bias != nil {
		data := out.Data()
		bias := l.Bias.Data()
		for r := 0; r < rows; r++ {
			floats.Add(data[r*l.Out:(r+1)*l.Out], bias)
		}
	}
	return out
}

func (l *Linear) Parameters() []Param {
	params := []Param{{Name: "weight", Value: l.Weight}}
	if l.Bias != nil {
		params = append(params, Param{Name: "bias", Value: l.Bias})
	}
	return params
}
