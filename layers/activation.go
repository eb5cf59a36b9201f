package layers

import (
	"math"

	"github.com/aouyang1/go-timesnet/tensor"
	"gonum.org/v1/gonum/floats"
)

// GELU is the exact gaussian error linear unit.
type GELU struct{}

func (GELU) Forward(x *tensor.Tensor) *tensor.Tensor {
	return x.Apply(gelu)
}

func gelu(v float64) float64 {
	return 0.5 * v * (1 + math.Erf(v/math.Sqrt2))
}

// SoftmaxVec writes the softmax of s into dst, allocating when dst is nil.
func SoftmaxVec(dst, s []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(s))
	}
	if len(s) == 0 {
		return dst
	}
	maxVal := floats.Max(s)
	var sum float64
	for i, v := range s {
		e := math.Exp(v - maxVal)
		dst[i] = e
		sum += e
	}
	floats.Scale(1/sum, dst)
	return dst
}

// Softmax normalizes every slice along the last axis into weights summing to one.
func Softmax(x *tensor.Tensor) *tensor.Tensor {
	out := x.Clone()
	if x.NDim() == 0 || x.Size() == 0 {
		return out
	}
	n := x.Dim(x.NDim() - 1)
	data := out.Data()
	for start := 0; start < len(data); start += n {
		row := data[start : start+n]
		SoftmaxVec(row, row)
	}
	return out
}
