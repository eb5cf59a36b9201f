// Package inception implements multi-branch 2D convolution blocks that average the outputs of
// several kernel sizes over (batch, channels, cycles, phase) inputs.
package inception

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aouyang1/go-timesnet/floatsunrolled"
	"github.com/aouyang1/go-timesnet/layers"
	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
)

type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

var (
	ErrUnknownVersion  = errors.New("unknown inception version")
	ErrInvalidKernels  = errors.New("number of kernels must be positive")
	ErrInvalidChannels = errors.New("channel counts must be positive")
)

// Block is an ordered collection of same padded convolutions whose outputs are averaged.
type Block struct {
	Version     Version
	InChannels  int
	OutChannels int
	NumKernels  int

	Kernels []*layers.Conv2D
}

// New builds a block of the requested version.
func New(version Version, in, out, numKernels int, src rand.Source) (*Block, error) {
	if numKernels < 1 {
		return nil, fmt.Errorf("got %d kernels, %w", numKernels, ErrInvalidKernels)
	}
	if in < 1 || out < 1 {
		return nil, fmt.Errorf("in %d, out %d, %w", in, out, ErrInvalidChannels)
	}
	switch version {
	case V1, "":
		return NewV1(in, out, numKernels, src), nil
	case V2:
		return NewV2(in, out, numKernels, src), nil
	default:
		return nil, fmt.Errorf("%q, %w", version, ErrUnknownVersion)
	}
}

// NewV1 uses square kernels of size 1, 3, 5, ... padded to preserve the spatial size.
func NewV1(in, out, numKernels int, src rand.Source) *Block {
	b := &Block{
		Version:     V1,
		InChannels:  in,
		OutChannels: out,
		NumKernels:  numKernels,
	}
	for i := 0; i < numKernels; i++ {
		b.Kernels = append(b.Kernels, layers.NewConv2D(in, out, 2*i+1, 2*i+1, i, i, src))
	}
	return b
}

// NewV2 uses a (1, 2i+3) kernel and its transpose for i < numKernels/2 followed by a single
// 1x1 kernel.
func NewV2(in, out, numKernels int, src rand.Source) *Block {
	b := &Block{
		Version:     V2,
		InChannels:  in,
		OutChannels: out,
		NumKernels:  numKernels,
	}
	for i := 0; i < numKernels/2; i++ {
		size := 2*i + 3
		b.Kernels = append(b.Kernels,
			layers.NewConv2D(in, out, 1, size, 0, i+1, src),
			layers.NewConv2D(in, out, size, 1, i+1, 0, src),
		)
	}
	b.Kernels = append(b.Kernels, layers.NewConv2D(in, out, 1, 1, 0, 0, src))
	return b
}

// Forward returns the element-wise mean of every kernel output. The spatial size of x is kept.
func (b *Block) Forward(x *tensor.Tensor) *tensor.Tensor {
	var sum *tensor.Tensor
	for _, k := range b.Kernels {
		res := k.Forward(x)
		if sum == nil {
			sum = res
			continue
		}
		floatsunrolled.Add(sum.Data(), res.Data())
	}
	floatsunrolled.ScaleTo(sum.Data(), 1/float64(len(b.Kernels)), sum.Data())
	return sum
}

func (b *Block) Parameters() []layers.Param {
	var params []layers.Param
	for i, k := range b.Kernels {
		params = append(params, layers.Prefix("kernels."+strconv.Itoa(i), k)...)
	}
	return params
}
