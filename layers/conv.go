package layers

import (
	"fmt"

	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Conv2D is a stride 1 two dimensional convolution with zero padding over inputs of shape
// (batch, channels, height, width).
type Conv2D struct {
	InChannels  int
	OutChannels int
	KernelH     int
	KernelW     int
	PadH        int
	PadW        int

	Weight *tensor.Tensor // (out, in, kh, kw)
	Bias   *tensor.Tensor // (out)
}

// NewConv2D initializes weights with a fan-out kaiming normal for a rectifier and zero biases.
func NewConv2D(in, out, kh, kw, padH, padW int, src rand.Source) *Conv2D {
	c := &Conv2D{
		InChannels:  in,
		OutChannels: out,
		KernelH:     kh,
		KernelW:     kw,
		PadH:        padH,
		PadW:        padW,
		Weight:      tensor.New(out, in, kh, kw),
		Bias:        tensor.New(out),
	}
	KaimingNormal(c.Weight, out*kh*kw, ReLUGain, src)
	return c
}

// OutputSize returns the spatial output dimensions for an input of h by w.
func (c *Conv2D) OutputSize(h, w int) (int, int) {
	return h + 2*c.PadH - c.KernelH + 1, w + 2*c.PadW - c.KernelW + 1
}

// Forward convolves x using an im2col layout so each batch item is a single matrix product.
func (c *Conv2D) Forward(x *tensor.Tensor) *tensor.Tensor {
	if x.NDim() != 4 {
		panic(fmt.Errorf("conv2d expects 4 axes, got shape %v, %w", x.Shape(), ErrInputRank))
	}
	batch, ch, h, w := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	if ch != c.InChannels {
		panic(fmt.Errorf("conv2d expects %d channels, got %d, %w", c.InChannels, ch, ErrInputChannels))
	}
	ho, wo := c.OutputSize(h, w)
	if ho < 1 || wo < 1 {
		panic(fmt.Errorf("conv2d input %dx%d with kernel %dx%d, %w", h, w, c.KernelH, c.KernelW, ErrOutputEmpty))
	}

	out := tensor.New(batch, c.OutChannels, ho, wo)
	patch := ch * c.KernelH * c.KernelW
	weight := mat.NewDense(c.OutChannels, patch, c.Weight.Data())
	colData := make([]float64, patch*ho*wo)
	col := mat.NewDense(patch, ho*wo, colData)

	xData := x.Data()
	outData := out.Data()
	plane := h * w
	outBlock := c.OutChannels * ho * wo
	bias := c.Bias.Data()
	for b := 0; b < batch; b++ {
		src := xData[b*ch*plane : (b+1)*ch*plane]
		c.im2col(colData, src, ch, h, w, ho, wo)

		dst := outData[b*outBlock : (b+1)*outBlock]
		res := mat.NewDense(c.OutChannels, ho*wo, dst)
		res.Mul(weight, col)
		for o := 0; o < c.OutChannels; o++ {
			floats.AddConst(bias[o], dst[o*ho*wo:(o+1)*ho*wo])
		}
	}
	return out
}

// im2col writes one row per (channel, ky, kx) and one column per output position.
func (c *Conv2D) im2col(dst, src []float64, ch, h, w, ho, wo int) {
	row := 0
	for ci := 0; ci < ch; ci++ {
		plane := src[ci*h*w : (ci+1)*h*w]
		for ky := 0; ky < c.KernelH; ky++ {
			for kx := 0; kx < c.KernelW; kx++ {
				line := dst[row*ho*wo : (row+1)*ho*wo]
				for oy := 0; oy < ho; oy++ {
					iy := oy + ky - c.PadH
					for ox := 0; ox < wo; ox++ {
						ix := ox + kx - c.PadW
						if iy < 0 || iy >= h || ix < 0 || ix >= w {
							line[oy*wo+ox] = 0
							continue
						}
						line[oy*wo+ox] = plane[iy*w+ix]
					}
				}
				row++
			}
		}
	}
}

func (c *Conv2D) Parameters() []Param {
	return []Param{
		{Name: "weight", Value: c.Weight},
		{Name: "bias", Value: c.Bias},
	}
}

// CircularConv1D convolves over the time axis of channels last inputs (batch, time, channels)
// wrapping around the sequence edges so the output keeps the input length. It has no bias.
type CircularConv1D struct {
	InChannels  int
	OutChannels int
	Kernel      int

	Weight *tensor.Tensor // (out, in, k)
}

// NewCircularConv1D initializes weights with a fan-in kaiming normal for a leaky rectifier.
func NewCircularConv1D(in, out, kernel int, src rand.Source) *CircularConv1D {
	c := &CircularConv1D{
		InChannels:  in,
		OutChannels: out,
		Kernel:      kernel,
		Weight:      tensor.New(out, in, kernel),
	}
	KaimingNormal(c.Weight, in*kernel, ReLUGain, src)
	return c
}

func (c *CircularConv1D) Forward(x *tensor.Tensor) *tensor.Tensor {
	if x.NDim() != 3 {
		panic(fmt.Errorf("circular conv1d expects 3 axes, got shape %v, %w", x.Shape(), ErrInputRank))
	}
	batch, steps, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	if ch != c.InChannels {
		panic(fmt.Errorf("circular conv1d expects %d channels, got %d, %w", c.InChannels, ch, ErrInputChannels))
	}
	out := tensor.New(batch, steps, c.OutChannels)
	if steps == 0 {
		return out
	}

	pad := c.Kernel / 2
	patch := ch * c.Kernel
	weight := mat.NewDense(c.OutChannels, patch, c.Weight.Data())
	colData := make([]float64, steps*patch)
	col := mat.NewDense(steps, patch, colData)

	xData := x.Data()
	outData := out.Data()
	for b := 0; b < batch; b++ {
		src := xData[b*steps*ch : (b+1)*steps*ch]
		for t := 0; t < steps; t++ {
			row := colData[t*patch : (t+1)*patch]
			for j := 0; j < c.Kernel; j++ {
				st := ((t+j-pad)%steps + steps) % steps
				for ci := 0; ci < ch; ci++ {
					row[ci*c.Kernel+j] = src[st*ch+ci]
				}
			}
		}
		res := mat.NewDense(steps, c.OutChannels, outData[b*steps*c.OutChannels:(b+1)*steps*c.OutChannels])
		res.Mul(col, weight.T())
	}
	return out
}

func (c *CircularConv1D) Parameters() []Param {
	return []Param{{Name: "weight", Value: c.Weight}}
}
