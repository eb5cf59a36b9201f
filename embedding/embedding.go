// Package embedding maps raw (batch, time, channels) sequences into the model dimension by
// combining a circular convolution token projection with fixed sinusoidal position codes.
package embedding

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-timesnet/layers"
	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultMaxLen = 5000
	TokenKernel   = 3
)

var (
	ErrSequenceTooLong = errors.New("sequence length exceeds positional table")
	ErrInvalidDim      = errors.New("embedding dimension must be positive")
)

// Positional is an immutable (1, MaxLen, Dim) table of sine and cosine position codes.
type Positional struct {
	Dim    int
	MaxLen int

	table []float64
}

// NewPositional computes the table once. Column 2i holds sin(pos * w_i) and column 2i+1
// holds cos(pos * w_i) with w_i = 10000^(-2i/dim). With an odd dim the last sine column has
// no cosine partner.
func NewPositional(dim, maxLen int) (*Positional, error) {
	if dim < 1 {
		return nil, fmt.Errorf("dim %d, %w", dim, ErrInvalidDim)
	}
	if maxLen < 1 {
		maxLen = DefaultMaxLen
	}
	p := &Positional{
		Dim:    dim,
		MaxLen: maxLen,
		table:  make([]float64, maxLen*dim),
	}
	scale := -math.Log(10000.0) / float64(dim)
	for i := 0; i < dim; i += 2 {
		w := math.Exp(float64(i) * scale)
		for pos := 0; pos < maxLen; pos++ {
			row := p.table[pos*dim : (pos+1)*dim]
			angle := float64(pos) * w
			row[i] = math.Sin(angle)
			if i+1 < dim {
				row[i+1] = math.Cos(angle)
			}
		}
	}
	return p, nil
}

// Lookup returns a (1, steps, Dim) copy of the first steps rows.
func (p *Positional) Lookup(steps int) (*tensor.Tensor, error) {
	if steps < 0 || steps > p.MaxLen {
		return nil, fmt.Errorf("requested %d positions with max length %d, %w", steps, p.MaxLen, ErrSequenceTooLong)
	}
	return tensor.FromSlice(p.table[:steps*p.Dim], 1, steps, p.Dim)
}

// AddTo adds the first x.Dim(1) position rows to every batch item of x in place.
func (p *Positional) AddTo(x *tensor.Tensor) error {
	steps := x.Dim(1)
	if steps > p.MaxLen {
		return fmt.Errorf("requested %d positions with max length %d, %w", steps, p.MaxLen, ErrSequenceTooLong)
	}
	block := steps * p.Dim
	codes := p.table[:block]
	data := x.Data()
	for b := 0; b < x.Dim(0); b++ {
		floats.Add(data[b*block:(b+1)*block], codes)
	}
	return nil
}

// Token projects each timestep's channels into Dim features with a width 3 circular convolution.
type Token struct {
	Conv *layers.CircularConv1D
}

func NewToken(in, dim int, src rand.Source) *Token {
	return &Token{Conv: layers.NewCircularConv1D(in, dim, TokenKernel, src)}
}

func (t *Token) Forward(x *tensor.Tensor) *tensor.Tensor {
	return t.Conv.Forward(x)
}

func (t *Token) Parameters() []layers.Param {
	return layers.Prefix("conv", t.Conv)
}

// Data sums the token and positional embeddings and applies dropout while training.
type Data struct {
	Token      *Token
	Positional *Positional
	Dropout    *layers.Dropout
}

func NewData(in, dim, maxLen int, dropout float64, src rand.Source) (*Data, error) {
	pos, err := NewPositional(dim, maxLen)
	if err != nil {
		return nil, err
	}
	return &Data{
		Token:      NewToken(in, dim, src),
		Positional: pos,
		Dropout:    layers.NewDropout(dropout, src),
	}, nil
}

// Forward embeds x of shape (batch, time, in) into (batch, time, dim).
func (d *Data) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.NDim() != 3 {
		return nil, fmt.Errorf("data embedding input shape %v, %w", x.Shape(), layers.ErrInputRank)
	}
	if x.Dim(2) != d.Token.Conv.InChannels {
		return nil, fmt.Errorf("data embedding expects %d channels, got %d, %w", d.Token.Conv.InChannels, x.Dim(2), layers.ErrInputChannels)
	}
	out := d.Token.Forward(x)
	if err := d.Positional.AddTo(out); err != nil {
		return nil, err
	}
	return d.Dropout.Forward(out), nil
}

func (d *Data) Parameters() []layers.Param {
	return layers.Prefix("token", d.Token)
}
