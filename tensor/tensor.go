// Package tensor provides a dense row-major N dimensional float64 array used to carry
// sequences of shape (batch, time, channels) and convolution feature maps through the model.
package tensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNegativeDim     = errors.New("negative dimensions not allowed")
	ErrSizeMismatch    = errors.New("data length does not match shape")
	ErrShapeMismatch   = errors.New("tensor shapes do not match")
	ErrAxisOutOfBounds = errors.New("axis is out of bounds")
	ErrIndexOutOfBound = errors.New("index is out of bounds")
	ErrNotMatrix       = errors.New("tensor is not 2 dimensional")
	ErrInvalidReshape  = errors.New("invalid reshape dimensions")
)

// Tensor contains a flat slice of data stored in row major order where the last axis
// varies fastest. e.g. a tensor of shape (2, 3) stores {{1, 2, 3}, {4, 5, 6}} as
// {1, 2, 3, 4, 5, 6}.
type Tensor struct {
	data  []float64
	shape []int
}

// New returns a zero filled tensor of the given shape.
func New(shape ...int) *Tensor {
	n, err := numel(shape)
	if err != nil {
		panic(err)
	}
	return &Tensor{
		data:  make([]float64, n),
		shape: append([]int(nil), shape...),
	}
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	n, err := numel(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("got %d values for shape %v, %w", len(data), shape, ErrSizeMismatch)
	}
	d := make([]float64, n)
	copy(d, data)
	return &Tensor{
		data:  d,
		shape: append([]int(nil), shape...),
	}, nil
}

// FromDense copies a gonum matrix into a tensor of shape (rows, cols).
func FromDense(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	t := New(r, c)
	for i := 0; i < r; i++ {
		row := t.data[i*c : (i+1)*c]
		mat.Row(row, i, m)
	}
	return t
}

func numel(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("shape %v, %w", shape, ErrNegativeDim)
		}
		n *= d
	}
	return n, nil
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// Shape returns a copy of the tensor dimensions.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dim returns the size of a single axis.
func (t *Tensor) Dim(axis int) int {
	return t.shape[axis]
}

// NDim returns the number of axes.
func (t *Tensor) NDim() int {
	return len(t.shape)
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return len(t.data)
}

// Data returns the underlying storage. Writes are visible to the tensor and to any
// reshaped views sharing it.
func (t *Tensor) Data() []float64 {
	return t.data
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Errorf("got %d indices for %d axes, %w", len(idx), len(t.shape), ErrIndexOutOfBound))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Errorf("index %d on axis %d with size %d, %w", v, i, t.shape[i], ErrIndexOutOfBound))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// At retrieves a single value
func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores a single value
func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c, _ := FromSlice(t.data, t.shape...)
	return c
}

// SameShape reports whether both tensors have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.shape) != len(o.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != o.shape[i] {
			return false
		}
	}
	return true
}

// Reshape returns a view over the same storage with a new shape. A single -1 dimension
// is inferred from the remaining ones.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	newShape := append([]int(nil), shape...)
	infer := -1
	known := 1
	for i, d := range newShape {
		switch {
		case d == -1 && infer < 0:
			infer = i
		case d < 0:
			panic(fmt.Errorf("reshape %v to %v, %w", t.shape, shape, ErrInvalidReshape))
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || len(t.data)%known != 0 {
			panic(fmt.Errorf("reshape %v to %v, %w", t.shape, shape, ErrInvalidReshape))
		}
		newShape[infer] = len(t.data) / known
		known *= newShape[infer]
	}
	if known != len(t.data) {
		panic(fmt.Errorf("reshape %v to %v, %w", t.shape, shape, ErrInvalidReshape))
	}
	return &Tensor{
		data:  t.data,
		shape: newShape,
	}
}

// Permute returns a copy of the tensor with its axes reordered so that output axis i
// is input axis axes[i].
func (t *Tensor) Permute(axes ...int) *Tensor {
	nd := len(t.shape)
	if len(axes) != nd {
		panic(fmt.Errorf("permute %v with axes %v, %w", t.shape, axes, ErrAxisOutOfBounds))
	}
	seen := make([]bool, nd)
	outShape := make([]int, nd)
	for i, a := range axes {
		if a < 0 || a >= nd || seen[a] {
			panic(fmt.Errorf("permute %v with axes %v, %w", t.shape, axes, ErrAxisOutOfBounds))
		}
		seen[a] = true
		outShape[i] = t.shape[a]
	}

	inStrides := strides(t.shape)
	// input stride to step along each output axis
	step := make([]int, nd)
	for i, a := range axes {
		step[i] = inStrides[a]
	}

	out := New(outShape...)
	if out.Size() == 0 {
		return out
	}
	idx := make([]int, nd)
	src := 0
	last := nd - 1
	for o := range out.data {
		out.data[o] = t.data[src]

		// odometer increment over the output index
		for ax := last; ax >= 0; ax-- {
			idx[ax]++
			src += step[ax]
			if idx[ax] < outShape[ax] {
				break
			}
			src -= step[ax] * outShape[ax]
			idx[ax] = 0
		}
	}
	return out
}

// Pad appends n zero entries along axis. The original values keep their positions.
func (t *Tensor) Pad(axis, n int) *Tensor {
	t.checkAxis(axis)
	if n < 0 {
		panic(fmt.Errorf("pad by %d, %w", n, ErrNegativeDim))
	}
	outShape := t.Shape()
	outShape[axis] += n
	out := New(outShape...)

	outer, inner := t.split(axis)
	inBlock := t.shape[axis] * inner
	outBlock := outShape[axis] * inner
	for o := 0; o < outer; o++ {
		copy(out.data[o*outBlock:o*outBlock+inBlock], t.data[o*inBlock:(o+1)*inBlock])
	}
	return out
}

// Narrow returns a copy of the range [start, start+length) along axis.
func (t *Tensor) Narrow(axis, start, length int) *Tensor {
	t.checkAxis(axis)
	if start < 0 || length < 0 || start+length > t.shape[axis] {
		panic(fmt.Errorf("narrow [%d, %d) on axis of size %d, %w", start, start+length, t.shape[axis], ErrIndexOutOfBound))
	}
	outShape := t.Shape()
	outShape[axis] = length
	out := New(outShape...)

	outer, inner := t.split(axis)
	inBlock := t.shape[axis] * inner
	outBlock := length * inner
	for o := 0; o < outer; o++ {
		src := t.data[o*inBlock+start*inner : o*inBlock+(start+length)*inner]
		copy(out.data[o*outBlock:(o+1)*outBlock], src)
	}
	return out
}

// Concat joins tensors along axis. All other dimensions must match.
func Concat(axis int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic(fmt.Errorf("concat of no tensors, %w", ErrShapeMismatch))
	}
	first := ts[0]
	first.checkAxis(axis)
	outShape := first.Shape()
	outShape[axis] = 0
	for _, x := range ts {
		if x.NDim() != first.NDim() {
			panic(fmt.Errorf("concat %v with %v, %w", first.shape, x.shape, ErrShapeMismatch))
		}
		for i := range x.shape {
			if i != axis && x.shape[i] != first.shape[i] {
				panic(fmt.Errorf("concat %v with %v, %w", first.shape, x.shape, ErrShapeMismatch))
			}
		}
		outShape[axis] += x.shape[axis]
	}
	out := New(outShape...)

	outer, inner := first.split(axis)
	outBlock := outShape[axis] * inner
	for o := 0; o < outer; o++ {
		pos := o * outBlock
		for _, x := range ts {
			block := x.shape[axis] * inner
			copy(out.data[pos:pos+block], x.data[o*block:(o+1)*block])
			pos += block
		}
	}
	return out
}

// split returns the number of blocks before axis and the number of contiguous elements
// after axis.
func (t *Tensor) split(axis int) (int, int) {
	outer := 1
	for i := 0; i < axis; i++ {
		outer *= t.shape[i]
	}
	inner := 1
	for i := axis + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}
	return outer, inner
}

func (t *Tensor) checkAxis(axis int) {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Errorf("axis %d for %d axes, %w", axis, len(t.shape), ErrAxisOutOfBounds))
	}
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := New(t.shape...)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// IsFinite reports whether no element is NaN or infinite.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Dense returns a gonum matrix sharing storage with a 2 dimensional tensor.
func (t *Tensor) Dense() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("shape %v, %w", t.shape, ErrNotMatrix)
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data), nil
}

type tensorJSON struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func (t *Tensor) MarshalJSON() ([]byte, error) {
	return json.Marshal(tensorJSON{Shape: t.shape, Data: t.data})
}

func (t *Tensor) UnmarshalJSON(data []byte) error {
	var tj tensorJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}
	n, err := numel(tj.Shape)
	if err != nil {
		return err
	}
	if n != len(tj.Data) {
		return fmt.Errorf("got %d values for shape %v, %w", len(tj.Data), tj.Shape, ErrSizeMismatch)
	}
	t.shape = tj.Shape
	t.data = tj.Data
	return nil
}
