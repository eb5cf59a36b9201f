// Package timesnet implements the TimesNet forecasting network: a data embedding, a learned
// temporal extension, stacked period folding TimesBlocks and a linear output projection with
// per sequence normalization around the whole network.
package timesnet

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aouyang1/go-timesnet/embedding"
	"github.com/aouyang1/go-timesnet/layers"
	"github.com/aouyang1/go-timesnet/tensor"
	"golang.org/x/exp/rand"
)

var (
	ErrUninitializedModel = errors.New("model is not initialized")
	ErrInputShape         = errors.New("input must have shape (batch, seq_len, enc_in)")
)

// Model is a TimesNet network. Forward passes only read the parameters so a model may serve
// concurrent inference calls as long as nothing updates the parameters or toggles training.
type Model struct {
	opt *Options

	Embedding     *embedding.Data
	PredictLinear *layers.Linear // seq_len -> seq_len + pred_len over the time axis
	Blocks        []*TimesBlock
	LayerNorm     *layers.LayerNorm
	Projection    *layers.Linear // d_model -> c_out
}

// New validates the options and initializes every parameter from Options.Seed.
func New(opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate model options, %w", err)
	}
	src := rand.NewSource(opt.Seed)

	emb, err := embedding.NewData(opt.EncIn, opt.DModel, opt.MaxLen, opt.Dropout, src)
	if err != nil {
		return nil, fmt.Errorf("unable to build data embedding, %w", err)
	}
	m := &Model{
		opt:           opt,
		Embedding:     emb,
		PredictLinear: layers.NewLinear(opt.SeqLen, opt.TotalLen(), true, src),
		LayerNorm:     layers.NewLayerNorm(opt.DModel),
	}
	for i := 0; i < opt.ELayers; i++ {
		block, err := NewTimesBlock(opt, src)
		if err != nil {
			return nil, fmt.Errorf("unable to build times block %d, %w", i, err)
		}
		m.Blocks = append(m.Blocks, block)
	}
	m.Projection = layers.NewLinear(opt.DModel, opt.COut, true, src)
	return m, nil
}

// Options returns a copy of the configuration the model was built with.
func (m *Model) Options() Options {
	if m == nil || m.opt == nil {
		return Options{}
	}
	return *m.opt
}

// SetTraining toggles dropout.
func (m *Model) SetTraining(training bool) {
	m.Embedding.Dropout.Training = training
}

func (m *Model) checkInput(x *tensor.Tensor) error {
	if m == nil || m.opt == nil {
		return ErrUninitializedModel
	}
	if x == nil || x.NDim() != 3 || x.Dim(0) < 1 || x.Dim(1) != m.opt.SeqLen || x.Dim(2) != m.opt.EncIn {
		var shape []int
		if x != nil {
			shape = x.Shape()
		}
		return fmt.Errorf("got shape %v, expected (batch, %d, %d), %w", shape, m.opt.SeqLen, m.opt.EncIn, ErrInputShape)
	}
	return nil
}

// Encode returns the layer normalized TimesBlock features (batch, seq_len+pred_len, d_model) of
// x (batch, seq_len, enc_in) together with the normalization statistics of x.
func (m *Model) Encode(x *tensor.Tensor) (*tensor.Tensor, *Normalization, error) {
	if err := m.checkInput(x); err != nil {
		return nil, nil, err
	}
	normed, norm := Normalize(x)

	enc, err := m.Embedding.Forward(normed)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to embed input, %w", err)
	}

	// extend the time axis by treating it as the feature axis of the linear map
	enc = m.PredictLinear.Forward(enc.Permute(0, 2, 1)).Permute(0, 2, 1)

	for i, block := range m.Blocks {
		enc, err = block.Forward(enc)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to run times block %d, %w", i, err)
		}
		enc = m.LayerNorm.Forward(enc)
	}
	return enc, norm, nil
}

// Decode projects encoded features to c_out channels, restores the level and scale of every
// channel but the last over the whole extended length, then keeps the final pred_len rows with
// the last channel copied from the final pred_len rows of x.
func (m *Model) Decode(features *tensor.Tensor, norm *Normalization, x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	if norm == nil {
		return nil, fmt.Errorf("missing normalization, %w", ErrNormalizationShape)
	}
	dec := m.Projection.Forward(features)
	dec, err := norm.Denormalize(dec)
	if err != nil {
		return nil, fmt.Errorf("unable to denormalize output, %w", err)
	}

	seqLen, predLen, cOut := m.opt.SeqLen, m.opt.PredLen, m.opt.COut
	horizon := dec.Narrow(1, seqLen, predLen).Narrow(2, 0, cOut-1)
	tail := x.Narrow(1, seqLen-predLen, predLen).Narrow(2, x.Dim(2)-1, 1)
	return tensor.Concat(2, horizon, tail), nil
}

// Forward maps x (batch, seq_len, enc_in) to a forecast (batch, pred_len, c_out).
func (m *Model) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	features, norm, err := m.Encode(x)
	if err != nil {
		return nil, err
	}
	return m.Decode(features, norm, x)
}

// Parameters lists every learnable tensor with a stable dotted name.
func (m *Model) Parameters() []layers.Param {
	params := layers.Prefix("embedding", m.Embedding)
	params = append(params, layers.Prefix("predict_linear", m.PredictLinear)...)
	for i, block := range m.Blocks {
		params = append(params, layers.Prefix("blocks."+strconv.Itoa(i), block)...)
	}
	params = append(params, layers.Prefix("layer_norm", m.LayerNorm)...)
	params = append(params, layers.Prefix("projection", m.Projection)...)
	return params
}
