package timesnet

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-timesnet/embedding"
	"github.com/aouyang1/go-timesnet/inception"
	"github.com/aouyang1/go-timesnet/period"
)

const (
	TaskLongTermForecast  = "long_term_forecast"
	TaskShortTermForecast = "short_term_forecast"
)

const (
	DefaultSeqLen     = 96
	DefaultLabelLen   = 48
	DefaultPredLen    = 24
	DefaultELayers    = 2
	DefaultTopK       = 5
	DefaultDModel     = 32
	DefaultDFF        = 32
	DefaultNumKernels = 6
	DefaultDropout    = 0.1
)

var (
	ErrUnknownTask          = errors.New("unknown task name")
	ErrNonPositiveSize      = errors.New("model sizes must be positive")
	ErrChannelMismatch      = errors.New("c_out must equal enc_in")
	ErrPredLenExceedsSeqLen = errors.New("pred_len must not exceed seq_len")
	ErrTopKTooLarge         = errors.New("top_k exceeds half of seq_len + pred_len")
	ErrSeqLenExceedsMaxLen  = errors.New("seq_len exceeds positional embedding max_len")
	ErrInvalidDropout       = errors.New("dropout must be in [0, 1)")
)

// Options holds the architecture sizes of the network. The model keeps its own copy so
// changes after construction have no effect.
type Options struct {
	TaskName   string  `json:"task_name"`
	SeqLen     int     `json:"seq_len"`
	LabelLen   int     `json:"label_len"`
	PredLen    int     `json:"pred_len"`
	ELayers    int     `json:"e_layers"`
	TopK       int     `json:"top_k"`
	DModel     int     `json:"d_model"`
	DFF        int     `json:"d_ff"`
	NumKernels int     `json:"num_kernels"`
	EncIn      int     `json:"enc_in"`
	COut       int     `json:"c_out"`
	Dropout    float64 `json:"dropout"`

	// MaxLen is the number of rows in the positional table.
	MaxLen int `json:"max_len"`

	// Inception selects the convolution block used inside every TimesBlock.
	Inception inception.Version `json:"inception"`

	// SpectralWindow tapers each series before period detection, see period.WindowFunc.
	SpectralWindow string `json:"spectral_window"`

	// Seed drives weight initialization and dropout.
	Seed uint64 `json:"seed"`
}

// NewDefaultOptions returns a univariate long term forecasting configuration.
func NewDefaultOptions() *Options {
	return &Options{
		TaskName:       TaskLongTermForecast,
		SeqLen:         DefaultSeqLen,
		LabelLen:       DefaultLabelLen,
		PredLen:        DefaultPredLen,
		ELayers:        DefaultELayers,
		TopK:           DefaultTopK,
		DModel:         DefaultDModel,
		DFF:            DefaultDFF,
		NumKernels:     DefaultNumKernels,
		EncIn:          1,
		COut:           1,
		Dropout:        DefaultDropout,
		MaxLen:         embedding.DefaultMaxLen,
		Inception:      inception.V1,
		SpectralWindow: period.WindowRectangular,
	}
}

// Validate returns a copy of the options with defaults filled in for the optional fields.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	opt := *o

	switch opt.TaskName {
	case TaskLongTermForecast, TaskShortTermForecast:
	default:
		return nil, fmt.Errorf("%q, %w", opt.TaskName, ErrUnknownTask)
	}

	sizes := []struct {
		name string
		val  int
	}{
		{"seq_len", opt.SeqLen},
		{"pred_len", opt.PredLen},
		{"e_layers", opt.ELayers},
		{"top_k", opt.TopK},
		{"d_model", opt.DModel},
		{"d_ff", opt.DFF},
		{"num_kernels", opt.NumKernels},
		{"enc_in", opt.EncIn},
		{"c_out", opt.COut},
	}
	for _, s := range sizes {
		if s.val < 1 {
			return nil, fmt.Errorf("%s=%d, %w", s.name, s.val, ErrNonPositiveSize)
		}
	}
	if opt.LabelLen < 0 {
		return nil, fmt.Errorf("label_len=%d, %w", opt.LabelLen, ErrNonPositiveSize)
	}
	if opt.COut != opt.EncIn {
		return nil, fmt.Errorf("c_out=%d enc_in=%d, %w", opt.COut, opt.EncIn, ErrChannelMismatch)
	}
	if opt.PredLen > opt.SeqLen {
		return nil, fmt.Errorf("pred_len=%d seq_len=%d, %w", opt.PredLen, opt.SeqLen, ErrPredLenExceedsSeqLen)
	}
	if opt.TopK > opt.TotalLen()/2 {
		return nil, fmt.Errorf("top_k=%d total length=%d, %w", opt.TopK, opt.TotalLen(), ErrTopKTooLarge)
	}
	if opt.MaxLen == 0 {
		opt.MaxLen = embedding.DefaultMaxLen
	}
	if opt.SeqLen > opt.MaxLen {
		return nil, fmt.Errorf("seq_len=%d max_len=%d, %w", opt.SeqLen, opt.MaxLen, ErrSeqLenExceedsMaxLen)
	}
	if opt.Dropout < 0 || opt.Dropout >= 1 {
		return nil, fmt.Errorf("dropout=%f, %w", opt.Dropout, ErrInvalidDropout)
	}
	if opt.Inception == "" {
		opt.Inception = inception.V1
	}
	if opt.SpectralWindow == "" {
		opt.SpectralWindow = period.WindowRectangular
	}
	return &opt, nil
}

// TotalLen is the extended sequence length seen by every TimesBlock.
func (o *Options) TotalLen() int {
	return o.SeqLen + o.PredLen
}
