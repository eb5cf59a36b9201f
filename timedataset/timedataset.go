// Package timedataset holds aligned multichannel time series and slices them into fixed length
// lookback and horizon windows.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrNoChannels         = errors.New("no channels in dataset")
	ErrNameLenMismatch    = errors.New("channel names do not match the number of channels")
	ErrInvalidWindow      = errors.New("window length must be positive")
	ErrInvalidStride      = errors.New("stride must be positive")
	ErrNotEnoughData      = errors.New("not enough observations for window")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from time data")
)

// TimeDataset stores a slice of time points along with one value slice per channel. Every channel
// has the same length as T.
type TimeDataset struct {
	T     []time.Time
	Y     [][]float64
	Names []string
}

// Window is one training sample. Input holds seqLen rows and Target the following predLen rows,
// both indexed as [step][channel].
type Window struct {
	Start  int
	Input  [][]float64
	Target [][]float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	return NewMultivariateDataset(t, [][]float64{y}, nil)
}

// NewMultivariateDataset returns a TimeDataset with one channel per entry in y. Names may be nil
// in which case channels are named by index.
func NewMultivariateDataset(t []time.Time, y [][]float64, names []string) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoChannels
	}
	if len(t) == 0 {
		return nil, ErrNoTrainingData
	}
	for c, ch := range y {
		if len(ch) != len(t) {
			return nil, fmt.Errorf(
				"time feature has length of %d, but channel %d has a length of %d, %w",
				len(t), c, len(ch), ErrDatasetLenMismatch,
			)
		}
	}
	if names != nil && len(names) != len(y) {
		return nil, fmt.Errorf("got %d names for %d channels, %w", len(names), len(y), ErrNameLenMismatch)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if currT.Before(lastT) || currT.Equal(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	if names == nil {
		names = make([]string, len(y))
		for c := range names {
			names[c] = fmt.Sprintf("y%d", c)
		}
	}

	td := &TimeDataset{
		T:     append([]time.Time(nil), t...),
		Y:     make([][]float64, len(y)),
		Names: append([]string(nil), names...),
	}
	for c, ch := range y {
		td.Y[c] = append([]float64(nil), ch...)
	}
	return td, nil
}

// Copy returns a deep copy of the dataset.
func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	out := &TimeDataset{
		T:     make([]time.Time, len(td.T)),
		Y:     make([][]float64, len(td.Y)),
		Names: make([]string, len(td.Names)),
	}
	copy(out.T, td.T)
	copy(out.Names, td.Names)
	for c, ch := range td.Y {
		out.Y[c] = make([]float64, len(ch))
		copy(out.Y[c], ch)
	}
	return out
}

// Len is the number of time points.
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

// Channels is the number of value slices.
func (td *TimeDataset) Channels() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

// DropNan returns a copy without any time point where at least one channel is NaN or infinite.
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	out := &TimeDataset{
		T:     make([]time.Time, 0, len(td.T)),
		Y:     make([][]float64, len(td.Y)),
		Names: append([]string{}, td.Names...),
	}
	for c := range td.Y {
		out.Y[c] = make([]float64, 0, len(td.T))
	}
	for i := range td.T {
		valid := true
		for _, ch := range td.Y {
			if math.IsNaN(ch[i]) || math.IsInf(ch[i], 0) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		out.T = append(out.T, td.T[i])
		for c, ch := range td.Y {
			out.Y[c] = append(out.Y[c], ch[i])
		}
	}
	return out
}

// Rows copies the time points [start, end) as [step][channel].
func (td *TimeDataset) Rows(start, end int) [][]float64 {
	rows := make([][]float64, end-start)
	for i := start; i < end; i++ {
		row := make([]float64, len(td.Y))
		for c, ch := range td.Y {
			row[c] = ch[i]
		}
		rows[i-start] = row
	}
	return rows
}

// Windows slides a seqLen lookback followed by a predLen horizon across the dataset, advancing by
// stride. The last window always ends on the final observation.
func (td *TimeDataset) Windows(seqLen, predLen, stride int) ([]Window, error) {
	if seqLen <= 0 || predLen <= 0 {
		return nil, fmt.Errorf("seq len %d and pred len %d, %w", seqLen, predLen, ErrInvalidWindow)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("stride %d, %w", stride, ErrInvalidStride)
	}
	n := td.Len()
	span := seqLen + predLen
	if n < span {
		return nil, fmt.Errorf("need %d observations but have %d, %w", span, n, ErrNotEnoughData)
	}

	var starts []int
	last := n - span
	for s := last % stride; s <= last; s += stride {
		starts = append(starts, s)
	}

	windows := make([]Window, 0, len(starts))
	for _, s := range starts {
		windows = append(windows, Window{
			Start:  s,
			Input:  td.Rows(s, s+seqLen),
			Target: td.Rows(s+seqLen, s+span),
		})
	}
	return windows, nil
}

// Tail returns the final seqLen rows as [step][channel].
func (td *TimeDataset) Tail(seqLen int) ([][]float64, error) {
	if seqLen <= 0 {
		return nil, fmt.Errorf("seq len %d, %w", seqLen, ErrInvalidWindow)
	}
	n := td.Len()
	if n < seqLen {
		return nil, fmt.Errorf("need %d observations but have %d, %w", seqLen, n, ErrNotEnoughData)
	}
	return td.Rows(n-seqLen, n), nil
}
