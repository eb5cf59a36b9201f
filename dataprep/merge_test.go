package dataprep

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergeFrames(t *testing.T) (*Frame, *Frame) {
	t.Helper()
	left, err := NewFrame(
		NewIntColumn("key", []int{1, 2, 3}),
		NewFloatColumn("a", []float64{10, 20, 30}),
		NewStringColumn("shared", []string{"l1", "l2", "l3"}),
	)
	require.Nil(t, err)
	right, err := NewFrame(
		NewIntColumn("key", []int{3, 1, 4, 1}),
		NewFloatColumn("b", []float64{300, 100, 400, 101}),
		NewStringColumn("shared", []string{"r3", "r1", "r4", "r1b"}),
	)
	require.Nil(t, err)
	return left, right
}

// floatsOrNaN replaces NaN with -1 for comparison.
func floatsOrNaN(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x
		if math.IsNaN(x) {
			out[i] = -1
		}
	}
	return out
}

func TestMerge(t *testing.T) {
	testData := map[string]struct {
		opt     *MergeOptions
		names   []string
		key     []float64
		a       []float64
		b       []float64
		sharedX []string
	}{
		"inner": {
			opt:     &MergeOptions{On: []string{"key"}},
			names:   []string{"key", "a", "shared_x", "b", "shared_y"},
			key:     []float64{1, 1, 3},
			a:       []float64{10, 10, 30},
			b:       []float64{100, 101, 300},
			sharedX: []string{"l1", "l1", "l3"},
		},
		"left": {
			opt:     &MergeOptions{On: []string{"key"}, How: LeftJoin},
			names:   []string{"key", "a", "shared_x", "b", "shared_y"},
			key:     []float64{1, 1, 2, 3},
			a:       []float64{10, 10, 20, 30},
			b:       []float64{100, 101, -1, 300},
			sharedX: []string{"l1", "l1", "l2", "l3"},
		},
		"outer": {
			opt:     &MergeOptions{On: []string{"key"}, How: OuterJoin},
			names:   []string{"key", "a", "shared_x", "b", "shared_y"},
			key:     []float64{1, 1, 2, 3, 4},
			a:       []float64{10, 10, 20, 30, -1},
			b:       []float64{100, 101, -1, 300, 400},
			sharedX: []string{"l1", "l1", "l2", "l3", ""},
		},
		"separate keys": {
			opt:     &MergeOptions{LeftOn: []string{"key"}, RightOn: []string{"key"}, How: LeftJoin, Suffixes: [2]string{"_l", "_r"}},
			names:   []string{"key_l", "a", "shared_l", "key_r", "b", "shared_r"},
			key:     []float64{1, 1, 2, 3},
			a:       []float64{10, 10, 20, 30},
			b:       []float64{100, 101, -1, 300},
			sharedX: []string{"l1", "l1", "l2", "l3"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			left, right := mergeFrames(t)
			res, err := Merge(left, right, td.opt)
			require.Nil(t, err)
			assert.Equal(t, td.names, res.Names())

			key := res.Columns[0].toFloat()
			assert.Equal(t, td.key, key.Floats)

			a, err := res.Col("a")
			require.Nil(t, err)
			assert.Equal(t, td.a, floatsOrNaN(a.toFloat().Floats))

			b, err := res.Col("b")
			require.Nil(t, err)
			assert.Equal(t, td.b, floatsOrNaN(b.Floats))

			assert.Equal(t, td.sharedX, res.Columns[2].Strings)
		})
	}
}

func TestMergeErrors(t *testing.T) {
	testData := map[string]struct {
		opt *MergeOptions
		err error
	}{
		"nil options":    {opt: nil, err: ErrNoJoinKeys},
		"no keys":        {opt: &MergeOptions{How: LeftJoin}, err: ErrNoJoinKeys},
		"key mismatch":   {opt: &MergeOptions{LeftOn: []string{"key"}, RightOn: []string{"key", "b"}}, err: ErrJoinKeyMismatch},
		"unknown join":   {opt: &MergeOptions{On: []string{"key"}, How: "cross"}, err: ErrUnknownJoin},
		"missing column": {opt: &MergeOptions{On: []string{"b"}}, err: ErrMissingColumn},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			left, right := mergeFrames(t)
			_, err := Merge(left, right, td.opt)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestMergeOnMonthYear(t *testing.T) {
	a, err := NewFrame(
		NewStringColumn("timestamp", []string{"2023-01-15", "2023-02-01", "2023-03-10"}),
		NewIntColumn("x", []int{1, 2, 3}),
	)
	require.Nil(t, err)
	b, err := NewFrame(
		NewStringColumn("기간", []string{"2023-01", "2023-02"}),
		NewFloatColumn("v", []float64{100, 200}),
	)
	require.Nil(t, err)

	res, err := MergeOnMonthYear(a, b, "timestamp", "기간")
	require.Nil(t, err)
	assert.Equal(t, []string{"timestamp", "x", "기간", "v"}, res.Names())

	ts, err := res.Col("timestamp")
	require.Nil(t, err)
	assert.Equal(t, []time.Time{date(2023, 1, 15), date(2023, 2, 1), date(2023, 3, 10)}, ts.Times)

	v, err := res.Col("v")
	require.Nil(t, err)
	assert.Equal(t, []float64{100, 200, -1}, floatsOrNaN(v.Floats))

	period, err := res.Col("기간")
	require.Nil(t, err)
	assert.Equal(t, []string{"2023-01", "2023-02", ""}, period.Strings)

	_, err = MergeOnMonthYear(a, b, "missing", "기간")
	assert.ErrorIs(t, err, ErrMissingColumn)

	bad, err := NewFrame(NewStringColumn("timestamp", []string{"not a time"}))
	require.Nil(t, err)
	_, err = MergeOnMonthYear(bad, b, "timestamp", "기간")
	assert.ErrorIs(t, err, ErrUnparseableTimestamp)
}

func TestMapTimestampAndMerge(t *testing.T) {
	a, err := NewFrame(
		NewStringColumn("timestamp", []string{"2023-03-04", "2023-03-05", "2023-03-07"}),
		NewStringColumn("item", []string{"x", "x", "x"}),
		NewFloatColumn("va", []float64{1, 2, 3}),
	)
	require.Nil(t, err)
	b, err := NewFrame(
		NewIntColumn("timestamp", []int{0, 1, 2, 40}),
		NewStringColumn("item", []string{"x", "x", "x", "x"}),
		NewFloatColumn("vb", []float64{10, 20, 30, 99}),
	)
	require.Nil(t, err)

	res, err := MapTimestampAndMerge(a, b, []string{"timestamp", "item"}, nil)
	require.Nil(t, err)
	assert.Equal(t, []string{"timestamp", "item", "va", "vb"}, res.Names())

	ts, err := res.Col("timestamp")
	require.Nil(t, err)
	assert.Equal(t, Time, ts.Kind)
	assert.Equal(t, []time.Time{
		date(2023, 3, 4),
		date(2023, 3, 5),
		date(2023, 3, 6),
		date(2023, 3, 7),
		{},
	}, ts.Times)

	va, err := res.Col("va")
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2, -1, 3, -1}, floatsOrNaN(va.Floats))

	vb, err := res.Col("vb")
	require.Nil(t, err)
	assert.Equal(t, []float64{10, 20, 30, -1, 99}, floatsOrNaN(vb.Floats))
}

func TestMapTimestampAndMergeErrors(t *testing.T) {
	good, err := NewFrame(NewStringColumn("timestamp", []string{"2023-03-04"}))
	require.Nil(t, err)
	badSuffix, err := NewFrame(NewStringColumn("timestamp", []string{"2023-03-xx"}))
	require.Nil(t, err)
	badIndex, err := NewFrame(NewStringColumn("timestamp", []string{"day one"}))
	require.Nil(t, err)

	testData := map[string]struct {
		a, b *Frame
		opt  *DayOffsetOptions
		err  error
	}{
		"unparseable suffix": {a: badSuffix, b: good, err: ErrUnparseableTimestamp},
		"unparseable index":  {a: good, b: badIndex, err: ErrUnparseableTimestamp},
		"inverted range": {
			a: good, b: good,
			opt: &DayOffsetOptions{Start: date(2023, 3, 31), End: date(2023, 3, 4)},
			err: ErrInvalidDateRange,
		},
		"missing column": {
			a: good, b: good,
			opt: &DayOffsetOptions{TimestampCol: "ts", Start: date(2023, 3, 4), End: date(2023, 3, 31)},
			err: ErrMissingColumn,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := MapTimestampAndMerge(td.a, td.b, []string{"timestamp"}, td.opt)
			assert.ErrorIs(t, err, td.err)
		})
	}
}
