package dataprep

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeFrame(t *testing.T, period, item, balance string, measures []string, periods, items []string, vals [][]float64) *Frame {
	t.Helper()
	cols := []*Column{
		NewStringColumn(period, periods),
		NewStringColumn(item, items),
	}
	for k, m := range measures {
		v := make([]float64, len(vals))
		for i := range vals {
			v[i] = vals[i][k]
		}
		cols = append(cols, NewFloatColumn(m, v))
	}
	cols = append(cols, NewFloatColumn(balance, make([]float64, len(periods))))
	f, err := NewFrame(cols...)
	require.Nil(t, err)
	return f
}

func TestRowsToColumns(t *testing.T) {
	tc := &TradeColumns{
		Period:   "period",
		Item:     "item",
		Balance:  "balance",
		Measures: []string{"export_weight", "export_value", "import_weight", "import_value"},
	}
	f := tradeFrame(t, tc.Period, tc.Item, tc.Balance, tc.Measures,
		[]string{"2023-02", "2023-01", "2023-01"},
		[]string{"A", "A", "B"},
		[][]float64{
			{1, 2, 3, 4},
			{5, 6, 7, 8},
			{10, 20, 30, 40},
		},
	)

	res, err := RowsToColumns(f, tc)
	require.Nil(t, err)
	assert.Equal(t, []string{
		"period",
		"A_export_value", "A_export_weight", "A_import_value", "A_import_weight",
		"B_export_value", "B_export_weight", "B_import_value", "B_import_weight",
	}, res.Names())

	expected := map[string][]float64{
		"A_export_value":  {6, 2},
		"A_export_weight": {5, 1},
		"A_import_value":  {8, 4},
		"A_import_weight": {7, 3},
		"B_export_value":  {20, 0},
		"B_export_weight": {10, 0},
		"B_import_value":  {40, 0},
		"B_import_weight": {30, 0},
	}
	for name, vals := range expected {
		col, err := res.Col(name)
		require.Nil(t, err)
		assert.Equal(t, vals, col.Floats, name)
	}
	period, err := res.Col("period")
	require.Nil(t, err)
	assert.Equal(t, []string{"2023-01", "2023-02"}, period.Strings)
}

func TestRowsToColumnsDefaultLabels(t *testing.T) {
	tc := NewDefaultTradeColumns()
	f := tradeFrame(t, tc.Period, tc.Item, tc.Balance, tc.Measures,
		[]string{"2023.01"},
		[]string{"반도체"},
		[][]float64{{1, 2, 3, 4}},
	)
	res, err := RowsToColumns(f, nil)
	require.Nil(t, err)
	assert.Equal(t, []string{
		"기간",
		"반도체_수입 금액", "반도체_수입 중량", "반도체_수출 금액", "반도체_수출 중량",
	}, res.Names())
}

func TestRowsToColumnsErrors(t *testing.T) {
	tc := &TradeColumns{Period: "period", Item: "item", Balance: "balance", Measures: []string{"m"}}

	testData := map[string]struct {
		frame func(t *testing.T) *Frame
		err   error
	}{
		"missing balance": {
			frame: func(t *testing.T) *Frame {
				f, err := NewFrame(NewStringColumn("period", []string{"p"}))
				require.Nil(t, err)
				return f
			},
			err: ErrMissingColumn,
		},
		"duplicate period and item": {
			frame: func(t *testing.T) *Frame {
				return tradeFrame(t, "period", "item", "balance", []string{"m"},
					[]string{"p", "p"}, []string{"A", "A"}, [][]float64{{1}, {2}})
			},
			err: ErrDuplicateEntry,
		},
		"non numeric measure": {
			frame: func(t *testing.T) *Frame {
				f, err := NewFrame(
					NewStringColumn("period", []string{"p"}),
					NewStringColumn("item", []string{"A"}),
					NewStringColumn("m", []string{"x"}),
					NewFloatColumn("balance", []float64{0}),
				)
				require.Nil(t, err)
				return f
			},
			err: ErrColumnKind,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := RowsToColumns(td.frame(t), tc)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestMapToTimestamp(t *testing.T) {
	nan := math.NaN()
	f, err := NewFrame(
		NewTimeColumn("ts", []time.Time{date(2023, 3, 5), date(2023, 3, 4)}),
		&Column{Name: []string{"value", "itemA", "corp1", "seoul"}, Kind: Float, Floats: []float64{1, nan}},
		&Column{Name: []string{"value", "itemA", "corp0", "busan"}, Kind: Float, Floats: []float64{nan, 2}},
		&Column{Name: []string{"value", "itemB", "corp0", "busan"}, Kind: Float, Floats: []float64{nan, nan}},
	)
	require.Nil(t, err)

	res, err := MapToTimestamp(f, "ts")
	require.Nil(t, err)
	assert.Equal(t, []string{"timestamp", "item", "corporation", "location", "value"}, res.Names())
	require.Equal(t, 4, res.Len())

	assert.Equal(t, []string{"2023-03-05", "2023-03-05", "2023-03-04", "2023-03-04"}, res.Columns[0].Strings)
	assert.Equal(t, []string{"itemA", "itemA", "itemA", "itemA"}, res.Columns[1].Strings)
	assert.Equal(t, []string{"corp0", "corp1", "corp0", "corp1"}, res.Columns[2].Strings)
	assert.Equal(t, []string{"busan", "seoul", "busan", "seoul"}, res.Columns[3].Strings)

	values := res.Columns[4].Floats
	assert.True(t, math.IsNaN(values[0]))
	assert.Equal(t, 1.0, values[1])
	assert.Equal(t, 2.0, values[2])
	assert.True(t, math.IsNaN(values[3]))
}

func TestMapToTimestampErrors(t *testing.T) {
	testData := map[string]struct {
		cols []*Column
		err  error
	}{
		"single level value column": {
			cols: []*Column{
				NewStringColumn("ts", []string{"2023-03-04"}),
				NewFloatColumn("v", []float64{1}),
			},
			err: ErrColumnLevels,
		},
		"mixed value level": {
			cols: []*Column{
				NewStringColumn("ts", []string{"2023-03-04"}),
				{Name: []string{"value", "a", "b", "c"}, Kind: Float, Floats: []float64{1}},
				{Name: []string{"other", "a", "b", "d"}, Kind: Float, Floats: []float64{1}},
			},
			err: ErrColumnLevels,
		},
		"duplicate timestamp": {
			cols: []*Column{
				NewStringColumn("ts", []string{"2023-03-04", "2023-03-04"}),
				{Name: []string{"value", "a", "b", "c"}, Kind: Float, Floats: []float64{1, 2}},
			},
			err: ErrDuplicateEntry,
		},
		"missing timestamp": {
			cols: []*Column{
				NewStringColumn("time", []string{"2023-03-04"}),
			},
			err: ErrMissingColumn,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := NewFrame(td.cols...)
			require.Nil(t, err)
			_, err = MapToTimestamp(f, "ts")
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestConvertToSingleNamedColumns(t *testing.T) {
	f, err := NewFrame(
		&Column{Name: []string{"time_stamp", "", "", ""}, Kind: Time, Times: []time.Time{date(2023, 1, 1)}},
		&Column{Name: []string{"value", "a", "b", "c"}, Kind: Float, Floats: []float64{0}},
	)
	require.Nil(t, err)

	res := ConvertToSingleNamedColumns(f, "_")
	assert.Equal(t, []string{TimeStampColumn, "value_a_b_c"}, res.Names())
	assert.Len(t, f.Columns[1].Name, 4)

	res = ConvertToSingleNamedColumns(f, "|")
	assert.Equal(t, "value|a|b|c", res.Columns[1].Label())
	assert.Len(t, res.Columns[1].Name, 1)
}
