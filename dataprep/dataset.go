package dataprep

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/aouyang1/go-timesnet/timedataset"
)

// FillNaN replaces missing values in every float column with val.
func FillNaN(f *Frame, val float64) *Frame {
	out := f.Copy()
	for _, c := range out.Columns {
		if c.Kind != Float {
			continue
		}
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				c.Floats[i] = val
			}
		}
	}
	return out
}

// ToDataset sorts rows by timeCol and returns the numeric columns as channels. An empty cols
// selects every numeric column besides timeCol. Missing values stay NaN so DropNan can remove
// incomplete rows.
func ToDataset(f *Frame, timeCol string, cols []string) (*timedataset.TimeDataset, error) {
	ts, err := f.timeColumn(timeCol)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		for _, c := range f.Columns {
			if c.Label() != timeCol && c.isNumeric() {
				cols = append(cols, c.Label())
			}
		}
	}

	order := make([]int, 0, ts.Len())
	for i, t := range ts.Times {
		if !t.IsZero() {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return ts.Times[a].Compare(ts.Times[b])
	})

	times := make([]time.Time, len(order))
	for k, i := range order {
		times[k] = ts.Times[i]
	}
	y := make([][]float64, len(cols))
	for c, name := range cols {
		col, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		if !col.isNumeric() {
			return nil, fmt.Errorf("column %s of kind %s, %w", name, col.Kind, ErrColumnKind)
		}
		y[c] = make([]float64, len(order))
		for k, i := range order {
			v, ok := col.Float(i)
			if !ok {
				v = math.NaN()
			}
			y[c][k] = v
		}
	}
	return timedataset.NewMultivariateDataset(times, y, cols)
}
