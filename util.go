package forecaster

import (
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func toLineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// echarts breaks the line on null
			data = append(data, opts.LineData{Value: nil})
			continue
		}
		data = append(data, opts.LineData{Value: v})
	}
	return data
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are left
// as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		line = line.AddSeries(series, toLineData(y[i]))
	}
	return line
}

// LineForecaster generates an echart line chart for one channel plotting the actual values along
// with the forecasted, upper, lower values. All slices are aligned with t.
func LineForecaster(title string, t []time.Time, actual, forecast, upper, lower []float64) *charts.Line {
	return LineTSeries(
		title,
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		t,
		[][]float64{actual, forecast, upper, lower},
	)
}

// nanSeries returns n NaN values.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
