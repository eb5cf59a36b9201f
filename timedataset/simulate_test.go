package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestGenerateT(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	numPnts := 7
	res := GenerateT(numPnts, 24*time.Hour, nowFunc)
	assert.Len(t, res, numPnts)

	assert.Equal(t, res[0], time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, res[numPnts-1], time.Date(1970, 1, 7, 0, 0, 0, 0, time.UTC))
}

func TestSeries(t *testing.T) {
	numPnts := 7
	s := GenerateConstY(numPnts, 1)

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series{3, 3, 3, 3, 3, 3, 3}, res)

	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	tSeries := GenerateT(numPnts, 24*time.Hour, nowFunc)
	s.SetConst(tSeries, 2.0,
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, Series{3, 3, 2, 2, 3, 3, 3}, s)

	// 1970-01-01 is a thursday
	s.MaskWithWeekend(tSeries)
	assert.Equal(t, Series{0, 0, 2, 2, 0, 0, 0}, s)
}

func TestGenerators(t *testing.T) {
	testData := map[string]struct {
		series   Series
		expected Series
	}{
		"wave":            {series: GenerateWaveY(4, 2, 4, 0), expected: Series{0, 2, 0, -2}},
		"wave with phase": {series: GenerateWaveY(4, 1, 4, 1), expected: Series{1, 0, -1, 0}},
		"pulse":           {series: GeneratePulseY(6, 5, 3, 0.34), expected: Series{5, 0, 0, 5, 0, 0}},
		"trend":           {series: GenerateTrend(4, 1, 0.5), expected: Series{1, 1.5, 2, 2.5}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDeltaSlice(t, td.expected, td.series, 1e-12)
		})
	}
}

func TestGenerateNoise(t *testing.T) {
	a := GenerateNoise(10000, 2, 7)
	b := GenerateNoise(10000, 2, 7)
	assert.Equal(t, a, b)
	assert.InDelta(t, 2.0, stat.StdDev(a, nil), 0.1)
	assert.InDelta(t, 0.0, stat.Mean(a, nil), 0.1)
}
