package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n evenly spaced times ending one interval before the minute floor of nowFunc.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// Series is a synthetic channel built up by chaining generators.
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetConst overwrites every value with a time in [start, end).
func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	for i := range s {
		if !t[i].Before(start) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

// MaskWithWeekend zeroes every weekday value.
func (s Series) MaskWithWeekend(t []time.Time) Series {
	for i := range s {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
		default:
			s[i] = 0.0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make(Series, n)
	for i := range y {
		y[i] = val
	}
	return y
}

// GenerateWaveY is a sine with the given period in steps and phase in steps.
func GenerateWaveY(n int, amp, period, phase float64) Series {
	y := make(Series, n)
	for i := range y {
		y[i] = amp * math.Sin(2.0*math.Pi*(float64(i)+phase)/period)
	}
	return y
}

// GeneratePulseY is amp for the leading duty fraction of every period and zero otherwise.
func GeneratePulseY(n int, amp float64, period int, duty float64) Series {
	y := make(Series, n)
	on := int(math.Round(float64(period) * duty))
	for i := range y {
		if i%period < on {
			y[i] = amp
		}
	}
	return y
}

// GenerateTrend is a line starting at bias and increasing by slope every step.
func GenerateTrend(n int, bias, slope float64) Series {
	y := make(Series, n)
	for i := range y {
		y[i] = bias + slope*float64(i)
	}
	return y
}

// GenerateNoise draws gaussian noise with the given scale from a seeded generator.
func GenerateNoise(n int, scale float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make(Series, n)
	for i := range y {
		y[i] = rng.NormFloat64() * scale
	}
	return y
}
