package timedataset

import (
	"time"
)

// TimeSlice is an ordered series of observation times.
type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	if len(t) < 1 {
		return time.Time{}
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	if len(t) < 1 {
		return time.Time{}
	}
	return t[len(t)-1]
}

// EstimateFreq returns the most common spacing between consecutive times. Equally common spacings
// resolve to the shortest.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	counts := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		counts[t[i].Sub(t[i-1])]++
	}

	var maxCnt int
	var freq time.Duration
	for delta, cnt := range counts {
		if cnt > maxCnt || (cnt == maxCnt && delta < freq) {
			maxCnt = cnt
			freq = delta
		}
	}
	if freq <= 0 {
		return 0, ErrCannotInferFreq
	}
	return freq, nil
}

// Horizon returns n times following the end of the slice spaced by the estimated frequency.
func (t TimeSlice) Horizon(n int) ([]time.Time, error) {
	freq, err := t.EstimateFreq()
	if err != nil {
		return nil, err
	}
	end := t.EndTime()
	out := make([]time.Time, n)
	for i := range out {
		end = end.Add(freq)
		out[i] = end
	}
	return out, nil
}
