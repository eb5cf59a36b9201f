package forecaster

import "time"

// Results holds one forecast per channel, indexed as [channel][step] and aligned with T.
type Results struct {
	T        []time.Time `json:"time"`
	Names    []string    `json:"names"`
	Forecast [][]float64 `json:"forecast"`
	Upper    [][]float64 `json:"upper"`
	Lower    [][]float64 `json:"lower"`
}

// Channel returns the forecast, upper and lower series of the named channel.
func (r *Results) Channel(name string) ([]float64, []float64, []float64, bool) {
	if r == nil {
		return nil, nil, nil, false
	}
	for i, n := range r.Names {
		if n == name {
			return r.Forecast[i], r.Upper[i], r.Lower[i], true
		}
	}
	return nil, nil, nil, false
}
