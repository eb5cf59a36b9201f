package period

import "gonum.org/v1/gonum/dsp/window"

const (
	WindowBartlettHann    = "bartlett_hann"
	WindowBlackman        = "blackman"
	WindowBlackmanHarris  = "blackman_harris"
	WindowBlackmanNuttall = "blackman_nuttall"
	WindowFlatTop         = "flat_top"
	WindowHamming         = "hamming"
	WindowHann            = "hann"
	WindowLanczos         = "lanczos"
	WindowNuttall         = "nuttall"
	WindowRectangular     = "rectangular"
	WindowSine            = "sine"
	WindowTriangular      = "triangular"
	WindowTukey           = "tukey"
)

var WindowParamTukeyAlpha = 0.95

// WindowFunc maps a window name to an in place tapering function applied to each series
// before the transform. Unknown names fall back to the rectangular window.
func WindowFunc(name string) func(seq []float64) []float64 {
	switch name {
	case WindowBartlettHann:
		return window.BartlettHann
	case WindowBlackman:
		return window.Blackman
	case WindowBlackmanHarris:
		return window.BlackmanHarris
	case WindowBlackmanNuttall:
		return window.BlackmanNuttall
	case WindowFlatTop:
		return window.FlatTop
	case WindowHamming:
		return window.Hamming
	case WindowHann:
		return window.Hann
	case WindowLanczos:
		return window.Lanczos
	case WindowNuttall:
		return window.Nuttall
	case WindowSine:
		return window.Sine
	case WindowTriangular:
		return window.Triangular
	case WindowTukey:
		return func(seq []float64) []float64 {
			return window.Tukey{Alpha: WindowParamTukeyAlpha}.Transform(seq)
		}
	default:
		return window.Rectangular
	}
}
