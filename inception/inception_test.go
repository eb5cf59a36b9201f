package inception

import (
	"testing"

	"github.com/aouyang1/go-timesnet/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestNew(t *testing.T) {
	testData := map[string]struct {
		version    Version
		numKernels int
		expKernels [][2]int
		err        error
	}{
		"v1 default": {
			version:    "",
			numKernels: 3,
			expKernels: [][2]int{{1, 1}, {3, 3}, {5, 5}},
		},
		"v2 even": {
			version:    V2,
			numKernels: 4,
			expKernels: [][2]int{{1, 3}, {3, 1}, {1, 5}, {5, 1}, {1, 1}},
		},
		"v2 odd drops remainder": {
			version:    V2,
			numKernels: 3,
			expKernels: [][2]int{{1, 3}, {3, 1}, {1, 1}},
		},
		"unknown version": {
			version:    "v3",
			numKernels: 2,
			err:        ErrUnknownVersion,
		},
		"no kernels": {
			version:    V1,
			numKernels: 0,
			err:        ErrInvalidKernels,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			b, err := New(td.version, 2, 4, td.numKernels, rand.NewSource(1))
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			require.Len(t, b.Kernels, len(td.expKernels))
			for i, k := range b.Kernels {
				assert.Equal(t, td.expKernels[i], [2]int{k.KernelH, k.KernelW})
				assert.Equal(t, []int{4, 2, k.KernelH, k.KernelW}, k.Weight.Shape())
			}
		})
	}
}

func TestForwardPreservesShape(t *testing.T) {
	x := tensor.New(2, 3, 4, 6)
	for i := range x.Data() {
		x.Data()[i] = float64(i%11) - 5
	}

	for _, version := range []Version{V1, V2} {
		t.Run(string(version), func(t *testing.T) {
			b, err := New(version, 3, 5, 6, rand.NewSource(2))
			require.Nil(t, err)
			res := b.Forward(x)
			assert.Equal(t, []int{2, 5, 4, 6}, res.Shape())
			assert.True(t, res.IsFinite())
		})
	}
}

func TestForwardAverages(t *testing.T) {
	b := NewV1(1, 1, 2, rand.NewSource(3))
	// 1x1 kernel scales by 2, 3x3 kernel is a center tap scaling by 4
	for i := range b.Kernels[0].Weight.Data() {
		b.Kernels[0].Weight.Data()[i] = 2
	}
	for i := range b.Kernels[1].Weight.Data() {
		b.Kernels[1].Weight.Data()[i] = 0
	}
	b.Kernels[1].Weight.Set(4, 0, 0, 1, 1)
	b.Kernels[1].Bias.Set(1, 0)

	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, 1, 1, 2, 2)
	require.Nil(t, err)
	res := b.Forward(x)
	assert.InDeltaSlice(t, []float64{3.5, 6.5, 9.5, 12.5}, res.Data(), 1e-12)
}

func TestParameters(t *testing.T) {
	b := NewV2(1, 1, 2, rand.NewSource(4))
	params := b.Parameters()
	require.Len(t, params, 6)
	assert.Equal(t, "kernels.0.weight", params[0].Name)
	assert.Equal(t, "kernels.2.bias", params[5].Name)
}
