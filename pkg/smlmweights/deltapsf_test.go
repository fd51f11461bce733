package smlmweights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPSF(t *testing.T) *DeltaPSF {
	t.Helper()
	psf, err := NewDeltaPSF([2]float64{-0.5, 31.5}, [2]float64{-0.5, 31.5}, [2]int{32, 32})
	require.NoError(t, err)
	return psf
}

func TestNewDeltaPSFValidates(t *testing.T) {
	_, err := NewDeltaPSF([2]float64{1, 1}, [2]float64{0, 1}, [2]int{4, 4})
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = NewDeltaPSF([2]float64{0, 1}, [2]float64{0, 1}, [2]int{0, 4})
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestDeltaPSFBinsXAlongFirstAxis(t *testing.T) {
	psf := newTestPSF(t)
	out, err := psf.Forward([]Point3d{{X: 3.2, Y: 7.9}}, []float64{2})
	require.NoError(t, err)
	require.Equal(t, []int{1, 32, 32}, out.Shape)
	assert.Equal(t, float32(2), out.At(0, 3, 8))

	var total float32
	for _, v := range out.Data {
		total += v
	}
	assert.Equal(t, float32(2), total)
}

func TestDeltaPSFEdges(t *testing.T) {
	psf := newTestPSF(t)
	pts := []Point3d{
		{X: -0.5, Y: -0.5}, // left edge, first bin
		{X: 31.5, Y: 31.5}, // right edge belongs to the last bin
		{X: -0.51, Y: 4},   // outside
		{X: 4, Y: 31.6},    // outside
	}
	out, err := psf.Forward(pts, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, float32(1), out.At(0, 0, 0))
	assert.Equal(t, float32(2), out.At(0, 31, 31))

	var total float32
	for _, v := range out.Data {
		total += v
	}
	assert.Equal(t, float32(3), total)
}

func TestDeltaPSFSumsCoincidentPoints(t *testing.T) {
	psf := newTestPSF(t)
	out, err := psf.Forward([]Point3d{{X: 5, Y: 5}, {X: 5.3, Y: 4.8}}, []float64{1, 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, float64(out.At(0, 5, 5)), 1e-6)
}

func TestDeltaPSFLengthMismatch(t *testing.T) {
	psf := newTestPSF(t)
	_, err := psf.Forward([]Point3d{{}}, nil)
	require.ErrorIs(t, err, ErrInvalidEmitterData)
}

func TestPixelCenter(t *testing.T) {
	psf := newTestPSF(t)
	cx, cy := psf.PixelCenter(0, 7)
	assert.InDelta(t, 0.0, cx, 1e-12)
	assert.InDelta(t, 7.0, cy, 1e-12)

	ix, iy, ok := psf.PixelIndex(Point3d{X: cx, Y: cy})
	assert.True(t, ok)
	assert.Equal(t, 0, ix)
	assert.Equal(t, 7, iy)
}
