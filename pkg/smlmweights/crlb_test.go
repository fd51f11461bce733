//go:build crlb

package smlmweights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGaussianPSF(t *testing.T) *GaussianPSF {
	t.Helper()
	psf, err := ParseGaussianPSF(DefaultParam())
	require.NoError(t, err)
	return psf
}

func TestGaussianPSFCRLB(t *testing.T) {
	g := newTestGaussianPSF(t)
	pt := Point3d{X: 16.2, Y: 15.7, Z: 100}

	xyzLow, photLow, err := g.CRLB(pt, 1000, 10)
	require.NoError(t, err)
	xyzHigh, photHigh, err := g.CRLB(pt, 10000, 10)
	require.NoError(t, err)

	for _, v := range []float64{xyzLow.X, xyzLow.Y, xyzLow.Z, photLow} {
		assert.Greater(t, v, 0.0)
		assert.False(t, math.IsNaN(v))
	}
	assert.Greater(t, xyzLow.X, xyzHigh.X)
	assert.Greater(t, xyzLow.Z, xyzHigh.Z)
	// Photon counting noise bounds the photon estimate from below.
	assert.Greater(t, photLow, 0.99*math.Sqrt(1000))
	assert.Greater(t, photHigh, photLow)
}

func TestGaussianPSFFisherSymmetric(t *testing.T) {
	g := newTestGaussianPSF(t)
	f, err := g.Fisher(Point3d{X: 10, Y: 10, Z: -300}, 2000, 5)
	require.NoError(t, err)
	r, c := f.Dims()
	require.Equal(t, crlbNumParams, r)
	require.Equal(t, crlbNumParams, c)
	for i := 0; i < r; i++ {
		assert.Greater(t, f.At(i, i), 0.0, "diagonal %d", i)
	}
}

func TestGaussianPSFRejectsInput(t *testing.T) {
	g := newTestGaussianPSF(t)
	_, _, err := g.CRLB(Point3d{X: 5, Y: 5}, 0, 10)
	require.ErrorIs(t, err, ErrInvalidEmitterData)
	_, _, err = g.CRLB(Point3d{X: 5, Y: 5}, 100, 0)
	require.ErrorIs(t, err, ErrInvalidFrameData)

	_, err = NewGaussianPSF(newTestPSF(t), 0, 400, 400)
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestCalcCRLBPopulatesEmitters(t *testing.T) {
	cc, err := ParseCalcCRLB(DefaultParam())
	require.NoError(t, err)
	em := newTestEmitters(t, []Point3d{{X: 8, Y: 8}, {X: 20, Y: 12, Z: 200}}, []float64{3000, 5000})
	frames := framesWithBg([]int{6, 32, 32}, 50)

	out, err := cc.Forward(frames, em, nil)
	require.NoError(t, err)
	assert.Same(t, frames, out)
	require.True(t, em.HasCRLB())
	assert.Len(t, em.PhotCR, 2)

	// An explicit background overrides the frame channel.
	other := newTestEmitters(t, em.XYZ, em.Phot)
	_, err = cc.Forward(NewTensor(5, 32, 32), other, 50.0)
	require.NoError(t, err)
	assert.InDelta(t, em.PhotCR[1], other.PhotCR[1], 1e-6)

	_, err = cc.Forward(NewTensor(5, 32, 32), other, nil)
	require.ErrorIs(t, err, ErrInvalidFrameData)
}

func TestCRLBWeight(t *testing.T) {
	cw, err := NewCRLBWeight([2]float64{-0.5, 31.5}, [2]float64{-0.5, 31.5}, [2]int{32, 32}, 3)
	require.NoError(t, err)

	em := newTestEmitters(t, []Point3d{{X: 6, Y: 9}}, []float64{1000})
	_, err = cw.Forward(framesWithBg([]int{6, 32, 32}, 10), em, nil)
	require.ErrorIs(t, err, ErrInvalidEmitterData)

	em.XYZCR = []Point3d{{X: 0.5, Y: 0.25, Z: 20}}
	em.PhotCR = []float64{40}
	w, err := cw.Forward(framesWithBg([]int{6, 32, 32}, 10), em, nil)
	require.NoError(t, err)
	require.Equal(t, []int{6, 32, 32}, w.Shape)
	assert.InDelta(t, 1.0/40, float64(w.At(ChannelPhot, 6, 9)), 1e-7)
	assert.InDelta(t, 2.0, float64(w.At(ChannelX, 7, 10)), 1e-6)
	assert.InDelta(t, 4.0, float64(w.At(ChannelY, 5, 8)), 1e-6)
	assert.InDelta(t, 0.05, float64(w.At(ChannelZ, 6, 9)), 1e-7)
	assert.Equal(t, float32(0), w.At(ChannelX, 0, 0))
	assert.Equal(t, float32(1), w.At(ChannelProb, 0, 0))
	assert.Equal(t, float32(1), w.At(ChannelBg, 31, 31))

	em.PhotCR = []float64{0}
	_, err = cw.Forward(framesWithBg([]int{6, 32, 32}, 10), em, nil)
	require.ErrorIs(t, err, ErrInvalidEmitterData)
}

func TestParsedCRLBWeightAnnotatesCopy(t *testing.T) {
	p := DefaultParam()
	p.HyperParameter.WeightGenerator = "GenerateWeightMaskFromCRLB"
	gen, err := ParseWeightGenerator(p)
	require.NoError(t, err)

	em := newTestEmitters(t, []Point3d{{X: 12, Y: 12}}, []float64{4000})
	w, err := gen.Forward(framesWithBg([]int{2, 6, 32, 32}, 20), em, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 6, 32, 32}, w.Shape)
	assert.False(t, em.HasCRLB(), "caller's emitter set is not modified")
	assert.Greater(t, w.Plane(1, ChannelX)[12*32+12], float32(0))
}

func TestCRLBGeneratorsRegistered(t *testing.T) {
	names := WeightGenerators()
	assert.Contains(t, names, "CalcCRLB")
	assert.Contains(t, names, "GenerateWeightMaskFromCRLB")
}
