package smlmweights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTargetFrames(t *testing.T) {
	psf := newTestPSF(t)
	em := newTestEmitters(t, []Point3d{{X: 3.2, Y: 7.4, Z: -120}, {X: 40, Y: 1}}, []float64{500, 10})

	target, err := NewTargetFrames(psf, em, 12, 6)
	require.NoError(t, err)
	require.Equal(t, []int{6, 32, 32}, target.Shape)

	assert.Equal(t, float32(1), target.At(ChannelProb, 3, 7))
	assert.Equal(t, float32(500), target.At(ChannelPhot, 3, 7))
	assert.InDelta(t, 0.2, float64(target.At(ChannelX, 3, 7)), 1e-6)
	assert.InDelta(t, 0.4, float64(target.At(ChannelY, 3, 7)), 1e-6)
	assert.Equal(t, float32(-120), target.At(ChannelZ, 3, 7))
	assert.Equal(t, float32(12), target.At(ChannelBg, 31, 0))

	stats := CalculatePlaneStatistics(target.Data[:32*32], 32, 32)
	assert.Equal(t, 1, stats.NonZero, "emitter outside the frame is dropped")
}

func TestNewTargetFramesFeedsSimpleWeight(t *testing.T) {
	psf := newTestPSF(t)
	em := newTestEmitters(t, []Point3d{{X: 20, Y: 20}}, []float64{900})
	target, err := NewTargetFrames(psf, em, 9, 6)
	require.NoError(t, err)

	sw := newTestSimpleWeight(t, WeightModePhot, nil)
	w, err := sw.Forward(target, em, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/9, float64(w.At(ChannelBg, 0, 0)), 1e-7)
	assert.InDelta(t, 900, float64(w.At(ChannelZ, 21, 19)), 1e-3)
}

func TestNewTargetFramesErrors(t *testing.T) {
	psf := newTestPSF(t)
	_, err := NewTargetFrames(psf, nil, 1, 4)
	require.ErrorIs(t, err, ErrInvalidShape)

	neg := newTestEmitters(t, []Point3d{{}}, []float64{-3})
	_, err = NewTargetFrames(psf, neg, 1, 5)
	require.ErrorIs(t, err, ErrInvalidEmitterData)

	empty, err := NewTargetFrames(psf, nil, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 32, 32}, empty.Shape)
}
