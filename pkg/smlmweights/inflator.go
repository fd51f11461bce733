package smlmweights

import (
	"context"
	"fmt"
	"log/slog"
)

// OverlapMode selects how pixels covered by more than one inflated ROI are
// resolved.
type OverlapMode string

const (
	// OverlapZero sets overlapping pixels to zero.
	OverlapZero OverlapMode = "zero"
	// OverlapMean divides the summed value by the number of covering ROIs.
	OverlapMean OverlapMode = "mean"
)

func (m OverlapMode) valid() bool {
	return m == OverlapZero || m == OverlapMean
}

// OneHotInflator expands single hot pixels into square ROIs, i.e.
// [0 0 1 0 0] becomes [0 1 1 1 0]. The hot pixel itself always keeps its
// original value, even when it lies inside a neighbouring ROI.
type OneHotInflator struct {
	roiSize     int
	channels    int
	overlapMode OverlapMode
}

// NewOneHotInflator creates an inflator for the given number of channels.
// Only an ROI size of 3 is supported.
func NewOneHotInflator(roiSize, channels int, mode OverlapMode) (*OneHotInflator, error) {
	if roiSize != 3 {
		return nil, fmt.Errorf("%w: ROI size %d, only 3 is implemented", ErrUnsupportedConfiguration, roiSize)
	}
	if !mode.valid() {
		return nil, fmt.Errorf("%w: overlap mode %q, choose among %q, %q", ErrUnsupportedConfiguration, mode, OverlapZero, OverlapMean)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedConfiguration, channels)
	}
	return &OneHotInflator{roiSize: roiSize, channels: channels, overlapMode: mode}, nil
}

// ROISize is the edge length of the square each hot pixel is expanded to.
func (inf *OneHotInflator) ROISize() int { return inf.roiSize }

// Channels is the channel count Forward accepts.
func (inf *OneHotInflator) Channels() int { return inf.channels }

func (inf *OneHotInflator) OverlapMode() OverlapMode { return inf.overlapMode }

// Forward inflates x of shape (N, C, H, W) or (C, H, W) where C equals the
// configured channel count. x is not modified.
func (inf *OneHotInflator) Forward(x *Tensor) (*Tensor, error) {
	batched, squeeze, err := forwardBatched(x)
	if err != nil {
		return nil, err
	}
	if c := batched.Shape[1]; c != inf.Channels() {
		return nil, fmt.Errorf("%w: inflator expects %d channels, got %d", ErrInvalidShape, inf.Channels(), c)
	}

	n, h, w := batched.Shape[0], batched.Shape[2], batched.Shape[3]
	out := ZerosLike(batched)
	overlapping := 0
	for b := 0; b < n; b++ {
		for c := 0; c < inf.channels; c++ {
			overlapping += inf.inflatePlane(batched.Plane(b, c), out.Plane(b, c), h, w)
		}
	}

	if l := Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("inflated hot pixels",
			slog.Int("planes", n*inf.Channels()),
			slog.Int("roi_size", inf.ROISize()),
			slog.String("overlap_mode", string(inf.OverlapMode())),
			slog.Int("overlapping_px", overlapping))
	}
	return forwardReturnOriginal(out, squeeze)
}

// inflatePlane writes the inflated version of src into dst and returns the
// number of overlapping pixels.
func (inf *OneHotInflator) inflatePlane(src, dst []float32, h, w int) int {
	srcMat := NewMatFromFloat32(h, w, src)
	defer srcMat.Close()

	occupied := nonZeroMask(srcMat)
	defer occupied.Close()

	count := boxSumConstant(occupied, inf.roiSize)
	defer count.Close()

	replicated := boxSumConstant(srcMat, inf.roiSize)
	defer replicated.Close()

	countData := count.DataFloat32()
	repData := replicated.DataFloat32()
	overlapping := 0
	for i, cnt := range countData[:h*w] {
		if cnt < 2 {
			continue
		}
		overlapping++
		switch inf.overlapMode {
		case OverlapZero:
			repData[i] = 0
		case OverlapMean:
			repData[i] /= cnt
		}
	}

	matCopyToWithMask(srcMat, &replicated, occupied)
	copy(dst, replicated.DataFloat32()[:h*w])
	return overlapping
}
