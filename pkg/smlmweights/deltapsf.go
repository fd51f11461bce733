package smlmweights

import (
	"fmt"
	"math"
)

// DeltaPSF rasterizes point coordinates onto the pixel grid without any
// blur: each point's weight lands in exactly one pixel. The first image
// axis (H) bins x, the second (W) bins y.
type DeltaPSF struct {
	XExtent  [2]float64
	YExtent  [2]float64
	ImgShape [2]int
}

// NewDeltaPSF validates the extents and the image shape.
func NewDeltaPSF(xextent, yextent [2]float64, imgShape [2]int) (*DeltaPSF, error) {
	if !(xextent[1] > xextent[0]) || !(yextent[1] > yextent[0]) {
		return nil, fmt.Errorf("%w: empty extent x=%v y=%v", ErrUnsupportedConfiguration, xextent, yextent)
	}
	if imgShape[0] <= 0 || imgShape[1] <= 0 {
		return nil, fmt.Errorf("%w: image shape %v", ErrUnsupportedConfiguration, imgShape)
	}
	return &DeltaPSF{XExtent: xextent, YExtent: yextent, ImgShape: imgShape}, nil
}

// binIndex maps v into one of n equal bins spanning ext. The right edge
// belongs to the last bin; values outside the extent are rejected.
func binIndex(v float64, ext [2]float64, n int) (int, bool) {
	if math.IsNaN(v) || v < ext[0] || v > ext[1] {
		return 0, false
	}
	ix := int(math.Floor((v - ext[0]) / (ext[1] - ext[0]) * float64(n)))
	if ix == n {
		ix = n - 1
	}
	return ix, true
}

// PixelIndex returns the (x, y) pixel a point falls into.
func (p *DeltaPSF) PixelIndex(pt Point3d) (ix, iy int, ok bool) {
	ix, okx := binIndex(pt.X, p.XExtent, p.ImgShape[0])
	iy, oky := binIndex(pt.Y, p.YExtent, p.ImgShape[1])
	return ix, iy, okx && oky
}

// PixelCenter returns the physical coordinate of the center of pixel (ix, iy).
func (p *DeltaPSF) PixelCenter(ix, iy int) (float64, float64) {
	dx := (p.XExtent[1] - p.XExtent[0]) / float64(p.ImgShape[0])
	dy := (p.YExtent[1] - p.YExtent[0]) / float64(p.ImgShape[1])
	return p.XExtent[0] + (float64(ix)+0.5)*dx, p.YExtent[0] + (float64(iy)+0.5)*dy
}

// Forward places weight[i] at the pixel of xyz[i] and returns a (1, H, W)
// image. Points in the same pixel add up, points outside the extent are
// dropped.
func (p *DeltaPSF) Forward(xyz []Point3d, weight []float64) (*Tensor, error) {
	if len(xyz) != len(weight) {
		return nil, fmt.Errorf("%w: %d coordinates but %d weights", ErrInvalidEmitterData, len(xyz), len(weight))
	}
	h, w := p.ImgShape[0], p.ImgShape[1]
	out := NewTensor(1, h, w)
	for i, pt := range xyz {
		ix, iy, ok := p.PixelIndex(pt)
		if !ok {
			continue
		}
		out.Data[ix*w+iy] += float32(weight[i])
	}
	return out, nil
}
