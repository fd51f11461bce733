package smlmweights

import "fmt"

// NewTargetFrames embeds emitters into a single-pixel target of shape
// (channels, H, W), channels being 5 or 6: probability, photon count, x and
// y offset from the pixel center, z and optionally a constant background.
// Emitters sharing a pixel keep the last one written.
func NewTargetFrames(psf *DeltaPSF, em *EmitterSet, bg float64, channels int) (*Tensor, error) {
	if channels != 5 && channels != 6 {
		return nil, fmt.Errorf("%w: %d target channels, expected 5 or 6", ErrInvalidShape, channels)
	}
	if err := em.Validate(); err != nil {
		return nil, err
	}
	h, w := psf.ImgShape[0], psf.ImgShape[1]
	target := NewTensor(1, channels, h, w)
	if em == nil {
		em = &EmitterSet{}
	}
	target.Device = em.Device.normalized()
	for i, pt := range em.XYZ {
		ix, iy, ok := psf.PixelIndex(pt)
		if !ok {
			continue
		}
		cx, cy := psf.PixelCenter(ix, iy)
		px := ix*w + iy
		target.Plane(0, ChannelProb)[px] = 1
		target.Plane(0, ChannelPhot)[px] = float32(em.Phot[i])
		target.Plane(0, ChannelX)[px] = float32(pt.X - cx)
		target.Plane(0, ChannelY)[px] = float32(pt.Y - cy)
		target.Plane(0, ChannelZ)[px] = float32(pt.Z)
	}
	if channels == 6 {
		fillPlane(target.Plane(0, ChannelBg), float32(bg))
	}
	return target.Reshape(channels, h, w)
}
