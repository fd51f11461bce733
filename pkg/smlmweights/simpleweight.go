package smlmweights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// WeightMode selects how the photon and position channels are weighted.
type WeightMode string

const (
	// WeightModeConst weights every ROI pixel with 1.
	WeightModeConst WeightMode = "const"
	// WeightModePhot approximates the inverse CRLB from the photon count.
	WeightModePhot WeightMode = "phot"
)

// Channel layout of target frames.
const (
	ChannelProb = iota
	ChannelPhot
	ChannelX
	ChannelY
	ChannelZ
	ChannelBg
)

func init() {
	RegisterWeightGenerator("SimpleWeight", func(p *Param) (WeightGenerator, error) {
		return ParseSimpleWeight(p)
	})
}

// SimpleWeightOptions configures a SimpleWeight.
type SimpleWeightOptions struct {
	XExtent       [2]float64
	YExtent       [2]float64
	ImgShape      [2]int
	TargetROISize int
	WeightMode    WeightMode
	// WeightPower defaults to 1 when nil.
	WeightPower *float64
}

// SimpleWeight is 1 everywhere in the detection and background channel and
// inside the emitter ROIs of the photon, x, y and z channels. Channel order
// is prob (0), phot (1), x (2), y (3), z (4), bg (5).
type SimpleWeight struct {
	weightPSF     *DeltaPSF
	delta2ROI     *OneHotInflator
	weightMode    WeightMode
	weightPower   float64
	forwardSafety bool
}

// NewSimpleWeight validates opts and builds the rasterizer and inflator.
func NewSimpleWeight(opts SimpleWeightOptions) (*SimpleWeight, error) {
	power := 1.0
	if opts.WeightPower != nil {
		power = *opts.WeightPower
	}
	switch opts.WeightMode {
	case WeightModeConst:
		if power != 1 {
			return nil, fmt.Errorf("%w: weight power %v has no effect in %q mode", ErrUnsupportedConfiguration, power, WeightModeConst)
		}
	case WeightModePhot:
	default:
		return nil, fmt.Errorf("%w: weight mode %q, choose among %q, %q", ErrUnsupportedConfiguration, opts.WeightMode, WeightModeConst, WeightModePhot)
	}

	psf, err := NewDeltaPSF(opts.XExtent, opts.YExtent, opts.ImgShape)
	if err != nil {
		return nil, err
	}
	inflator, err := NewOneHotInflator(opts.TargetROISize, 4, OverlapZero)
	if err != nil {
		return nil, err
	}

	Logger().Info("simple weight generator",
		slog.String("mode", string(opts.WeightMode)),
		slog.Float64("power", power),
		slog.Int("roi_size", opts.TargetROISize))

	return &SimpleWeight{
		weightPSF:     psf,
		delta2ROI:     inflator,
		weightMode:    opts.WeightMode,
		weightPower:   power,
		forwardSafety: true,
	}, nil
}

// ParseSimpleWeight builds a SimpleWeight from a parameter set.
func ParseSimpleWeight(p *Param) (*SimpleWeight, error) {
	xextent, yextent, imgShape := p.PSFGeometry()
	return NewSimpleWeight(SimpleWeightOptions{
		XExtent:       xextent,
		YExtent:       yextent,
		ImgShape:      imgShape,
		TargetROISize: p.HyperParameter.TargetROISize,
		WeightMode:    p.HyperParameter.WeightBase,
		WeightPower:   p.HyperParameter.WeightPower,
	})
}

// SetForwardSafety toggles the input checks run on every Forward call.
// Set it before sharing the instance between goroutines.
func (sw *SimpleWeight) SetForwardSafety(on bool) { sw.forwardSafety = on }

func (sw *SimpleWeight) WeightMode() WeightMode { return sw.weightMode }
func (sw *SimpleWeight) WeightPower() float64   { return sw.weightPower }
func (sw *SimpleWeight) ROISize() int           { return sw.delta2ROI.ROISize() }

// Forward returns the weight mask for frames of shape ((N,) C, H, W) with C
// in {5, 6}. opt is ignored. In phot mode the background weight is
// 1/bg^power of the frames' own background channel.
func (sw *SimpleWeight) Forward(frames *Tensor, em *EmitterSet, _ any) (*Tensor, error) {
	frames, squeeze, err := forwardBatched(frames)
	if err != nil {
		return nil, err
	}
	if em == nil {
		em = &EmitterSet{}
	}
	if em.Len() > 0 {
		if err := sameDevice(frames.Device, em.Device); err != nil {
			return nil, err
		}
	}
	if sw.forwardSafety {
		if err := sw.checkInput(frames, em); err != nil {
			return nil, err
		}
	}

	nBatch, nCh := frames.Shape[0], frames.Shape[1]
	weight := ZerosLike(frames)
	for b := 0; b < nBatch; b++ {
		fillPlane(weight.Plane(b, ChannelProb), 1)
		if nCh == 6 {
			fillPlane(weight.Plane(b, ChannelBg), 1)
		}
	}

	if em.Len() == 0 {
		return forwardReturnOriginal(weight, squeeze)
	}

	var photW, xyzW *Tensor
	switch sw.weightMode {
	case WeightModeConst:
		ones := make([]float64, em.Len())
		for i := range ones {
			ones[i] = 1
		}
		if photW, err = sw.weightPSF.Forward(em.XYZ, ones); err != nil {
			return nil, err
		}
		xyzW = photW
	case WeightModePhot:
		inv := make([]float64, em.Len())
		pow := make([]float64, em.Len())
		for i, phot := range em.Phot {
			pp := math.Pow(phot, sw.weightPower)
			inv[i] = 1 / pp
			pow[i] = pp
		}
		if photW, err = sw.weightPSF.Forward(em.XYZ, inv); err != nil {
			return nil, err
		}
		if xyzW, err = sw.weightPSF.Forward(em.XYZ, pow); err != nil {
			return nil, err
		}
		if nCh == 6 {
			for b := 0; b < nBatch; b++ {
				bgW := weight.Plane(b, ChannelBg)
				for i, bg := range frames.Plane(b, ChannelBg) {
					bgW[i] *= float32(1 / math.Pow(float64(bg), sw.weightPower))
				}
			}
		}
	}

	pxyz := NewTensor(nBatch, 4, frames.Shape[2], frames.Shape[3])
	pxyz.Device = frames.Device
	for b := 0; b < nBatch; b++ {
		copy(pxyz.Plane(b, 0), photW.Data)
		for c := 1; c < 4; c++ {
			copy(pxyz.Plane(b, c), xyzW.Data)
		}
	}
	inflated, err := sw.delta2ROI.Forward(pxyz)
	if err != nil {
		return nil, err
	}
	weight.SetChannels(ChannelPhot, inflated)

	if l := Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("weight mask built",
			slog.Int("batch", nBatch),
			slog.Int("channels", nCh),
			slog.Int("emitters", em.Len()),
			slog.String("mode", string(sw.weightMode)))
	}
	return forwardReturnOriginal(weight, squeeze)
}

func (sw *SimpleWeight) checkInput(frames *Tensor, em *EmitterSet) error {
	if c := frames.Shape[1]; c != 5 && c != 6 {
		return fmt.Errorf("%w: frame shape %v, expected channel dimension to be 5 or 6", ErrInvalidShape, frames.Shape)
	}
	if h, w := frames.Shape[2], frames.Shape[3]; h != sw.weightPSF.ImgShape[0] || w != sw.weightPSF.ImgShape[1] {
		return fmt.Errorf("%w: frame size %dx%d, configured %v", ErrInvalidShape, h, w, sw.weightPSF.ImgShape)
	}
	if err := em.Validate(); err != nil {
		return err
	}
	if sw.weightMode == WeightModePhot && frames.Shape[1] == 6 {
		for b := 0; b < frames.Shape[0]; b++ {
			for _, bg := range frames.Plane(b, ChannelBg) {
				if bg == 0 {
					return fmt.Errorf("%w: background must be nonzero everywhere in %q mode", ErrInvalidFrameData, WeightModePhot)
				}
			}
		}
	}
	return nil
}

func fillPlane(p []float32, v float32) {
	for i := range p {
		p[i] = v
	}
}
