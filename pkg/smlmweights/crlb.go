//go:build crlb

package smlmweights

import (
	"fmt"
	"log/slog"
)

// The CRLB based generators are only built with -tags crlb.
func init() {
	RegisterWeightGenerator("CalcCRLB", func(p *Param) (WeightGenerator, error) {
		return ParseCalcCRLB(p)
	})
	RegisterWeightGenerator("GenerateWeightMaskFromCRLB", func(p *Param) (WeightGenerator, error) {
		return ParseCRLBWeight(p)
	})
}

// CalcCRLB annotates the target emitters with Cramér–Rao bounds. Forward
// writes em.XYZCR and em.PhotCR and returns the frames unchanged.
type CalcCRLB struct {
	psf *GaussianPSF
}

func NewCalcCRLB(psf *GaussianPSF) *CalcCRLB {
	return &CalcCRLB{psf: psf}
}

func ParseCalcCRLB(p *Param) (*CalcCRLB, error) {
	psf, err := ParseGaussianPSF(p)
	if err != nil {
		return nil, err
	}
	return NewCalcCRLB(psf), nil
}

// Forward uses opt as the background when it is a float64. Otherwise the
// background is read from channel 5 of the first frame at each emitter's
// pixel.
func (cc *CalcCRLB) Forward(frames *Tensor, em *EmitterSet, opt any) (*Tensor, error) {
	if err := em.Validate(); err != nil {
		return nil, err
	}
	if em.Len() == 0 {
		return frames, nil
	}
	batched, _, err := forwardBatched(frames)
	if err != nil {
		return nil, err
	}
	if err := sameDevice(batched.Device, em.Device); err != nil {
		return nil, err
	}

	bgAt := func(pt Point3d) (float64, error) {
		if bg, ok := opt.(float64); ok {
			return bg, nil
		}
		if batched.Shape[1] < 6 {
			return 0, fmt.Errorf("%w: no background channel and no background passed", ErrInvalidFrameData)
		}
		ix, iy, ok := cc.psf.Grid.PixelIndex(pt)
		if !ok {
			return 0, fmt.Errorf("%w: emitter %+v outside the frame", ErrInvalidEmitterData, pt)
		}
		return float64(batched.Plane(0, ChannelBg)[ix*batched.Shape[3]+iy]), nil
	}

	xyzCR := make([]Point3d, em.Len())
	photCR := make([]float64, em.Len())
	for i, pt := range em.XYZ {
		bg, err := bgAt(pt)
		if err != nil {
			return nil, err
		}
		if xyzCR[i], photCR[i], err = cc.psf.CRLB(pt, em.Phot[i], bg); err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
	}
	em.XYZCR = xyzCR
	em.PhotCR = photCR

	Logger().Debug("populated crlb", slog.Int("emitters", em.Len()))
	return frames, nil
}

// CRLBWeight builds a 6 channel weight mask from precomputed Cramér–Rao
// bounds: the photon and x/y/z channels carry 1/CRLB inside each emitter's
// ROI, detection and background channels are 1.
type CRLBWeight struct {
	weightPSF    *DeltaPSF
	roiIncreaser *OneHotInflator
	// annotator fills in missing bounds on a copy of the emitter set.
	annotator *CalcCRLB
}

// NewCRLBWeight creates the generator. ROI size must be 3.
func NewCRLBWeight(xextent, yextent [2]float64, imgShape [2]int, roiSize int) (*CRLBWeight, error) {
	psf, err := NewDeltaPSF(xextent, yextent, imgShape)
	if err != nil {
		return nil, err
	}
	inflator, err := NewOneHotInflator(roiSize, 6, OverlapZero)
	if err != nil {
		return nil, err
	}
	return &CRLBWeight{weightPSF: psf, roiIncreaser: inflator}, nil
}

// ParseCRLBWeight builds the generator together with a CalcCRLB from the
// CRLB section, used for emitter sets that carry no bounds yet.
func ParseCRLBWeight(p *Param) (*CRLBWeight, error) {
	xextent, yextent, imgShape := p.PSFGeometry()
	cw, err := NewCRLBWeight(xextent, yextent, imgShape, p.HyperParameter.TargetROISize)
	if err != nil {
		return nil, err
	}
	if cw.annotator, err = ParseCalcCRLB(p); err != nil {
		return nil, err
	}
	return cw, nil
}

// Forward requires em to carry positive CRLB values, see CalcCRLB. When
// the generator was built by ParseCRLBWeight, missing values are computed
// on a copy of em with the frame background; em itself is not modified.
func (cw *CRLBWeight) Forward(frames *Tensor, em *EmitterSet, _ any) (*Tensor, error) {
	batched, squeeze, err := forwardBatched(frames)
	if err != nil {
		return nil, err
	}
	if h, w := batched.Shape[2], batched.Shape[3]; h != cw.weightPSF.ImgShape[0] || w != cw.weightPSF.ImgShape[1] {
		return nil, fmt.Errorf("%w: frame size %dx%d, configured %v", ErrInvalidShape, h, w, cw.weightPSF.ImgShape)
	}
	if em == nil {
		em = &EmitterSet{}
	}
	if em.Len() > 0 {
		if err := sameDevice(batched.Device, em.Device); err != nil {
			return nil, err
		}
	}
	if !em.HasCRLB() && cw.annotator != nil && em.Len() > 0 {
		annotated := *em
		if _, err := cw.annotator.Forward(frames, &annotated, nil); err != nil {
			return nil, err
		}
		em = &annotated
	}
	if !em.HasCRLB() {
		return nil, fmt.Errorf("%w: emitter set carries no CRLB values", ErrInvalidEmitterData)
	}

	n := em.Len()
	invPhot := make([]float64, n)
	invX := make([]float64, n)
	invY := make([]float64, n)
	invZ := make([]float64, n)
	for i := 0; i < n; i++ {
		cr := em.XYZCR[i]
		if !(em.PhotCR[i] > 0 && cr.X > 0 && cr.Y > 0 && cr.Z > 0) {
			return nil, fmt.Errorf("%w: CRLB of emitter %d must be > 0", ErrInvalidEmitterData, i)
		}
		invPhot[i] = 1 / em.PhotCR[i]
		invX[i] = 1 / cr.X
		invY[i] = 1 / cr.Y
		invZ[i] = 1 / cr.Z
	}

	nBatch, h, w := batched.Shape[0], batched.Shape[2], batched.Shape[3]
	weight := NewTensor(nBatch, 6, h, w)
	weight.Device = batched.Device
	for c, inv := range [][]float64{invPhot, invX, invY, invZ} {
		raster, err := cw.weightPSF.Forward(em.XYZ, inv)
		if err != nil {
			return nil, err
		}
		for b := 0; b < nBatch; b++ {
			copy(weight.Plane(b, ChannelPhot+c), raster.Data)
		}
	}

	weight, err = cw.roiIncreaser.Forward(weight)
	if err != nil {
		return nil, err
	}
	for b := 0; b < nBatch; b++ {
		fillPlane(weight.Plane(b, ChannelProb), 1)
		fillPlane(weight.Plane(b, ChannelBg), 1)
	}
	return forwardReturnOriginal(weight, squeeze)
}
