package smlmweights

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Point3d is an emitter coordinate. X and Y are in the units of the PSF
// extent (usually pixels), Z in nm.
type Point3d struct {
	X, Y, Z float64
}

// EmitterSet is an ordered collection of point emitters. XYZ and Phot are
// index aligned. XYZCR and PhotCR hold Cramér–Rao bounds once populated.
type EmitterSet struct {
	XYZ    []Point3d
	Phot   []float64
	XYZCR  []Point3d
	PhotCR []float64
	Device Device
}

// NewEmitterSet creates an emitter set on the CPU. xyz and phot must have
// the same length.
func NewEmitterSet(xyz []Point3d, phot []float64) (*EmitterSet, error) {
	em := &EmitterSet{XYZ: xyz, Phot: phot, Device: DeviceCPU}
	if err := em.checkAligned(); err != nil {
		return nil, err
	}
	return em, nil
}

// Len returns the number of emitters. A nil set is empty.
func (e *EmitterSet) Len() int {
	if e == nil {
		return 0
	}
	return len(e.XYZ)
}

func (e *EmitterSet) checkAligned() error {
	if len(e.XYZ) != len(e.Phot) {
		return fmt.Errorf("%w: %d coordinates but %d photon counts", ErrInvalidEmitterData, len(e.XYZ), len(e.Phot))
	}
	return nil
}

// Validate checks index alignment and that all photon counts are >= 0.
// NaN counts are rejected.
func (e *EmitterSet) Validate() error {
	if e == nil {
		return nil
	}
	if err := e.checkAligned(); err != nil {
		return err
	}
	if len(e.Phot) == 0 {
		return nil
	}
	if floats.HasNaN(e.Phot) {
		return fmt.Errorf("%w: photon count must be >= 0, got NaN", ErrInvalidEmitterData)
	}
	if m := floats.Min(e.Phot); !(m >= 0) {
		return fmt.Errorf("%w: photon count must be >= 0, min is %v", ErrInvalidEmitterData, m)
	}
	return nil
}

// HasCRLB reports whether Cramér–Rao bounds are populated for every emitter.
func (e *EmitterSet) HasCRLB() bool {
	return len(e.XYZCR) == e.Len() && len(e.PhotCR) == e.Len()
}
