package smlmweights

import (
	"fmt"
	"math/rand/v2"
)

// StructurePrior samples emitter positions.
type StructurePrior interface {
	// Pop draws n positions. With dim == 2 the z coordinate is zero.
	Pop(n, dim int, rng *rand.Rand) []Point3d
}

// RandomStructure samples positions uniformly inside an axis aligned box.
type RandomStructure struct {
	XExtent Extent
	YExtent Extent
	ZExtent Extent
}

// ParseRandomStructure builds a RandomStructure from Simulation.emitter_extent.
func ParseRandomStructure(p *Param) (*RandomStructure, error) {
	ext := p.Simulation.EmitterExtent
	if len(ext) < 3 {
		return nil, fmt.Errorf("%w: emitter_extent needs x, y and z entries", ErrUnsupportedConfiguration)
	}
	return &RandomStructure{XExtent: ext[0], YExtent: ext[1], ZExtent: ext[2]}, nil
}

// Area is the area of the xy projection.
func (s *RandomStructure) Area() float64 {
	return (s.XExtent[1] - s.XExtent[0]) * (s.YExtent[1] - s.YExtent[0])
}

func (s *RandomStructure) Pop(n, dim int, rng *rand.Rand) []Point3d {
	xyz := make([]Point3d, n)
	for i := range xyz {
		xyz[i] = Point3d{
			X: s.XExtent[0] + rng.Float64()*(s.XExtent[1]-s.XExtent[0]),
			Y: s.YExtent[0] + rng.Float64()*(s.YExtent[1]-s.YExtent[0]),
			Z: s.ZExtent[0] + rng.Float64()*(s.ZExtent[1]-s.ZExtent[0]),
		}
		if dim == 2 {
			xyz[i].Z = 0
		}
	}
	return xyz
}

// DiscreteZStructure places all emitters at one xy position with z drawn
// from {-ZAbsMax, 0, ZAbsMax} plus Gaussian jitter of width Eps.
type DiscreteZStructure struct {
	X, Y    float64
	ZAbsMax float64
	Eps     float64
}

func (s *DiscreteZStructure) Pop(n, dim int, rng *rand.Rand) []Point3d {
	xyz := make([]Point3d, n)
	for i := range xyz {
		xyz[i] = Point3d{X: s.X, Y: s.Y}
		if dim == 2 {
			continue
		}
		zIx := float64(rng.IntN(3) - 1)
		xyz[i].Z = zIx*s.ZAbsMax + rng.NormFloat64()*s.Eps
	}
	return xyz
}

// SampleEmitters draws n emitters from prior with photon counts from
// N(mu, sig) clipped at zero.
func SampleEmitters(prior StructurePrior, n int, intensityMuSig [2]float64, rng *rand.Rand) *EmitterSet {
	xyz := prior.Pop(n, 3, rng)
	phot := make([]float64, n)
	for i := range phot {
		phot[i] = max(0, intensityMuSig[0]+rng.NormFloat64()*intensityMuSig[1])
	}
	return &EmitterSet{XYZ: xyz, Phot: phot, Device: DeviceCPU}
}
