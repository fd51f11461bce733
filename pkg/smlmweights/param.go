package smlmweights

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Extent is a closed [min, max] interval.
type Extent [2]float64

// Param is the parameter file consumed by the Parse* constructors.
type Param struct {
	Simulation     SimulationParam     `yaml:"Simulation"`
	HyperParameter HyperParameterParam `yaml:"HyperParameter"`
	CRLB           CRLBParam           `yaml:"CRLB"`
}

// SimulationParam describes the simulated field of view.
type SimulationParam struct {
	// PSFExtent holds the x, y and z extent of the rendered frame. The z
	// entry may be null.
	PSFExtent []Extent `yaml:"psf_extent"`
	// ImgSize is the frame size in pixels, (x, y).
	ImgSize [2]int `yaml:"img_size"`
	// EmitterExtent bounds sampled emitter positions in x, y and z.
	EmitterExtent []Extent `yaml:"emitter_extent"`
	// EmitterAv is the average number of emitters per frame.
	EmitterAv float64 `yaml:"emitter_av"`
	// IntensityMuSig is mean and standard deviation of the photon count.
	IntensityMuSig [2]float64 `yaml:"intensity_mu_sig"`
	// BgUniform is the constant background per pixel of simulated targets.
	BgUniform float64 `yaml:"bg_uniform"`
}

// HyperParameterParam holds the weight generator settings.
type HyperParameterParam struct {
	TargetROISize   int        `yaml:"target_roi_size"`
	WeightBase      WeightMode `yaml:"weight_base"`
	WeightPower     *float64   `yaml:"weight_power"`
	WeightGenerator string     `yaml:"weight_generator"`
}

// CRLBParam configures the astigmatic Gaussian PSF used to compute
// Cramér–Rao bounds. Only read by builds with the crlb tag.
type CRLBParam struct {
	Sigma0      float64 `yaml:"sigma0"`
	FocalOffset float64 `yaml:"focal_offset"`
	Depth       float64 `yaml:"depth"`
}

// DefaultParam returns a 32×32 px setup with constant weights.
func DefaultParam() *Param {
	return &Param{
		Simulation: SimulationParam{
			PSFExtent:      []Extent{{-0.5, 31.5}, {-0.5, 31.5}, {-750, 750}},
			ImgSize:        [2]int{32, 32},
			EmitterExtent:  []Extent{{-0.5, 31.5}, {-0.5, 31.5}, {-750, 750}},
			EmitterAv:      10,
			IntensityMuSig: [2]float64{10000, 500},
			BgUniform:      100,
		},
		HyperParameter: HyperParameterParam{
			TargetROISize:   3,
			WeightBase:      WeightModeConst,
			WeightGenerator: DefaultWeightGenerator,
		},
		CRLB: CRLBParam{
			Sigma0:      1.0,
			FocalOffset: 400,
			Depth:       400,
		},
	}
}

// ParseParam decodes a YAML parameter document on top of DefaultParam.
// Unknown keys are rejected; an empty document yields the defaults.
func ParseParam(data []byte) (*Param, error) {
	p := DefaultParam()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding parameters: %w", err)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadParam reads and decodes a YAML parameter file.
func LoadParam(path string) (*Param, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	p, err := ParseParam(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Param) check() error {
	if len(p.Simulation.PSFExtent) < 2 {
		return fmt.Errorf("%w: psf_extent needs x and y entries", ErrUnsupportedConfiguration)
	}
	if len(p.Simulation.EmitterExtent) < 3 {
		return fmt.Errorf("%w: emitter_extent needs x, y and z entries", ErrUnsupportedConfiguration)
	}
	return nil
}

// PSFGeometry returns the x/y extents and image shape shared by all
// rasterizing constructors.
func (p *Param) PSFGeometry() (xextent, yextent [2]float64, imgShape [2]int) {
	return p.Simulation.PSFExtent[0], p.Simulation.PSFExtent[1], p.Simulation.ImgSize
}
