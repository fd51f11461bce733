//go:build crlb

package smlmweights

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// crlbParams is the parameter order of the Fisher matrix.
const (
	crlbX = iota
	crlbY
	crlbZ
	crlbPhot
	crlbBg
	crlbNumParams
)

// GaussianPSF is an astigmatic, pixel-integrated 2D Gaussian. The widths
// grow with defocus in opposite directions for x and y, which makes z
// observable:
//
//	sigmaX(z) = Sigma0 * sqrt(1 + ((z - FocalOffset) / Depth)^2)
//	sigmaY(z) = Sigma0 * sqrt(1 + ((z + FocalOffset) / Depth)^2)
//
// Sigma0 is in units of the frame extent, z, FocalOffset and Depth in nm.
type GaussianPSF struct {
	Grid        *DeltaPSF
	Sigma0      float64
	FocalOffset float64
	Depth       float64
}

// NewGaussianPSF validates the shape parameters.
func NewGaussianPSF(grid *DeltaPSF, sigma0, focalOffset, depth float64) (*GaussianPSF, error) {
	if grid == nil || !(sigma0 > 0) || !(depth > 0) {
		return nil, fmt.Errorf("%w: gaussian psf sigma0=%v depth=%v", ErrUnsupportedConfiguration, sigma0, depth)
	}
	return &GaussianPSF{Grid: grid, Sigma0: sigma0, FocalOffset: focalOffset, Depth: depth}, nil
}

// ParseGaussianPSF builds the PSF model from the CRLB and Simulation sections.
func ParseGaussianPSF(p *Param) (*GaussianPSF, error) {
	xextent, yextent, imgShape := p.PSFGeometry()
	grid, err := NewDeltaPSF(xextent, yextent, imgShape)
	if err != nil {
		return nil, err
	}
	return NewGaussianPSF(grid, p.CRLB.Sigma0, p.CRLB.FocalOffset, p.CRLB.Depth)
}

func (g *GaussianPSF) sigmas(z float64) (float64, float64) {
	ax := (z - g.FocalOffset) / g.Depth
	ay := (z + g.FocalOffset) / g.Depth
	return g.Sigma0 * math.Sqrt(1+ax*ax), g.Sigma0 * math.Sqrt(1+ay*ay)
}

// integrated1D is the fraction of a unit Gaussian at mu with width sigma
// that falls into [lo, hi].
func integrated1D(lo, hi, mu, sigma float64) float64 {
	s := math.Sqrt2 * sigma
	return 0.5 * (math.Erf((hi-mu)/s) - math.Erf((lo-mu)/s))
}

// expectation returns the expected photon count of pixel (ix, iy) for the
// parameter vector p (x, y, z, phot, bg).
func (g *GaussianPSF) expectation(p []float64, ix, iy int) float64 {
	dx, dy := g.pixelSize()
	cx, cy := g.Grid.PixelCenter(ix, iy)
	sx, sy := g.sigmas(p[crlbZ])
	ex := integrated1D(cx-dx/2, cx+dx/2, p[crlbX], sx)
	ey := integrated1D(cy-dy/2, cy+dy/2, p[crlbY], sy)
	return p[crlbBg] + p[crlbPhot]*ex*ey
}

func (g *GaussianPSF) pixelSize() (float64, float64) {
	return (g.Grid.XExtent[1] - g.Grid.XExtent[0]) / float64(g.Grid.ImgShape[0]),
		(g.Grid.YExtent[1] - g.Grid.YExtent[0]) / float64(g.Grid.ImgShape[1])
}

// window returns the pixel range holding practically all of the PSF mass.
func (g *GaussianPSF) window(pt Point3d) (x0, x1, y0, y1 int) {
	dx, dy := g.pixelSize()
	sx, sy := g.sigmas(pt.Z)
	rx := int(math.Ceil(5*sx/dx)) + 1
	ry := int(math.Ceil(5*sy/dy)) + 1
	ix := int(math.Floor((pt.X - g.Grid.XExtent[0]) / dx))
	iy := int(math.Floor((pt.Y - g.Grid.YExtent[0]) / dy))
	x0, x1 = max(0, ix-rx), min(g.Grid.ImgShape[0]-1, ix+rx)
	y0, y1 = max(0, iy-ry), min(g.Grid.ImgShape[1]-1, iy+ry)
	return x0, x1, y0, y1
}

// gradient fills grad with d expectation / d p at pixel (ix, iy). Position
// and z derivatives are central differences, photon and background ones
// are analytic.
func (g *GaussianPSF) gradient(p []float64, ix, iy int, grad []float64) {
	dx, dy := g.pixelSize()
	steps := [3]float64{1e-4 * dx, 1e-4 * dy, 1e-3 * g.Depth}
	q := make([]float64, crlbNumParams)
	for j := crlbX; j <= crlbZ; j++ {
		copy(q, p)
		q[j] = p[j] + steps[j]
		up := g.expectation(q, ix, iy)
		q[j] = p[j] - steps[j]
		down := g.expectation(q, ix, iy)
		grad[j] = (up - down) / (2 * steps[j])
	}
	if p[crlbPhot] > 0 {
		grad[crlbPhot] = (g.expectation(p, ix, iy) - p[crlbBg]) / p[crlbPhot]
	} else {
		copy(q, p)
		q[crlbPhot] = 1
		q[crlbBg] = 0
		grad[crlbPhot] = g.expectation(q, ix, iy)
	}
	grad[crlbBg] = 1
}

// Fisher returns the Fisher information of (x, y, z, phot, bg) for one
// emitter under Poisson noise.
func (g *GaussianPSF) Fisher(pt Point3d, phot, bg float64) (*mat.SymDense, error) {
	if !(phot > 0) {
		return nil, fmt.Errorf("%w: photon count %v must be > 0 for CRLB", ErrInvalidEmitterData, phot)
	}
	if !(bg > 0) {
		return nil, fmt.Errorf("%w: background %v must be > 0 for CRLB", ErrInvalidFrameData, bg)
	}
	p := []float64{pt.X, pt.Y, pt.Z, phot, bg}
	fisher := mat.NewSymDense(crlbNumParams, nil)
	grad := make([]float64, crlbNumParams)

	x0, x1, y0, y1 := g.window(pt)
	for ix := x0; ix <= x1; ix++ {
		for iy := y0; iy <= y1; iy++ {
			mu := g.expectation(p, ix, iy)
			if mu <= 0 {
				continue
			}
			g.gradient(p, ix, iy, grad)
			for i := 0; i < crlbNumParams; i++ {
				for j := i; j < crlbNumParams; j++ {
					fisher.SetSym(i, j, fisher.At(i, j)+grad[i]*grad[j]/mu)
				}
			}
		}
	}
	return fisher, nil
}

// CRLB returns the square root of the Cramér–Rao bound (a standard
// deviation) for x, y, z and the photon count.
func (g *GaussianPSF) CRLB(pt Point3d, phot, bg float64) (Point3d, float64, error) {
	fisher, err := g.Fisher(pt, phot, bg)
	if err != nil {
		return Point3d{}, 0, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(fisher); !ok {
		return Point3d{}, 0, fmt.Errorf("%w: Fisher matrix not positive definite at %+v", ErrInvalidEmitterData, pt)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return Point3d{}, 0, fmt.Errorf("%w: inverting Fisher matrix: %v", ErrInvalidEmitterData, err)
	}
	return Point3d{
		X: math.Sqrt(cov.At(crlbX, crlbX)),
		Y: math.Sqrt(cov.At(crlbY, crlbY)),
		Z: math.Sqrt(cov.At(crlbZ, crlbZ)),
	}, math.Sqrt(cov.At(crlbPhot, crlbPhot)), nil
}
