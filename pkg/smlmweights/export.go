package smlmweights

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"
)

// EncodeChannelTIFF writes one H×W plane as a 16-bit grayscale TIFF. Values
// are scaled so the largest finite value maps to 65535; the scale factor
// is returned so readers can undo it.
func EncodeChannelTIFF(w io.Writer, plane []float32, height, width int) (float64, error) {
	if len(plane) != height*width {
		return 0, fmt.Errorf("%w: %d values for %dx%d plane", ErrInvalidShape, len(plane), height, width)
	}
	maxV := 0.0
	for _, v := range plane {
		if f := float64(v); !math.IsInf(f, 0) && f > maxV {
			maxV = f
		}
	}
	scale := 1.0
	if maxV > 0 {
		scale = 65535 / maxV
	}

	// Rows of the TIFF follow the y axis, columns the x axis.
	img := image.NewGray16(image.Rect(0, 0, height, width))
	for ix := 0; ix < height; ix++ {
		for iy := 0; iy < width; iy++ {
			v := math.Max(0, math.Min(65535, float64(plane[ix*width+iy])*scale))
			img.SetGray16(ix, iy, color.Gray16{Y: uint16(math.Round(v))})
		}
	}
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return 0, fmt.Errorf("encode tiff: %w", err)
	}
	return scale, nil
}

// WriteChannelTIFF writes channel c of batch item n of a 4D tensor, or
// channel c of a 3D tensor, to path.
func WriteChannelTIFF(path string, t *Tensor, n, c int) (scale float64, err error) {
	batched, _, err := forwardBatched(t)
	if err != nil {
		return 0, err
	}
	if n < 0 || n >= batched.Shape[0] || c < 0 || c >= batched.Shape[1] {
		return 0, fmt.Errorf("%w: plane (%d, %d) of shape %v", ErrInvalidShape, n, c, t.Shape)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create tiff: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close tiff: %w", cerr)
		}
	}()
	return EncodeChannelTIFF(f, batched.Plane(n, c), batched.Shape[2], batched.Shape[3])
}
