package smlmweights

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var channelNames = [...]string{"prob", "phot", "x", "y", "z", "bg"}

// RenderWeightOverlay writes a JPEG showing one weight channel as a heat
// map with the emitter positions marked.
func RenderWeightOverlay(weight *Tensor, em *EmitterSet, psf *DeltaPSF, channel int, outputPath string) error {
	img, err := renderWeightImage(weight, em, psf, channel)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderWeightOverlayBytes is RenderWeightOverlay returning the JPEG bytes.
func RenderWeightOverlayBytes(weight *Tensor, em *EmitterSet, psf *DeltaPSF, channel int) ([]byte, error) {
	img, err := renderWeightImage(weight, em, psf, channel)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderWeightImage(weight *Tensor, em *EmitterSet, psf *DeltaPSF, channel int) (*image.RGBA, error) {
	batched, _, err := forwardBatched(weight)
	if err != nil {
		return nil, err
	}
	if channel < 0 || channel >= batched.Shape[1] {
		return nil, fmt.Errorf("%w: channel %d of shape %v", ErrInvalidShape, channel, weight.Shape)
	}
	h, w := batched.Shape[2], batched.Shape[3]
	plane := batched.Plane(0, channel)

	// Upscale so that single pixels stay visible (about 512px on the long side).
	scale := max(1, 512/max(h, w))
	imgW := h * scale
	imgH := w * scale
	summaryH := 40
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH+summaryH))

	for y := 0; y < imgH+summaryH; y++ {
		for x := 0; x < imgW; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	maxW := 0.0
	for _, v := range plane {
		if f := float64(v); !math.IsInf(f, 0) && f > maxW {
			maxW = f
		}
	}

	// The x axis runs horizontally, y vertically.
	for ix := 0; ix < h; ix++ {
		for iy := 0; iy < w; iy++ {
			c := weightColor(float64(plane[ix*w+iy]), maxW)
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(ix*scale+dx, iy*scale+dy, c)
				}
			}
		}
	}

	markerColor := color.RGBA{80, 160, 255, 255}
	drawn := 0
	if em != nil && psf != nil {
		for _, pt := range em.XYZ {
			ix, iy, ok := psf.PixelIndex(pt)
			if !ok {
				continue
			}
			cx := ix*scale + scale/2
			cy := iy*scale + scale/2
			drawCircle(img, cx, cy, max(2, scale/3), markerColor)
			drawn++
		}
	}

	name := fmt.Sprintf("ch%d", channel)
	if channel < len(channelNames) {
		name = channelNames[channel]
	}
	face := basicfont.Face7x13
	textColor := color.RGBA{220, 220, 220, 255}
	drawText(img, face, fmt.Sprintf("channel %d (%s)  max weight %.4g", channel, name, maxW), 10, imgH+15, textColor)
	drawText(img, face, fmt.Sprintf("emitters in view: %d  frame %dx%d", drawn, h, w), 10, imgH+32, textColor)

	return img, nil
}

// weightColor maps a weight to black -> green -> yellow -> red.
func weightColor(v, maxW float64) color.RGBA {
	if math.IsInf(v, 1) {
		return color.RGBA{255, 255, 255, 255}
	}
	if v <= 0 || maxW <= 0 {
		return color.RGBA{0, 0, 0, 255}
	}
	t := math.Min(v/maxW, 1.0)

	var r, g, b uint8
	switch {
	case t <= 0.5:
		// Black -> Green
		s := t / 0.5
		g = uint8(40 + s*160)
		b = uint8(s * 20)
	case t <= 0.8:
		// Green -> Yellow
		s := (t - 0.5) / 0.3
		r = uint8(s * 220)
		g = 200
		b = 20
	default:
		// Yellow -> Red
		s := (t - 0.8) / 0.2
		r = uint8(220 + s*35)
		g = uint8(200 - s*180)
		b = 20
	}
	return color.RGBA{r, g, b, 255}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}
