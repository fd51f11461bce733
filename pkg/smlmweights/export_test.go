package smlmweights

import (
	"bytes"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestEncodeChannelTIFF(t *testing.T) {
	plane := make([]float32, 4*6)
	plane[1*6+2] = 0.5
	plane[3*6+5] = 2
	plane[0] = float32(math.Inf(1))

	var buf bytes.Buffer
	scale, err := EncodeChannelTIFF(&buf, plane, 4, 6)
	require.NoError(t, err)
	assert.InDelta(t, 65535.0/2, scale, 1e-9)

	img, err := tiff.Decode(&buf)
	require.NoError(t, err)
	gray, ok := img.(*image.Gray16)
	require.True(t, ok, "decoded %T", img)
	assert.Equal(t, image.Rect(0, 0, 4, 6), gray.Bounds())
	assert.Equal(t, uint16(65535), gray.Gray16At(3, 5).Y)
	assert.InDelta(t, 65535.0/4, float64(gray.Gray16At(1, 2).Y), 1)
	assert.Equal(t, uint16(0), gray.Gray16At(2, 2).Y)
	assert.Equal(t, uint16(65535), gray.Gray16At(0, 0).Y, "infinite weights saturate")
}

func TestEncodeChannelTIFFShape(t *testing.T) {
	_, err := EncodeChannelTIFF(&bytes.Buffer{}, make([]float32, 5), 2, 3)
	require.ErrorIs(t, err, ErrInvalidShape)
}

func TestWriteChannelTIFF(t *testing.T) {
	sw := newTestSimpleWeight(t, WeightModeConst, nil)
	em := newTestEmitters(t, []Point3d{{X: 4, Y: 4}}, []float64{100})
	w, err := sw.Forward(framesWithBg([]int{6, 32, 32}, 1), em, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "phot.tif")
	scale, err := WriteChannelTIFF(path, w, 0, ChannelPhot)
	require.NoError(t, err)
	assert.Equal(t, 65535.0, scale)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	_, err = WriteChannelTIFF(filepath.Join(t.TempDir(), "missing", "phot.tif"), w, 0, ChannelPhot)
	require.Error(t, err)

	_, err = WriteChannelTIFF(path, w, 1, 0)
	require.ErrorIs(t, err, ErrInvalidShape)
	_, err = WriteChannelTIFF(path, w, 0, 6)
	require.ErrorIs(t, err, ErrInvalidShape)
}
