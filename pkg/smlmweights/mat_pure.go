//go:build purego || js

package smlmweights

import "math"

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data  []float32
	rows  int
	cols  int
	owned bool
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data:  make([]float32, rows*cols),
		rows:  rows,
		cols:  cols,
		owned: true,
	}
}

// NewMatFromFloat32 copies a row-major plane into a new Mat.
func NewMatFromFloat32(rows, cols int, data []float32) Mat {
	m := NewMatWithSize(rows, cols)
	copy(m.data, data[:rows*cols])
	return m
}

func (m Mat) Rows() int { return m.rows }
func (m Mat) Cols() int { return m.cols }

func (m *Mat) Close() {
	if m.owned {
		m.data = nil
	}
	m.rows = 0
	m.cols = 0
}

func (m Mat) DataFloat32() []float32 {
	return m.data
}

func (m *Mat) SetToZero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

func ensureSize(dst *Mat, rows, cols int) {
	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
}

// --- Pure Go CV operations ---

// sepFilter2DConstant filters with a zero constant border, so sums near the
// image edge only see in-image pixels.
func sepFilter2DConstant(src Mat, dst *Mat, kernelX, kernelY Mat) {
	rows, cols := src.rows, src.cols
	srcData := src.DataFloat32()
	kx := kernelX.DataFloat32()
	ky := kernelY.DataFloat32()
	kxLen := kernelX.rows * kernelX.cols
	kyLen := kernelY.rows * kernelY.cols
	kxHalf := kxLen / 2
	kyHalf := kyLen / 2

	temp := make([]float32, rows*cols)

	// Horizontal pass
	for r := 0; r < rows; r++ {
		rowOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float32
			for k := 0; k < kxLen; k++ {
				cc := c + k - kxHalf
				if cc < 0 || cc >= cols {
					continue
				}
				sum += srcData[rowOff+cc] * kx[k]
			}
			temp[rowOff+c] = sum
		}
	}

	// Vertical pass
	ensureSize(dst, rows, cols)
	dstData := dst.DataFloat32()
	for r := 0; r < rows; r++ {
		dstOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float32
			for k := 0; k < kyLen; k++ {
				rr := r + k - kyHalf
				if rr < 0 || rr >= rows {
					continue
				}
				sum += temp[rr*cols+c] * ky[k]
			}
			dstData[dstOff+c] = sum
		}
	}
}

func absDiff(a, b Mat, dst *Mat) {
	n := a.rows * a.cols
	ad, bd := a.DataFloat32(), b.DataFloat32()
	ensureSize(dst, a.rows, a.cols)
	dd := dst.DataFloat32()
	for i := 0; i < n; i++ {
		d := ad[i] - bd[i]
		if d < 0 {
			d = -d
		}
		dd[i] = d
	}
}

func thresholdBinary(src Mat, dst *Mat, thresh, maxval float32) {
	n := src.rows * src.cols
	sd := src.DataFloat32()
	ensureSize(dst, src.rows, src.cols)
	dd := dst.DataFloat32()
	for i := 0; i < n; i++ {
		if sd[i] > thresh {
			dd[i] = maxval
		} else {
			dd[i] = 0
		}
	}
}

func countNonZero(src Mat) int {
	count := 0
	for _, v := range src.data[:src.rows*src.cols] {
		if v != 0 {
			count++
		}
	}
	return count
}

func matMeanStdDev(src Mat) (float64, float64) {
	data := src.DataFloat32()
	n := src.rows * src.cols
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(data[i])
	}
	mean := sum / float64(n)
	var sse float64
	for i := 0; i < n; i++ {
		d := float64(data[i]) - mean
		sse += d * d
	}
	return mean, math.Sqrt(sse / float64(n))
}

func matCopyToWithMask(src Mat, dst *Mat, mask Mat) {
	n := src.rows * src.cols
	sd, dd, md := src.DataFloat32(), dst.DataFloat32(), mask.DataFloat32()
	for i := 0; i < n; i++ {
		if md[i] != 0 {
			dd[i] = sd[i]
		}
	}
}
