package smlmweights

import "fmt"

// PlaneStatistics holds summary values of one image plane.
type PlaneStatistics struct {
	Mean     float64
	StdDev   float64
	NonZero  int
	NumPixel int
}

func (s PlaneStatistics) String() string {
	return fmt.Sprintf("{Mean=%f, StdDev=%f, NonZero=%d/%d}", s.Mean, s.StdDev, s.NonZero, s.NumPixel)
}

// CalculatePlaneStatistics computes mean, standard deviation and the number
// of nonzero pixels of an H×W plane.
func CalculatePlaneStatistics(plane []float32, height, width int) PlaneStatistics {
	m := NewMatFromFloat32(height, width, plane)
	defer m.Close()
	mean, std := matMeanStdDev(m)
	return PlaneStatistics{
		Mean:     mean,
		StdDev:   std,
		NonZero:  countNonZero(m),
		NumPixel: height * width,
	}
}

// onesKernel returns a size×1 all-ones kernel for separable box sums.
func onesKernel(size int) Mat {
	k := NewMatWithSize(size, 1)
	data := k.DataFloat32()
	for i := 0; i < size; i++ {
		data[i] = 1
	}
	return k
}

// boxSumConstant sums every size×size neighbourhood of src with pixels
// outside the image counted as zero.
func boxSumConstant(src Mat, size int) Mat {
	kernel := onesKernel(size)
	defer kernel.Close()
	dst := NewMat()
	sepFilter2DConstant(src, &dst, kernel, kernel)
	return dst
}

// nonZeroMask returns a Mat that is 1 where src != 0 and 0 elsewhere.
func nonZeroMask(src Mat) Mat {
	zero := NewMatWithSize(src.Rows(), src.Cols())
	defer zero.Close()
	zero.SetToZero()

	abs := NewMat()
	defer abs.Close()
	absDiff(src, zero, &abs)

	mask := NewMat()
	thresholdBinary(abs, &mask, 0, 1)
	return mask
}
