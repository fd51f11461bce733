package smlmweights

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// InflatorSuite exercises OneHotInflator on small single channel frames.
type InflatorSuite struct {
	suite.Suite
}

func TestInflatorSuite(t *testing.T) {
	suite.Run(t, new(InflatorSuite))
}

// frame builds a (1, h, w) tensor with the given hot pixels.
func (s *InflatorSuite) frame(h, w int, hot map[[2]int]float32) *Tensor {
	x := NewTensor(1, h, w)
	for px, v := range hot {
		x.Set(v, 0, px[0], px[1])
	}
	return x
}

func (s *InflatorSuite) inflator(mode OverlapMode) *OneHotInflator {
	inf, err := NewOneHotInflator(3, 1, mode)
	require.NoError(s.T(), err)
	return inf
}

func (s *InflatorSuite) TestAccessors() {
	inf, err := NewOneHotInflator(3, 4, OverlapMean)
	s.Require().NoError(err)
	s.Equal(3, inf.ROISize())
	s.Equal(4, inf.Channels())
	s.Equal(OverlapMean, inf.OverlapMode())
}

func (s *InflatorSuite) TestUnsupportedConfiguration() {
	_, err := NewOneHotInflator(5, 1, OverlapZero)
	s.Require().ErrorIs(err, ErrUnsupportedConfiguration)
	_, err = NewOneHotInflator(3, 1, "max")
	s.Require().ErrorIs(err, ErrUnsupportedConfiguration)
	_, err = NewOneHotInflator(3, 0, OverlapMean)
	s.Require().ErrorIs(err, ErrUnsupportedConfiguration)
}

// TestIsolatedPixel checks that a lone hot pixel becomes a full 3×3 block.
func (s *InflatorSuite) TestIsolatedPixel() {
	x := s.frame(7, 7, map[[2]int]float32{{3, 3}: 2})
	out, err := s.inflator(OverlapZero).Forward(x)
	s.Require().NoError(err)
	s.Require().Equal([]int{1, 7, 7}, out.Shape)

	for i := 0; i < 7; i++ {
		for j := 0; j < 7; j++ {
			want := float32(0)
			if i >= 2 && i <= 4 && j >= 2 && j <= 4 {
				want = 2
			}
			s.Equal(want, out.At(0, i, j), "pixel (%d, %d)", i, j)
		}
	}
	// Input untouched.
	s.Equal(float32(0), x.At(0, 3, 2))
}

// TestBorderIsClipped checks that an ROI at the corner does not wrap.
func (s *InflatorSuite) TestBorderIsClipped() {
	x := s.frame(5, 5, map[[2]int]float32{{0, 0}: 1.5})
	out, err := s.inflator(OverlapZero).Forward(x)
	s.Require().NoError(err)

	nonZero := 0
	for _, v := range out.Data {
		if v != 0 {
			nonZero++
			s.Equal(float32(1.5), v)
		}
	}
	s.Equal(4, nonZero)
	s.Equal(float32(0), out.At(0, 4, 4))
}

// TestOverlapZero places two emitters two pixels apart; their ROIs share
// one column, which is zeroed while both centers survive.
func (s *InflatorSuite) TestOverlapZero() {
	x := s.frame(7, 7, map[[2]int]float32{{3, 1}: 2, {3, 3}: 4})
	out, err := s.inflator(OverlapZero).Forward(x)
	s.Require().NoError(err)

	s.Equal(float32(2), out.At(0, 3, 1))
	s.Equal(float32(4), out.At(0, 3, 3))
	for _, i := range []int{2, 3, 4} {
		s.Equal(float32(0), out.At(0, i, 2), "shared pixel (%d, 2)", i)
		s.Equal(float32(2), out.At(0, i, 0))
		s.Equal(float32(4), out.At(0, i, 4))
	}
}

func (s *InflatorSuite) TestOverlapMean() {
	x := s.frame(7, 7, map[[2]int]float32{{3, 1}: 2, {3, 3}: 4})
	out, err := s.inflator(OverlapMean).Forward(x)
	s.Require().NoError(err)

	s.Equal(float32(2), out.At(0, 3, 1))
	s.Equal(float32(4), out.At(0, 3, 3))
	for _, i := range []int{2, 3, 4} {
		s.InDelta(3.0, float64(out.At(0, i, 2)), 1e-6)
	}
}

// TestAdjacentCentersPreserved checks that a hot pixel lying inside a
// neighbouring ROI keeps its own value.
func (s *InflatorSuite) TestAdjacentCentersPreserved() {
	x := s.frame(7, 7, map[[2]int]float32{{3, 3}: 1, {3, 4}: 5})
	for _, mode := range []OverlapMode{OverlapZero, OverlapMean} {
		out, err := s.inflator(mode).Forward(x)
		s.Require().NoError(err)
		s.Equal(float32(1), out.At(0, 3, 3), string(mode))
		s.Equal(float32(5), out.At(0, 3, 4), string(mode))
	}
}

func (s *InflatorSuite) TestBatchedInputKeepsRank() {
	inf, err := NewOneHotInflator(3, 2, OverlapZero)
	s.Require().NoError(err)

	x := NewTensor(3, 2, 6, 6)
	x.Set(1, 2, 1, 3, 3)
	out, err := inf.Forward(x)
	s.Require().NoError(err)
	s.Equal([]int{3, 2, 6, 6}, out.Shape)
	s.Equal(float32(1), out.At(2, 1, 2, 2))
	s.Equal(float32(0), out.At(2, 0, 2, 2))
	s.Equal(float32(0), out.At(0, 1, 2, 2))
}

func (s *InflatorSuite) TestShapeErrors() {
	inf := s.inflator(OverlapZero)
	_, err := inf.Forward(NewTensor(2, 5, 5))
	s.Require().ErrorIs(err, ErrInvalidShape)
	_, err = inf.Forward(NewTensor(5, 5))
	s.Require().ErrorIs(err, ErrInvalidShape)
}
