package smlmweights

import (
	"fmt"
	"slices"
)

// Device names the compute device a tensor lives on. The zero value is the CPU.
type Device string

const DeviceCPU Device = "cpu"

func (d Device) normalized() Device {
	if d == "" {
		return DeviceCPU
	}
	return d
}

// sameDevice fails fast when two operands live on different devices.
func sameDevice(a, b Device) error {
	if a.normalized() != b.normalized() {
		return fmt.Errorf("%w: %s vs %s", ErrDeviceMismatch, a.normalized(), b.normalized())
	}
	return nil
}

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape  []int
	Data   []float32
	Device Device
}

// NewTensor allocates a zero-filled tensor on the CPU.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{
		Shape:  slices.Clone(shape),
		Data:   make([]float32, shapeSize(shape)),
		Device: DeviceCPU,
	}
}

// NewTensorFromSlice wraps data without copying. len(data) must equal the
// product of shape.
func NewTensorFromSlice(data []float32, shape ...int) (*Tensor, error) {
	if n := shapeSize(shape); n != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrInvalidShape, len(data), shape)
	}
	return &Tensor{Shape: slices.Clone(shape), Data: data, Device: DeviceCPU}, nil
}

func shapeSize(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func (t *Tensor) Dim() int  { return len(t.Shape) }
func (t *Tensor) Size() int { return len(t.Data) }

// Clone returns a deep copy on the same device.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{Shape: slices.Clone(t.Shape), Data: slices.Clone(t.Data), Device: t.Device}
}

// ZerosLike allocates a zero tensor with the shape and device of t.
func ZerosLike(t *Tensor) *Tensor {
	z := NewTensor(t.Shape...)
	z.Device = t.Device
	return z
}

// Reshape returns a view sharing the backing data.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if shapeSize(shape) != len(t.Data) {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrInvalidShape, t.Shape, shape)
	}
	return &Tensor{Shape: slices.Clone(shape), Data: t.Data, Device: t.Device}, nil
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("index rank %d for tensor of rank %d", len(idx), len(t.Shape)))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= t.Shape[i] {
			panic(fmt.Sprintf("index %v out of range for shape %v", idx, t.Shape))
		}
		off = off*t.Shape[i] + ix
	}
	return off
}

func (t *Tensor) At(idx ...int) float32     { return t.Data[t.offset(idx)] }
func (t *Tensor) Set(v float32, idx ...int) { t.Data[t.offset(idx)] = v }

// Plane returns the H*W slice of batch n, channel c of a 4D tensor. The
// slice aliases the tensor data.
func (t *Tensor) Plane(n, c int) []float32 {
	if len(t.Shape) != 4 {
		panic(fmt.Sprintf("Plane on tensor of rank %d", len(t.Shape)))
	}
	hw := t.Shape[2] * t.Shape[3]
	off := (n*t.Shape[1] + c) * hw
	return t.Data[off : off+hw]
}

// Channels returns a copy of channels [from, to) of a 4D tensor.
func (t *Tensor) Channels(from, to int) *Tensor {
	n, h, w := t.Shape[0], t.Shape[2], t.Shape[3]
	out := NewTensor(n, to-from, h, w)
	out.Device = t.Device
	for b := 0; b < n; b++ {
		for c := from; c < to; c++ {
			copy(out.Plane(b, c-from), t.Plane(b, c))
		}
	}
	return out
}

// SetChannels copies src (N, K, H, W) into channels [from, from+K) of t.
func (t *Tensor) SetChannels(from int, src *Tensor) {
	for b := 0; b < src.Shape[0]; b++ {
		for c := 0; c < src.Shape[1]; c++ {
			copy(t.Plane(b, from+c), src.Plane(b, c))
		}
	}
}

func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}
