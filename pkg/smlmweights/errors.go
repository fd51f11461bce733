package smlmweights

import "errors"

// Sentinel errors. Callers match with errors.Is; functions wrap them with
// context via fmt.Errorf("...: %w", ErrX).
var (
	// ErrUnsupportedConfiguration is returned at construction time for ROI
	// sizes, overlap modes or weight modes that are not implemented.
	ErrUnsupportedConfiguration = errors.New("smlmweights: unsupported configuration")

	// ErrInvalidShape is returned when a tensor rank, channel count or
	// spatial size does not match what the operation expects.
	ErrInvalidShape = errors.New("smlmweights: invalid shape")

	// ErrInvalidEmitterData indicates corrupted emitter input, e.g. negative
	// photon counts or coordinate/photon slices of different length.
	ErrInvalidEmitterData = errors.New("smlmweights: invalid emitter data")

	// ErrInvalidFrameData indicates frame values that cannot be used, e.g. a
	// zero background pixel used as a divisor.
	ErrInvalidFrameData = errors.New("smlmweights: invalid frame data")

	// ErrInvariantViolation marks an internal postcondition failure. It
	// points at a bug, not at bad input.
	ErrInvariantViolation = errors.New("smlmweights: invariant violation")

	// ErrDeviceMismatch is returned when the inputs of one call live on
	// different compute devices.
	ErrDeviceMismatch = errors.New("smlmweights: device mismatch")
)
