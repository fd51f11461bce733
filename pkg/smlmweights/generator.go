package smlmweights

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// WeightGenerator builds a per-pixel loss weight from target frames and the
// target emitters. frames are ((N,) C, H, W); the result has the same
// leading dimensions. opt carries strategy specific extras and may be nil.
//
// Implementations keep no per-call state, so one instance may serve
// concurrent callers.
type WeightGenerator interface {
	Forward(frames *Tensor, em *EmitterSet, opt any) (*Tensor, error)
}

// ParseFunc constructs a WeightGenerator from a parameter set.
type ParseFunc func(p *Param) (WeightGenerator, error)

// DefaultWeightGenerator is used when the parameter set names none.
const DefaultWeightGenerator = "SimpleWeight"

var (
	registryMu sync.RWMutex
	registry   = map[string]ParseFunc{}
)

// RegisterWeightGenerator makes a generator selectable by name through
// HyperParameter.weight_generator. Registering a name twice panics.
func RegisterWeightGenerator(name string, fn ParseFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("smlmweights: weight generator registered twice: " + name)
	}
	registry[name] = fn
}

// WeightGenerators lists the registered generator names in sorted order.
func WeightGenerators() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseWeightGenerator builds the generator named in p.
func ParseWeightGenerator(p *Param) (WeightGenerator, error) {
	name := p.HyperParameter.WeightGenerator
	if name == "" {
		name = DefaultWeightGenerator
	}
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: weight generator %q, available: %v", ErrUnsupportedConfiguration, name, WeightGenerators())
	}
	return fn(p)
}

// forwardBatched promotes a (C, H, W) tensor to (1, C, H, W). squeeze
// reports whether the promotion happened and must be handed back to
// forwardReturnOriginal by the same call.
func forwardBatched(x *Tensor) (batched *Tensor, squeeze bool, err error) {
	switch x.Dim() {
	case 3:
		b, err := x.Reshape(append([]int{1}, x.Shape...)...)
		return b, true, err
	case 4:
		return x, false, nil
	default:
		return nil, false, fmt.Errorf("%w: expected 3 or 4 dimensions, got shape %v", ErrInvalidShape, x.Shape)
	}
}

// forwardReturnOriginal restores the rank the caller passed in.
func forwardReturnOriginal(x *Tensor, squeeze bool) (*Tensor, error) {
	if !squeeze {
		return x, nil
	}
	if x.Dim() != 4 || x.Shape[0] != 1 {
		return nil, fmt.Errorf("%w: cannot squeeze batch dimension of shape %v", ErrInvariantViolation, x.Shape)
	}
	return x.Reshape(slices.Clone(x.Shape[1:])...)
}
