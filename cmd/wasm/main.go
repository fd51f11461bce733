//go:build js && wasm

package main

import (
	"sync"
	"syscall/js"

	sw "smlmweights/pkg/smlmweights"
)

var (
	mu         sync.Mutex
	lastWeight *sw.Tensor
	lastEm     *sw.EmitterSet
	lastPSF    *sw.DeltaPSF
)

func main() {
	js.Global().Set("computeWeights", js.FuncOf(computeWeights))
	js.Global().Set("renderWeightOverlay", js.FuncOf(renderWeightOverlay))
	select {} // block forever
}

// computeWeights(paramYAML, xyz, phot) builds the target frames for the
// given emitters and returns {shape, data} of the weight mask. xyz is an
// array of [x, y, z] triples, phot an array of photon counts.
func computeWeights(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("usage: computeWeights(paramYAML, xyz, phot)")
	}

	param, err := sw.ParseParam([]byte(args[0].String()))
	if err != nil {
		return errorResult("param error: " + err.Error())
	}

	xyzVal, photVal := args[1], args[2]
	n := xyzVal.Get("length").Int()
	if photVal.Get("length").Int() != n {
		return errorResult("xyz and phot must have the same length")
	}
	xyz := make([]sw.Point3d, n)
	phot := make([]float64, n)
	for i := 0; i < n; i++ {
		p := xyzVal.Index(i)
		xyz[i] = sw.Point3d{X: p.Index(0).Float(), Y: p.Index(1).Float(), Z: p.Index(2).Float()}
		phot[i] = photVal.Index(i).Float()
	}
	em, err := sw.NewEmitterSet(xyz, phot)
	if err != nil {
		return errorResult("emitter error: " + err.Error())
	}

	xextent, yextent, imgShape := param.PSFGeometry()
	psf, err := sw.NewDeltaPSF(xextent, yextent, imgShape)
	if err != nil {
		return errorResult("psf error: " + err.Error())
	}
	frames, err := sw.NewTargetFrames(psf, em, param.Simulation.BgUniform, 6)
	if err != nil {
		return errorResult("target error: " + err.Error())
	}

	gen, err := sw.ParseWeightGenerator(param)
	if err != nil {
		return errorResult("generator error: " + err.Error())
	}
	weight, err := gen.Forward(frames, em, nil)
	if err != nil {
		return errorResult("weight error: " + err.Error())
	}

	mu.Lock()
	lastWeight, lastEm, lastPSF = weight, em, psf
	mu.Unlock()

	shape := make([]interface{}, len(weight.Shape))
	for i, s := range weight.Shape {
		shape[i] = s
	}
	data := js.Global().Get("Float32Array").New(len(weight.Data))
	for i, v := range weight.Data {
		data.SetIndex(i, float64(v))
	}
	return js.ValueOf(map[string]interface{}{
		"shape": shape,
		"data":  data,
	})
}

// renderWeightOverlay(channel) returns the JPEG of the last computed mask.
func renderWeightOverlay(this js.Value, args []js.Value) interface{} {
	mu.Lock()
	weight, em, psf := lastWeight, lastEm, lastPSF
	mu.Unlock()
	if weight == nil {
		return js.Null()
	}

	channel := sw.ChannelPhot
	if len(args) >= 1 && args[0].Type() == js.TypeNumber {
		channel = args[0].Int()
	}

	jpegBytes, err := sw.RenderWeightOverlayBytes(weight, em, psf, channel)
	if err != nil {
		return js.Null()
	}

	// Create Uint8Array and copy bytes
	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
