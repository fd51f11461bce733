package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	sw "smlmweights/pkg/smlmweights"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	paramPath string
	outDir    string
	batch     int
	emitters  int
	seed      uint64
	overlay   int
	verbose   bool
}

func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("smlmweights", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.paramPath, "param", "", "YAML parameter file (defaults when empty)")
	fs.StringVar(&o.outDir, "out", "", "directory for TIFF channels and the overlay JPEG")
	fs.IntVar(&o.batch, "batch", 1, "number of target frames")
	fs.IntVar(&o.emitters, "emitters", -1, "emitters to sample (Simulation.emitter_av when < 0)")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed (time based when 0)")
	fs.IntVar(&o.overlay, "overlay", sw.ChannelPhot, "weight channel rendered into overlay.jpg")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.batch < 1 {
		return nil, fmt.Errorf("batch must be >= 1, got %d", o.batch)
	}
	return o, nil
}

func run(args []string) error {
	o, err := parseArgs(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	sw.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	param := sw.DefaultParam()
	if o.paramPath != "" {
		fmt.Printf("Loading: %s\n", o.paramPath)
		if param, err = sw.LoadParam(o.paramPath); err != nil {
			return err
		}
	}

	seed := o.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	startTime := time.Now()
	em, frames, psf, err := simulateTargets(param, o, rng)
	if err != nil {
		return err
	}

	gen, err := sw.ParseWeightGenerator(param)
	if err != nil {
		return err
	}
	weight, err := gen.Forward(frames, em, nil)
	if err != nil {
		return fmt.Errorf("computing weights: %w", err)
	}
	elapsed := time.Since(startTime)

	printSummary(param, em, weight, elapsed)

	if o.outDir != "" {
		if err := writeOutputs(o, weight, em, psf); err != nil {
			return err
		}
	}
	return nil
}

func simulateTargets(param *sw.Param, o *options, rng *rand.Rand) (*sw.EmitterSet, *sw.Tensor, *sw.DeltaPSF, error) {
	prior, err := sw.ParseRandomStructure(param)
	if err != nil {
		return nil, nil, nil, err
	}
	n := o.emitters
	if n < 0 {
		n = int(param.Simulation.EmitterAv + 0.5)
	}
	em := sw.SampleEmitters(prior, n, param.Simulation.IntensityMuSig, rng)

	xextent, yextent, imgShape := param.PSFGeometry()
	psf, err := sw.NewDeltaPSF(xextent, yextent, imgShape)
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := sw.NewTargetFrames(psf, em, param.Simulation.BgUniform, 6)
	if err != nil {
		return nil, nil, nil, err
	}
	if o.batch == 1 {
		return em, target, psf, nil
	}

	frames := sw.NewTensor(o.batch, 6, imgShape[0], imgShape[1])
	for b := 0; b < o.batch; b++ {
		copy(frames.Data[b*target.Size():(b+1)*target.Size()], target.Data)
	}
	return em, frames, psf, nil
}

func printSummary(param *sw.Param, em *sw.EmitterSet, weight *sw.Tensor, elapsed time.Duration) {
	fmt.Println()
	fmt.Printf("=== Weight Mask (%.1fms) ===\n", float64(elapsed.Microseconds())/1000)
	fmt.Printf("  Generator:      %s (%s)\n", generatorName(param), param.HyperParameter.WeightBase)
	fmt.Printf("  Weight shape:   %v\n", weight.Shape)
	fmt.Printf("  Emitters:       %d\n", em.Len())
	if em.Len() > 0 {
		fmt.Printf("  Photons:        min %.1f  max %.1f\n", floats.Min(em.Phot), floats.Max(em.Phot))
	}

	h, w := weight.Shape[weight.Dim()-2], weight.Shape[weight.Dim()-1]
	channels := weight.Shape[weight.Dim()-3]
	for c := 0; c < channels; c++ {
		plane := weight.Data[c*h*w : (c+1)*h*w]
		stats := sw.CalculatePlaneStatistics(plane, h, w)
		fmt.Printf("  ch%d  mean=%.4g  std=%.4g  nonzero=%d/%d\n", c, stats.Mean, stats.StdDev, stats.NonZero, stats.NumPixel)
	}
	fmt.Println("==============================")
}

func generatorName(param *sw.Param) string {
	if param.HyperParameter.WeightGenerator == "" {
		return sw.DefaultWeightGenerator
	}
	return param.HyperParameter.WeightGenerator
}

func writeOutputs(o *options, weight *sw.Tensor, em *sw.EmitterSet, psf *sw.DeltaPSF) error {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	channels := weight.Shape[weight.Dim()-3]
	for c := 0; c < channels; c++ {
		path := filepath.Join(o.outDir, fmt.Sprintf("weight_c%d.tif", c))
		scale, err := sw.WriteChannelTIFF(path, weight, 0, c)
		if err != nil {
			return err
		}
		sw.Logger().Debug("wrote channel", slog.String("path", path), slog.Float64("scale", scale))
	}
	overlayPath := filepath.Join(o.outDir, "overlay.jpg")
	if err := sw.RenderWeightOverlay(weight, em, psf, o.overlay, overlayPath); err != nil {
		return fmt.Errorf("rendering overlay: %w", err)
	}
	fmt.Printf("Wrote %d channels and %s\n", channels, overlayPath)
	return nil
}
