// Package main fits channel conductances of a library segment with CMA-ES so
// that it rests at a target membrane potential.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/reuron/config"
	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/scene"
)

// segments are the library compartments that can be calibrated.
var segments = map[string]func() neuron.SegmentSpec{
	"giant_squid_axon": neuron.GiantSquidAxon,
	"simple_leak":      neuron.SimpleLeak,
	"k_channels_only":  neuron.KChannelsOnly,
	"passive_channels": func() neuron.SegmentSpec { return neuron.PassiveChannels(1e-3, 2e-3, 3e-3) },
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func parseStarts(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("start voltage %q: %w", field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	segmentName := flag.String("segment", "giant_squid_axon", "Library segment to calibrate")
	channelList := flag.String("channels", "leak", "Comma-separated channel names to fit")
	target := flag.Float64("target", -70, "Target resting potential in mV")
	steps := flag.Int("steps", 20000, "Ticks simulated per evaluation")
	startList := flag.String("starts", "-80,-60", "Comma-separated initial voltages in mV")
	scale := flag.Float64("scale", 4, "Upper bound as a multiple of each starting conductance")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	newSegment, ok := segments[*segmentName]
	if !ok {
		names := make([]string, 0, len(segments))
		for name := range segments {
			names = append(names, name)
		}
		sort.Strings(names)
		log.Fatalf("unknown segment %q (have %s)", *segmentName, strings.Join(names, ", "))
	}
	starts, err := parseStarts(*startList)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	seg := newSegment()
	params, err := NewParamVector(seg, strings.Split(*channelList, ","), *scale)
	if err != nil {
		log.Fatal(err)
	}
	evaluator := NewFitnessEvaluator(params, seg, *target, *steps, starts, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "rest_mv"}
	for _, spec := range params.Specs {
		header = append(header, spec.Channel)
	}
	logWriter.Write(header)

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		rest := evaluator.LastRest()
		row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6g", fitness), fmt.Sprintf("%.4f", rest)}
		for _, v := range clamped {
			row = append(row, fmt.Sprintf("%.6g", v))
		}
		logWriter.Write(row)
		logWriter.Flush()

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
		fmt.Printf("Eval %d/%d: rest=%.2f mV fitness=%.4g (best=%.4g) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, rest, fitness, bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Calibrating %s to %.2f mV: %d parameters, population=%d, max_evals=%d\n",
		seg.Name, *target, dim, popSize, *maxEvals)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4g, rest %.2f mV\n", bestFitness, evaluator.BestRest())
	fmt.Println("\nBest conductances (S/cm²):")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6g\n", spec.Channel, bestParams[i])
	}

	if err := writeMembrane(filepath.Join(*outputDir, "membrane.yaml"), seg, params, bestParams); err != nil {
		log.Printf("failed to write membrane: %v", err)
	}
}

// writeMembrane saves the calibrated membrane as a scene membrane definition
// that can be pasted into a scene file.
func writeMembrane(path string, seg neuron.SegmentSpec, params *ParamVector, values []float64) error {
	params.Apply(&seg, values)
	def := scene.MembraneDefOf(seg.Membrane)
	data, err := scene.MarshalMembranes([]scene.MembraneDef{def})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("\nMembrane saved to: %s\n", path)
	return nil
}
