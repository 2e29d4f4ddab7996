package main

import (
	"context"
	"math"
	"sync"

	"github.com/pthm-cable/reuron/config"
	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/scene"
	"github.com/pthm-cable/reuron/sim"
	"github.com/pthm-cable/reuron/telemetry"
)

const (
	divergedFitness = 1e6
	spikePenalty    = 100.0 // per spike in the second half of the run, mV²
)

// FitnessEvaluator runs a single segment from several starting voltages and
// scores how far it settles from the target resting potential.
type FitnessEvaluator struct {
	params     *ParamVector
	segment    neuron.SegmentSpec
	target     float64 // mV
	steps      int
	starts     []float64 // initial voltages, mV
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	bestRest    float64
	lastRest    float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seg neuron.SegmentSpec, target float64, steps int, starts []float64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		segment:     seg,
		target:      target,
		steps:       steps,
		starts:      starts,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
		bestRest:    math.NaN(),
		lastRest:    math.NaN(),
	}
}

// LastRest returns the mean settled voltage of the most recent evaluation.
func (fe *FitnessEvaluator) LastRest() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRest
}

// BestRest returns the settled voltage of the best evaluation so far.
func (fe *FitnessEvaluator) BestRest() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestRest
}

// runResult holds the outcome of one run.
type runResult struct {
	windows []telemetry.WindowStats
	rest    float64
	err     error
}

// Evaluate computes fitness for raw conductances (lower = better): the mean
// squared distance from target over every start, plus a penalty for late
// spikes.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.starts))
	var wg sync.WaitGroup
	for i, v0 := range fe.starts {
		wg.Add(1)
		go func(idx int, v0 float64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, v0)
		}(i, v0)
	}
	wg.Wait()

	var total, restSum float64
	for _, r := range results {
		total += fe.computeFitness(r)
		restSum += r.rest
	}
	n := float64(len(results))
	fitness := total / n

	fe.mu.Lock()
	fe.lastRest = restSum / n
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestRest = fe.lastRest
	}
	fe.mu.Unlock()
	return fitness
}

// runSimulation runs the segment from v0 with conductances x applied.
func (fe *FitnessEvaluator) runSimulation(x []float64, v0 float64) runResult {
	seg := fe.segment
	seg.InitialVoltage = v0
	fe.params.Apply(&seg, x)

	result := runResult{rest: math.NaN()}
	net, err := neuron.NewNetwork(neuron.NetworkSpec{
		Neurons:  []neuron.NeuronSpec{{Name: seg.Name, Segments: []neuron.SegmentSpec{seg}}},
		Coupling: fe.baseConfig.Derived.Coupling,
	})
	if err != nil {
		result.err = err
		return result
	}
	model := &scene.Model{
		Name:    seg.Name,
		Network: net,
		Probes:  []scene.BoundProbe{{Label: seg.Name}},
	}

	cfg := fe.copyConfig()
	runner, err := sim.New(context.Background(), cfg, model, sim.Options{
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windows = append(result.windows, stats)
		},
	})
	if err != nil {
		result.err = err
		return result
	}
	defer runner.Close()

	if err := runner.Run(context.Background(), fe.steps); err != nil {
		result.err = err
		return result
	}
	result.rest = net.Voltage(neuron.SegmentRef{})
	return result
}

// copyConfig returns the base config with file output and the default
// stimulator switched off, and ten stats windows per run.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Stimulus.Enabled = false
	cfg.Simulation.Parallel = false
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.DBPath = ""
	cfg.Telemetry.StatsWindow = float64(fe.steps) * cfg.Simulation.DT / 10
	if err := cfg.Finalize(); err != nil {
		// the base config was already finalized
		panic(err)
	}
	return &cfg
}

// computeFitness scores one run.
func (fe *FitnessEvaluator) computeFitness(r runResult) float64 {
	if r.err != nil || math.IsNaN(r.rest) {
		return divergedFitness
	}
	d := r.rest - fe.target
	late := 0
	for _, w := range r.windows[len(r.windows)/2:] {
		late += w.Spikes
	}
	return d*d + spikePenalty*float64(late)
}
