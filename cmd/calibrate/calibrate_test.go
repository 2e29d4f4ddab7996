package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/reuron/config"
	"github.com/pthm-cable/reuron/neuron"
)

func TestParamVectorApply(t *testing.T) {
	seg := neuron.GiantSquidAxon()
	pv, err := NewParamVector(seg, []string{"leak", "giant_squid_k"}, 4)
	if err != nil {
		t.Fatalf("NewParamVector: %v", err)
	}
	if got := pv.Specs[0].Max; math.Abs(got-1.2e-3) > 1e-15 {
		t.Errorf("leak max = %v, want 1.2e-3", got)
	}

	fitted := seg
	pv.Apply(&fitted, []float64{1e-3, 1})
	if got := fitted.Membrane.Channels[2].SiemensPerSquareCm; got != 1e-3 {
		t.Errorf("leak = %v, want 1e-3", got)
	}
	if got := fitted.Membrane.Channels[0].SiemensPerSquareCm; got != pv.Specs[1].Max {
		t.Errorf("K = %v, want clamped to %v", got, pv.Specs[1].Max)
	}
	if got := seg.Membrane.Channels[2].SiemensPerSquareCm; got != 0.3e-3 {
		t.Errorf("original leak changed to %v", got)
	}

	if _, err := NewParamVector(seg, []string{"hcn_soma"}, 4); err == nil {
		t.Error("expected error for a channel the segment lacks")
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pv, err := NewParamVector(neuron.GiantSquidAxon(), []string{"leak"}, 4)
	if err != nil {
		t.Fatal(err)
	}
	x := pv.Normalize(pv.DefaultVector())
	if math.Abs(x[0]-0.25) > 1e-12 {
		t.Errorf("normalized default = %v, want 0.25", x[0])
	}
	if got := pv.Denormalize(x)[0]; math.Abs(got-0.3e-3) > 1e-15 {
		t.Errorf("denormalized = %v, want 0.3e-3", got)
	}
}

// The passive segment rests at the conductance-weighted reversal, so the
// fitness at the true Cl- conductance is near zero.
func TestFitnessFavoursTrueConductance(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Simulation.DT = 1e-5
	cfg.Simulation.StepsPerUpdate = 1000
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	const gNa, gK, gCl = 1e-3, 2e-3, 3e-3
	rev, err := neuron.ReversalPotentials(neuron.ExampleCytoplasm, cfg.Derived.Environment.Extracellular, cfg.Derived.Environment.TemperatureK)
	if err != nil {
		t.Fatal(err)
	}
	target := (rev.Na*gNa + rev.K*gK + rev.Cl*gCl) / (gNa + gK + gCl)

	seg := neuron.PassiveChannels(gNa, gK, 1e-3)
	pv, err := NewParamVector(seg, []string{"passive_cl"}, 4)
	if err != nil {
		t.Fatal(err)
	}
	fe := NewFitnessEvaluator(pv, seg, target, 10000, []float64{-80, -40}, cfg)

	good := fe.Evaluate([]float64{gCl})
	if good > 1e-4 {
		t.Errorf("fitness at true conductance = %v, want ~0 (rest %v, target %v)", good, fe.LastRest(), target)
	}
	bad := fe.Evaluate([]float64{1e-3})
	if bad <= good {
		t.Errorf("fitness at wrong conductance = %v, want above %v", bad, good)
	}
	if math.IsNaN(fe.BestRest()) || math.Abs(fe.BestRest()-target) > 1e-2 {
		t.Errorf("best rest = %v, want %v", fe.BestRest(), target)
	}
}

func TestParseStarts(t *testing.T) {
	got, err := parseStarts("-80, -60,0")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != -80 || got[1] != -60 || got[2] != 0 {
		t.Errorf("parseStarts = %v", got)
	}
	if _, err := parseStarts("-80,x"); err == nil {
		t.Error("expected error")
	}
}
