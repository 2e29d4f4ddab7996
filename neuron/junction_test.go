package neuron

import (
	"errors"
	"math"
	"testing"
)

func TestJunctionConductance(t *testing.T) {
	j := Junction{A: 0, B: 1, PoreDiameterCm: 0.01}
	if got, want := j.Conductance(1), 0.01*math.Pi; math.Abs(got-want) > 1e-15 {
		t.Errorf("Conductance = %v, want %v", got, want)
	}
	if got := j.Current(1, -60, -60); got != 0 {
		t.Errorf("Current at equal voltages = %v, want 0", got)
	}
	if got := j.Current(1, -50, -70); got <= 0 {
		t.Errorf("Current from high to low = %v, want positive", got)
	}
}

func TestJunctionConservesCharge(t *testing.T) {
	segs := []Segment{
		GiantSquidAxon().MustBuild(),
		SimpleLeak().MustBuild(),
	}
	segs[0].Voltage = -40
	segs[1].Voltage = -80

	var snap couplingSnapshot
	snap.take(segs)
	snap.accumulateJunction(Junction{A: 0, B: 1, PoreDiameterCm: 0.01}, ConductancePerSquareCm, 1e-6)

	ca, cb := segs[0].Capacitance(), segs[1].Capacitance()
	net := ca*snap.delta[0] + cb*snap.delta[1]
	if scale := ca * math.Abs(snap.delta[0]); math.Abs(net) > 1e-12*scale {
		t.Errorf("charge moved = %v, want 0 (A side %v)", net, ca*snap.delta[0])
	}
	if snap.delta[0] >= 0 || snap.delta[1] <= 0 {
		t.Errorf("deltas = (%v, %v), want the high side to fall and the low side to rise", snap.delta[0], snap.delta[1])
	}
}

func TestJunctionOrderIndependent(t *testing.T) {
	build := func() []Segment {
		segs := []Segment{SimpleLeak().MustBuild(), SimpleLeak().MustBuild(), SimpleLeak().MustBuild()}
		segs[0].Voltage, segs[1].Voltage, segs[2].Voltage = -30, -60, -90
		return segs
	}
	js := []Junction{
		{A: 0, B: 1, PoreDiameterCm: 1e-4},
		{A: 1, B: 2, PoreDiameterCm: 2e-4},
	}

	forward, backward := build(), build()
	var snap couplingSnapshot

	snap.take(forward)
	for _, j := range js {
		snap.accumulateJunction(j, 1, 1e-6)
	}
	snap.apply(forward)

	snap.take(backward)
	for i := len(js) - 1; i >= 0; i-- {
		snap.accumulateJunction(js[i], 1, 1e-6)
	}
	snap.apply(backward)

	for i := range forward {
		if forward[i].Voltage != backward[i].Voltage {
			t.Errorf("segment %d: forward %v, backward %v", i, forward[i].Voltage, backward[i].Voltage)
		}
	}
}

func thinChain(t *testing.T) *Neuron {
	t.Helper()
	seg := SimpleLeak()
	seg.Geometry = Geometry{DiameterCm: 2e-4, LengthCm: 1e-3}
	n, err := NewNeuron(NeuronSpec{
		Name:     "thin",
		Segments: []SegmentSpec{seg, seg, seg},
		Junctions: []JunctionSpec{
			{A: 0, B: 1, PoreDiameterCm: 2e-4},
			{A: 1, B: 2, PoreDiameterCm: 2e-4},
		},
	})
	if err != nil {
		t.Fatalf("NewNeuron: %v", err)
	}
	n.Segment(0).Voltage, n.Segment(1).Voltage, n.Segment(2).Voltage = -30, -60, -90
	return n
}

func TestCouplingNumber(t *testing.T) {
	n := thinChain(t)
	// Each junction relaxes a 10 µm segment at 1e6 /s; the middle one has two.
	if got := n.CouplingNumber(1e-5); math.Abs(got-20) > 1e-9 {
		t.Errorf("CouplingNumber(1e-5) = %v, want 20", got)
	}
	if got := n.StableDT(); math.Abs(got-5e-7) > 1e-18 {
		t.Errorf("StableDT = %v, want 5e-7", got)
	}

	lone, err := NewNeuron(NeuronSpec{Name: "lone", Segments: []SegmentSpec{SimpleLeak()}})
	if err != nil {
		t.Fatalf("NewNeuron: %v", err)
	}
	if got := lone.StableDT(); !math.IsInf(got, 1) {
		t.Errorf("StableDT without junctions = %v, want +Inf", got)
	}
}

func TestStableDTSeparatesDivergence(t *testing.T) {
	env := BodyEnvironment()

	stable := thinChain(t)
	dt := stable.StableDT() / 2
	for i := 0; i < 200; i++ {
		if err := stable.Step(env, dt); err != nil {
			t.Fatalf("step %d at dt=%g: %v", i, dt, err)
		}
	}
	if spread := math.Abs(stable.Voltage(0) - stable.Voltage(2)); spread > 1 {
		t.Errorf("voltage spread = %v mV after 200 stable steps, want < 1", spread)
	}

	unstable := thinChain(t)
	dt = unstable.StableDT() * 10
	var err error
	for i := 0; i < 2000 && err == nil; i++ {
		err = unstable.Step(env, dt)
	}
	if !errors.Is(err, ErrDiverged) {
		t.Errorf("error at dt=%g = %v, want ErrDiverged", dt, err)
	}
}
