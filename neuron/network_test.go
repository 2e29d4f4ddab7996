package neuron

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func squid(name string) NeuronSpec {
	return NeuronSpec{Name: name, Segments: []SegmentSpec{GiantSquidAxon()}}
}

func pairNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := NewNetwork(NetworkSpec{
		Neurons: []NeuronSpec{squid("pre"), squid("post")},
		Synapses: []NetworkSynapseSpec{{
			Pre:  SegmentRef{Neuron: 0, Segment: 0},
			Post: SegmentRef{Neuron: 1, Segment: 0},
			Spec: ExcitatorySynapse(),
		}},
	})
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	if err := net.Neuron(1).SetInputCurrent(0, -20); err != nil {
		t.Fatalf("SetInputCurrent: %v", err)
	}
	return net
}

func TestCrossNeuronSynapseMatchesLocalSynapse(t *testing.T) {
	net := pairNetwork(t)
	local, err := NewNeuron(ExcitatoryPair())
	if err != nil {
		t.Fatalf("NewNeuron: %v", err)
	}
	_ = local.SetInputCurrent(1, -20)

	env := BodyEnvironment()
	for i := 0; i < 500; i++ {
		if err := net.Step(env, 1e-6); err != nil {
			t.Fatalf("network step %d: %v", i, err)
		}
		if err := local.Step(env, 1e-6); err != nil {
			t.Fatalf("neuron step %d: %v", i, err)
		}
	}

	post := net.Voltage(SegmentRef{Neuron: 1})
	if math.Abs(post-local.Voltage(1)) > 1e-9 {
		t.Errorf("network post V = %v, local post V = %v", post, local.Voltage(1))
	}
	if g, l := net.Synapses()[0].Concentrations.Glutamate, local.Synapses()[0].Concentrations.Glutamate; math.Abs(g-l) > 1e-15 {
		t.Errorf("network glutamate = %v, local = %v", g, l)
	}
	if math.Abs(net.Time()-local.Time()) > 1e-15 {
		t.Errorf("network time = %v, local time = %v", net.Time(), local.Time())
	}
}

func TestConcurrentTickMatchesSequential(t *testing.T) {
	seq, par := pairNetwork(t), pairNetwork(t)
	env := BodyEnvironment()

	for i := 0; i < 200; i++ {
		if err := seq.Step(env, 1e-6); err != nil {
			t.Fatalf("sequential step %d: %v", i, err)
		}

		tick, err := par.BeginTick(env, 1e-6)
		if err != nil {
			t.Fatalf("BeginTick %d: %v", i, err)
		}
		var wg sync.WaitGroup
		for n := 0; n < par.Len(); n++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				tick.Neuron(n)
			}(n)
		}
		wg.Wait()
		if err := tick.Commit(); err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}

	for n := 0; n < seq.Len(); n++ {
		ref := SegmentRef{Neuron: n}
		if seq.Voltage(ref) != par.Voltage(ref) {
			t.Errorf("neuron %d: sequential %v, concurrent %v", n, seq.Voltage(ref), par.Voltage(ref))
		}
	}
}

func TestNewNetworkRejectsBadRefs(t *testing.T) {
	tests := []struct {
		name      string
		pre, post SegmentRef
	}{
		{"unknown neuron", SegmentRef{Neuron: 0}, SegmentRef{Neuron: 2}},
		{"unknown segment", SegmentRef{Neuron: 0, Segment: 1}, SegmentRef{Neuron: 1}},
		{"same segment", SegmentRef{Neuron: 1}, SegmentRef{Neuron: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNetwork(NetworkSpec{
				Neurons:  []NeuronSpec{squid("a"), squid("b")},
				Synapses: []NetworkSynapseSpec{{Pre: tt.pre, Post: tt.post, Spec: ExcitatorySynapse()}},
			})
			if !errors.Is(err, ErrInvalidIndex) {
				t.Errorf("error = %v, want %v", err, ErrInvalidIndex)
			}
		})
	}
}

func TestNetworkDriveOverridesNeurons(t *testing.T) {
	inner := squid("a")
	inner.Coupling = Coupling{SynapseDrive: DriveResistive}
	net, err := NewNetwork(NetworkSpec{
		Neurons:  []NeuronSpec{inner},
		Coupling: Coupling{SynapseDrive: DriveCurrent},
	})
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	if got := net.Neuron(0).Coupling().SynapseDrive; got != DriveCurrent {
		t.Errorf("neuron drive = %v, want %v", got, DriveCurrent)
	}
}

func TestNetworkRollsBackEveryNeuron(t *testing.T) {
	net, err := NewNetwork(NetworkSpec{
		Neurons: []NeuronSpec{
			squid("steady"),
			{Name: "stiff", Segments: []SegmentSpec{PassiveChannels(1, 1, 1)}},
		},
	})
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	env := BodyEnvironment()

	var v0, v1, clock float64
	for i := 0; i < 1000; i++ {
		v0, v1, clock = net.Voltage(SegmentRef{Neuron: 0}), net.Voltage(SegmentRef{Neuron: 1}), net.Time()
		err = net.Step(env, 1e-3)
		if err != nil {
			break
		}
	}
	if !IsDivergence(err) {
		t.Fatalf("error = %v, want divergence", err)
	}
	if got := net.Voltage(SegmentRef{Neuron: 0}); got != v0 {
		t.Errorf("healthy neuron V = %v after rollback, want %v", got, v0)
	}
	if got := net.Voltage(SegmentRef{Neuron: 1}); got != v1 {
		t.Errorf("diverged neuron V = %v after rollback, want %v", got, v1)
	}
	if net.Time() != clock {
		t.Errorf("time = %v after rollback, want %v", net.Time(), clock)
	}
}

func TestNetworkSynapseDivergenceIsDeterministic(t *testing.T) {
	// An infinite resistance turns any synaptic current into a non-finite
	// perturbation on both postsynaptic segments in the first tick.
	for run := 0; run < 20; run++ {
		net, err := NewNetwork(NetworkSpec{
			Neurons: []NeuronSpec{
				squid("pre"),
				{Name: "post", Segments: []SegmentSpec{GiantSquidAxon(), GiantSquidAxon()}},
			},
			Synapses: []NetworkSynapseSpec{
				{Pre: SegmentRef{Neuron: 0}, Post: SegmentRef{Neuron: 1, Segment: 1}, Spec: ExcitatorySynapse()},
				{Pre: SegmentRef{Neuron: 0}, Post: SegmentRef{Neuron: 1, Segment: 0}, Spec: ExcitatorySynapse()},
			},
			Coupling: Coupling{SynapseResistanceOhms: math.Inf(1)},
		})
		if err != nil {
			t.Fatalf("NewNetwork: %v", err)
		}
		err = net.Step(BodyEnvironment(), 1e-5)
		var de *DivergenceError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want a DivergenceError", err)
		}
		if de.Segment != 1 {
			t.Fatalf("run %d: diverged segment = %d, want 1 (first synapse's target)", run, de.Segment)
		}
		if de.Time != 0 || net.Time() != 0 {
			t.Errorf("divergence time = %v, clock %v; want both at tick start 0", de.Time, net.Time())
		}
	}
}

func TestNetworkStateRestoreReplays(t *testing.T) {
	net := pairNetwork(t)
	env := BodyEnvironment()
	run := func(steps int) {
		t.Helper()
		for i := 0; i < steps; i++ {
			if err := net.Step(env, 1e-5); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}
	}

	run(200)
	saved := net.State()
	run(300)
	want := net.Voltage(SegmentRef{Neuron: 1})
	wantTime := net.Time()

	if err := net.SetState(saved); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if net.Time() != saved.Time {
		t.Errorf("time after restore = %v, want %v", net.Time(), saved.Time)
	}
	run(300)
	if got := net.Voltage(SegmentRef{Neuron: 1}); got != want {
		t.Errorf("replayed V = %v, want %v", got, want)
	}
	if net.Time() != wantTime {
		t.Errorf("replayed time = %v, want %v", net.Time(), wantTime)
	}
}

func TestNetworkSetStateRejectsShape(t *testing.T) {
	net := pairNetwork(t)
	good := net.State()
	before := net.Voltage(SegmentRef{})

	bad := []NetworkState{
		{Neurons: good.Neurons[:1], Synapses: good.Synapses},
		{Neurons: [][]float64{good.Neurons[0][:2], good.Neurons[1]}, Synapses: good.Synapses},
		{Neurons: good.Neurons},
	}
	for i, s := range bad {
		if err := net.SetState(s); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("case %d: error = %v, want %v", i, err, ErrInvalidParameter)
		}
	}
	if net.Voltage(SegmentRef{}) != before {
		t.Error("rejected state changed the network")
	}
}
