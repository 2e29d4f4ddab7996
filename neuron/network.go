package neuron

import (
	"errors"
	"fmt"
	"math"
)

// SegmentRef addresses a segment inside a Network.
type SegmentRef struct {
	Neuron  int
	Segment int
}

// NetworkSynapse is a synapse whose endpoints may lie in different neurons.
type NetworkSynapse struct {
	Pre, Post SegmentRef
	Synapse
}

// NetworkSynapseSpec is the construction input for a NetworkSynapse.
type NetworkSynapseSpec struct {
	Pre, Post SegmentRef
	Spec      SynapseSpec
}

// NetworkSpec is the construction input for a Network.
type NetworkSpec struct {
	Neurons  []NeuronSpec
	Synapses []NetworkSynapseSpec
	Coupling Coupling
}

// Network is a set of neurons plus the synapses between them. Neurons share
// no mutable state, so their per-tick integration may run concurrently; the
// network synapses are applied afterwards from a snapshot.
type Network struct {
	neurons  []*Neuron
	synapses []NetworkSynapse
	coupling Coupling
	time     float64

	checkpoints  [][]float64
	synState     []float64
	synReversals []Reversals
	snapVoltage  []float64
	delta        map[SegmentRef]float64
	tick         Tick
}

// NewNetwork builds every neuron and validates network synapse endpoints.
func NewNetwork(spec NetworkSpec) (*Network, error) {
	net := &Network{
		coupling: spec.Coupling.withDefaults(),
		delta:    make(map[SegmentRef]float64),
	}
	for i, ns := range spec.Neurons {
		if ns.Coupling == (Coupling{}) {
			ns.Coupling = spec.Coupling
		}
		// One accumulator convention per network.
		ns.Coupling.SynapseDrive = net.coupling.SynapseDrive
		n, err := NewNeuron(ns)
		if err != nil {
			return nil, fmt.Errorf("network neuron %d: %w", i, err)
		}
		net.neurons = append(net.neurons, n)
	}
	for i, ss := range spec.Synapses {
		if err := net.checkRef(ss.Pre); err != nil {
			return nil, fmt.Errorf("network synapse %d pre: %w", i, err)
		}
		if err := net.checkRef(ss.Post); err != nil {
			return nil, fmt.Errorf("network synapse %d post: %w", i, err)
		}
		if ss.Pre == ss.Post {
			return nil, fmt.Errorf("network synapse %d: endpoints coincide: %w", i, ErrInvalidIndex)
		}
		syn, err := ss.Spec.Build(net.segment(ss.Post).Voltage)
		if err != nil {
			return nil, fmt.Errorf("network synapse %d: %w", i, err)
		}
		net.synapses = append(net.synapses, NetworkSynapse{Pre: ss.Pre, Post: ss.Post, Synapse: syn})
	}
	net.checkpoints = make([][]float64, len(net.neurons))
	return net, nil
}

func (net *Network) checkRef(r SegmentRef) error {
	if r.Neuron < 0 || r.Neuron >= len(net.neurons) {
		return fmt.Errorf("neuron %d of %d: %w", r.Neuron, len(net.neurons), ErrInvalidIndex)
	}
	if r.Segment < 0 || r.Segment >= net.neurons[r.Neuron].Len() {
		return fmt.Errorf("segment %d of %d in neuron %d: %w", r.Segment, net.neurons[r.Neuron].Len(), r.Neuron, ErrInvalidIndex)
	}
	return nil
}

func (net *Network) segment(r SegmentRef) *Segment {
	return net.neurons[r.Neuron].Segment(r.Segment)
}

// Len returns the number of neurons.
func (net *Network) Len() int { return len(net.neurons) }

// Neuron returns neuron i.
func (net *Network) Neuron(i int) *Neuron { return net.neurons[i] }

// Synapses returns the network synapses.
func (net *Network) Synapses() []NetworkSynapse { return net.synapses }

// StableDT returns the smallest StableDT over the network's neurons.
func (net *Network) StableDT() float64 {
	dt := math.Inf(1)
	for _, n := range net.neurons {
		dt = math.Min(dt, n.StableDT())
	}
	return dt
}

// Time returns the network clock in seconds.
func (net *Network) Time() float64 { return net.time }

// Voltage returns the voltage of the referenced segment.
func (net *Network) Voltage(r SegmentRef) float64 { return net.segment(r).Voltage }

// NetworkState is every value a tick may change: voltages, synaptic
// currents, gate magnitudes, cleft concentrations and clocks. It is only
// meaningful for a network built from the same spec.
type NetworkState struct {
	Time     float64     `json:"time"`
	Neurons  [][]float64 `json:"neurons"`
	Synapses []float64   `json:"synapses"`
}

// State copies the current dynamic state.
func (net *Network) State() NetworkState {
	s := NetworkState{Time: net.time, Neurons: make([][]float64, len(net.neurons))}
	for i, n := range net.neurons {
		s.Neurons[i] = n.save(nil)
	}
	for i := range net.synapses {
		net.synapses[i].eachState(func(p *float64) { s.Synapses = append(s.Synapses, *p) })
	}
	return s
}

// SetState restores a state taken with State. The network is unchanged if
// the shapes differ.
func (net *Network) SetState(s NetworkState) error {
	if len(s.Neurons) != len(net.neurons) {
		return invalidf("state has %d neurons, network %d", len(s.Neurons), len(net.neurons))
	}
	for i, n := range net.neurons {
		want := 0
		n.eachState(func(*float64) { want++ })
		if len(s.Neurons[i]) != want {
			return invalidf("neuron %d state has %d values, want %d", i, len(s.Neurons[i]), want)
		}
	}
	synValues := 0
	for i := range net.synapses {
		net.synapses[i].eachState(func(*float64) { synValues++ })
	}
	if len(s.Synapses) != synValues {
		return invalidf("state has %d synapse values, want %d", len(s.Synapses), synValues)
	}

	for i, n := range net.neurons {
		n.restore(s.Neurons[i])
	}
	k := 0
	for i := range net.synapses {
		net.synapses[i].eachState(func(p *float64) {
			*p = s.Synapses[k]
			k++
		})
	}
	net.time = s.Time
	return nil
}

// Step advances every neuron sequentially and then the network synapses.
func (net *Network) Step(env Environment, dt float64) error {
	tick, err := net.BeginTick(env, dt)
	if err != nil {
		return err
	}
	for i := range net.neurons {
		tick.Neuron(i)
	}
	return tick.Commit()
}

// Tick is one in-progress network step. Neuron may be called concurrently
// for distinct indices; Commit or Rollback must be called exactly once
// after every Neuron call has returned.
type Tick struct {
	net  *Network
	env  Environment
	dt   float64
	errs []error
}

// BeginTick validates the network synapses against env and checkpoints every
// neuron. No state changes if it returns an error.
func (net *Network) BeginTick(env Environment, dt float64) (*Tick, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, invalidf("time step %g", dt)
	}
	if cap(net.synReversals) < len(net.synapses) {
		net.synReversals = make([]Reversals, len(net.synapses))
	}
	net.synReversals = net.synReversals[:len(net.synapses)]
	for i := range net.synapses {
		s := &net.synapses[i]
		rev, err := s.Reversals(net.segment(s.Post).Intracellular, env.TemperatureK)
		if err != nil {
			return nil, fmt.Errorf("network synapse %d: %w", i, err)
		}
		net.synReversals[i] = rev
	}
	for i, n := range net.neurons {
		net.checkpoints[i] = n.save(net.checkpoints[i])
	}
	net.synState = net.synState[:0]
	for i := range net.synapses {
		net.synapses[i].eachState(func(p *float64) { net.synState = append(net.synState, *p) })
	}

	t := &net.tick
	t.net, t.env, t.dt = net, env, dt
	if cap(t.errs) < len(net.neurons) {
		t.errs = make([]error, len(net.neurons))
	}
	t.errs = t.errs[:len(net.neurons)]
	for i := range t.errs {
		t.errs[i] = nil
	}
	return t, nil
}

// Neuron integrates neuron i for this tick.
func (t *Tick) Neuron(i int) {
	t.errs[i] = t.net.neurons[i].step(t.env, t.dt)
}

// Err returns the error neuron i produced this tick, if any.
func (t *Tick) Err(i int) error { return t.errs[i] }

// Commit applies the network synapses and advances the clock. If any neuron
// failed, or the synapses produce a non-finite voltage, every neuron is
// restored and the joined error is returned.
func (t *Tick) Commit() error {
	net := t.net
	if err := errors.Join(t.errs...); err != nil {
		t.Rollback()
		return err
	}
	if err := net.applySynapses(t.dt); err != nil {
		t.Rollback()
		return err
	}
	net.time += t.dt
	return nil
}

// Rollback restores every neuron and synapse to its state at BeginTick.
func (t *Tick) Rollback() {
	net := t.net
	for i, n := range net.neurons {
		n.restore(net.checkpoints[i])
	}
	k := 0
	for i := range net.synapses {
		net.synapses[i].eachState(func(p *float64) {
			*p = net.synState[k]
			k++
		})
	}
}

func (net *Network) applySynapses(dt float64) error {
	if len(net.synapses) == 0 {
		return nil
	}
	net.snapVoltage = net.snapVoltage[:0]
	for i := range net.synapses {
		s := &net.synapses[i]
		net.snapVoltage = append(net.snapVoltage, net.segment(s.Pre).Voltage, net.segment(s.Post).Voltage)
	}
	clear(net.delta)
	for i := range net.synapses {
		s := &net.synapses[i]
		vPre, vPost := net.snapVoltage[2*i], net.snapVoltage[2*i+1]
		s.Step(vPre, vPost, dt)
		current := s.Current(net.synReversals[i], vPost)
		if net.coupling.SynapseDrive == DriveCurrent {
			net.segment(s.Post).SynapticCurrent += current
		} else {
			net.delta[s.Post] += Perturbation(current, net.coupling.SynapseResistanceOhms, dt)
		}
	}
	// Apply in synapse order so the reported segment does not depend on map
	// iteration.
	for i := range net.synapses {
		ref := net.synapses[i].Post
		dv, ok := net.delta[ref]
		if !ok {
			continue
		}
		delete(net.delta, ref)
		seg := net.segment(ref)
		seg.Voltage += dv
		if math.IsNaN(seg.Voltage) || math.IsInf(seg.Voltage, 0) {
			return &DivergenceError{Segment: ref.Segment, Voltage: seg.Voltage, Time: net.time}
		}
	}
	return nil
}
