package scene

import (
	"fmt"

	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/stimulus"
)

const micronsToCm = 1e-4

// BoundStimulus is a stimulator resolved to a network segment.
type BoundStimulus struct {
	Ref        neuron.SegmentRef
	Target     Ref
	Stimulator stimulus.Stimulator
}

// BoundProbe is a probe resolved to a network segment.
type BoundProbe struct {
	Ref   neuron.SegmentRef
	Label string
}

// Model is a built scene, ready to run.
type Model struct {
	Name          string
	Network       *neuron.Network
	Extracellular *neuron.Solution // nil when the scene leaves it to the runner
	Stimuli       []BoundStimulus
	Probes        []BoundProbe
}

// Build resolves every reference in s and constructs the network. When the
// scene declares no probes, the first segment of every neuron is probed.
func Build(s *Scene, coupling neuron.Coupling) (*Model, error) {
	b := newBuilder(s)
	spec := neuron.NetworkSpec{Coupling: coupling}
	for i := range s.Neurons {
		ns, err := b.neuron(i)
		if err != nil {
			return nil, err
		}
		spec.Neurons = append(spec.Neurons, ns)
	}
	for i, syn := range s.Synapses {
		ss, err := b.synapse(syn)
		if err != nil {
			return nil, fmt.Errorf("synapse %d: %w", i, err)
		}
		spec.Synapses = append(spec.Synapses, ss)
	}

	net, err := neuron.NewNetwork(spec)
	if err != nil {
		return nil, err
	}
	m := &Model{Name: s.Name, Network: net}
	if s.Extracellular != nil {
		sol := s.Extracellular.solution()
		if err := sol.Validate(); err != nil {
			return nil, fmt.Errorf("extracellular: %w", err)
		}
		m.Extracellular = &sol
	}

	for i, st := range s.Stimuli {
		ref, err := b.resolve(st.Target)
		if err != nil {
			return nil, fmt.Errorf("stimulus %d: %w", i, err)
		}
		stim, err := st.stimulator()
		if err != nil {
			return nil, fmt.Errorf("stimulus %d: %w", i, err)
		}
		m.Stimuli = append(m.Stimuli, BoundStimulus{Ref: ref, Target: st.Target, Stimulator: stim})
	}

	for i, p := range s.Probes {
		ref, err := b.resolve(p.Target)
		if err != nil {
			return nil, fmt.Errorf("probe %d: %w", i, err)
		}
		label := p.Label
		if label == "" {
			label = p.Target.String()
		}
		m.Probes = append(m.Probes, BoundProbe{Ref: ref, Label: label})
	}
	if len(s.Probes) == 0 {
		for i, n := range s.Neurons {
			if len(n.Segments) == 0 {
				continue
			}
			m.Probes = append(m.Probes, BoundProbe{
				Ref:   neuron.SegmentRef{Neuron: i},
				Label: Ref{Neuron: b.label(i), Segment: n.Segments[0].ID}.String(),
			})
		}
	}
	return m, nil
}

// Example builds a model from a library example neuron with every segment
// probed.
func Example(name string, coupling neuron.Coupling) (*Model, error) {
	newSpec, ok := neuron.Examples[name]
	if !ok {
		return nil, fmt.Errorf("example %q: %w", name, ErrUnknownNeuron)
	}
	spec := newSpec()
	net, err := neuron.NewNetwork(neuron.NetworkSpec{Neurons: []neuron.NeuronSpec{spec}, Coupling: coupling})
	if err != nil {
		return nil, err
	}
	m := &Model{Name: spec.Name, Network: net}
	for i := range spec.Segments {
		m.Probes = append(m.Probes, BoundProbe{
			Ref:   neuron.SegmentRef{Segment: i},
			Label: fmt.Sprintf("%s#%d", spec.Name, i+1),
		})
	}
	return m, nil
}

type builder struct {
	scene   *Scene
	byName  map[string]int
	indexOf []map[int]int // per neuron: SWC id -> arena index
}

func newBuilder(s *Scene) *builder {
	b := &builder{
		scene:   s,
		byName:  make(map[string]int, 2*len(s.Neurons)),
		indexOf: make([]map[int]int, len(s.Neurons)),
	}
	for i, n := range s.Neurons {
		if n.Name != "" {
			b.byName[n.Name] = i
		}
		b.byName[n.ID.String()] = i
	}
	return b
}

func (b *builder) label(i int) string {
	if n := b.scene.Neurons[i]; n.Name != "" {
		return n.Name
	}
	return b.scene.Neurons[i].ID.String()
}

func (b *builder) resolve(r Ref) (neuron.SegmentRef, error) {
	ni, ok := b.byName[r.Neuron]
	if !ok {
		return neuron.SegmentRef{}, fmt.Errorf("%q: %w", r.Neuron, ErrUnknownNeuron)
	}
	si, ok := b.indexOf[ni][r.Segment]
	if !ok {
		return neuron.SegmentRef{}, fmt.Errorf("%s: %w", r, ErrUnknownSegment)
	}
	return neuron.SegmentRef{Neuron: ni, Segment: si}, nil
}

func (b *builder) neuron(ni int) (neuron.NeuronSpec, error) {
	n := b.scene.Neurons[ni]
	fail := func(err error) (neuron.NeuronSpec, error) {
		return neuron.NeuronSpec{}, fmt.Errorf("neuron %s: %w", b.label(ni), err)
	}
	if len(n.Segments) == 0 {
		return fail(fmt.Errorf("no segments: %w", ErrBadMorphology))
	}

	index := make(map[int]int, len(n.Segments))
	for i, seg := range n.Segments {
		if _, dup := index[seg.ID]; dup {
			return fail(fmt.Errorf("duplicate segment id %d: %w", seg.ID, ErrBadMorphology))
		}
		index[seg.ID] = i
	}
	for _, seg := range n.Segments {
		if seg.Parent == seg.ID {
			return fail(fmt.Errorf("segment %d is its own parent: %w", seg.ID, ErrBadMorphology))
		}
		if _, ok := index[seg.Parent]; !ok && seg.Parent != -1 {
			return fail(fmt.Errorf("segment %d parent %d: %w", seg.ID, seg.Parent, ErrUnknownSegment))
		}
		if !(seg.R > 0) {
			return fail(fmt.Errorf("segment %d radius %g: %w", seg.ID, seg.R, ErrBadMorphology))
		}
	}
	b.indexOf[ni] = index

	membranes := make([]neuron.MembraneSpec, len(n.Membranes))
	for i, md := range n.Membranes {
		ms, err := md.spec()
		if err != nil {
			return fail(fmt.Errorf("membrane %d: %w", i, err))
		}
		membranes[i] = ms
	}

	intracellular := neuron.ExampleCytoplasm
	if n.Intracellular != nil {
		intracellular = n.Intracellular.solution()
	}

	spec := neuron.NeuronSpec{
		Name:     b.label(ni),
		Segments: make([]neuron.SegmentSpec, 0, len(n.Segments)),
	}
	for _, seg := range n.Segments {
		if seg.Type < 1 || seg.Type > len(membranes) {
			return fail(fmt.Errorf("segment %d type %d with %d membranes: %w", seg.ID, seg.Type, len(membranes), ErrMissingMembrane))
		}
		spec.Segments = append(spec.Segments, neuron.SegmentSpec{
			Name:           fmt.Sprintf("%s#%d", spec.Name, seg.ID),
			Intracellular:  intracellular,
			Geometry:       geometry(seg, n.Segments, index),
			Membrane:       membranes[seg.Type-1],
			InitialVoltage: n.InitialVoltage,
		})
	}
	for i, seg := range n.Segments {
		p, ok := index[seg.Parent]
		if !ok {
			continue
		}
		d := min(spec.Segments[i].Geometry.DiameterCm, spec.Segments[p].Geometry.DiameterCm)
		spec.Junctions = append(spec.Junctions, neuron.JunctionSpec{A: p, B: i, PoreDiameterCm: d})
	}
	return spec, nil
}

// geometry sizes a sample as a cylinder reaching back to its parent. Somata,
// roots and samples coincident with their parent are as long as they are
// wide.
func geometry(seg Segment, all []Segment, index map[int]int) neuron.Geometry {
	diameter := 2 * seg.R * micronsToCm
	length := diameter
	if p, ok := index[seg.Parent]; ok && seg.Type != TypeSoma {
		if d := distanceCm(seg, all[p]); d > 0 {
			length = d
		}
	}
	return neuron.Geometry{DiameterCm: diameter, LengthCm: length}
}

func (b *builder) synapse(s Synapse) (neuron.NetworkSynapseSpec, error) {
	pre, err := b.resolve(s.Pre)
	if err != nil {
		return neuron.NetworkSynapseSpec{}, fmt.Errorf("pre: %w", err)
	}
	post, err := b.resolve(s.Post)
	if err != nil {
		return neuron.NetworkSynapseSpec{}, fmt.Errorf("post: %w", err)
	}
	spec, err := s.spec()
	if err != nil {
		return neuron.NetworkSynapseSpec{}, err
	}
	return neuron.NetworkSynapseSpec{Pre: pre, Post: post, Spec: spec}, nil
}

func (s Synapse) spec() (neuron.SynapseSpec, error) {
	var out neuron.SynapseSpec
	switch s.Preset {
	case "excitatory":
		out = neuron.ExcitatorySynapse()
	case "inhibitory":
		out = neuron.InhibitorySynapse()
	case "":
		out = neuron.SynapseSpec{Cleft: neuron.InterstitialFluid}
	default:
		return out, fmt.Errorf("unknown synapse preset %q: %w", s.Preset, neuron.ErrInvalidParameter)
	}
	if s.Cleft != nil {
		out.Cleft = s.Cleft.solution()
	}
	if s.Initial != nil {
		out.Initial = neuron.TransmitterConcentrations{Glutamate: s.Initial.Glutamate, GABA: s.Initial.GABA}
	}
	if s.SurfaceAreaCm2 != 0 {
		out.SurfaceAreaCm2 = s.SurfaceAreaCm2
	}
	if len(s.Pumps) > 0 {
		out.Pumps = make([]neuron.TransmitterPump, 0, len(s.Pumps))
		for i, p := range s.Pumps {
			pump, err := p.pump()
			if err != nil {
				return out, fmt.Errorf("pump %d: %w", i, err)
			}
			out.Pumps = append(out.Pumps, pump)
		}
	}
	if len(s.Receptors) > 0 {
		out.Receptors = make([]neuron.ReceptorSpec, 0, len(s.Receptors))
		for i, r := range s.Receptors {
			rs, err := r.spec()
			if err != nil {
				return out, fmt.Errorf("receptor %d: %w", i, err)
			}
			out.Receptors = append(out.Receptors, rs)
		}
	}
	return out, nil
}

func (p PumpDef) pump() (neuron.TransmitterPump, error) {
	t, err := neuron.ParseTransmitter(p.Transmitter)
	if err != nil {
		return neuron.TransmitterPump{}, err
	}
	tau, err := p.Tau.timeConstant()
	if err != nil {
		return neuron.TransmitterPump{}, err
	}
	return neuron.TransmitterPump{
		Transmitter: t,
		Min:         p.Min,
		Max:         p.Max,
		Target:      neuron.Sigmoid{VHalf: p.VHalf, Slope: p.Slope},
		Tau:         tau,
		Scale:       p.Scale,
	}, nil
}

func (r ReceptorDef) spec() (neuron.ReceptorSpec, error) {
	t, err := neuron.ParseTransmitter(r.Transmitter)
	if err != nil {
		return neuron.ReceptorSpec{}, err
	}
	cb, err := r.Channel.builder("receptor")
	if err != nil {
		return neuron.ReceptorSpec{}, err
	}
	return neuron.ReceptorSpec{
		Builder:            cb,
		SiemensPerSquareCm: r.Channel.PeakSiemensPerCm2,
		Sensitivity:        neuron.Sensitivity{Transmitter: t, HalfMax: r.HalfMax, Slope: r.Slope},
	}, nil
}

func (m MembraneDef) spec() (neuron.MembraneSpec, error) {
	out := neuron.MembraneSpec{
		Channels:                     make([]neuron.ChannelSpec, 0, len(m.Channels)),
		CapacitanceFaradsPerSquareCm: m.CapacitanceFaradsPerCm2,
	}
	for i, c := range m.Channels {
		cb, err := c.builder(fmt.Sprintf("channel %d", i))
		if err != nil {
			return out, err
		}
		out.Channels = append(out.Channels, neuron.ChannelSpec{Builder: cb, SiemensPerSquareCm: c.PeakSiemensPerCm2})
	}
	return out, nil
}

// builder starts from the library channel, if any, and applies the
// explicitly given gates and selectivity on top.
func (c ChannelDef) builder(fallbackName string) (neuron.ChannelBuilder, error) {
	cb := neuron.ChannelBuilder{Name: fallbackName}
	if c.Library != "" {
		lib, ok := neuron.Channels[c.Library]
		if !ok {
			return cb, fmt.Errorf("%q: %w", c.Library, ErrUnknownChannel)
		}
		cb = lib
	}
	if c.Activation != nil {
		g, err := c.Activation.params()
		if err != nil {
			return cb, fmt.Errorf("%s activation: %w", cb.Name, err)
		}
		cb.Activation = &g
	}
	if c.Inactivation != nil {
		g, err := c.Inactivation.params()
		if err != nil {
			return cb, fmt.Errorf("%s inactivation: %w", cb.Name, err)
		}
		cb.Inactivation = &g
	}
	if c.Selectivity != nil {
		cb.Selectivity = neuron.IonSelectivity{
			Na: c.Selectivity.Na, K: c.Selectivity.K,
			Ca: c.Selectivity.Ca, Cl: c.Selectivity.Cl,
		}
	}
	return cb, nil
}

func (g GateDef) params() (neuron.GateParams, error) {
	tau, err := g.Tau.timeConstant()
	if err != nil {
		return neuron.GateParams{}, err
	}
	return neuron.GateParams{
		Gates:  g.Gates,
		Steady: neuron.Sigmoid{VHalf: g.VHalf, Slope: g.Slope},
		Tau:    tau,
	}, nil
}

func (t TimeConstantDef) timeConstant() (neuron.TimeConstant, error) {
	kind, err := neuron.ParseTauKind(t.Kind)
	if err != nil {
		return neuron.TimeConstant{}, err
	}
	switch kind {
	case neuron.TauBell:
		return neuron.BellTau(t.VPeak, t.CBase, t.CAmp, t.Sigma), nil
	case neuron.TauLinearExp:
		return neuron.LinearExpTau(t.Coef, t.VOffset, t.Inner), nil
	default:
		return neuron.InstantaneousTau(), nil
	}
}

func (s SolutionDef) solution() neuron.Solution {
	return neuron.Solution{Na: s.Na, K: s.K, Ca: s.Ca, Cl: s.Cl}
}

func (s Stimulus) stimulator() (stimulus.Stimulator, error) {
	return stimulus.New(s.Shape,
		stimulus.Envelope{Period: s.Period, Onset: s.Onset, Offset: s.Offset},
		stimulus.Shape{
			On: s.On, Off: s.Off,
			Start: s.Start, End: s.End,
			Amplitude: s.Amplitude, Baseline: s.Baseline,
			StartHz: s.StartHz, EndHz: s.EndHz,
		})
}
