package neuron

import (
	"errors"
	"fmt"
	"math"
)

// DriveMode selects how synaptic current reaches the postsynaptic segment.
type DriveMode uint8

const (
	// DriveResistive perturbs the postsynaptic voltage directly through a
	// fixed resistance.
	DriveResistive DriveMode = iota
	// DriveCurrent writes the synaptic current accumulator, which the
	// segment integrates on the next tick.
	DriveCurrent
)

func (m DriveMode) String() string {
	switch m {
	case DriveResistive:
		return "resistive"
	case DriveCurrent:
		return "current"
	default:
		return fmt.Sprintf("drive(%d)", uint8(m))
	}
}

// ParseDriveMode maps a config name onto a DriveMode.
func ParseDriveMode(name string) (DriveMode, error) {
	switch name {
	case "", "resistive":
		return DriveResistive, nil
	case "current":
		return DriveCurrent, nil
	default:
		return 0, invalidf("unknown synapse drive %q", name)
	}
}

// DefaultSynapseResistance is the resistance used by DriveResistive.
const DefaultSynapseResistance = 1e9

// Coupling holds the constants shared by junctions and synapses.
type Coupling struct {
	JunctionConductancePerSquareCm float64
	SynapseDrive                   DriveMode
	SynapseResistanceOhms          float64
}

// DefaultCoupling returns the standard coupling constants.
func DefaultCoupling() Coupling {
	return Coupling{
		JunctionConductancePerSquareCm: ConductancePerSquareCm,
		SynapseDrive:                   DriveResistive,
		SynapseResistanceOhms:          DefaultSynapseResistance,
	}
}

func (c Coupling) withDefaults() Coupling {
	if c.JunctionConductancePerSquareCm == 0 {
		c.JunctionConductancePerSquareCm = ConductancePerSquareCm
	}
	if c.SynapseResistanceOhms == 0 {
		c.SynapseResistanceOhms = DefaultSynapseResistance
	}
	return c
}

// LocalSynapse is a synapse between two segments of the same neuron.
type LocalSynapse struct {
	Pre, Post int
	Synapse
}

// JunctionSpec is the construction input for a junction.
type JunctionSpec = Junction

// LocalSynapseSpec is the construction input for a LocalSynapse.
type LocalSynapseSpec struct {
	Pre, Post int
	Spec      SynapseSpec
}

// NeuronSpec is the full construction input for a Neuron.
type NeuronSpec struct {
	Name      string
	Segments  []SegmentSpec
	Junctions []JunctionSpec
	Synapses  []LocalSynapseSpec
	Coupling  Coupling
}

// Neuron owns an arena of segments and the couplings between them.
type Neuron struct {
	Name      string
	segments  []Segment
	junctions []Junction
	synapses  []LocalSynapse
	coupling  Coupling
	time      float64

	// per-tick scratch
	reversals    []Reversals
	synReversals []Reversals
	snap         couplingSnapshot
	checkpoint   []float64
}

// NewNeuron validates spec and builds the neuron. Every junction and synapse
// endpoint must name a distinct, existing segment.
func NewNeuron(spec NeuronSpec) (*Neuron, error) {
	n := &Neuron{
		Name:      spec.Name,
		segments:  make([]Segment, 0, len(spec.Segments)),
		junctions: make([]Junction, 0, len(spec.Junctions)),
		coupling:  spec.Coupling.withDefaults(),
	}
	if n.coupling.JunctionConductancePerSquareCm < 0 || n.coupling.SynapseResistanceOhms < 0 {
		return nil, invalidf("negative coupling constant")
	}
	for i, ss := range spec.Segments {
		seg, err := ss.Build()
		if err != nil {
			return nil, fmt.Errorf("neuron %q segment %d: %w", spec.Name, i, err)
		}
		n.segments = append(n.segments, seg)
	}
	for i, j := range spec.Junctions {
		if err := n.checkPair(j.A, j.B); err != nil {
			return nil, fmt.Errorf("neuron %q junction %d: %w", spec.Name, i, err)
		}
		if j.PoreDiameterCm < 0 {
			return nil, fmt.Errorf("neuron %q junction %d: %w", spec.Name, i, invalidf("pore diameter %g", j.PoreDiameterCm))
		}
		n.junctions = append(n.junctions, j)
	}
	for i, ls := range spec.Synapses {
		if err := n.checkPair(ls.Pre, ls.Post); err != nil {
			return nil, fmt.Errorf("neuron %q synapse %d: %w", spec.Name, i, err)
		}
		syn, err := ls.Spec.Build(n.segments[ls.Post].Voltage)
		if err != nil {
			return nil, fmt.Errorf("neuron %q synapse %d: %w", spec.Name, i, err)
		}
		n.synapses = append(n.synapses, LocalSynapse{Pre: ls.Pre, Post: ls.Post, Synapse: syn})
	}
	return n, nil
}

func (n *Neuron) checkPair(a, b int) error {
	if a < 0 || a >= len(n.segments) || b < 0 || b >= len(n.segments) {
		return fmt.Errorf("endpoints (%d, %d) with %d segments: %w", a, b, len(n.segments), ErrInvalidIndex)
	}
	if a == b {
		return fmt.Errorf("endpoints (%d, %d) coincide: %w", a, b, ErrInvalidIndex)
	}
	return nil
}

// Len returns the number of segments.
func (n *Neuron) Len() int { return len(n.segments) }

// Time returns the simulated time in seconds.
func (n *Neuron) Time() float64 { return n.time }

// Segment returns segment i for inspection or input changes.
func (n *Neuron) Segment(i int) *Segment { return &n.segments[i] }

// Voltage returns segment i's voltage in mV.
func (n *Neuron) Voltage(i int) float64 { return n.segments[i].Voltage }

// Voltages appends every segment voltage to dst.
func (n *Neuron) Voltages(dst []float64) []float64 {
	for i := range n.segments {
		dst = append(dst, n.segments[i].Voltage)
	}
	return dst
}

// Junctions returns the neuron's junctions. The slice must not be modified.
func (n *Neuron) Junctions() []Junction { return n.junctions }

// Synapses returns the neuron's local synapses.
func (n *Neuron) Synapses() []LocalSynapse { return n.synapses }

// Coupling returns the coupling constants in effect.
func (n *Neuron) Coupling() Coupling { return n.coupling }

// SetInputCurrent sets the injected current density (µA/cm²) of segment i.
func (n *Neuron) SetInputCurrent(i int, microAmpsPerCm2 float64) error {
	if i < 0 || i >= len(n.segments) {
		return fmt.Errorf("segment %d of %d: %w", i, len(n.segments), ErrInvalidIndex)
	}
	n.segments[i].InputCurrent = microAmpsPerCm2
	return nil
}

// Step advances the neuron by dt seconds: segments, then junctions, then
// local synapses, then the clock. On error the neuron is left exactly as it
// was before the call.
func (n *Neuron) Step(env Environment, dt float64) error {
	n.checkpoint = n.save(n.checkpoint)
	if err := n.step(env, dt); err != nil {
		n.restore(n.checkpoint)
		return err
	}
	return nil
}

func (n *Neuron) step(env Environment, dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return invalidf("time step %g", dt)
	}
	if err := n.prepare(env); err != nil {
		return err
	}

	for i := range n.segments {
		n.segments[i].advance(n.reversals[i], dt)
	}

	if n.coupling.SynapseDrive == DriveCurrent {
		for i := range n.segments {
			n.segments[i].SynapticCurrent = 0
		}
	}

	if len(n.junctions) > 0 {
		n.snap.take(n.segments)
		for _, j := range n.junctions {
			n.snap.accumulateJunction(j, n.coupling.JunctionConductancePerSquareCm, dt)
		}
		n.snap.apply(n.segments)
	}

	if len(n.synapses) > 0 {
		n.snap.take(n.segments)
		for i := range n.synapses {
			ls := &n.synapses[i]
			vPre, vPost := n.snap.voltage[ls.Pre], n.snap.voltage[ls.Post]
			ls.Step(vPre, vPost, dt)
			current := ls.Current(n.synReversals[i], vPost)
			if n.coupling.SynapseDrive == DriveCurrent {
				n.segments[ls.Post].SynapticCurrent += current
			} else {
				n.snap.delta[ls.Post] += Perturbation(current, n.coupling.SynapseResistanceOhms, dt)
			}
		}
		n.snap.apply(n.segments)
	}

	if err := n.checkFinite(); err != nil {
		return err
	}
	n.time += dt
	return nil
}

// prepare computes every reversal potential the tick needs so that domain
// errors surface before any state changes.
func (n *Neuron) prepare(env Environment) error {
	if cap(n.reversals) < len(n.segments) {
		n.reversals = make([]Reversals, len(n.segments))
	}
	n.reversals = n.reversals[:len(n.segments)]
	for i := range n.segments {
		rev, err := n.segments[i].Reversals(env)
		if err != nil {
			return fmt.Errorf("neuron %q segment %d: %w", n.Name, i, err)
		}
		n.reversals[i] = rev
	}
	if cap(n.synReversals) < len(n.synapses) {
		n.synReversals = make([]Reversals, len(n.synapses))
	}
	n.synReversals = n.synReversals[:len(n.synapses)]
	for i := range n.synapses {
		ls := &n.synapses[i]
		rev, err := ls.Reversals(n.segments[ls.Post].Intracellular, env.TemperatureK)
		if err != nil {
			return fmt.Errorf("neuron %q synapse %d: %w", n.Name, i, err)
		}
		n.synReversals[i] = rev
	}
	return nil
}

// checkFinite reports the first non-finite segment, stamped with the time at
// the start of the tick.
func (n *Neuron) checkFinite() error {
	for i := range n.segments {
		v := n.segments[i].Voltage
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &DivergenceError{Segment: i, Voltage: v, Time: n.time}
		}
	}
	return nil
}

// eachState visits every value a tick may change, in a fixed order.
func (n *Neuron) eachState(fn func(*float64)) {
	for i := range n.segments {
		s := &n.segments[i]
		fn(&s.Voltage)
		fn(&s.SynapticCurrent)
		s.Membrane.eachGate(func(g *Gate) { fn(&g.Magnitude) })
	}
	for i := range n.synapses {
		n.synapses[i].eachState(fn)
	}
	fn(&n.time)
}

func (n *Neuron) save(buf []float64) []float64 {
	buf = buf[:0]
	n.eachState(func(p *float64) { buf = append(buf, *p) })
	return buf
}

func (n *Neuron) restore(buf []float64) {
	i := 0
	n.eachState(func(p *float64) {
		*p = buf[i]
		i++
	})
}

// IsDivergence reports whether err stems from a non-finite voltage.
func IsDivergence(err error) bool {
	return errors.Is(err, ErrDiverged)
}
