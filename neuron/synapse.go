package neuron

import (
	"fmt"
	"math"
)

// Transmitter names a neurotransmitter species.
type Transmitter uint8

const (
	Glutamate Transmitter = iota
	GABA
)

func (t Transmitter) String() string {
	switch t {
	case Glutamate:
		return "glutamate"
	case GABA:
		return "gaba"
	default:
		return fmt.Sprintf("transmitter(%d)", uint8(t))
	}
}

// ParseTransmitter maps an interchange name onto a Transmitter.
func ParseTransmitter(name string) (Transmitter, error) {
	switch name {
	case "glutamate":
		return Glutamate, nil
	case "gaba":
		return GABA, nil
	default:
		return 0, invalidf("unknown transmitter %q", name)
	}
}

// TransmitterConcentrations holds cleft concentrations in mol/L.
type TransmitterConcentrations struct {
	Glutamate float64
	GABA      float64
}

func (c *TransmitterConcentrations) Of(t Transmitter) float64 {
	if t == GABA {
		return c.GABA
	}
	return c.Glutamate
}

func (c *TransmitterConcentrations) ptr(t Transmitter) *float64 {
	if t == GABA {
		return &c.GABA
	}
	return &c.Glutamate
}

// TransmitterPump models release and clearance of one transmitter as a
// relaxation toward a presynaptic-voltage-dependent target.
type TransmitterPump struct {
	Transmitter Transmitter
	Min, Max    float64 // mol/L
	Target      Sigmoid
	Tau         TimeConstant
	Scale       float64 // relaxation rate multiplier; 0 means 1
}

// TargetConcentration returns the concentration the pump drives toward at
// presynaptic voltage v.
func (p TransmitterPump) TargetConcentration(v float64) float64 {
	return p.Min + (p.Max-p.Min)*p.Target.At(v)
}

// Rate returns the concentration's rate of change (mol/L/s) from c at
// presynaptic voltage v.
func (p TransmitterPump) Rate(c, v float64) float64 {
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	return scale * (p.TargetConcentration(v) - c) / p.Tau.At(v)
}

func (p TransmitterPump) validate() error {
	if p.Scale < 0 || math.IsNaN(p.Scale) {
		return invalidf("pump scale %g", p.Scale)
	}
	if p.Target.Slope == 0 {
		return invalidf("pump target slope is zero")
	}
	if p.Min < 0 || p.Max < p.Min {
		return invalidf("pump concentration range [%g, %g]", p.Min, p.Max)
	}
	if p.Tau.Kind != TauBell {
		return fmt.Errorf("pump tau %s: %w", p.Tau.Kind, ErrUnknownTimeConstant)
	}
	return p.Tau.Validate()
}

// Sensitivity gates a receptor by transmitter concentration.
type Sensitivity struct {
	Transmitter Transmitter
	HalfMax     float64 // mol/L
	Slope       float64 // per mol/L
}

// GatingCoefficient returns the ligand-dependent open fraction.
func (s Sensitivity) GatingCoefficient(c TransmitterConcentrations) float64 {
	return 1 / (1 + math.Exp(-(c.Of(s.Transmitter)-s.HalfMax)*s.Slope))
}

// Receptor is a postsynaptic channel additionally gated by a transmitter.
type Receptor struct {
	MembraneChannel
	Sensitivity Sensitivity
}

// Synapse is the state of one chemical synapse. Endpoints are held by the
// owner (Neuron or Network).
type Synapse struct {
	Cleft          Solution
	Concentrations TransmitterConcentrations
	Pumps          []TransmitterPump
	Receptors      []Receptor
	SurfaceAreaCm2 float64
}

// Step relaxes transmitter concentrations toward their presynaptic targets
// and advances receptor gates at the postsynaptic voltage.
func (s *Synapse) Step(vPre, vPost, dt float64) {
	for _, p := range s.Pumps {
		c := s.Concentrations.ptr(p.Transmitter)
		*c += p.Rate(*c, vPre) * dt
	}
	for i := range s.Receptors {
		s.Receptors[i].Channel.Step(vPost, dt)
	}
}

// Reversals computes reversal potentials across the postsynaptic membrane
// facing the cleft.
func (s *Synapse) Reversals(postIntracellular Solution, temperatureK float64) (Reversals, error) {
	return ReversalPotentials(postIntracellular, s.Cleft, temperatureK)
}

// Current returns the outward receptor current in µA at postsynaptic
// voltage vPost.
func (s *Synapse) Current(rev Reversals, vPost float64) float64 {
	var density float64
	for i := range s.Receptors {
		r := &s.Receptors[i]
		density += r.CurrentDensity(rev, vPost) * r.Sensitivity.GatingCoefficient(s.Concentrations)
	}
	return density * s.SurfaceAreaCm2 * 1e6
}

// Perturbation converts a synaptic current (µA) into a voltage change (mV)
// across resistance (Ω) over dt.
func Perturbation(currentMicroAmps, resistanceOhms, dt float64) float64 {
	return -currentMicroAmps * 1e-6 * resistanceOhms * dt * 1000
}

func (s *Synapse) eachState(fn func(*float64)) {
	fn(&s.Concentrations.Glutamate)
	fn(&s.Concentrations.GABA)
	for i := range s.Receptors {
		s.Receptors[i].Channel.eachGate(func(g *Gate) { fn(&g.Magnitude) })
	}
}

// ReceptorSpec describes one receptor before its gates are initialized.
type ReceptorSpec struct {
	Builder            ChannelBuilder
	SiemensPerSquareCm float64
	Sensitivity        Sensitivity
}

// SynapseSpec is the construction input for a Synapse.
type SynapseSpec struct {
	Cleft          Solution
	Initial        TransmitterConcentrations
	Pumps          []TransmitterPump
	Receptors      []ReceptorSpec
	SurfaceAreaCm2 float64
}

// Build instantiates the synapse with receptor gates at steady state for the
// postsynaptic voltage vPost.
func (s SynapseSpec) Build(vPost float64) (Synapse, error) {
	if s.SurfaceAreaCm2 <= 0 {
		return Synapse{}, invalidf("synapse surface area %g", s.SurfaceAreaCm2)
	}
	if err := s.Cleft.Validate(); err != nil {
		return Synapse{}, fmt.Errorf("synapse cleft: %w", err)
	}
	if s.Initial.Glutamate < 0 || s.Initial.GABA < 0 {
		return Synapse{}, invalidf("negative initial transmitter concentration")
	}
	syn := Synapse{
		Cleft:          s.Cleft,
		Concentrations: s.Initial,
		Pumps:          append([]TransmitterPump(nil), s.Pumps...),
		SurfaceAreaCm2: s.SurfaceAreaCm2,
	}
	for i, p := range s.Pumps {
		if err := p.validate(); err != nil {
			return Synapse{}, fmt.Errorf("synapse pump %d: %w", i, err)
		}
	}
	for i, rs := range s.Receptors {
		if rs.SiemensPerSquareCm < 0 {
			return Synapse{}, invalidf("receptor %d peak conductance %g", i, rs.SiemensPerSquareCm)
		}
		ch, err := rs.Builder.Build(vPost)
		if err != nil {
			return Synapse{}, fmt.Errorf("synapse receptor %d: %w", i, err)
		}
		syn.Receptors = append(syn.Receptors, Receptor{
			MembraneChannel: MembraneChannel{Channel: ch, SiemensPerSquareCm: rs.SiemensPerSquareCm},
			Sensitivity:     rs.Sensitivity,
		})
	}
	return syn, nil
}
