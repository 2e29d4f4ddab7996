package neuron

import "fmt"

// MembraneChannel pairs a channel with its peak conductance density.
type MembraneChannel struct {
	Channel            Channel
	SiemensPerSquareCm float64
}

// CurrentDensity returns the channel current in A/cm² at voltage v (mV).
func (mc *MembraneChannel) CurrentDensity(rev Reversals, v float64) float64 {
	coef := mc.Channel.ConductanceCoefficient()
	sel := mc.Channel.Selectivity
	sum := sel.Na*coef*(v-rev.Na)*1e-3 +
		sel.K*coef*(v-rev.K)*1e-3 +
		sel.Ca*coef*(v-rev.Ca)*1e-3 +
		sel.Cl*coef*(v-rev.Cl)*1e-3
	return sum * mc.SiemensPerSquareCm
}

// Membrane is an ordered set of channels plus a capacitance density.
type Membrane struct {
	Channels                     []MembraneChannel
	CapacitanceFaradsPerSquareCm float64
}

// CurrentDensity sums every channel's current density (A/cm²).
func (m *Membrane) CurrentDensity(rev Reversals, v float64) float64 {
	var total float64
	for i := range m.Channels {
		total += m.Channels[i].CurrentDensity(rev, v)
	}
	return total
}

// Step advances every channel's gates at v.
func (m *Membrane) Step(v, dt float64) {
	for i := range m.Channels {
		m.Channels[i].Channel.Step(v, dt)
	}
}

// Conductances returns the per-ion conductance density (S/cm²) given the
// current gate states.
func (m *Membrane) Conductances() Conductances {
	var c Conductances
	for i := range m.Channels {
		mc := &m.Channels[i]
		g := mc.SiemensPerSquareCm * mc.Channel.ConductanceCoefficient()
		c.Na += g * mc.Channel.Selectivity.Na
		c.K += g * mc.Channel.Selectivity.K
		c.Ca += g * mc.Channel.Selectivity.Ca
		c.Cl += g * mc.Channel.Selectivity.Cl
	}
	return c
}

func (m *Membrane) eachGate(fn func(*Gate)) {
	for i := range m.Channels {
		m.Channels[i].Channel.eachGate(fn)
	}
}

// Conductances is a per-ion conductance breakdown in S/cm².
type Conductances struct {
	Na, K, Ca, Cl float64
}

func (c Conductances) Total() float64 {
	return c.Na + c.K + c.Ca + c.Cl
}

// For returns the conductance attributed to ion.
func (c Conductances) For(ion Ion) float64 {
	switch ion {
	case IonNa:
		return c.Na
	case IonK:
		return c.K
	case IonCa:
		return c.Ca
	default:
		return c.Cl
	}
}

// WeightedReversal is the conductance-weighted mean of the reversal
// potentials: the resting voltage of a purely passive membrane.
func (c Conductances) WeightedReversal(rev Reversals) (float64, error) {
	total := c.Total()
	if total == 0 {
		return 0, ErrZeroConductance
	}
	return (c.Na*rev.Na + c.K*rev.K + c.Ca*rev.Ca + c.Cl*rev.Cl) / total, nil
}

// ChannelSpec is one entry of a MembraneSpec.
type ChannelSpec struct {
	Builder            ChannelBuilder
	SiemensPerSquareCm float64
}

// MembraneSpec describes a membrane before its gates are initialized.
type MembraneSpec struct {
	Channels                     []ChannelSpec
	CapacitanceFaradsPerSquareCm float64
}

// Build instantiates the membrane with gates at steady state for v.
func (s MembraneSpec) Build(v float64) (Membrane, error) {
	if s.CapacitanceFaradsPerSquareCm <= 0 {
		return Membrane{}, invalidf("capacitance %g F/cm²", s.CapacitanceFaradsPerSquareCm)
	}
	m := Membrane{
		Channels:                     make([]MembraneChannel, 0, len(s.Channels)),
		CapacitanceFaradsPerSquareCm: s.CapacitanceFaradsPerSquareCm,
	}
	for i, cs := range s.Channels {
		if cs.SiemensPerSquareCm < 0 {
			return Membrane{}, invalidf("channel %d peak conductance %g", i, cs.SiemensPerSquareCm)
		}
		ch, err := cs.Builder.Build(v)
		if err != nil {
			return Membrane{}, fmt.Errorf("membrane channel %d: %w", i, err)
		}
		m.Channels = append(m.Channels, MembraneChannel{Channel: ch, SiemensPerSquareCm: cs.SiemensPerSquareCm})
	}
	return m, nil
}
