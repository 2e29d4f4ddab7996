package neuron

// Example segments, synapses and neurons used by tests, the CLI and
// calibration.

const defaultCapacitance = 1e-6 // F/cm²

// GiantSquidAxon is the classic Hodgkin–Huxley compartment resting near -70 mV.
func GiantSquidAxon() SegmentSpec {
	return SegmentSpec{
		Name:          "giant_squid_axon",
		Intracellular: ExampleCytoplasm,
		Geometry:      Geometry{DiameterCm: 1, LengthCm: 3},
		Membrane: MembraneSpec{
			Channels: []ChannelSpec{
				{Builder: GiantSquidK, SiemensPerSquareCm: 36e-3},
				{Builder: GiantSquidNa, SiemensPerSquareCm: 120e-3},
				{Builder: Leak, SiemensPerSquareCm: 0.3e-3},
			},
			CapacitanceFaradsPerSquareCm: defaultCapacitance,
		},
		InitialVoltage: -70,
	}
}

// SimpleLeak is a thin passive cable with only a chloride leak.
func SimpleLeak() SegmentSpec {
	return SegmentSpec{
		Name:          "simple_leak",
		Intracellular: ExampleCytoplasm,
		Geometry:      Geometry{DiameterCm: 0.01, LengthCm: 1000},
		Membrane: MembraneSpec{
			Channels:                     []ChannelSpec{{Builder: Leak, SiemensPerSquareCm: 0.3e-3}},
			CapacitanceFaradsPerSquareCm: defaultCapacitance,
		},
		InitialVoltage: -80,
	}
}

// KChannelsOnly carries only the squid K+ channel.
func KChannelsOnly() SegmentSpec {
	return SegmentSpec{
		Name:          "k_channels_only",
		Intracellular: ExampleCytoplasm,
		Geometry:      Geometry{DiameterCm: 1, LengthCm: 3},
		Membrane: MembraneSpec{
			Channels:                     []ChannelSpec{{Builder: GiantSquidK, SiemensPerSquareCm: 36e-3}},
			CapacitanceFaradsPerSquareCm: defaultCapacitance,
		},
		InitialVoltage: -80,
	}
}

// PassiveChannels builds a segment with ungated Na+, K+ and Cl- channels of
// the given peak conductances (S/cm²).
func PassiveChannels(gNa, gK, gCl float64) SegmentSpec {
	return SegmentSpec{
		Name:          "passive_channels",
		Intracellular: ExampleCytoplasm,
		Geometry:      Geometry{DiameterCm: 2, LengthCm: 2},
		Membrane: MembraneSpec{
			Channels: []ChannelSpec{
				{Builder: ChannelBuilder{Name: "passive_cl", Selectivity: SelectiveCl}, SiemensPerSquareCm: gCl},
				{Builder: ChannelBuilder{Name: "passive_k", Selectivity: SelectiveK}, SiemensPerSquareCm: gK},
				{Builder: ChannelBuilder{Name: "passive_na", Selectivity: SelectiveNa}, SiemensPerSquareCm: gNa},
			},
			CapacitanceFaradsPerSquareCm: defaultCapacitance,
		},
		InitialVoltage: -58,
	}
}

// GlutamateRelease is a pump that floods the cleft while the presynaptic
// segment is depolarized past 0 mV.
func GlutamateRelease() TransmitterPump {
	return TransmitterPump{
		Transmitter: Glutamate,
		Min:         1e-4,
		Max:         1.1e-2,
		Target:      Sigmoid{VHalf: 0, Slope: 1},
		Tau:         BellTau(0, 1e-3, 1e-6, 1),
	}
}

func GABARelease() TransmitterPump {
	p := GlutamateRelease()
	p.Transmitter = GABA
	return p
}

func AMPAReceptor() ReceptorSpec {
	return ReceptorSpec{
		Builder:            AMPA,
		SiemensPerSquareCm: 0.1,
		Sensitivity:        Sensitivity{Transmitter: Glutamate, HalfMax: 3e-3, Slope: 10000},
	}
}

func GABAAReceptor() ReceptorSpec {
	return ReceptorSpec{
		Builder:            GABAA,
		SiemensPerSquareCm: 0.1,
		Sensitivity:        Sensitivity{Transmitter: GABA, HalfMax: 3e-3, Slope: 10000},
	}
}

// ExcitatorySynapse releases glutamate onto AMPA receptors.
func ExcitatorySynapse() SynapseSpec {
	return SynapseSpec{
		Cleft:          InterstitialFluid,
		Initial:        TransmitterConcentrations{Glutamate: 0.1e-3, GABA: 0.1e-3},
		Pumps:          []TransmitterPump{GlutamateRelease()},
		Receptors:      []ReceptorSpec{AMPAReceptor()},
		SurfaceAreaCm2: 1e-6,
	}
}

// InhibitorySynapse releases GABA onto GABA-A receptors.
func InhibitorySynapse() SynapseSpec {
	return SynapseSpec{
		Cleft:          InterstitialFluid,
		Initial:        TransmitterConcentrations{Glutamate: 0.1e-3, GABA: 0.1e-3},
		Pumps:          []TransmitterPump{GABARelease()},
		Receptors:      []ReceptorSpec{GABAAReceptor()},
		SurfaceAreaCm2: 1e-6,
	}
}

// SquidWithPassiveAttachment joins a squid axon compartment to a leaky cable.
func SquidWithPassiveAttachment() NeuronSpec {
	return NeuronSpec{
		Name:      "squid_with_passive_attachment",
		Segments:  []SegmentSpec{GiantSquidAxon(), SimpleLeak()},
		Junctions: []JunctionSpec{{A: 0, B: 1, PoreDiameterCm: 0.01}},
	}
}

// ExcitatoryPair is two squid axon compartments of one neuron where the
// first excites the second through a glutamate synapse.
func ExcitatoryPair() NeuronSpec {
	return NeuronSpec{
		Name:     "excitatory_pair",
		Segments: []SegmentSpec{GiantSquidAxon(), GiantSquidAxon()},
		Synapses: []LocalSynapseSpec{{Pre: 0, Post: 1, Spec: ExcitatorySynapse()}},
	}
}

// Examples indexes the example neurons by name.
var Examples = map[string]func() NeuronSpec{
	"squid_with_passive_attachment": SquidWithPassiveAttachment,
	"excitatory_pair":               ExcitatoryPair,
	"giant_squid_axon": func() NeuronSpec {
		return NeuronSpec{Name: "giant_squid_axon", Segments: []SegmentSpec{GiantSquidAxon()}}
	},
	"simple_leak": func() NeuronSpec {
		return NeuronSpec{Name: "simple_leak", Segments: []SegmentSpec{SimpleLeak()}}
	},
}
