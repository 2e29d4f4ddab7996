package neuron

// Channel library. Voltages in mV, time constants in seconds.

var (
	// GiantSquidNa is the squid axon's fast Na+ channel.
	GiantSquidNa = ChannelBuilder{
		Name:        "giant_squid_na",
		Selectivity: SelectiveNa,
		Activation: &GateParams{
			Gates:  3,
			Steady: Sigmoid{VHalf: -40, Slope: 15},
			Tau:    BellTau(-38, 0.04e-3, 0.46e-3, 30),
		},
		Inactivation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -62, Slope: -7},
			Tau:    BellTau(-67, 0.0012, 0.0074, 20),
		},
	}

	// GiantSquidK is the squid axon's delayed-rectifier K+ channel.
	GiantSquidK = ChannelBuilder{
		Name:        "giant_squid_k",
		Selectivity: SelectiveK,
		Activation: &GateParams{
			Gates:  4,
			Steady: Sigmoid{VHalf: -53, Slope: 15},
			Tau:    BellTau(-79, 1.1e-3, 4.7e-3, 50),
		},
	}

	// GiantSquidCa is a synthetic Ca2+ channel with squid-like kinetics.
	GiantSquidCa = ChannelBuilder{
		Name:        "giant_squid_ca",
		Selectivity: SelectiveCa,
		Activation: &GateParams{
			Gates:  2,
			Steady: Sigmoid{VHalf: 0, Slope: 15},
			Tau:    BellTau(0, 0.04e-3, 0.5e-3, 30),
		},
	}

	// Leak is an ungated Cl- conductance.
	Leak = ChannelBuilder{
		Name:        "leak",
		Selectivity: SelectiveCl,
	}

	RatNaTransient = ChannelBuilder{
		Name:        "rat_na_transient",
		Selectivity: SelectiveNa,
		Activation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -30, Slope: 5.5},
			Tau:    InstantaneousTau(),
		},
		Inactivation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -70, Slope: -5.8},
			Tau:    LinearExpTau(3, -40, 1.0/33.0),
		},
	}

	RatKSlow = ChannelBuilder{
		Name:        "rat_k_slow",
		Selectivity: SelectiveK,
		Activation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -3, Slope: 10},
			Tau:    BellTau(-50, 0.005, 0.047, 0.030),
		},
		Inactivation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -51, Slope: -12},
			Tau:    BellTau(-50, 0.360, 0.100, 50),
		},
	}

	// HCNDendrite is the CA1 dendritic hyperpolarization-activated channel.
	HCNDendrite = ChannelBuilder{
		Name:        "hcn_dendrite",
		Selectivity: IonSelectivity{Na: 0.55, K: 0.45},
		Inactivation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -90, Slope: -8.5},
			Tau:    BellTau(-75, 10e-3, 40e-3, 20),
		},
	}

	HCNSoma = ChannelBuilder{
		Name:        "hcn_soma",
		Selectivity: IonSelectivity{Na: 0.35, K: 0.65},
		Inactivation: &GateParams{
			Gates:  1,
			Steady: Sigmoid{VHalf: -82, Slope: -9},
			Tau:    BellTau(-75, 10e-3, 50e-3, 20),
		},
	}

	// AMPA selectivity puts its reversal potential near 0 mV.
	AMPA = ChannelBuilder{
		Name:        "ampa",
		Selectivity: IonSelectivity{Na: 0.5, K: 0.5},
	}

	GABAA = ChannelBuilder{
		Name:        "gaba_a",
		Selectivity: SelectiveCl,
	}
)

// Channels indexes the library by name.
var Channels = map[string]ChannelBuilder{
	GiantSquidNa.Name:   GiantSquidNa,
	GiantSquidK.Name:    GiantSquidK,
	GiantSquidCa.Name:   GiantSquidCa,
	Leak.Name:           Leak,
	RatNaTransient.Name: RatNaTransient,
	RatKSlow.Name:       RatKSlow,
	HCNDendrite.Name:    HCNDendrite,
	HCNSoma.Name:        HCNSoma,
	AMPA.Name:           AMPA,
	GABAA.Name:          GABAA,
}
