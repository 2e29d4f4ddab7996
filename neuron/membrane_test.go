package neuron

import (
	"errors"
	"math"
	"testing"
)

// fixed reversal potentials used by the current examples
var testReversals = Reversals{K: -89, Na: 80, Cl: -80, Ca: 90}

func TestNaCurrentExample(t *testing.T) {
	na := GiantSquidNa.MustBuild(0)
	na.Inactivation.Magnitude = 1
	m := na.Activation.Magnitude
	if math.Abs(m-0.935) > 1e-3 {
		t.Fatalf("activation at 0 mV = %v, want ~0.935", m)
	}

	mc := MembraneChannel{Channel: na, SiemensPerSquareCm: 120e-3}
	got := mc.CurrentDensity(testReversals, 0)
	want := -0.080 * 120e-3 * m * m * m
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Na current = %v, want %v", got, want)
	}
}

func TestKCurrentExample(t *testing.T) {
	k := GiantSquidK.MustBuild(-53)
	n := k.Activation.Magnitude
	if n != 0.5 {
		t.Fatalf("K activation at half-max = %v, want 0.5", n)
	}
	mc := MembraneChannel{Channel: k, SiemensPerSquareCm: 3e-3}

	got := mc.CurrentDensity(testReversals, -53)
	want := (-53.0 - testReversals.K) * 1e-3 * 3e-3 * math.Pow(n, 4)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("K current = %v, want %v", got, want)
	}

	if got := mc.CurrentDensity(testReversals, testReversals.K); got != 0 {
		t.Errorf("K current at E_K = %v, want 0", got)
	}
}

func TestClCurrentExample(t *testing.T) {
	mc := MembraneChannel{Channel: Leak.MustBuild(-79), SiemensPerSquareCm: 0.3e-3}
	got := mc.CurrentDensity(testReversals, -79)
	want := 0.001 * 0.3e-3
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("Cl current = %v, want %v", got, want)
	}
}

func TestMembraneConductances(t *testing.T) {
	spec := MembraneSpec{
		Channels: []ChannelSpec{
			{Builder: HCNSoma, SiemensPerSquareCm: 2e-3},
			{Builder: Leak, SiemensPerSquareCm: 1e-3},
		},
		CapacitanceFaradsPerSquareCm: 1e-6,
	}
	m, err := spec.Build(-70)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h := m.Channels[0].Channel.Inactivation.Magnitude

	got := m.Conductances()
	want := Conductances{Na: 2e-3 * h * 0.35, K: 2e-3 * h * 0.65, Cl: 1e-3}
	for _, ion := range Ions {
		if math.Abs(got.For(ion)-want.For(ion)) > 1e-15 {
			t.Errorf("g_%s = %v, want %v", ion, got.For(ion), want.For(ion))
		}
	}
}

func TestWeightedReversal(t *testing.T) {
	c := Conductances{Na: 1e-3, K: 2e-3, Cl: 3e-3}
	got, err := c.WeightedReversal(testReversals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (80*1e-3 - 89*2e-3 - 80*3e-3) / 6e-3
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("weighted reversal = %v, want %v", got, want)
	}

	if _, err := (Conductances{}).WeightedReversal(testReversals); !errors.Is(err, ErrZeroConductance) {
		t.Errorf("zero conductance error = %v, want %v", err, ErrZeroConductance)
	}
}

func TestMembraneSpecValidation(t *testing.T) {
	tests := []struct {
		name string
		spec MembraneSpec
	}{
		{"zero capacitance", MembraneSpec{CapacitanceFaradsPerSquareCm: 0}},
		{"negative conductance", MembraneSpec{
			Channels:                     []ChannelSpec{{Builder: Leak, SiemensPerSquareCm: -1}},
			CapacitanceFaradsPerSquareCm: 1e-6,
		}},
		{"empty selectivity", MembraneSpec{
			Channels:                     []ChannelSpec{{Builder: ChannelBuilder{Name: "none"}, SiemensPerSquareCm: 1}},
			CapacitanceFaradsPerSquareCm: 1e-6,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.spec.Build(-70); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("error = %v, want %v", err, ErrInvalidParameter)
			}
		})
	}
}
