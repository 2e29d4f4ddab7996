// Package neuron implements a multi-compartment conductance-based neuron:
// gating kinetics, membrane currents, segment integration, and the electrical
// and chemical couplings between segments.
package neuron

import (
	"fmt"
	"math"
)

const (
	GasConstant = 8.314   // J/(mol·K)
	Faraday     = 96485.3 // C/mol

	// BodyTemperature is 37 °C in kelvin.
	BodyTemperature = 310.0
)

// Ion identifies one of the four tracked ion species.
type Ion uint8

const (
	IonNa Ion = iota
	IonK
	IonCa
	IonCl
)

// Ions lists every tracked species in canonical order.
var Ions = [...]Ion{IonNa, IonK, IonCa, IonCl}

func (i Ion) String() string {
	switch i {
	case IonNa:
		return "na"
	case IonK:
		return "k"
	case IonCa:
		return "ca"
	case IonCl:
		return "cl"
	default:
		return fmt.Sprintf("ion(%d)", uint8(i))
	}
}

// Valence returns the ion's charge number.
func (i Ion) Valence() float64 {
	switch i {
	case IonCa:
		return 2
	case IonCl:
		return -1
	default:
		return 1
	}
}

// Solution holds ion concentrations in mol/L.
type Solution struct {
	Na float64 `json:"na" yaml:"na" toml:"na"`
	K  float64 `json:"k" yaml:"k" toml:"k"`
	Ca float64 `json:"ca" yaml:"ca" toml:"ca"`
	Cl float64 `json:"cl" yaml:"cl" toml:"cl"`
}

var (
	InterstitialFluid = Solution{Na: 145e-3, K: 5e-3, Ca: 2.5e-3, Cl: 110e-3}
	ExampleCytoplasm  = Solution{Na: 5e-3, K: 140e-3, Ca: 0.1e-6, Cl: 4e-3}
)

// Concentration returns the concentration of one ion.
func (s Solution) Concentration(ion Ion) float64 {
	switch ion {
	case IonNa:
		return s.Na
	case IonK:
		return s.K
	case IonCa:
		return s.Ca
	default:
		return s.Cl
	}
}

// Validate rejects concentrations that cannot enter a Nernst logarithm.
func (s Solution) Validate() error {
	for _, ion := range Ions {
		if c := s.Concentration(ion); !(c > 0) || math.IsInf(c, 0) {
			return fmt.Errorf("%s concentration %g: %w", ion, s.Concentration(ion), ErrNonPositiveConcentration)
		}
	}
	return nil
}

// ReversalPotential returns the Nernst potential of ion in millivolts for the
// given inside and outside solutions.
func ReversalPotential(ion Ion, inside, outside Solution, temperatureK float64) (float64, error) {
	if temperatureK <= 0 {
		return 0, fmt.Errorf("temperature %gK: %w", temperatureK, ErrNonPositiveTemperature)
	}
	cin, cout := inside.Concentration(ion), outside.Concentration(ion)
	if cin <= 0 || cout <= 0 {
		return 0, fmt.Errorf("%s inside=%g outside=%g: %w", ion, cin, cout, ErrNonPositiveConcentration)
	}
	return GasConstant * temperatureK / (ion.Valence() * Faraday) * math.Log(cout/cin) * 1000, nil
}

// Reversals holds one reversal potential (mV) per ion.
type Reversals struct {
	Na, K, Ca, Cl float64
}

// For returns the reversal potential of ion.
func (r Reversals) For(ion Ion) float64 {
	switch ion {
	case IonNa:
		return r.Na
	case IonK:
		return r.K
	case IonCa:
		return r.Ca
	default:
		return r.Cl
	}
}

// ReversalPotentials computes all four reversal potentials.
func ReversalPotentials(inside, outside Solution, temperatureK float64) (Reversals, error) {
	var r Reversals
	var err error
	if r.Na, err = ReversalPotential(IonNa, inside, outside, temperatureK); err != nil {
		return Reversals{}, err
	}
	if r.K, err = ReversalPotential(IonK, inside, outside, temperatureK); err != nil {
		return Reversals{}, err
	}
	if r.Ca, err = ReversalPotential(IonCa, inside, outside, temperatureK); err != nil {
		return Reversals{}, err
	}
	if r.Cl, err = ReversalPotential(IonCl, inside, outside, temperatureK); err != nil {
		return Reversals{}, err
	}
	return r, nil
}
