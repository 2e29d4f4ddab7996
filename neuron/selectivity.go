package neuron

import "fmt"

// IonSelectivity is the fraction of a channel's conductance carried by each
// ion. Fractions sum to 1.
type IonSelectivity struct {
	Na, K, Ca, Cl float64
}

var (
	SelectiveNa = IonSelectivity{Na: 1}
	SelectiveK  = IonSelectivity{K: 1}
	SelectiveCa = IonSelectivity{Ca: 1}
	SelectiveCl = IonSelectivity{Cl: 1}
)

// NewIonSelectivity normalizes non-negative weights into fractions.
func NewIonSelectivity(na, k, ca, cl float64) (IonSelectivity, error) {
	if na < 0 || k < 0 || ca < 0 || cl < 0 {
		return IonSelectivity{}, invalidf("negative selectivity weight (na=%g k=%g ca=%g cl=%g)", na, k, ca, cl)
	}
	total := na + k + ca + cl
	if total == 0 {
		return IonSelectivity{}, invalidf("selectivity weights sum to zero")
	}
	return IonSelectivity{Na: na / total, K: k / total, Ca: ca / total, Cl: cl / total}, nil
}

// MustIonSelectivity is like NewIonSelectivity but panics on error.
func MustIonSelectivity(na, k, ca, cl float64) IonSelectivity {
	s, err := NewIonSelectivity(na, k, ca, cl)
	if err != nil {
		panic(fmt.Sprintf("neuron: %v", err))
	}
	return s
}

// Fraction returns the share of conductance carried by ion.
func (s IonSelectivity) Fraction(ion Ion) float64 {
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
