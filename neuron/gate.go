package neuron

import (
	"fmt"
	"math"
)

// Sigmoid is a logistic curve over membrane voltage.
type Sigmoid struct {
	VHalf float64 // mV at half maximum
	Slope float64 // mV per e-fold; negative for inactivation
}

// At evaluates the curve at v (mV).
func (s Sigmoid) At(v float64) float64 {
	return 1 / (1 + math.Exp((s.VHalf-v)/s.Slope))
}

// TauKind selects the law a gate's time constant follows.
type TauKind uint8

const (
	TauInstantaneous TauKind = iota
	TauBell
	TauLinearExp
)

func (k TauKind) String() string {
	switch k {
	case TauInstantaneous:
		return "instantaneous"
	case TauBell:
		return "sigmoid"
	case TauLinearExp:
		return "linear_exp"
	default:
		return fmt.Sprintf("tau(%d)", uint8(k))
	}
}

// ParseTauKind maps an interchange name onto a TauKind.
func ParseTauKind(name string) (TauKind, error) {
	switch name {
	case "instantaneous":
		return TauInstantaneous, nil
	case "sigmoid", "bell":
		return TauBell, nil
	case "linear_exp":
		return TauLinearExp, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownTimeConstant)
	}
}

// TimeConstant is a tagged union over the tau laws. Only the fields of the
// selected Kind are read.
type TimeConstant struct {
	Kind TauKind

	// TauBell: c_base + c_amp * exp(-(VPeak - v)^2 / Sigma^2), seconds.
	VPeak float64
	CBase float64
	CAmp  float64
	Sigma float64

	// TauLinearExp: Coef * exp((VOffset - v) * Inner) * 1e-3, seconds.
	Coef    float64
	VOffset float64
	Inner   float64
}

func InstantaneousTau() TimeConstant {
	return TimeConstant{Kind: TauInstantaneous}
}

func BellTau(vPeak, cBase, cAmp, sigma float64) TimeConstant {
	return TimeConstant{Kind: TauBell, VPeak: vPeak, CBase: cBase, CAmp: cAmp, Sigma: sigma}
}

func LinearExpTau(coef, vOffset, inner float64) TimeConstant {
	return TimeConstant{Kind: TauLinearExp, Coef: coef, VOffset: vOffset, Inner: inner}
}

// At returns tau in seconds at v. It is zero for instantaneous gates.
func (tc TimeConstant) At(v float64) float64 {
	switch tc.Kind {
	case TauBell:
		d := tc.VPeak - v
		return tc.CBase + tc.CAmp*math.Exp(-(d*d)/(tc.Sigma*tc.Sigma))
	case TauLinearExp:
		return tc.Coef * math.Exp((tc.VOffset-v)*tc.Inner) * 1e-3
	default:
		return 0
	}
}

// Validate checks that the law is known and that tau stays positive.
func (tc TimeConstant) Validate() error {
	switch tc.Kind {
	case TauInstantaneous:
		return nil
	case TauBell:
		if tc.Sigma == 0 {
			return invalidf("bell time constant with zero sigma")
		}
		if tc.CBase <= 0 || tc.CAmp < 0 {
			return invalidf("bell time constant c_base=%g c_amp=%g", tc.CBase, tc.CAmp)
		}
		return nil
	case TauLinearExp:
		if tc.Coef <= 0 {
			return invalidf("linear-exp time constant coef=%g", tc.Coef)
		}
		return nil
	default:
		return fmt.Errorf("kind %d: %w", uint8(tc.Kind), ErrUnknownTimeConstant)
	}
}

// GateParams are the immutable parameters of one gating variable.
type GateParams struct {
	Gates  int // exponent applied to the magnitude
	Steady Sigmoid
	Tau    TimeConstant
}

func (p GateParams) Validate() error {
	if p.Gates < 1 {
		return invalidf("gate count %d", p.Gates)
	}
	if p.Steady.Slope == 0 {
		return invalidf("steady-state slope is zero")
	}
	return p.Tau.Validate()
}

// Gate is one activation or inactivation variable.
type Gate struct {
	Magnitude float64
	Params    GateParams
}

// NewGate returns a gate resting at its steady state for voltage v.
func NewGate(p GateParams, v float64) Gate {
	return Gate{Magnitude: p.Steady.At(v), Params: p}
}

// Step relaxes the magnitude toward its steady state at v over dt seconds.
func (g *Gate) Step(v, dt float64) {
	target := g.Params.Steady.At(v)
	if g.Params.Tau.Kind == TauInstantaneous {
		g.Magnitude = target
		return
	}
	g.Magnitude += (target - g.Magnitude) / g.Params.Tau.At(v) * dt
}

// Contribution is the magnitude raised to the gate count.
func (g *Gate) Contribution() float64 {
	c := 1.0
	for i := 0; i < g.Params.Gates; i++ {
		c *= g.Magnitude
	}
	return c
}
