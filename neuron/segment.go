package neuron

import (
	"fmt"
	"math"
)

// Environment is the ambient state a tick is evaluated in.
type Environment struct {
	TemperatureK  float64
	Extracellular Solution
}

// BodyEnvironment is interstitial fluid at body temperature.
func BodyEnvironment() Environment {
	return Environment{TemperatureK: BodyTemperature, Extracellular: InterstitialFluid}
}

// Geometry is a cylinder measured in centimeters.
type Geometry struct {
	DiameterCm float64
	LengthCm   float64
}

// SurfaceArea returns the lateral area in cm².
func (g Geometry) SurfaceArea() float64 {
	return g.DiameterCm * math.Pi * g.LengthCm
}

// Segment is one isopotential compartment.
type Segment struct {
	Intracellular Solution
	Geometry      Geometry
	Membrane      Membrane

	Voltage         float64 // mV
	InputCurrent    float64 // injected, µA/cm²
	SynapticCurrent float64 // outward synaptic current, µA
}

// Capacitance returns the total membrane capacitance in farads.
func (s *Segment) Capacitance() float64 {
	return s.Membrane.CapacitanceFaradsPerSquareCm * s.Geometry.SurfaceArea()
}

// Reversals computes the segment's reversal potentials in env.
func (s *Segment) Reversals(env Environment) (Reversals, error) {
	return ReversalPotentials(s.Intracellular, env.Extracellular, env.TemperatureK)
}

// DvDt returns the voltage slope in V/s for the given reversal potentials.
func (s *Segment) DvDt(rev Reversals) float64 {
	area := s.Geometry.SurfaceArea()
	current := -s.Membrane.CurrentDensity(rev, s.Voltage)*area -
		s.SynapticCurrent*1e-6 +
		s.InputCurrent*1e-6*area
	return current / (s.Membrane.CapacitanceFaradsPerSquareCm * area)
}

// Step integrates the segment alone over dt seconds. The voltage moves
// first and the gates then relax at the new voltage.
func (s *Segment) Step(env Environment, dt float64) error {
	rev, err := s.Reversals(env)
	if err != nil {
		return err
	}
	s.advance(rev, dt)
	return nil
}

func (s *Segment) advance(rev Reversals, dt float64) {
	s.Voltage += 1000 * s.DvDt(rev) * dt
	s.Membrane.Step(s.Voltage, dt)
}

// SegmentSpec is the construction input for one segment.
type SegmentSpec struct {
	Name           string
	Intracellular  Solution
	Geometry       Geometry
	Membrane       MembraneSpec
	InitialVoltage float64
}

// Build validates s and initializes gates at InitialVoltage.
func (s SegmentSpec) Build() (Segment, error) {
	if s.Geometry.DiameterCm <= 0 || s.Geometry.LengthCm <= 0 {
		return Segment{}, invalidf("segment %q geometry d=%g L=%g", s.Name, s.Geometry.DiameterCm, s.Geometry.LengthCm)
	}
	if err := s.Intracellular.Validate(); err != nil {
		return Segment{}, fmt.Errorf("segment %q: %w", s.Name, err)
	}
	m, err := s.Membrane.Build(s.InitialVoltage)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %q: %w", s.Name, err)
	}
	return Segment{
		Intracellular: s.Intracellular,
		Geometry:      s.Geometry,
		Membrane:      m,
		Voltage:       s.InitialVoltage,
	}, nil
}

// MustBuild is like Build but panics on error.
func (s SegmentSpec) MustBuild() Segment {
	seg, err := s.Build()
	if err != nil {
		panic(fmt.Sprintf("neuron: %v", err))
	}
	return seg
}
