// Package stimulus generates periodic injected-current waveforms for
// driving segments.
package stimulus

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEnvelope is returned for envelopes that cannot produce a
// waveform.
var ErrInvalidEnvelope = errors.New("invalid stimulus envelope")

// Envelope is the repeating window during which a shape is "on". All values
// are in seconds.
type Envelope struct {
	Period float64 `yaml:"period" json:"period" toml:"period"`
	Onset  float64 `yaml:"onset" json:"onset" toml:"onset"`
	Offset float64 `yaml:"offset" json:"offset" toml:"offset"`
}

// Validate checks that the envelope has a positive period and a non-empty
// window.
func (e Envelope) Validate() error {
	if !(e.Period > 0) {
		return fmt.Errorf("period %g: %w", e.Period, ErrInvalidEnvelope)
	}
	if !(e.Offset > e.Onset) {
		return fmt.Errorf("window [%g, %g]: %w", e.Onset, e.Offset, ErrInvalidEnvelope)
	}
	return nil
}

// window returns the time since onset and the fraction of the window
// elapsed at t. The fraction lies in [0, 1] inside the window.
func (e Envelope) window(t float64) (elapsed, completion float64) {
	cycle := t - e.Period*math.Floor(t/e.Period)
	elapsed = cycle - e.Onset
	return elapsed, elapsed / (e.Offset - e.Onset)
}

// ShapeKind selects the waveform inside the envelope.
type ShapeKind uint8

const (
	SquareWave ShapeKind = iota
	LinearRamp
	FrequencyRamp
)

func (k ShapeKind) String() string {
	switch k {
	case SquareWave:
		return "square"
	case LinearRamp:
		return "linear_ramp"
	case FrequencyRamp:
		return "frequency_ramp"
	default:
		return fmt.Sprintf("shape(%d)", uint8(k))
	}
}

// ParseShapeKind maps a config name onto a ShapeKind.
func ParseShapeKind(name string) (ShapeKind, error) {
	switch name {
	case "square", "":
		return SquareWave, nil
	case "linear_ramp":
		return LinearRamp, nil
	case "frequency_ramp":
		return FrequencyRamp, nil
	default:
		return 0, fmt.Errorf("unknown stimulus shape %q", name)
	}
}

// Shape is a tagged union of waveforms. Currents are in µA/cm², frequencies
// in Hz. Only the fields of Kind are read.
type Shape struct {
	Kind ShapeKind

	// SquareWave
	On, Off float64
	// LinearRamp (also uses Off)
	Start, End float64
	// FrequencyRamp
	Amplitude, Baseline float64
	StartHz, EndHz      float64
}

// Square returns a square wave of on/off currents.
func Square(on, off float64) Shape {
	return Shape{Kind: SquareWave, On: on, Off: off}
}

// Ramp returns a current rising linearly from start to end across the window.
func Ramp(start, end, off float64) Shape {
	return Shape{Kind: LinearRamp, Start: start, End: end, Off: off}
}

// Chirp returns a sine of the given amplitude around baseline whose
// frequency sweeps from startHz to endHz across the window.
func Chirp(amplitude, baseline, startHz, endHz float64) Shape {
	return Shape{Kind: FrequencyRamp, Amplitude: amplitude, Baseline: baseline, StartHz: startHz, EndHz: endHz}
}

func (s Shape) at(elapsed, completion float64, inside bool) float64 {
	switch s.Kind {
	case LinearRamp:
		if !inside {
			return s.Off
		}
		return completion*(s.End-s.Start) + s.Start
	case FrequencyRamp:
		if !inside {
			return s.Baseline
		}
		freq := completion*(s.EndHz-s.StartHz) + s.StartHz
		return s.Amplitude*math.Sin(2*math.Pi*freq*elapsed) + s.Baseline
	default:
		if inside {
			return s.On
		}
		return s.Off
	}
}

// Stimulator produces an injected current density as a function of time.
type Stimulator struct {
	Envelope Envelope
	Shape    Shape
}

// Default is a 10 Hz square pulse train of 50 µA/cm² for 50 ms, -10 µA/cm²
// otherwise.
func Default() Stimulator {
	return Stimulator{
		Envelope: Envelope{Period: 0.1, Onset: 0, Offset: 0.05},
		Shape:    Square(50, -10),
	}
}

// Current returns the injected current density (µA/cm²) at time t (s).
func (s Stimulator) Current(t float64) float64 {
	elapsed, completion := s.Envelope.window(t)
	inside := completion >= 0 && completion <= 1
	return s.Shape.at(elapsed, completion, inside)
}

// Sample evaluates the stimulator at n evenly spaced times starting at 0.
func (s Stimulator) Sample(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Current(float64(i) * step)
	}
	return out
}

// New validates env and returns a stimulator of the named shape. Only the
// fields of params that the shape reads are kept.
func New(shape string, env Envelope, params Shape) (Stimulator, error) {
	kind, err := ParseShapeKind(shape)
	if err != nil {
		return Stimulator{}, err
	}
	if err := env.Validate(); err != nil {
		return Stimulator{}, err
	}
	var sh Shape
	switch kind {
	case LinearRamp:
		sh = Ramp(params.Start, params.End, params.Off)
	case FrequencyRamp:
		sh = Chirp(params.Amplitude, params.Baseline, params.StartHz, params.EndHz)
	default:
		sh = Square(params.On, params.Off)
	}
	return Stimulator{Envelope: env, Shape: sh}, nil
}
