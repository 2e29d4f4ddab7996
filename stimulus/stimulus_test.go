package stimulus

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultSquareWave(t *testing.T) {
	s := Default()
	tests := []struct {
		t    float64
		want float64
	}{
		{0, 50},
		{0.025, 50},
		{0.05, 50},
		{0.07, -10},
		{0.125, 50},
		{0.19, -10},
	}

	for _, tt := range tests {
		if got := s.Current(tt.t); got != tt.want {
			t.Errorf("Current(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestOnsetDelaysWindow(t *testing.T) {
	s := Stimulator{
		Envelope: Envelope{Period: 1, Onset: 0.2, Offset: 0.4},
		Shape:    Square(5, 0),
	}
	if got := s.Current(0.1); got != 0 {
		t.Errorf("before onset = %v, want 0", got)
	}
	if got := s.Current(0.3); got != 5 {
		t.Errorf("inside window = %v, want 5", got)
	}
}

func TestLinearRamp(t *testing.T) {
	s := Stimulator{
		Envelope: Envelope{Period: 1, Onset: 0, Offset: 0.5},
		Shape:    Ramp(10, 50, -10),
	}
	tests := []struct {
		t    float64
		want float64
	}{
		{0, 10},
		{0.25, 30},
		{0.5, 50},
		{0.75, -10},
	}
	for _, tt := range tests {
		if got := s.Current(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Current(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestFrequencyRamp(t *testing.T) {
	s := Stimulator{
		Envelope: Envelope{Period: 1, Onset: 0, Offset: 0.5},
		Shape:    Chirp(50, -10, 10, 10),
	}
	// constant 10 Hz: a quarter period in, the sine peaks
	if got := s.Current(0.025); math.Abs(got-40) > 1e-9 {
		t.Errorf("Current(0.025) = %v, want 40", got)
	}
	if got := s.Current(0.8); got != -10 {
		t.Errorf("outside window = %v, want baseline -10", got)
	}
}

func TestNegativeTimeWrapsIntoCycle(t *testing.T) {
	s := Default()
	if got, want := s.Current(-0.075), s.Current(0.025); got != want {
		t.Errorf("Current(-0.075) = %v, want %v", got, want)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		ok   bool
	}{
		{"default", Default().Envelope, true},
		{"zero period", Envelope{Period: 0, Offset: 1}, false},
		{"empty window", Envelope{Period: 1, Onset: 0.5, Offset: 0.5}, false},
		{"nan period", Envelope{Period: math.NaN(), Offset: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("error = %v, want %v", err, ErrInvalidEnvelope)
			}
		})
	}
}

func TestParseShapeKind(t *testing.T) {
	for _, k := range []ShapeKind{SquareWave, LinearRamp, FrequencyRamp} {
		got, err := ParseShapeKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseShapeKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseShapeKind("triangle"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestSample(t *testing.T) {
	got := Default().Sample(4, 0.04)
	want := []float64{50, 50, -10, 50}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewKeepsOnlyShapeFields(t *testing.T) {
	params := Shape{On: 5, Off: -1, Start: 2, End: 4, Amplitude: 9, StartHz: 1, EndHz: 2}
	env := Envelope{Period: 1, Onset: 0, Offset: 0.5}

	sq, err := New("", env, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if want := Square(5, -1); sq.Shape != want {
		t.Errorf("square shape = %+v, want %+v", sq.Shape, want)
	}

	ramp, err := New("linear_ramp", env, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if want := Ramp(2, 4, -1); ramp.Shape != want {
		t.Errorf("ramp shape = %+v, want %+v", ramp.Shape, want)
	}

	if _, err := New("triangle", env, params); err == nil {
		t.Error("unknown shape: expected error")
	}
	if _, err := New("square", Envelope{Period: 0}, params); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("zero period: error = %v, want %v", err, ErrInvalidEnvelope)
	}
}
