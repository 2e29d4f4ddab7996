package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.0},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{-70, -60, -80, -50, -90})
	if d.Mean != -70 {
		t.Errorf("mean = %v, want -70", d.Mean)
	}
	if d.Min != -90 || d.Max != -50 {
		t.Errorf("range = [%v, %v], want [-90, -50]", d.Min, d.Max)
	}
	if d.P50 != -70 {
		t.Errorf("p50 = %v, want -70", d.P50)
	}
	// sample standard deviation of {-90..-50 step 10}
	if want := math.Sqrt(250); math.Abs(d.Std-want) > 1e-9 {
		t.Errorf("std = %v, want %v", d.Std, want)
	}
}

func TestDescribeEmpty(t *testing.T) {
	if d := Describe(nil); d != (Distribution{}) {
		t.Errorf("Describe(nil) = %+v, want zero", d)
	}
}

func TestCountSpikes(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		want int
	}{
		{"quiet", []float64{-70, -69, -71}, 0},
		{"one spike", []float64{-70, 20, 30, -60}, 1},
		{"two spikes", []float64{-70, 10, -70, 10, -70}, 2},
		{"starts above", []float64{30, 20, -70}, 0},
		{"touches threshold", []float64{-10, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountSpikes(tt.v, 0); got != tt.want {
				t.Errorf("CountSpikes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSummarizeTrace(t *testing.T) {
	times := []float64{0, 0.25, 0.5, 0.75, 1}
	volts := []float64{-70, 20, -70, 20, -65}
	s := SummarizeTrace("soma", 0, 1, times, volts, 0)

	if s.Samples != 5 || s.Spikes != 2 {
		t.Errorf("samples, spikes = %d, %d; want 5, 2", s.Samples, s.Spikes)
	}
	if s.SpikeRateHz != 2 {
		t.Errorf("rate = %v, want 2", s.SpikeRateHz)
	}
	if s.Final != -65 || s.Max != 20 || s.Min != -70 {
		t.Errorf("final/max/min = %v/%v/%v", s.Final, s.Max, s.Min)
	}
}
