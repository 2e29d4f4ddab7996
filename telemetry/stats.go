package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Events during window
	Spikes      int     `csv:"spikes"`
	Divergences int     `csv:"divergences"`
	SpikeRateHz float64 `csv:"spike_rate_hz"`

	// Voltage distribution across probed segments (sampled at window end)
	VoltageMean float64 `csv:"v_mean"`
	VoltageStd  float64 `csv:"v_std"`
	VoltageMin  float64 `csv:"v_min"`
	VoltageMax  float64 `csv:"v_max"`
	VoltageP10  float64 `csv:"v_p10"`
	VoltageP50  float64 `csv:"v_p50"`
	VoltageP90  float64 `csv:"v_p90"`
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("spikes", s.Spikes),
		slog.Float64("v_mean", s.VoltageMean),
		slog.Float64("v_min", s.VoltageMin),
		slog.Float64("v_max", s.VoltageMax),
	)
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Distribution summarizes a set of values.
type Distribution struct {
	Mean, Std     float64
	Min, Max      float64
	P10, P50, P90 float64
}

// Describe computes the distribution of values. The input is not modified.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	d := Distribution{
		Mean: stat.Mean(sorted, nil),
		Min:  floats.Min(sorted),
		Max:  floats.Max(sorted),
		P10:  Percentile(sorted, 0.1),
		P50:  Percentile(sorted, 0.5),
		P90:  Percentile(sorted, 0.9),
	}
	if len(sorted) > 1 {
		d.Std = stat.StdDev(sorted, nil)
	}
	return d
}

// TraceSummary describes one probed segment over a whole run.
type TraceSummary struct {
	Label       string  `csv:"label"`
	Neuron      int     `csv:"neuron"`
	Segment     int     `csv:"segment"`
	Samples     int     `csv:"samples"`
	Duration    float64 `csv:"duration_s"`
	Mean        float64 `csv:"v_mean"`
	Std         float64 `csv:"v_std"`
	Min         float64 `csv:"v_min"`
	Max         float64 `csv:"v_max"`
	Final       float64 `csv:"v_final"`
	Spikes      int     `csv:"spikes"`
	SpikeRateHz float64 `csv:"spike_rate_hz"`
}

// SummarizeTrace computes a TraceSummary from voltage samples (mV) taken at
// the given times (s). Spikes are upward crossings of threshold.
func SummarizeTrace(label string, neuron, segment int, times, voltages []float64, threshold float64) TraceSummary {
	s := TraceSummary{Label: label, Neuron: neuron, Segment: segment, Samples: len(voltages)}
	if len(voltages) == 0 {
		return s
	}
	d := Describe(voltages)
	s.Mean, s.Std, s.Min, s.Max = d.Mean, d.Std, d.Min, d.Max
	s.Final = voltages[len(voltages)-1]
	s.Spikes = CountSpikes(voltages, threshold)
	if len(times) == len(voltages) && len(times) > 1 {
		s.Duration = times[len(times)-1] - times[0]
		if s.Duration > 0 {
			s.SpikeRateHz = float64(s.Spikes) / s.Duration
		}
	}
	return s
}

// CountSpikes counts upward crossings of threshold.
func CountSpikes(voltages []float64, threshold float64) int {
	var d SpikeDetector
	d.Threshold = threshold
	n := 0
	for _, v := range voltages {
		if d.Observe(v) {
			n++
		}
	}
	return n
}

// SpikeDetector reports upward threshold crossings of a voltage stream.
type SpikeDetector struct {
	Threshold float64
	above     bool
	primed    bool
}

// Observe feeds one sample and reports whether it completes a crossing. The
// first sample only sets the reference level.
func (d *SpikeDetector) Observe(v float64) bool {
	above := v >= d.Threshold
	crossed := d.primed && above && !d.above
	d.above, d.primed = above, true
	return crossed
}
