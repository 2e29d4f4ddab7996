package telemetry

import "github.com/pthm-cable/reuron/neuron"

// TraceSample is one probed segment state, flattened for CSV and the trace
// store.
type TraceSample struct {
	Tick    int64   `csv:"tick"`
	Time    float64 `csv:"time_s"`
	Neuron  int     `csv:"neuron"`
	Segment int     `csv:"segment"`
	Label   string  `csv:"label"`
	Voltage float64 `csv:"voltage_mv"`
	Input   float64 `csv:"input_ua_cm2"`
	GNa     float64 `csv:"g_na"`
	GK      float64 `csv:"g_k"`
	GCa     float64 `csv:"g_ca"`
	GCl     float64 `csv:"g_cl"`
}

// SampleSegment captures seg's voltage, input and per-ion conductances.
func SampleSegment(tick int64, time float64, neuronIdx, segment int, label string, seg *neuron.Segment) TraceSample {
	g := seg.Membrane.Conductances()
	return TraceSample{
		Tick:    tick,
		Time:    time,
		Neuron:  neuronIdx,
		Segment: segment,
		Label:   label,
		Voltage: seg.Voltage,
		Input:   seg.InputCurrent,
		GNa:     g.Na,
		GK:      g.K,
		GCa:     g.Ca,
		GCl:     g.Cl,
	}
}
