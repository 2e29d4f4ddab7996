// Package components defines ECS components for the simulation runner.
package components

import (
	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/stimulus"
	"github.com/pthm-cable/reuron/telemetry"
)

// Target is the network segment an entity acts on or observes.
type Target struct {
	Ref neuron.SegmentRef
}

// Stimulation drives a segment's injected current from a waveform.
type Stimulation struct {
	Stimulator stimulus.Stimulator
	Current    float64 // last applied, µA/cm²
}

// Probe records a segment's recent voltages and counts its spikes.
type Probe struct {
	Label  string
	Trace  *telemetry.RingBuffer[float64]
	Spikes telemetry.SpikeDetector
	Count  int // spikes seen
}

// NewProbe returns a probe holding the last ringSize samples.
func NewProbe(label string, ringSize int, threshold float64) Probe {
	return Probe{
		Label:  label,
		Trace:  telemetry.NewRingBuffer[float64](ringSize),
		Spikes: telemetry.SpikeDetector{Threshold: threshold},
	}
}

// Observe feeds one voltage to the spike detector and reports whether it
// completes an upward threshold crossing.
func (p *Probe) Observe(v float64) bool {
	if p.Spikes.Observe(v) {
		p.Count++
		return true
	}
	return false
}
