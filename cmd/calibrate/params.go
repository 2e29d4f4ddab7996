package main

import (
	"fmt"

	"github.com/pthm-cable/reuron/neuron"
)

// ParamSpec is one fitted channel conductance, in S/cm².
type ParamSpec struct {
	Channel string // builder name of the membrane channel
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the set of fitted conductances.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector fits the named channels of seg, bounded to [0, scale·g]
// around their current conductances.
func NewParamVector(seg neuron.SegmentSpec, channels []string, scale float64) (*ParamVector, error) {
	pv := &ParamVector{}
	for _, name := range channels {
		i := channelIndex(seg, name)
		if i < 0 {
			return nil, fmt.Errorf("segment %q has no channel %q", seg.Name, name)
		}
		g := seg.Membrane.Channels[i].SiemensPerSquareCm
		if g <= 0 {
			return nil, fmt.Errorf("channel %q: cannot fit a zero conductance", name)
		}
		pv.Specs = append(pv.Specs, ParamSpec{Channel: name, Min: 0, Max: scale * g, Default: g})
	}
	return pv, nil
}

func channelIndex(seg neuron.SegmentSpec, name string) int {
	for i, c := range seg.Membrane.Channels {
		if c.Builder.Name == name {
			return i
		}
	}
	return -1
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the starting conductances.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw conductances to the [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to conductances.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp keeps every value within its bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply writes clamped conductances into seg. The channel slice is copied so
// the caller's spec is left alone.
func (pv *ParamVector) Apply(seg *neuron.SegmentSpec, values []float64) {
	clamped := pv.Clamp(values)
	seg.Membrane.Channels = append([]neuron.ChannelSpec(nil), seg.Membrane.Channels...)
	for i, spec := range pv.Specs {
		if j := channelIndex(*seg, spec.Channel); j >= 0 {
			seg.Membrane.Channels[j].SiemensPerSquareCm = clamped[i]
		}
	}
}
