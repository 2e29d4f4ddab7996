// Package scene is the interchange format for networks of neurons: schema
// types, JSON/YAML/TOML/SWC loading and construction of a runnable
// neuron.Network.
package scene

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrMissingMembrane = errors.New("segment type has no membrane")
	ErrUnknownChannel  = errors.New("unknown library channel")
	ErrUnknownNeuron   = errors.New("unknown neuron reference")
	ErrUnknownSegment  = errors.New("unknown segment id")
	ErrBadMorphology   = errors.New("invalid morphology")
	ErrUnknownFormat   = errors.New("unknown scene format")
)

// namespace seeds content-derived neuron ids.
var namespace = uuid.MustParse("9b0c6f5e-2f7a-4c1e-8d3b-5a6e7f801234")

// Scene is a set of neurons, the synapses between them, and optional
// stimulation and probe points.
type Scene struct {
	Name          string       `json:"name" yaml:"name" toml:"name"`
	Extracellular *SolutionDef `json:"extracellular,omitempty" yaml:"extracellular,omitempty" toml:"extracellular,omitempty"`
	Neurons       []Neuron     `json:"neurons" yaml:"neurons" toml:"neurons"`
	Synapses      []Synapse    `json:"synapses,omitempty" yaml:"synapses,omitempty" toml:"synapses,omitempty"`
	Stimuli       []Stimulus   `json:"stimuli,omitempty" yaml:"stimuli,omitempty" toml:"stimuli,omitempty"`
	Probes        []Probe      `json:"probes,omitempty" yaml:"probes,omitempty" toml:"probes,omitempty"`
}

// Neuron is one cell: an SWC-style segment tree plus the membranes its
// segment types refer to.
type Neuron struct {
	ID             uuid.UUID     `json:"id" yaml:"id" toml:"id"`
	Name           string        `json:"name" yaml:"name" toml:"name"`
	InitialVoltage float64       `json:"initial_voltage_mv" yaml:"initial_voltage_mv" toml:"initial_voltage_mv"`
	Intracellular  *SolutionDef  `json:"intracellular,omitempty" yaml:"intracellular,omitempty" toml:"intracellular,omitempty"`
	Segments       []Segment     `json:"segments" yaml:"segments" toml:"segments"`
	Membranes      []MembraneDef `json:"membranes" yaml:"membranes" toml:"membranes"`
}

// Segment is one SWC sample. Ids are 1-based; the root has Parent -1.
// Coordinates and radius are in µm.
type Segment struct {
	ID     int     `json:"id" yaml:"id" toml:"id"`
	Type   int     `json:"type" yaml:"type" toml:"type"`
	X      float64 `json:"x" yaml:"x" toml:"x"`
	Y      float64 `json:"y" yaml:"y" toml:"y"`
	Z      float64 `json:"z" yaml:"z" toml:"z"`
	R      float64 `json:"r" yaml:"r" toml:"r"`
	Parent int     `json:"parent" yaml:"parent" toml:"parent"`
}

// SolutionDef is an ionic solution in mol/L.
type SolutionDef struct {
	Na float64 `json:"na" yaml:"na" toml:"na"`
	K  float64 `json:"k" yaml:"k" toml:"k"`
	Ca float64 `json:"ca" yaml:"ca" toml:"ca"`
	Cl float64 `json:"cl" yaml:"cl" toml:"cl"`
}

// MembraneDef describes the membrane shared by all segments of one type.
type MembraneDef struct {
	CapacitanceFaradsPerCm2 float64      `json:"capacitance_farads_per_cm2" yaml:"capacitance_farads_per_cm2" toml:"capacitance_farads_per_cm2"`
	Channels                []ChannelDef `json:"channels" yaml:"channels" toml:"channels"`
}

// ChannelDef is one channel population. Library names a channel from the
// built-in library; explicitly given gates and selectivity replace the
// library's.
type ChannelDef struct {
	Library           string          `json:"library,omitempty" yaml:"library,omitempty" toml:"library,omitempty"`
	PeakSiemensPerCm2 float64         `json:"peak_siemens_per_cm2" yaml:"peak_siemens_per_cm2" toml:"peak_siemens_per_cm2"`
	Activation        *GateDef        `json:"activation,omitempty" yaml:"activation,omitempty" toml:"activation,omitempty"`
	Inactivation      *GateDef        `json:"inactivation,omitempty" yaml:"inactivation,omitempty" toml:"inactivation,omitempty"`
	Selectivity       *SelectivityDef `json:"selectivity,omitempty" yaml:"selectivity,omitempty" toml:"selectivity,omitempty"`
}

// SelectivityDef holds relative ion permeabilities; they are normalized on
// build.
type SelectivityDef struct {
	Na float64 `json:"na" yaml:"na" toml:"na"`
	K  float64 `json:"k" yaml:"k" toml:"k"`
	Ca float64 `json:"ca" yaml:"ca" toml:"ca"`
	Cl float64 `json:"cl" yaml:"cl" toml:"cl"`
}

// GateDef is a gating variable's steady state and time constant.
type GateDef struct {
	Gates int             `json:"gates" yaml:"gates" toml:"gates"`
	VHalf float64         `json:"v_half_mv" yaml:"v_half_mv" toml:"v_half_mv"`
	Slope float64         `json:"slope" yaml:"slope" toml:"slope"`
	Tau   TimeConstantDef `json:"tau" yaml:"tau" toml:"tau"`
}

// TimeConstantDef is the tagged time-constant law. Kind is one of
// "instantaneous", "sigmoid" or "linear_exp"; only that law's fields are read.
type TimeConstantDef struct {
	Kind    string  `json:"kind" yaml:"kind" toml:"kind"`
	VPeak   float64 `json:"v_peak_mv,omitempty" yaml:"v_peak_mv,omitempty" toml:"v_peak_mv,omitempty"`
	CBase   float64 `json:"c_base,omitempty" yaml:"c_base,omitempty" toml:"c_base,omitempty"`
	CAmp    float64 `json:"c_amp,omitempty" yaml:"c_amp,omitempty" toml:"c_amp,omitempty"`
	Sigma   float64 `json:"sigma,omitempty" yaml:"sigma,omitempty" toml:"sigma,omitempty"`
	Coef    float64 `json:"coef,omitempty" yaml:"coef,omitempty" toml:"coef,omitempty"`
	VOffset float64 `json:"v_offset_mv,omitempty" yaml:"v_offset_mv,omitempty" toml:"v_offset_mv,omitempty"`
	Inner   float64 `json:"inner,omitempty" yaml:"inner,omitempty" toml:"inner,omitempty"`
}

// Ref addresses a segment by neuron (name or id) and SWC segment id.
type Ref struct {
	Neuron  string `json:"neuron" yaml:"neuron" toml:"neuron"`
	Segment int    `json:"segment" yaml:"segment" toml:"segment"`
}

func (r Ref) String() string {
	return r.Neuron + "#" + strconv.Itoa(r.Segment)
}

// Synapse is a chemical synapse. Preset ("excitatory" or "inhibitory")
// supplies every field left unset.
type Synapse struct {
	Pre            Ref           `json:"pre" yaml:"pre" toml:"pre"`
	Post           Ref           `json:"post" yaml:"post" toml:"post"`
	Preset         string        `json:"preset,omitempty" yaml:"preset,omitempty" toml:"preset,omitempty"`
	Cleft          *SolutionDef  `json:"cleft,omitempty" yaml:"cleft,omitempty" toml:"cleft,omitempty"`
	Initial        *Transmitters `json:"initial,omitempty" yaml:"initial,omitempty" toml:"initial,omitempty"`
	Pumps          []PumpDef     `json:"pumps,omitempty" yaml:"pumps,omitempty" toml:"pumps,omitempty"`
	Receptors      []ReceptorDef `json:"receptors,omitempty" yaml:"receptors,omitempty" toml:"receptors,omitempty"`
	SurfaceAreaCm2 float64       `json:"surface_area_cm2,omitempty" yaml:"surface_area_cm2,omitempty" toml:"surface_area_cm2,omitempty"`
}

// Transmitters holds cleft concentrations in mol/L.
type Transmitters struct {
	Glutamate float64 `json:"glutamate" yaml:"glutamate" toml:"glutamate"`
	GABA      float64 `json:"gaba" yaml:"gaba" toml:"gaba"`
}

// PumpDef releases one transmitter toward a presynaptic-voltage target.
type PumpDef struct {
	Transmitter string          `json:"transmitter" yaml:"transmitter" toml:"transmitter"`
	Min         float64         `json:"min" yaml:"min" toml:"min"`
	Max         float64         `json:"max" yaml:"max" toml:"max"`
	VHalf       float64         `json:"v_half_mv" yaml:"v_half_mv" toml:"v_half_mv"`
	Slope       float64         `json:"slope" yaml:"slope" toml:"slope"`
	Tau         TimeConstantDef `json:"tau" yaml:"tau" toml:"tau"`
	Scale       float64         `json:"scale,omitempty" yaml:"scale,omitempty" toml:"scale,omitempty"`
}

// ReceptorDef is a transmitter-gated postsynaptic channel.
type ReceptorDef struct {
	Channel     ChannelDef `json:"channel" yaml:"channel" toml:"channel"`
	Transmitter string     `json:"transmitter" yaml:"transmitter" toml:"transmitter"`
	HalfMax     float64    `json:"half_max" yaml:"half_max" toml:"half_max"`
	Slope       float64    `json:"slope" yaml:"slope" toml:"slope"`
}

// Stimulus attaches a stimulator to one segment. Times are in seconds,
// currents in µA/cm².
type Stimulus struct {
	Target    Ref     `json:"target" yaml:"target" toml:"target"`
	Period    float64 `json:"period" yaml:"period" toml:"period"`
	Onset     float64 `json:"onset" yaml:"onset" toml:"onset"`
	Offset    float64 `json:"offset" yaml:"offset" toml:"offset"`
	Shape     string  `json:"shape" yaml:"shape" toml:"shape"`
	On        float64 `json:"on,omitempty" yaml:"on,omitempty" toml:"on,omitempty"`
	Off       float64 `json:"off,omitempty" yaml:"off,omitempty" toml:"off,omitempty"`
	Start     float64 `json:"start,omitempty" yaml:"start,omitempty" toml:"start,omitempty"`
	End       float64 `json:"end,omitempty" yaml:"end,omitempty" toml:"end,omitempty"`
	Amplitude float64 `json:"amplitude,omitempty" yaml:"amplitude,omitempty" toml:"amplitude,omitempty"`
	Baseline  float64 `json:"baseline,omitempty" yaml:"baseline,omitempty" toml:"baseline,omitempty"`
	StartHz   float64 `json:"start_hz,omitempty" yaml:"start_hz,omitempty" toml:"start_hz,omitempty"`
	EndHz     float64 `json:"end_hz,omitempty" yaml:"end_hz,omitempty" toml:"end_hz,omitempty"`
}

// Probe records one segment's trace under Label.
type Probe struct {
	Target Ref    `json:"target" yaml:"target" toml:"target"`
	Label  string `json:"label" yaml:"label" toml:"label"`
}

// AssignIDs gives every neuron without an id one derived from its name, or
// its position when unnamed, so ids are stable across loads.
func (s *Scene) AssignIDs() {
	for i := range s.Neurons {
		n := &s.Neurons[i]
		if n.ID != uuid.Nil {
			continue
		}
		key := n.Name
		if key == "" {
			key = s.Name + "/" + strconv.Itoa(i)
		}
		n.ID = uuid.NewSHA1(namespace, []byte(key))
	}
}
