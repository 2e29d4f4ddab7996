package scene

import (
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/reuron/neuron"
)

// MembraneDefOf describes a built membrane spec in scene form. Unmodified
// library channels are written by name; anything else spells out its gates
// and selectivity.
func MembraneDefOf(m neuron.MembraneSpec) MembraneDef {
	def := MembraneDef{CapacitanceFaradsPerCm2: m.CapacitanceFaradsPerSquareCm}
	for _, c := range m.Channels {
		cd := ChannelDef{PeakSiemensPerCm2: c.SiemensPerSquareCm}
		if isLibrary(c.Builder) {
			cd.Library = c.Builder.Name
		} else {
			cd.Activation = gateDefOf(c.Builder.Activation)
			cd.Inactivation = gateDefOf(c.Builder.Inactivation)
			s := c.Builder.Selectivity
			cd.Selectivity = &SelectivityDef{Na: s.Na, K: s.K, Ca: s.Ca, Cl: s.Cl}
		}
		def.Channels = append(def.Channels, cd)
	}
	return def
}

func isLibrary(b neuron.ChannelBuilder) bool {
	lib, ok := neuron.Channels[b.Name]
	return ok && lib.Activation == b.Activation && lib.Inactivation == b.Inactivation && lib.Selectivity == b.Selectivity
}

func gateDefOf(p *neuron.GateParams) *GateDef {
	if p == nil {
		return nil
	}
	t := p.Tau
	return &GateDef{
		Gates: p.Gates,
		VHalf: p.Steady.VHalf,
		Slope: p.Steady.Slope,
		Tau: TimeConstantDef{
			Kind:  t.Kind.String(),
			VPeak: t.VPeak, CBase: t.CBase, CAmp: t.CAmp, Sigma: t.Sigma,
			Coef: t.Coef, VOffset: t.VOffset, Inner: t.Inner,
		},
	}
}

// MarshalMembranes encodes membranes as the YAML "membranes" list of a
// neuron.
func MarshalMembranes(defs []MembraneDef) ([]byte, error) {
	return yaml.Marshal(struct {
		Membranes []MembraneDef `yaml:"membranes"`
	}{defs})
}
