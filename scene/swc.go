package scene

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/reuron/neuron"
)

// SWC structure identifiers.
const (
	TypeSoma     = 1
	TypeAxon     = 2
	TypeDendrite = 3
	TypeApical   = 4
	TypeCustom   = 5
)

// swcInitialVoltage is the resting voltage given to imported morphologies.
const swcInitialVoltage = -80.0

// SWC is a parsed morphology file.
type SWC struct {
	Entries []Segment
}

// ReadSWC parses the SWC file at path.
func ReadSWC(path string) (*SWC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening swc: %w", err)
	}
	defer f.Close()
	return ParseSWC(f)
}

// ParseSWC reads "id type x y z r parent" lines. Blank lines and lines
// starting with '#' are skipped.
func ParseSWC(r io.Reader) (*SWC, error) {
	sc := bufio.NewScanner(r)
	out := &SWC{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 7 {
			return nil, fmt.Errorf("swc line %d: %d fields, want 7: %w", line, len(fields), ErrBadMorphology)
		}
		seg, err := parseSWCFields(fields)
		if err != nil {
			return nil, fmt.Errorf("swc line %d: %w", line, err)
		}
		out.Entries = append(out.Entries, seg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading swc: %w", err)
	}
	if len(out.Entries) == 0 {
		return nil, fmt.Errorf("swc has no samples: %w", ErrBadMorphology)
	}
	return out, nil
}

func parseSWCFields(f []string) (Segment, error) {
	var seg Segment
	var err error
	ints := []struct {
		dst  *int
		src  string
		name string
	}{{&seg.ID, f[0], "id"}, {&seg.Type, f[1], "type"}, {&seg.Parent, f[6], "parent"}}
	for _, v := range ints {
		if *v.dst, err = strconv.Atoi(v.src); err != nil {
			return seg, fmt.Errorf("%s: %w", v.name, err)
		}
	}
	floats := []struct {
		dst  *float64
		src  string
		name string
	}{{&seg.X, f[2], "x"}, {&seg.Y, f[3], "y"}, {&seg.Z, f[4], "z"}, {&seg.R, f[5], "radius"}}
	for _, v := range floats {
		if *v.dst, err = strconv.ParseFloat(v.src, 64); err != nil {
			return seg, fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return seg, nil
}

func (f *SWC) children() map[int]int {
	n := make(map[int]int, len(f.Entries))
	for _, e := range f.Entries {
		n[e.Parent]++
	}
	return n
}

// Simplify drops unbranched interior samples. Sample 1, every branch point
// and leaf, and every tenth id are kept; the others are removed and their
// children re-parented to the nearest kept ancestor.
func (f *SWC) Simplify() *SWC {
	children := f.children()
	parent := make(map[int]int, len(f.Entries))
	keep := make(map[int]bool, len(f.Entries))
	for _, e := range f.Entries {
		parent[e.ID] = e.Parent
		if e.ID == 1 || children[e.ID] != 1 || e.ID%10 == 0 {
			keep[e.ID] = true
		}
	}

	out := &SWC{}
	for _, e := range f.Entries {
		if !keep[e.ID] {
			continue
		}
		p := e.Parent
		for p != -1 && !keep[p] {
			next, ok := parent[p]
			if !ok {
				p = -1
				break
			}
			p = next
		}
		e.Parent = p
		out.Entries = append(out.Entries, e)
	}
	return out
}

// Neuron converts the morphology into a scene neuron carrying the default
// membrane for each structure type. Unknown type codes become custom.
func (f *SWC) Neuron(name string) Neuron {
	n := Neuron{
		Name:           name,
		InitialVoltage: swcInitialVoltage,
		Segments:       make([]Segment, len(f.Entries)),
		Membranes:      DefaultMembranes(),
	}
	copy(n.Segments, f.Entries)
	for i := range n.Segments {
		if t := n.Segments[i].Type; t < TypeSoma || t > TypeCustom {
			n.Segments[i].Type = TypeCustom
		}
	}
	return n
}

func library(name string, g float64) ChannelDef {
	return ChannelDef{Library: name, PeakSiemensPerCm2: g}
}

// DefaultMembranes returns membranes for soma, axon, basal dendrite, apical
// dendrite and custom segments, in SWC type order.
func DefaultMembranes() []MembraneDef {
	hh := func(leak float64) MembraneDef {
		return MembraneDef{
			CapacitanceFaradsPerCm2: 1e-6,
			Channels: []ChannelDef{
				library(neuron.GiantSquidK.Name, 36e-3),
				library(neuron.GiantSquidNa.Name, 120e-3),
				library(neuron.Leak.Name, leak),
			},
		}
	}
	basal := func() MembraneDef {
		return MembraneDef{
			CapacitanceFaradsPerCm2: 2e-6,
			Channels: []ChannelDef{
				library(neuron.Leak.Name, 0.03e-3),
				library(neuron.HCNDendrite.Name, 0.08e-3),
			},
		}
	}
	apical := basal()
	apical.Channels = append(apical.Channels,
		library(neuron.RatNaTransient.Name, 0.023),
		library(neuron.RatKSlow.Name, 0.040),
	)
	return []MembraneDef{hh(3e-5), hh(0.3e-3), basal(), apical, basal()}
}

// distanceCm is the straight-line distance between two samples in cm.
func distanceCm(a, b Segment) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx+dy*dy+dz*dz) * micronsToCm
}
