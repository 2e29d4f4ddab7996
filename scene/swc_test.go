package scene

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/pthm-cable/reuron/neuron"
)

func TestParseSWC(t *testing.T) {
	f, err := ReadSWC("testdata/sample.swc")
	if err != nil {
		t.Fatalf("ReadSWC: %v", err)
	}
	if len(f.Entries) != 8 {
		t.Fatalf("entries = %d, want 8", len(f.Entries))
	}
	want := Segment{ID: 4, Type: TypeAxon, Z: 30, R: 1, Parent: 3}
	if got := f.Entries[3]; got != want {
		t.Errorf("entry 4 = %+v, want %+v", got, want)
	}
}

func TestParseSWCErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"short line", "1 1 0 0 0 10\n", ErrBadMorphology},
		{"empty", "# nothing\n\n", ErrBadMorphology},
		{"bad number", "1 1 0 0 zero 10 -1\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSWC(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSimplifyKeepsBranchesAndLeaves(t *testing.T) {
	f, err := ReadSWC("testdata/sample.swc")
	if err != nil {
		t.Fatalf("ReadSWC: %v", err)
	}
	s := f.Simplify()

	parents := map[int]int{}
	for _, e := range s.Entries {
		parents[e.ID] = e.Parent
	}
	want := map[int]int{1: -1, 5: 1, 7: 1, 8: 1}
	if len(parents) != len(want) {
		t.Fatalf("kept %v, want %v", parents, want)
	}
	for id, p := range want {
		if parents[id] != p {
			t.Errorf("parent of %d = %d, want %d", id, parents[id], p)
		}
	}
}

func TestSimplifyKeepsEveryTenth(t *testing.T) {
	var b strings.Builder
	b.WriteString("1 1 0 0 0 5 -1\n")
	for id := 2; id <= 25; id++ {
		b.WriteString(strings.Join([]string{strconv.Itoa(id), "2", "0", "0", strconv.Itoa(id), "1", strconv.Itoa(id - 1)}, " "))
		b.WriteString("\n")
	}
	f, err := ParseSWC(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseSWC: %v", err)
	}
	var ids []int
	for _, e := range f.Simplify().Entries {
		ids = append(ids, e.ID)
	}
	want := []int{1, 10, 20, 25}
	if len(ids) != len(want) {
		t.Fatalf("kept %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("kept %v, want %v", ids, want)
			break
		}
	}
}

func TestSWCNeuronBuilds(t *testing.T) {
	s, err := Load("testdata/sample.swc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "sample" || len(s.Neurons) != 1 {
		t.Fatalf("scene %q with %d neurons", s.Name, len(s.Neurons))
	}
	m, err := Build(s, neuron.DefaultCoupling())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := m.Network.Neuron(0)
	if n.Len() != 8 || len(n.Junctions()) != 7 {
		t.Fatalf("segments = %d, junctions = %d; want 8, 7", n.Len(), len(n.Junctions()))
	}

	soma := n.Segment(0)
	if math.Abs(soma.Geometry.LengthCm-20e-4) > 1e-15 || math.Abs(soma.Geometry.DiameterCm-20e-4) > 1e-15 {
		t.Errorf("soma geometry = %+v, want 20 µm cylinder", soma.Geometry)
	}
	if soma.Voltage != -80 {
		t.Errorf("initial V = %v, want -80", soma.Voltage)
	}
	axon := n.Segment(1).Geometry
	if math.Abs(axon.LengthCm-10e-4) > 1e-15 || math.Abs(axon.DiameterCm-2e-4) > 1e-15 {
		t.Errorf("axon geometry = %+v, want d=2 µm L=10 µm", axon)
	}
	if j := n.Junctions()[0]; j.A != 0 || j.B != 1 || math.Abs(j.PoreDiameterCm-2e-4) > 1e-15 {
		t.Errorf("first junction = %+v, want 0-1 with the axon diameter", j)
	}

	// apical samples carry the transient Na and slow K channels
	if got := len(n.Segment(7).Membrane.Channels); got != 4 {
		t.Errorf("apical channels = %d, want 4", got)
	}
	if got := n.Segment(7).Membrane.CapacitanceFaradsPerSquareCm; got != 2e-6 {
		t.Errorf("apical capacitance = %v, want 2e-6", got)
	}
}

func TestSWCUnknownTypeIsCustom(t *testing.T) {
	f, err := ParseSWC(strings.NewReader("1 1 0 0 0 5 -1\n2 9 0 0 5 1 1\n"))
	if err != nil {
		t.Fatalf("ParseSWC: %v", err)
	}
	if got := f.Neuron("x").Segments[1].Type; got != TypeCustom {
		t.Errorf("type = %d, want %d", got, TypeCustom)
	}
}

func TestDefaultMembranesBuild(t *testing.T) {
	ms := DefaultMembranes()
	if len(ms) != TypeCustom {
		t.Fatalf("membranes = %d, want %d", len(ms), TypeCustom)
	}
	for i, md := range ms {
		spec, err := md.spec()
		if err != nil {
			t.Fatalf("membrane %d: %v", i, err)
		}
		if _, err := spec.Build(swcInitialVoltage); err != nil {
			t.Errorf("membrane %d: %v", i, err)
		}
	}
}
