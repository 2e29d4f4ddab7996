package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartUpdate()
		pc.StartPhase(PhaseStimulus)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseNeurons)
		time.Sleep(200 * time.Microsecond)
		pc.EndUpdate(100)
	}

	stats := pc.Stats()

	if stats.AvgUpdate <= 0 {
		t.Error("expected positive average update duration")
	}
	if _, ok := stats.PhaseAvg[PhaseStimulus]; !ok {
		t.Error("expected stimulus phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseNeurons]; !ok {
		t.Error("expected neurons phase to be tracked")
	}
}

func TestPerfCollector_TicksPerSecondCountsSimulationTicks(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartUpdate()
		pc.StartPhase(PhaseNeurons)
		time.Sleep(time.Millisecond)
		pc.EndUpdate(1000)
	}

	stats := pc.Stats()
	// 1000 ticks per update of at least 1 ms bounds throughput at 1e6/s.
	if stats.TicksPerSecond <= 0 || stats.TicksPerSecond > 1e6 {
		t.Errorf("ticks per second = %v, want in (0, 1e6]", stats.TicksPerSecond)
	}
}

func TestPerfCollector_PhaseReentryAccumulates(t *testing.T) {
	pc := NewPerfCollector(1)
	pc.StartUpdate()
	for i := 0; i < 3; i++ {
		pc.StartPhase(PhaseNeurons)
		time.Sleep(200 * time.Microsecond)
		pc.StartPhase(PhaseSynapses)
	}
	pc.EndUpdate(3)

	stats := pc.Stats()
	if got := stats.PhaseAvg[PhaseNeurons]; got < 600*time.Microsecond {
		t.Errorf("neurons phase = %v, want at least 600µs across re-entries", got)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartUpdate()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndUpdate(1)
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgUpdate != 0 {
		t.Error("expected zero avg duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgUpdate:      2 * time.Millisecond,
		PhasePct:       map[string]float64{PhaseNeurons: 80, PhaseOutput: 5},
		TicksPerSecond: 1234,
	}
	row := s.ToCSV(42)
	if row.WindowEnd != 42 || row.AvgUpdateUS != 2000 || row.NeuronsPct != 80 || row.OutputPct != 5 || row.TicksPerSec != 1234 {
		t.Errorf("ToCSV = %+v", row)
	}
}
