package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a runner update.
const (
	PhaseStimulus = "stimulus"
	PhaseNeurons  = "neurons"
	PhaseSynapses = "synapses"
	PhaseProbes   = "probes"
	PhaseOutput   = "output"
)

// Phases lists every runner phase in execution order.
var Phases = []string{PhaseStimulus, PhaseNeurons, PhaseSynapses, PhaseProbes, PhaseOutput}

// PerfSample holds timing data for a single update.
type PerfSample struct {
	Duration time.Duration
	Ticks    int
	Phases   map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window of updates.
// Each update may cover many simulation ticks.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	updateStart   time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of updates to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartUpdate begins timing a new update.
func (p *PerfCollector) StartUpdate() {
	p.updateStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase. Re-entering a phase within the
// same update accumulates into it.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndUpdate finishes timing the current update, which advanced the simulation
// by ticks steps, and records the sample.
func (p *PerfCollector) EndUpdate(ticks int) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		Duration: now.Sub(p.updateStart),
		Ticks:    ticks,
		Phases:   p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Update timing
	AvgUpdate time.Duration
	MinUpdate time.Duration
	MaxUpdate time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total update time
	PhasePct map[string]float64

	// Throughput in simulation ticks
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total time.Duration
	var minUpdate, maxUpdate time.Duration
	var ticks int
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration
		ticks += s.Ticks

		if i == 0 || s.Duration < minUpdate {
			minUpdate = s.Duration
		}
		if s.Duration > maxUpdate {
			maxUpdate = s.Duration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var ticksPerSec float64
	if total > 0 {
		ticksPerSec = float64(ticks) / total.Seconds()
	}

	return PerfStats{
		AvgUpdate:      avg,
		MinUpdate:      minUpdate,
		MaxUpdate:      maxUpdate,
		PhaseAvg:       phaseAvg,
		PhasePct:       phasePct,
		TicksPerSecond: ticksPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_update_us", s.AvgUpdate.Microseconds(),
		"min_update_us", s.MinUpdate.Microseconds(),
		"max_update_us", s.MaxUpdate.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_update_us", s.AvgUpdate.Microseconds()),
		slog.Int64("min_update_us", s.MinUpdate.Microseconds()),
		slog.Int64("max_update_us", s.MaxUpdate.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd   int64   `csv:"window_end"`
	AvgUpdateUS int64   `csv:"avg_update_us"`
	MinUpdateUS int64   `csv:"min_update_us"`
	MaxUpdateUS int64   `csv:"max_update_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	StimulusPct float64 `csv:"stimulus_pct"`
	NeuronsPct  float64 `csv:"neurons_pct"`
	SynapsesPct float64 `csv:"synapses_pct"`
	ProbesPct   float64 `csv:"probes_pct"`
	OutputPct   float64 `csv:"output_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgUpdateUS: s.AvgUpdate.Microseconds(),
		MinUpdateUS: s.MinUpdate.Microseconds(),
		MaxUpdateUS: s.MaxUpdate.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
		StimulusPct: s.PhasePct[PhaseStimulus],
		NeuronsPct:  s.PhasePct[PhaseNeurons],
		SynapsesPct: s.PhasePct[PhaseSynapses],
		ProbesPct:   s.PhasePct[PhaseProbes],
		OutputPct:   s.PhasePct[PhaseOutput],
	}
}
