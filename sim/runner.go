// Package sim drives a built scene through time: stimulation, parallel
// neuron integration, probing and telemetry output.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/reuron/components"
	"github.com/pthm-cable/reuron/config"
	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/scene"
	"github.com/pthm-cable/reuron/telemetry"
)

// Run statuses recorded in the trace store.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusDiverged  = "diverged"
	StatusFailed    = "failed"
	StatusClosed    = "closed"
)

// Options configures a Runner beyond the loaded config.
type Options struct {
	OutputDir     string // overrides telemetry.output_dir when set
	DBPath        string // overrides telemetry.db_path when set
	SnapshotDir   string // bookmarked moments are saved here when set
	LogStats      bool
	StatsCallback func(telemetry.WindowStats)
}

// ProbeTrace is a probe's recent samples, oldest first.
type ProbeTrace struct {
	Label    string
	Ref      neuron.SegmentRef
	Times    []float64
	Voltages []float64
	Spikes   int // over the whole run
}

// Runner holds a network and everything attached to it while it runs.
type Runner struct {
	cfg   *config.Config
	model *scene.Model
	net   *neuron.Network
	env   neuron.Environment
	dt    float64
	tick  int64

	world       *ecs.World
	stimMapper  *ecs.Map2[components.Target, components.Stimulation]
	stimFilter  *ecs.Filter2[components.Target, components.Stimulation]
	probeMapper *ecs.Map2[components.Target, components.Probe]
	probeFilter *ecs.Filter2[components.Target, components.Probe]

	pool     *workerPool
	parallel bool

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	store     *telemetry.TraceStore
	runID     string
	finished  bool

	sampleTimes *telemetry.RingBuffer[float64]
	pending     []telemetry.TraceSample
	voltages    []float64

	bookmarks   *telemetry.BookmarkDetector
	snapshotDir string

	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// New prepares model for running under cfg. A scene extracellular solution
// replaces the configured one. When the scene has no stimuli and the config
// enables the default stimulator, it drives the first segment of every
// neuron.
func New(ctx context.Context, cfg *config.Config, model *scene.Model, opts Options) (*Runner, error) {
	env := cfg.Derived.Environment
	if model.Extracellular != nil {
		env.Extracellular = *model.Extracellular
	}

	world := ecs.NewWorld()
	r := &Runner{
		cfg:           cfg,
		model:         model,
		net:           model.Network,
		env:           env,
		dt:            cfg.Simulation.DT,
		world:         world,
		stimMapper:    ecs.NewMap2[components.Target, components.Stimulation](world),
		stimFilter:    ecs.NewFilter2[components.Target, components.Stimulation](world),
		probeMapper:   ecs.NewMap2[components.Target, components.Probe](world),
		probeFilter:   ecs.NewFilter2[components.Target, components.Probe](world),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Simulation.DT),
		sampleTimes:   telemetry.NewRingBuffer[float64](cfg.Telemetry.RingSize),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		snapshotDir:   opts.SnapshotDir,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}

	stimuli := model.Stimuli
	if len(stimuli) == 0 && cfg.Stimulus.Enabled {
		for i := 0; i < r.net.Len(); i++ {
			stimuli = append(stimuli, scene.BoundStimulus{
				Ref:        neuron.SegmentRef{Neuron: i},
				Stimulator: cfg.Derived.Stimulator,
			})
		}
	}
	for _, s := range stimuli {
		r.stimMapper.NewEntity(&components.Target{Ref: s.Ref}, &components.Stimulation{Stimulator: s.Stimulator})
	}
	for _, p := range model.Probes {
		probe := components.NewProbe(p.Label, cfg.Telemetry.RingSize, cfg.Telemetry.SpikeThreshold)
		r.probeMapper.NewEntity(&components.Target{Ref: p.Ref}, &probe)
	}

	threshold := max(cfg.Simulation.ParallelThreshold, 2)
	if cfg.Simulation.Parallel && r.net.Len() >= threshold {
		r.parallel = true
		r.pool = newWorkerPool(min(cfg.Derived.Workers, r.net.Len()))
	}

	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return nil, err
	}
	r.output = output
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	dbPath := cfg.Telemetry.DBPath
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	if dbPath != "" {
		store, err := telemetry.NewTraceStore(ctx, dbPath)
		if err != nil {
			output.Close()
			return nil, err
		}
		runID, err := store.BeginRun(ctx, model.Name, r.dt)
		if err != nil {
			store.Close()
			output.Close()
			return nil, err
		}
		r.store, r.runID = store, runID
	}

	if stable := r.net.StableDT(); r.dt > stable {
		slog.Warn("junction coupling unstable at this time step", "dt", r.dt, "stable_dt", stable)
	}
	slog.Info("runner ready",
		"scene", model.Name,
		"neurons", r.net.Len(),
		"stimuli", len(stimuli),
		"probes", len(model.Probes),
		"parallel", r.parallel,
		"run_id", r.runID,
	)
	return r, nil
}

// Tick returns the number of completed ticks.
func (r *Runner) Tick() int64 { return r.tick }

// Time returns the network clock in seconds.
func (r *Runner) Time() float64 { return r.net.Time() }

// Network returns the network being run.
func (r *Runner) Network() *neuron.Network { return r.net }

// RunID returns the trace store run id, or "" without a store.
func (r *Runner) RunID() string { return r.runID }

// Perf returns the current performance window.
func (r *Runner) Perf() telemetry.PerfStats { return r.perf.Stats() }

// Update runs one batch of simulation.steps_per_update ticks.
func (r *Runner) Update(ctx context.Context) error {
	return r.update(ctx, r.cfg.Simulation.StepsPerUpdate)
}

// Run advances steps ticks in batches, checking ctx between batches, and
// records the outcome in the trace store.
func (r *Runner) Run(ctx context.Context, steps int) error {
	target := r.tick + int64(steps)
	per := int64(r.cfg.Simulation.StepsPerUpdate)
	for r.tick < target {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, r.finish(context.WithoutCancel(ctx), StatusCancelled))
		}
		if err := r.update(ctx, int(min(per, target-r.tick))); err != nil {
			status := StatusFailed
			if neuron.IsDivergence(err) {
				status = StatusDiverged
			}
			return errors.Join(err, r.finish(context.WithoutCancel(ctx), status))
		}
	}
	return r.finish(ctx, StatusCompleted)
}

func (r *Runner) update(ctx context.Context, n int) error {
	r.perf.StartUpdate()
	done := 0
	var err error
	for ; done < n; done++ {
		if err = r.step(); err != nil {
			break
		}
	}
	r.perf.StartPhase(telemetry.PhaseOutput)
	if ferr := r.flush(ctx); ferr != nil {
		err = errors.Join(err, ferr)
	}
	r.perf.EndUpdate(done)
	return err
}

// step advances the network one tick. On error the network is unchanged.
func (r *Runner) step() error {
	r.perf.StartPhase(telemetry.PhaseStimulus)
	r.applyStimuli(r.net.Time())

	r.perf.StartPhase(telemetry.PhaseNeurons)
	tick, err := r.net.BeginTick(r.env, r.dt)
	if err != nil {
		return fmt.Errorf("tick %d: %w", r.tick, err)
	}
	if r.parallel {
		r.pool.run(r.net.Len(), tick.Neuron)
	} else {
		for i := 0; i < r.net.Len(); i++ {
			tick.Neuron(i)
		}
	}

	r.perf.StartPhase(telemetry.PhaseSynapses)
	recorded := false
	for i := 0; i < r.net.Len(); i++ {
		var de *neuron.DivergenceError
		if errors.As(tick.Err(i), &de) {
			r.recordDivergence(i, de)
			recorded = true
		}
	}
	if err := tick.Commit(); err != nil {
		var de *neuron.DivergenceError
		if !recorded && errors.As(err, &de) {
			// synapse-level; the neuron is not known here
			r.recordDivergence(-1, de)
		}
		return fmt.Errorf("tick %d: %w", r.tick, err)
	}
	r.tick++

	r.perf.StartPhase(telemetry.PhaseProbes)
	r.observeProbes()
	return nil
}

// applyStimuli sets the input current of every stimulated segment to the
// sum of its stimulators at time t.
func (r *Runner) applyStimuli(t float64) {
	query := r.stimFilter.Query()
	for query.Next() {
		target, _ := query.Get()
		r.segment(target.Ref).InputCurrent = 0
	}
	query = r.stimFilter.Query()
	for query.Next() {
		target, stim := query.Get()
		stim.Current = stim.Stimulator.Current(t)
		r.segment(target.Ref).InputCurrent += stim.Current
	}
}

func (r *Runner) observeProbes() {
	sample := r.tick%int64(r.cfg.Telemetry.SampleEvery) == 0
	t := r.net.Time()
	if sample {
		r.sampleTimes.Write(t)
	}
	keep := r.output != nil || r.store != nil

	query := r.probeFilter.Query()
	for query.Next() {
		target, probe := query.Get()
		ref := target.Ref
		seg := r.segment(ref)
		if probe.Observe(seg.Voltage) {
			r.collector.Record(telemetry.NewSpikeEvent(r.tick, t, ref.Neuron, ref.Segment, seg.Voltage))
		}
		if !sample {
			continue
		}
		probe.Trace.Write(seg.Voltage)
		if keep {
			r.pending = append(r.pending, telemetry.SampleSegment(r.tick, t, ref.Neuron, ref.Segment, probe.Label, seg))
		}
	}
}

func (r *Runner) recordDivergence(neuronIdx int, de *neuron.DivergenceError) {
	r.collector.Record(telemetry.NewDivergenceEvent(r.tick, de.Time, neuronIdx, de.Segment, de.Voltage))
	slog.Warn("integration diverged; tick rolled back",
		"tick", r.tick,
		"neuron", neuronIdx,
		"segment", de.Segment,
		"voltage", de.Voltage,
	)
}

func (r *Runner) segment(ref neuron.SegmentRef) *neuron.Segment {
	return r.net.Neuron(ref.Neuron).Segment(ref.Segment)
}

// flush writes pending trace samples and, at window boundaries, the window
// and perf stats.
func (r *Runner) flush(ctx context.Context) error {
	var errs []error
	if len(r.pending) > 0 {
		if err := r.output.WriteSamples(r.pending); err != nil {
			errs = append(errs, err)
		}
		if r.store != nil {
			if err := r.store.WriteSamples(ctx, r.runID, r.pending); err != nil {
				errs = append(errs, err)
			}
		}
		r.pending = r.pending[:0]
	}

	if !r.collector.ShouldFlush(r.tick) {
		return errors.Join(errs...)
	}

	r.voltages = r.voltages[:0]
	query := r.probeFilter.Query()
	for query.Next() {
		target, _ := query.Get()
		r.voltages = append(r.voltages, r.segment(target.Ref).Voltage)
	}
	stats := r.collector.Flush(r.tick, r.voltages)
	perfStats := r.perf.Stats()

	if r.statsCallback != nil {
		r.statsCallback(stats)
	}
	if r.logStats {
		slog.Info("stats", "window", stats)
		perfStats.LogStats()
	}
	for _, b := range r.bookmarks.Check(stats) {
		b.LogBookmark()
		if r.snapshotDir == "" {
			continue
		}
		if _, err := telemetry.SaveSnapshot(r.Snapshot(&b), r.snapshotDir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.output.WriteTelemetry(stats); err != nil {
		errs = append(errs, err)
	}
	if err := r.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Snapshot captures the network state at the current tick.
func (r *Runner) Snapshot(b *telemetry.Bookmark) *telemetry.Snapshot {
	names := make([]string, r.net.Len())
	for i := range names {
		names[i] = r.net.Neuron(i).Name
	}
	return &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		Scene:    r.model.Name,
		RunID:    r.runID,
		DT:       r.dt,
		Tick:     r.tick,
		Neurons:  names,
		State:    r.net.State(),
		Bookmark: b,
	}
}

// Restore resumes from a snapshot taken of the same scene. Probe spike
// counts and traces are not part of a snapshot and carry on from their
// current values.
func (r *Runner) Restore(s *telemetry.Snapshot) error {
	if len(s.Neurons) != r.net.Len() {
		return fmt.Errorf("snapshot has %d neurons, scene %d", len(s.Neurons), r.net.Len())
	}
	for i, name := range s.Neurons {
		if got := r.net.Neuron(i).Name; got != name {
			return fmt.Errorf("snapshot neuron %d is %q, scene has %q", i, name, got)
		}
	}
	if err := r.net.SetState(s.State); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	if s.DT != r.dt {
		slog.Warn("snapshot time step differs", "snapshot_dt", s.DT, "dt", r.dt)
	}
	r.tick = s.Tick
	r.collector.Reset(s.Tick)
	slog.Info("restored snapshot", "tick", s.Tick, "time", s.State.Time)
	return nil
}

// Traces returns every probe's recent samples in probe order.
func (r *Runner) Traces() []ProbeTrace {
	times := r.sampleTimes.Contents(nil)
	var out []ProbeTrace
	query := r.probeFilter.Query()
	for query.Next() {
		target, probe := query.Get()
		out = append(out, ProbeTrace{
			Label:    probe.Label,
			Ref:      target.Ref,
			Times:    times,
			Voltages: probe.Trace.Contents(nil),
			Spikes:   probe.Count,
		})
	}
	return out
}

// Summaries describes each probe's recent trace.
func (r *Runner) Summaries() []telemetry.TraceSummary {
	traces := r.Traces()
	out := make([]telemetry.TraceSummary, 0, len(traces))
	for _, tr := range traces {
		out = append(out, telemetry.SummarizeTrace(tr.Label, tr.Ref.Neuron, tr.Ref.Segment,
			tr.Times, tr.Voltages, r.cfg.Telemetry.SpikeThreshold))
	}
	return out
}

func (r *Runner) finish(ctx context.Context, status string) error {
	if r.store == nil || r.finished {
		return nil
	}
	r.finished = true
	slog.Info("run finished", "run_id", r.runID, "ticks", r.tick, "status", status)
	return r.store.FinishRun(ctx, r.runID, r.tick, status)
}

// Close writes trace summaries, stops the worker pool and releases the
// output files and trace store.
func (r *Runner) Close() error {
	var errs []error
	if err := r.finish(context.Background(), StatusClosed); err != nil {
		errs = append(errs, err)
	}
	if err := r.output.WriteSummaries(r.Summaries()); err != nil {
		errs = append(errs, err)
	}
	if err := r.output.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.pool != nil {
		r.pool.stop()
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
