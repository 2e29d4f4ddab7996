package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pthm-cable/reuron/config"
	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/scene"
	"github.com/pthm-cable/reuron/sim"
	"github.com/pthm-cable/reuron/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run [scene]",
	Short: "Simulate a scene file or a library example",
	Long: `Loads a scene (JSON, YAML, TOML or SWC), builds its network and runs it for
simulation.steps ticks. Without a scene, --example selects a built-in neuron.

Interrupting the run finishes the current batch and keeps the output written
so far.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.String("example", "giant_squid_axon", "library example neuron used when no scene is given")
	flags.Int("steps", 0, "ticks to simulate (0 = config)")
	flags.Int("steps-per-update", 0, "ticks per runner batch (0 = config)")
	flags.Int("sample-every", 0, "ticks between trace samples (0 = config)")
	flags.Bool("parallel", false, "step neurons on a worker pool")
	flags.String("output-dir", "", "directory for CSV output and the config snapshot")
	flags.String("db", "", "sqlite file to record the run in")
	flags.Bool("plot", false, "print probe traces as a terminal chart when done")
	flags.Bool("log-stats", false, "log window and perf stats while running")
	flags.String("snapshot-dir", "", "save a network snapshot at every bookmark")
	flags.String("restore", "", "resume from a snapshot file of the same scene")

	viper.BindPFlag("simulation.steps", flags.Lookup("steps"))
	viper.BindPFlag("simulation.steps_per_update", flags.Lookup("steps-per-update"))
	viper.BindPFlag("simulation.parallel", flags.Lookup("parallel"))
	viper.BindPFlag("telemetry.sample_every", flags.Lookup("sample-every"))
	viper.BindPFlag("telemetry.output_dir", flags.Lookup("output-dir"))
	viper.BindPFlag("telemetry.db_path", flags.Lookup("db"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var model *scene.Model
	if len(args) == 1 {
		model, err = buildScene(args[0], cfg)
	} else {
		example, _ := cmd.Flags().GetString("example")
		model, err = scene.Example(example, cfg.Derived.Coupling)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logStats, _ := cmd.Flags().GetBool("log-stats")
	plot, _ := cmd.Flags().GetBool("plot")
	snapshotDir, _ := cmd.Flags().GetString("snapshot-dir")
	opts := sim.Options{LogStats: logStats, SnapshotDir: snapshotDir}

	var snap *telemetry.Snapshot
	if path, _ := cmd.Flags().GetString("restore"); path != "" {
		if snap, err = telemetry.LoadSnapshot(path); err != nil {
			return err
		}
	}
	return simulate(ctx, cmd.OutOrStdout(), cfg, model, opts, snap, plot)
}

// buildScene loads and builds the scene at path.
func buildScene(path string, cfg *config.Config) (*scene.Model, error) {
	s, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	m, err := scene.Build(s, cfg.Derived.Coupling)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// simulate runs model for cfg.Simulation.Steps ticks, starting from snap
// when given, and reports the probes. A divergence or interruption still
// prints what was recorded.
func simulate(ctx context.Context, w io.Writer, cfg *config.Config, model *scene.Model, opts sim.Options, snap *telemetry.Snapshot, plot bool) error {
	runner, err := sim.New(ctx, cfg, model, opts)
	if err != nil {
		return err
	}
	if snap != nil {
		if err := runner.Restore(snap); err != nil {
			return errors.Join(err, runner.Close())
		}
	}

	start := time.Now()
	runErr := runner.Run(ctx, cfg.Simulation.Steps)
	slog.Info("run done",
		"scene", model.Name,
		"ticks", runner.Tick(),
		"sim_time", runner.Time(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	printSummaries(w, runner.Summaries())
	if plot {
		var traces [][]float64
		var labels []string
		for _, tr := range runner.Traces() {
			traces = append(traces, tr.Voltages)
			labels = append(labels, tr.Label)
		}
		if chart := telemetry.QuickPlot(traces, labels, cfg.Plot.Width, cfg.Plot.Height); chart != "" {
			fmt.Fprintln(w, chart)
		}
	}
	return errors.Join(runErr, runner.Close())
}

func printSummaries(w io.Writer, summaries []telemetry.TraceSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBE\tMEAN mV\tSTD\tMIN\tMAX\tSPIKES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n", s.Label, s.Mean, s.Std, s.Min, s.Max, s.Spikes)
	}
	tw.Flush()
}

// exampleNames lists the library example neurons in name order.
func exampleNames() []string {
	names := make([]string, 0, len(neuron.Examples))
	for name := range neuron.Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
