// Package cmd implements the reuron command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pthm-cable/reuron/config"
)

var rootCmd = &cobra.Command{
	Use:   "reuron",
	Short: "Multi-compartment Hodgkin-Huxley neuron simulator",
	Long: `reuron integrates conductance-based neurons built from segments, gap
junctions and chemical synapses. Scenes are JSON, YAML, TOML or SWC files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log_format"), viper.GetBool("verbose"))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config YAML file (empty = embedded defaults)")
	flags.String("log-format", "text", "log output format: text or json")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Float64("dt", 0, "integration step in seconds (0 = config)")
	flags.Int("workers", 0, "worker goroutines for parallel stepping (0 = config)")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("simulation.dt", flags.Lookup("dt"))
	viper.BindPFlag("simulation.workers", flags.Lookup("workers"))
}

func initConfig() {
	viper.SetEnvPrefix("REURON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setupLogging(format string, verbose bool) error {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	switch format {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig reads the config file and applies flag and REURON_* environment
// overrides on top. Zero-valued overrides keep the file's value.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := viper.GetFloat64("simulation.dt"); v > 0 {
		cfg.Simulation.DT = v
	}
	if v := viper.GetInt("simulation.steps"); v > 0 {
		cfg.Simulation.Steps = v
	}
	if v := viper.GetInt("simulation.steps_per_update"); v > 0 {
		cfg.Simulation.StepsPerUpdate = v
	}
	if v := viper.GetInt("simulation.workers"); v > 0 {
		cfg.Simulation.Workers = v
	}
	if viper.IsSet("simulation.parallel") {
		cfg.Simulation.Parallel = viper.GetBool("simulation.parallel")
	}
	if v := viper.GetInt("telemetry.sample_every"); v > 0 {
		cfg.Telemetry.SampleEvery = v
	}
	if v := viper.GetString("telemetry.output_dir"); v != "" {
		cfg.Telemetry.OutputDir = v
	}
	if v := viper.GetString("telemetry.db_path"); v != "" {
		cfg.Telemetry.DBPath = v
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	config.Set(cfg)
	return cfg, nil
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("interrupted, finishing current batch")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
