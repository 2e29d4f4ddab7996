package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/reuron/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scene>...",
	Short: "Load and build scene files without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if failed := validateScenes(cmd.ErrOrStderr(), cfg, args); failed > 0 {
			return fmt.Errorf("%d of %d scenes invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateScenes reports each scene on w and returns how many failed.
func validateScenes(w io.Writer, cfg *config.Config, paths []string) int {
	failed := 0
	for _, path := range paths {
		m, err := buildScene(path, cfg)
		if err != nil {
			fmt.Fprintf(w, "✗ %v\n", err)
			failed++
			continue
		}
		segments := 0
		for i := 0; i < m.Network.Len(); i++ {
			segments += m.Network.Neuron(i).Len()
		}
		fmt.Fprintf(w, "✓ %s: %d neurons, %d segments, %d synapses, %d stimuli, %d probes\n",
			path, m.Network.Len(), segments, len(m.Network.Synapses()), len(m.Stimuli), len(m.Probes))
		if dt, stable := cfg.Simulation.DT, m.Network.StableDT(); dt > stable {
			fmt.Fprintf(w, "! %s: junction coupling number %.3g at dt=%g exceeds 1; use dt <= %.3g\n",
				path, dt/stable, dt, stable)
		}
	}
	return failed
}
