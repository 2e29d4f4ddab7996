package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/reuron/neuron"
)

var reversalCmd = &cobra.Command{
	Use:   "reversal",
	Short: "Print Nernst reversal potentials",
	Long: `Computes the reversal potential of each ion between an intracellular
solution (the example cytoplasm unless overridden) and the configured
extracellular solution, at the configured temperature.`,
	Args: cobra.NoArgs,
	RunE: runReversal,
}

func init() {
	flags := reversalCmd.Flags()
	flags.Float64("na", neuron.ExampleCytoplasm.Na, "intracellular Na+ (mol/L)")
	flags.Float64("k", neuron.ExampleCytoplasm.K, "intracellular K+ (mol/L)")
	flags.Float64("ca", neuron.ExampleCytoplasm.Ca, "intracellular Ca2+ (mol/L)")
	flags.Float64("cl", neuron.ExampleCytoplasm.Cl, "intracellular Cl- (mol/L)")
	flags.Float64("temperature", 0, "temperature in kelvin (0 = config)")
	rootCmd.AddCommand(reversalCmd)
}

func runReversal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var inside neuron.Solution
	inside.Na, _ = cmd.Flags().GetFloat64("na")
	inside.K, _ = cmd.Flags().GetFloat64("k")
	inside.Ca, _ = cmd.Flags().GetFloat64("ca")
	inside.Cl, _ = cmd.Flags().GetFloat64("cl")
	temperature := cfg.Derived.Environment.TemperatureK
	if t, _ := cmd.Flags().GetFloat64("temperature"); t != 0 {
		temperature = t
	}

	return writeReversals(cmd.OutOrStdout(), inside, cfg.Derived.Environment.Extracellular, temperature)
}

func writeReversals(w io.Writer, inside, outside neuron.Solution, temperatureK float64) error {
	rev, err := neuron.ReversalPotentials(inside, outside, temperatureK)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ION\tINSIDE mol/L\tOUTSIDE mol/L\tE mV (%.2f K)\n", temperatureK)
	for _, ion := range neuron.Ions {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%.2f\n", ion, inside.Concentration(ion), outside.Concentration(ion), rev.For(ion))
	}
	return tw.Flush()
}
