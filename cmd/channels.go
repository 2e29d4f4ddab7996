package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/reuron/neuron"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the built-in channel library and example neurons",
	RunE: func(cmd *cobra.Command, args []string) error {
		writeChannels(cmd.OutOrStdout())
		fmt.Fprintf(cmd.OutOrStdout(), "\nexamples: %s\n", strings.Join(exampleNames(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func writeChannels(w io.Writer) {
	names := make([]string, 0, len(neuron.Channels))
	for name := range neuron.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACTIVATION\tINACTIVATION\tSELECTIVITY")
	for _, name := range names {
		ch := neuron.Channels[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, describeGate(ch.Activation), describeGate(ch.Inactivation), describeSelectivity(ch.Selectivity))
	}
	tw.Flush()
}

func describeGate(p *neuron.GateParams) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d x (v½ %g mV, slope %g, tau %s)", p.Gates, p.Steady.VHalf, p.Steady.Slope, p.Tau.Kind)
}

func describeSelectivity(s neuron.IonSelectivity) string {
	var parts []string
	for _, ion := range neuron.Ions {
		if f := s.Fraction(ion); f > 0 {
			parts = append(parts, fmt.Sprintf("%s %.2g", ion, f))
		}
	}
	return strings.Join(parts, " ")
}
