package telemetry

import (
	"strings"

	"github.com/guptarohit/asciigraph"
)

// QuickPlot renders one or more voltage traces as a terminal chart. Traces
// longer than width are decimated by taking every n-th sample.
func QuickPlot(traces [][]float64, labels []string, width, height int) string {
	series := make([][]float64, 0, len(traces))
	for _, tr := range traces {
		if len(tr) == 0 {
			continue
		}
		series = append(series, decimate(tr, width))
	}
	if len(series) == 0 {
		return ""
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
	}
	if len(labels) > 0 {
		opts = append(opts, asciigraph.Caption("mV: "+strings.Join(labels, ", ")))
	}
	if len(series) == 1 {
		return asciigraph.Plot(series[0], opts...)
	}
	return asciigraph.PlotMany(series, opts...)
}

func decimate(v []float64, width int) []float64 {
	if width <= 0 || len(v) <= width {
		return v
	}
	step := (len(v) + width - 1) / width
	out := make([]float64, 0, width)
	for i := 0; i < len(v); i += step {
		out = append(out, v[i])
	}
	return out
}
