package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for current window
	spikes      int
	divergences int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record counts one event in the current window.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventSpike:
		c.spikes++
	case EventDivergence:
		c.divergences++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the counters and the probed voltages at
// window end, then resets the counters for the next window.
func (c *Collector) Flush(currentTick int64, voltages []float64) WindowStats {
	d := Describe(voltages)
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Spikes:      c.spikes,
		Divergences: c.divergences,

		VoltageMean: d.Mean,
		VoltageStd:  d.Std,
		VoltageMin:  d.Min,
		VoltageMax:  d.Max,
		VoltageP10:  d.P10,
		VoltageP50:  d.P50,
		VoltageP90:  d.P90,
	}
	if elapsed := float64(currentTick-c.windowStartTick) * c.dt; elapsed > 0 {
		stats.SpikeRateHz = float64(c.spikes) / elapsed
	}

	c.windowStartTick = currentTick
	c.spikes = 0
	c.divergences = 0

	return stats
}

// Reset discards the current window and starts a new one at tick.
func (c *Collector) Reset(tick int64) {
	c.windowStartTick = tick
	c.spikes = 0
	c.divergences = 0
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
