// Package telemetry provides voltage traces, window statistics, performance
// timing and run output for the simulator.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventSpike EventType = iota
	EventDivergence
)

func (t EventType) String() string {
	switch t {
	case EventSpike:
		return "spike"
	case EventDivergence:
		return "divergence"
	default:
		return "unknown"
	}
}

// Event represents a single telemetry event at one segment.
type Event struct {
	Type    EventType
	Tick    int64
	Time    float64 // s
	Neuron  int
	Segment int
	Voltage float64 // mV
}

// NewSpikeEvent creates a spike event.
func NewSpikeEvent(tick int64, time float64, neuron, segment int, voltage float64) Event {
	return Event{Type: EventSpike, Tick: tick, Time: time, Neuron: neuron, Segment: segment, Voltage: voltage}
}

// NewDivergenceEvent creates an event for a rejected tick.
func NewDivergenceEvent(tick int64, time float64, neuron, segment int, voltage float64) Event {
	return Event{Type: EventDivergence, Tick: tick, Time: time, Neuron: neuron, Segment: segment, Voltage: voltage}
}
