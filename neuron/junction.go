package neuron

import "math"

// ConductancePerSquareCm is the default pore conductance density used to
// derive junction conductance from pore diameter.
const ConductancePerSquareCm = 1.0

// Junction electrically couples two segments of one neuron.
type Junction struct {
	A, B           int
	PoreDiameterCm float64
}

// Conductance returns the coupling conductance (S) for conductance density k.
func (j Junction) Conductance(k float64) float64 {
	return j.PoreDiameterCm * math.Pi * k
}

// Current returns the current (A) flowing from A to B for the given
// voltages in mV.
func (j Junction) Current(k, va, vb float64) float64 {
	return j.Conductance(k) * (va - vb) * 1e-3
}

// CouplingNumber returns the largest per-step voltage relaxation fraction
// the junctions impose on any segment: the sum of g·dt/C over the segment's
// junctions. Forward Euler coupling is stable while it stays at or below 1.
func (n *Neuron) CouplingNumber(dt float64) float64 {
	sum := make([]float64, len(n.segments))
	k := n.coupling.JunctionConductancePerSquareCm
	for _, j := range n.junctions {
		g := j.Conductance(k) * 1e-3 * dt
		sum[j.A] += g / n.segments[j.A].Capacitance()
		sum[j.B] += g / n.segments[j.B].Capacitance()
	}
	var worst float64
	for _, x := range sum {
		worst = math.Max(worst, x)
	}
	return worst
}

// StableDT returns the largest dt whose coupling number is at most 1, or
// +Inf when the neuron has no junctions.
func (n *Neuron) StableDT() float64 {
	c := n.CouplingNumber(1)
	if c == 0 {
		return math.Inf(1)
	}
	return 1 / c
}

// couplingSnapshot is the per-segment state every coupling in a phase
// reads from, with the deltas the phase writes.
type couplingSnapshot struct {
	voltage     []float64
	capacitance []float64
	delta       []float64
}

func (c *couplingSnapshot) take(segments []Segment) {
	n := len(segments)
	c.voltage = resize(c.voltage, n)
	c.capacitance = resize(c.capacitance, n)
	c.delta = resize(c.delta, n)
	for i := range segments {
		c.voltage[i] = segments[i].Voltage
		c.capacitance[i] = segments[i].Capacitance()
		c.delta[i] = 0
	}
}

func (c *couplingSnapshot) apply(segments []Segment) {
	for i := range segments {
		segments[i].Voltage += c.delta[i]
	}
}

// accumulateJunction adds one junction's charge transfer to the deltas.
func (c *couplingSnapshot) accumulateJunction(j Junction, k, dt float64) {
	i := j.Current(k, c.voltage[j.A], c.voltage[j.B])
	c.delta[j.A] -= i / c.capacitance[j.A] * dt
	c.delta[j.B] += i / c.capacitance[j.B] * dt
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
