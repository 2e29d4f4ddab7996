package neuron

import "fmt"

// ChannelBuilder describes a channel type. A nil gate means the channel is
// always fully open along that axis.
type ChannelBuilder struct {
	Name         string
	Selectivity  IonSelectivity
	Activation   *GateParams
	Inactivation *GateParams
}

// Build instantiates the channel with its gates at steady state for v.
func (b ChannelBuilder) Build(v float64) (Channel, error) {
	sel, err := NewIonSelectivity(b.Selectivity.Na, b.Selectivity.K, b.Selectivity.Ca, b.Selectivity.Cl)
	if err != nil {
		return Channel{}, fmt.Errorf("channel %q: %w", b.Name, err)
	}
	ch := Channel{Selectivity: sel}
	if b.Activation != nil {
		if err := b.Activation.Validate(); err != nil {
			return Channel{}, fmt.Errorf("channel %q activation: %w", b.Name, err)
		}
		g := NewGate(*b.Activation, v)
		ch.Activation = &g
	}
	if b.Inactivation != nil {
		if err := b.Inactivation.Validate(); err != nil {
			return Channel{}, fmt.Errorf("channel %q inactivation: %w", b.Name, err)
		}
		g := NewGate(*b.Inactivation, v)
		ch.Inactivation = &g
	}
	return ch, nil
}

// MustBuild is like Build but panics on error. Intended for the built-in
// channel library.
func (b ChannelBuilder) MustBuild(v float64) Channel {
	ch, err := b.Build(v)
	if err != nil {
		panic(fmt.Sprintf("neuron: %v", err))
	}
	return ch
}

// Channel is a live channel instance.
type Channel struct {
	Activation   *Gate
	Inactivation *Gate
	Selectivity  IonSelectivity
}

// ConductanceCoefficient is the fraction of peak conductance currently open.
func (c *Channel) ConductanceCoefficient() float64 {
	coef := 1.0
	if c.Activation != nil {
		coef *= c.Activation.Contribution()
	}
	if c.Inactivation != nil {
		coef *= c.Inactivation.Contribution()
	}
	return coef
}

// Step advances both gates at voltage v.
func (c *Channel) Step(v, dt float64) {
	if c.Activation != nil {
		c.Activation.Step(v, dt)
	}
	if c.Inactivation != nil {
		c.Inactivation.Step(v, dt)
	}
}

func (c *Channel) eachGate(fn func(*Gate)) {
	if c.Activation != nil {
		fn(c.Activation)
	}
	if c.Inactivation != nil {
		fn(c.Inactivation)
	}
}
