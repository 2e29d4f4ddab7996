// Package config provides configuration loading and access for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/reuron/neuron"
	"github.com/pthm-cable/reuron/stimulus"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulator configuration parameters.
type Config struct {
	Simulation    SimulationConfig `yaml:"simulation"`
	Extracellular SolutionConfig   `yaml:"extracellular"`
	Synapse       SynapseConfig    `yaml:"synapse"`
	Junction      JunctionConfig   `yaml:"junction"`
	Stimulus      StimulusConfig   `yaml:"stimulus"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
	Plot          PlotConfig       `yaml:"plot"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds integration parameters.
type SimulationConfig struct {
	DT                float64 `yaml:"dt"` // seconds
	TemperatureK      float64 `yaml:"temperature_k"`
	Steps             int     `yaml:"steps"`
	StepsPerUpdate    int     `yaml:"steps_per_update"`
	Parallel          bool    `yaml:"parallel"`
	Workers           int     `yaml:"workers"` // 0 = GOMAXPROCS
	ParallelThreshold int     `yaml:"parallel_threshold"`
}

// SolutionConfig holds ion concentrations in mol/L.
type SolutionConfig struct {
	Na float64 `yaml:"na"`
	K  float64 `yaml:"k"`
	Ca float64 `yaml:"ca"`
	Cl float64 `yaml:"cl"`
}

// SynapseConfig selects how synaptic current reaches its target.
type SynapseConfig struct {
	Drive          string  `yaml:"drive"`
	ResistanceOhms float64 `yaml:"resistance_ohms"`
}

// JunctionConfig holds the pore conductance density.
type JunctionConfig struct {
	ConductancePerSquareCm float64 `yaml:"conductance_per_square_cm"`
}

// StimulusConfig describes the default stimulator. Only the fields of the
// selected shape are read.
type StimulusConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Period    float64 `yaml:"period"`
	Onset     float64 `yaml:"onset"`
	Offset    float64 `yaml:"offset"`
	Shape     string  `yaml:"shape"`
	On        float64 `yaml:"on"`
	Off       float64 `yaml:"off"`
	Start     float64 `yaml:"start"`
	End       float64 `yaml:"end"`
	Amplitude float64 `yaml:"amplitude"`
	Baseline  float64 `yaml:"baseline"`
	StartHz   float64 `yaml:"start_hz"`
	EndHz     float64 `yaml:"end_hz"`
}

// TelemetryConfig holds trace and performance output parameters.
type TelemetryConfig struct {
	SampleEvery    int     `yaml:"sample_every"`
	StatsWindow    float64 `yaml:"stats_window"` // simulated seconds per stats window
	RingSize       int     `yaml:"ring_size"`
	PerfWindow     int     `yaml:"perf_window"`
	OutputDir      string  `yaml:"output_dir"`
	DBPath         string  `yaml:"db_path"`
	SpikeThreshold float64 `yaml:"spike_threshold"` // mV
}

// PlotConfig holds terminal plot dimensions.
type PlotConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Environment   neuron.Environment
	Coupling      neuron.Coupling
	Stimulator    stimulus.Stimulator
	Workers       int     // resolved worker count
	BatchDuration float64 // seconds simulated per runner update
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Set replaces the global configuration, e.g. after CLI overrides.
func Set(c *Config) { global = c }

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it again
// after changing fields.
func (c *Config) Finalize() error {
	if !(c.Simulation.DT > 0) {
		return fmt.Errorf("simulation.dt must be positive, got %g", c.Simulation.DT)
	}
	if c.Simulation.StepsPerUpdate <= 0 {
		return fmt.Errorf("simulation.steps_per_update must be positive, got %d", c.Simulation.StepsPerUpdate)
	}
	if c.Telemetry.SampleEvery <= 0 {
		c.Telemetry.SampleEvery = 1
	}
	return c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.Environment = neuron.Environment{
		TemperatureK: c.Simulation.TemperatureK,
		Extracellular: neuron.Solution{
			Na: c.Extracellular.Na,
			K:  c.Extracellular.K,
			Ca: c.Extracellular.Ca,
			Cl: c.Extracellular.Cl,
		},
	}

	if err := c.Derived.Environment.Extracellular.Validate(); err != nil {
		return fmt.Errorf("extracellular: %w", err)
	}
	if c.Simulation.TemperatureK <= 0 {
		return fmt.Errorf("simulation.temperature_k %g: %w", c.Simulation.TemperatureK, neuron.ErrNonPositiveTemperature)
	}

	drive, err := neuron.ParseDriveMode(c.Synapse.Drive)
	if err != nil {
		return fmt.Errorf("synapse.drive: %w", err)
	}
	c.Derived.Coupling = neuron.Coupling{
		JunctionConductancePerSquareCm: c.Junction.ConductancePerSquareCm,
		SynapseDrive:                   drive,
		SynapseResistanceOhms:          c.Synapse.ResistanceOhms,
	}

	stim, err := c.Stimulus.Stimulator()
	if err != nil {
		return err
	}
	c.Derived.Stimulator = stim

	c.Derived.Workers = c.Simulation.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
	c.Derived.BatchDuration = c.Simulation.DT * float64(c.Simulation.StepsPerUpdate)
	return nil
}

// Stimulator builds the configured waveform.
func (s StimulusConfig) Stimulator() (stimulus.Stimulator, error) {
	stim, err := stimulus.New(s.Shape,
		stimulus.Envelope{Period: s.Period, Onset: s.Onset, Offset: s.Offset},
		stimulus.Shape{
			On: s.On, Off: s.Off,
			Start: s.Start, End: s.End,
			Amplitude: s.Amplitude, Baseline: s.Baseline,
			StartHz: s.StartHz, EndHz: s.EndHz,
		})
	if err != nil {
		return stimulus.Stimulator{}, fmt.Errorf("stimulus: %w", err)
	}
	return stim, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
