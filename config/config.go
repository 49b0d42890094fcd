// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Cull policies for dead nodes.
const (
	CullDeferred  = "deferred"  // dead nodes stay in the registry until the generation boundary
	CullImmediate = "immediate" // dead nodes are removed the tick they die
)

// Responses to a fully dead population.
const (
	OnExtinctionHalt     = "halt"
	OnExtinctionReseed   = "reseed"
	OnExtinctionContinue = "continue"
)

// Parent selection strategies.
const (
	SelectorElite      = "elite"
	SelectorTournament = "tournament"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Grid       GridConfig       `yaml:"grid"`
	Battery    BatteryConfig    `yaml:"battery"`
	Solar      SolarConfig      `yaml:"solar"`
	Load       LoadConfig       `yaml:"load"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Genesis    GenesisConfig    `yaml:"genesis"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds clock and run-control parameters.
type SimulationConfig struct {
	Seed              int64   `yaml:"seed"`               // 0 = derive from wall clock
	TickSeconds       float64 `yaml:"tick_seconds"`       // simulated seconds advanced per tick
	SecondsPerHour    float64 `yaml:"seconds_per_hour"`   // simulated seconds per solar hour
	StartHour         float64 `yaml:"start_hour"`         // hour of day at tick zero
	GenerationSeconds float64 `yaml:"generation_seconds"` // simulated seconds between generation boundaries
	MaxGenerations    int     `yaml:"max_generations"`    // 0 = unbounded
	Cull              string  `yaml:"cull"`               // deferred | immediate
	OnExtinction      string  `yaml:"on_extinction"`      // halt | reseed | continue
}

// GridConfig holds spatial placement parameters.
// Population size is width*height; every slot is filled each generation.
type GridConfig struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Spacing float64 `yaml:"spacing"` // world units between adjacent nodes
}

// BatteryConfig holds default battery parameters for untiered nodes.
type BatteryConfig struct {
	CapacityWh    float64 `yaml:"capacity_wh"`
	InitialCharge float64 `yaml:"initial_charge"` // fraction of capacity at spawn, (0,1]
}

// SolarConfig holds global harvesting parameters.
type SolarConfig struct {
	Availability float64 `yaml:"availability"` // global scalar on harvest power; 0 disables harvesting
}

// LoadConfig holds global load parameters.
type LoadConfig struct {
	BaseLoadW float64 `yaml:"base_load_w"` // >0 replaces every profile's idle draw
}

// EvolutionConfig holds selection and breeding parameters.
type EvolutionConfig struct {
	Selector      string         `yaml:"selector"`       // elite | tournament
	EliteFraction float64        `yaml:"elite_fraction"` // top fraction eligible as parents
	TournamentK   int            `yaml:"tournament_k"`
	Fitness       FitnessConfig  `yaml:"fitness"`
	Mutation      MutationConfig `yaml:"mutation"`
}

// FitnessConfig holds fitness weighting parameters.
type FitnessConfig struct {
	SurvivalWeight float64 `yaml:"survival_weight"` // per second alive
	WorkWeight     float64 `yaml:"work_weight"`     // per unit of accuracy-weighted work
}

// MutationConfig holds gene perturbation parameters.
type MutationConfig struct {
	DutyStep       float64 `yaml:"duty_step"`        // max |delta| for duty cycle
	SolarStep      float64 `yaml:"solar_step"`       // max |delta| for solar modifier
	RateStep       float64 `yaml:"rate_step"`        // max |delta| for mutation rate
	ModelSwapProb  float64 `yaml:"model_swap_prob"`  // chance of picking a new model
	PolicySwapProb float64 `yaml:"policy_swap_prob"` // chance of picking a new power policy
	RateMin        float64 `yaml:"rate_min"`         // mutation rate lower bound
	RateMax        float64 `yaml:"rate_max"`         // mutation rate upper bound
}

// GenesisConfig holds the seed distribution for generation-zero genes.
type GenesisConfig struct {
	DutyMin      float64 `yaml:"duty_min"`
	DutyMax      float64 `yaml:"duty_max"`
	SolarMin     float64 `yaml:"solar_min"`
	SolarMax     float64 `yaml:"solar_max"`
	MutationRate float64 `yaml:"mutation_rate"` // initial rate for all founders
}

// HardwareConfig holds the tier distribution for spawned nodes.
// An empty mix disables tiers; all nodes then use battery.capacity_wh
// and harvest uncapped.
type HardwareConfig struct {
	Mix map[string]float64 `yaml:"mix"` // tier id -> spawn weight
}

// TelemetryConfig holds output parameters. Empty paths disable a sink.
type TelemetryConfig struct {
	WindowTicks   int    `yaml:"window_ticks"`
	StatsCSV      string `yaml:"stats_csv"`
	GenerationCSV string `yaml:"generation_csv"`
	SnapshotPath  string `yaml:"snapshot_path"`
	SnapshotEvery int    `yaml:"snapshot_every"` // ticks between snapshots; 0 = final only
	HistoryDSN    string `yaml:"history_dsn"`    // sqlite file path; empty = off
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	PopulationSize     int // Grid.Width * Grid.Height
	TicksPerGeneration int // GenerationSeconds / TickSeconds, floored, min 1
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

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects structurally broken scenarios. Bad physics parameters
// must abort initialization, never run.
func (c *Config) validate() error {
	if c.Simulation.TickSeconds <= 0 {
		return fmt.Errorf("config: simulation.tick_seconds must be > 0, got %v", c.Simulation.TickSeconds)
	}
	if c.Simulation.SecondsPerHour <= 0 {
		return fmt.Errorf("config: simulation.seconds_per_hour must be > 0, got %v", c.Simulation.SecondsPerHour)
	}
	if c.Simulation.GenerationSeconds < c.Simulation.TickSeconds {
		return fmt.Errorf("config: simulation.generation_seconds %v shorter than one tick", c.Simulation.GenerationSeconds)
	}
	switch c.Simulation.Cull {
	case CullDeferred, CullImmediate:
	default:
		return fmt.Errorf("config: simulation.cull must be %q or %q, got %q", CullDeferred, CullImmediate, c.Simulation.Cull)
	}
	switch c.Simulation.OnExtinction {
	case OnExtinctionHalt, OnExtinctionReseed, OnExtinctionContinue:
	default:
		return fmt.Errorf("config: simulation.on_extinction must be halt, reseed or continue, got %q", c.Simulation.OnExtinction)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("config: grid dimensions must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Battery.CapacityWh <= 0 {
		return fmt.Errorf("config: battery.capacity_wh must be > 0, got %v", c.Battery.CapacityWh)
	}
	if c.Battery.InitialCharge <= 0 || c.Battery.InitialCharge > 1 {
		return fmt.Errorf("config: battery.initial_charge must be in (0,1], got %v", c.Battery.InitialCharge)
	}
	if c.Solar.Availability < 0 {
		return fmt.Errorf("config: solar.availability must be >= 0, got %v", c.Solar.Availability)
	}
	switch c.Evolution.Selector {
	case SelectorElite, SelectorTournament:
	default:
		return fmt.Errorf("config: evolution.selector must be %q or %q, got %q", SelectorElite, SelectorTournament, c.Evolution.Selector)
	}
	if c.Evolution.EliteFraction <= 0 || c.Evolution.EliteFraction > 1 {
		return fmt.Errorf("config: evolution.elite_fraction must be in (0,1], got %v", c.Evolution.EliteFraction)
	}
	if c.Evolution.TournamentK < 1 {
		return fmt.Errorf("config: evolution.tournament_k must be >= 1, got %d", c.Evolution.TournamentK)
	}
	m := c.Evolution.Mutation
	if m.RateMin <= 0 || m.RateMax > 1 || m.RateMin > m.RateMax {
		return fmt.Errorf("config: mutation rate bounds [%v,%v] invalid", m.RateMin, m.RateMax)
	}
	g := c.Genesis
	if g.DutyMin < 0 || g.DutyMax > 1 || g.DutyMin > g.DutyMax {
		return fmt.Errorf("config: genesis duty range [%v,%v] invalid", g.DutyMin, g.DutyMax)
	}
	if g.SolarMin <= 0 || g.SolarMin > g.SolarMax || g.SolarMax > 1.3 {
		return fmt.Errorf("config: genesis solar range [%v,%v] invalid", g.SolarMin, g.SolarMax)
	}
	if g.MutationRate < m.RateMin || g.MutationRate > m.RateMax {
		return fmt.Errorf("config: genesis.mutation_rate %v outside rate bounds [%v,%v]", g.MutationRate, m.RateMin, m.RateMax)
	}
	for tier, w := range c.Hardware.Mix {
		if w < 0 {
			return fmt.Errorf("config: hardware.mix[%s] weight must be >= 0, got %v", tier, w)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.PopulationSize = c.Grid.Width * c.Grid.Height

	ticks := int(c.Simulation.GenerationSeconds / c.Simulation.TickSeconds)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.TicksPerGeneration = ticks
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
