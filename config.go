package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// MarketConfig picks a preset and optionally overrides single fields of it
type MarketConfig struct {
	Preset    string          `yaml:"preset" json:"preset"` // "" = default
	Overrides MarketOverrides `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// Resolve returns the preset's assumptions with overrides applied
func (m MarketConfig) Resolve() (MarketAssumptions, error) {
	market := DefaultMarketAssumptions()
	if m.Preset != "" {
		preset := GetMarketPreset(m.Preset)
		if preset == nil {
			return MarketAssumptions{}, ValidationError{Field: "market.preset",
				Message: fmt.Sprintf("Unknown market preset %q (choose from %s)", m.Preset, strings.Join(MarketPresetIDs(), ", "))}
		}
		market = preset.Market
	}
	market = market.overlay(m.Overrides)
	if err := market.Validate(); err != nil {
		return MarketAssumptions{}, err
	}
	return market, nil
}

// LifeEventsConfig holds the event model. Omitting the section uses the
// defaults; enabled: false turns events off.
type LifeEventsConfig struct {
	Enabled        *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	LifeEventModel `yaml:",inline"`
}

// IsEnabled returns whether life events are simulated (default: true)
func (c LifeEventsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Model returns the event model to simulate with
func (c LifeEventsConfig) Model() LifeEventModel {
	if !c.IsEnabled() {
		return LifeEventModel{}
	}
	if c.LifeEventModel == (LifeEventModel{}) {
		return DefaultLifeEvents()
	}
	return c.LifeEventModel
}

// Validate checks the model that would be simulated
func (c LifeEventsConfig) Validate() error {
	return c.Model().Validate()
}

// SimulationConfig holds Monte Carlo parameters
type SimulationConfig struct {
	Runs    int    `yaml:"runs" json:"runs"`       // 0 = 1000
	Seed    uint64 `yaml:"seed" json:"seed"`       // 0 = random, reported in the summary
	Workers int    `yaml:"workers" json:"workers"` // 0 = one per CPU
}

// AdvisorConfig controls improvement suggestions
type AdvisorConfig struct {
	Reevaluate     bool `yaml:"reevaluate" json:"reevaluate"` // re-run the simulation per suggestion instead of estimating
	Runs           int  `yaml:"runs" json:"runs"`             // runs per re-evaluation; 0 = simulation.runs
	MaxSuggestions int  `yaml:"max_suggestions" json:"max_suggestions"`
}

// LedgerConfig selects the bucket ledger store
type LedgerConfig struct {
	Store         string `yaml:"store" json:"store"` // "sqlite" or "memory"
	Path          string `yaml:"path" json:"path"`
	RepaymentCron string `yaml:"repayment_cron" json:"repayment_cron"` // "" disables automatic repayments
}

// Config is the full planner configuration
type Config struct {
	Profile    FinancialProfile  `yaml:"profile" json:"profile"`
	Market     MarketConfig      `yaml:"market" json:"market"`
	LifeEvents LifeEventsConfig  `yaml:"life_events" json:"life_events"`
	Simulation SimulationConfig  `yaml:"simulation" json:"simulation"`
	Outcome    OutcomeThresholds `yaml:"outcome" json:"outcome"`
	Advisor    AdvisorConfig     `yaml:"advisor" json:"advisor"`
	Ledger     LedgerConfig      `yaml:"ledger" json:"ledger"`
}

// SimulationOptions builds Monte Carlo options from the config
func (c *Config) SimulationOptions() (SimulationOptions, error) {
	market, err := c.Market.Resolve()
	if err != nil {
		return SimulationOptions{}, err
	}
	events := c.LifeEvents.Model()
	return SimulationOptions{
		Runs:       c.Simulation.Runs,
		Seed:       c.Simulation.Seed,
		Workers:    c.Simulation.Workers,
		Market:     &market,
		Events:     &events,
		Thresholds: c.Outcome,
	}, nil
}

// AdvisorOptions builds advisor options around the options a summary was
// produced with
func (c *Config) AdvisorOptions(sim SimulationOptions) AdvisorOptions {
	opts := AdvisorOptions{Thresholds: c.Outcome, Limit: c.Advisor.MaxSuggestions}
	if c.Advisor.Reevaluate {
		if c.Advisor.Runs > 0 {
			sim.Runs = c.Advisor.Runs
		}
		opts.Simulation = &sim
	}
	return opts
}

// Validate joins every problem ValidateSimulationConfig finds
func (c *Config) Validate() error {
	problems := ValidateSimulationConfig(c)
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := LoadDefaultConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(preprocessPercentages(string(data))), config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	header := []byte(`# Dream Planner Configuration
# Generated interactively - feel free to edit manually
#
# ═══════════════════════════════════════════════════════════════════════════════
# VALUE FORMATS
# ═══════════════════════════════════════════════════════════════════════════════
#   Rates: 0.07 or 7% (market means, volatilities and bounds)
#   Allocation: whole percentages summing to 100 (stocks: 70)
#   Money: dollars (e.g., 500000 = $500k)
#
# ═══════════════════════════════════════════════════════════════════════════════
# RUN COMMANDS
# ═══════════════════════════════════════════════════════════════════════════════
#   ./goDreamPlanner                          Run the Monte Carlo simulation
#   ./goDreamPlanner -suggest                 Add ranked improvement suggestions
#   ./goDreamPlanner -solve 80                Find the monthly saving for 80% success
#   ./goDreamPlanner -pdf                     Write a PDF plan
#   ./goDreamPlanner -web                     Start the web API
#   ./goDreamPlanner -balances                Show bucket balances
#   ./goDreamPlanner -help                    Show all options
#
# See default-config.yaml for all available options with detailed comments.

`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// LoadDefaultConfig loads the default configuration from embedded default-config.yaml
// It handles percentage format (e.g., "5%" -> 0.05)
func LoadDefaultConfig() (*Config, error) {
	content := preprocessPercentages(defaultConfigYAML)

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// preprocessPercentages converts percentage values like "5%" or "-35%" to decimals
func preprocessPercentages(content string) string {
	// Match patterns like: key: 5% or key: -3.5%
	// But not inside strings (already quoted)
	re := regexp.MustCompile(`(:\s*)(-?\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := strconv.ParseFloat(parts[2], 64)
			if err == nil {
				return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
			}
		}
		return match
	})
}

// EnvConfig is the runtime environment of the binary
type EnvConfig struct {
	Addr       string `env:"DREAMPLANNER_ADDR" envDefault:"localhost:8080"`
	DBPath     string `env:"DREAMPLANNER_DB"`
	ConfigFile string `env:"DREAMPLANNER_CONFIG" envDefault:"config.yaml"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadEnvConfig reads an optional .env file and then the environment
func LoadEnvConfig() (EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return EnvConfig{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
