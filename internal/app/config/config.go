package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// Config is the root simulation configuration document.
type Config struct {
	Simulation SimulationConfig          `yaml:"simulation"`
	Devices    map[string]DeviceConfig   `yaml:"devices"`
	DataSinks  SinksConfig               `yaml:"data_sinks"`
	Metrics    MetricsConfig             `yaml:"metrics"`
	Scenarios  map[string]ScenarioConfig `yaml:"scenarios"`
}

type SimulationConfig struct {
	DurationMinutes float64 `yaml:"duration_minutes"`
	DevicesPerType  int     `yaml:"devices_per_type"`
	OutputDirectory string  `yaml:"output_directory"`
	// Seed 0 means time-seeded; any other value makes every device's
	// random walk reproducible.
	Seed int64 `yaml:"seed"`
}

type DeviceConfig struct {
	Enabled             bool       `yaml:"enabled"`
	Count               int        `yaml:"count"`
	UpdateIntervalRange [2]float64 `yaml:"update_interval_range"` // seconds
}

type SinksConfig struct {
	Console  ConsoleSinkConfig  `yaml:"console"`
	File     FileSinkConfig     `yaml:"file"`
	Database DatabaseSinkConfig `yaml:"database"`
	API      APISinkConfig      `yaml:"api"`
}

type ConsoleSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
}

type FileSinkConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Format    string `yaml:"format"`
	Directory string `yaml:"directory"`
}

type DatabaseSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	// File is the sqlite database path; DSN overrides it for other
	// drivers.
	File string `yaml:"file"`
	DSN  string `yaml:"dsn"`
}

type APISinkConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
	BatchSize int    `yaml:"batch_size"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ScenarioConfig struct {
	Description              string  `yaml:"description"`
	AlarmProbability         float64 `yaml:"alarm_probability"`
	DeviceFailureProbability float64 `yaml:"device_failure_probability"`
}

// Load reads YAML from disk, applies defaults, and validates. A
// missing file yields the built-in default configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default mirrors the stock simulation profile: all three device
// types, console + file + database sinks on, API sink off.
func Default() *Config {
	cfg := &Config{
		Simulation: SimulationConfig{
			DurationMinutes: 60,
			DevicesPerType:  5,
			OutputDirectory: "simulation_data",
		},
		Devices: map[string]DeviceConfig{
			string(domain.DeviceTypeInfusionPump): {Enabled: true, Count: 5, UpdateIntervalRange: [2]float64{1, 3}},
			string(domain.DeviceTypePatientBed):   {Enabled: true, Count: 5, UpdateIntervalRange: [2]float64{2, 5}},
			string(domain.DeviceTypeVitalSigns):   {Enabled: true, Count: 3, UpdateIntervalRange: [2]float64{0.5, 2}},
		},
		DataSinks: SinksConfig{
			Console:  ConsoleSinkConfig{Enabled: true, Format: "detailed"},
			File:     FileSinkConfig{Enabled: true, Format: "jsonl", Directory: "simulation_data"},
			Database: DatabaseSinkConfig{Enabled: true, Driver: "sqlite", File: "simulation.db"},
			API:      APISinkConfig{Enabled: false, URL: "http://localhost:8080/api", BatchSize: 10},
		},
		Scenarios: map[string]ScenarioConfig{
			"normal_operation": {
				Description:              "Normal hospital operation",
				AlarmProbability:         0.05,
				DeviceFailureProbability: 0.01,
			},
			"high_activity": {
				Description:              "High patient activity period",
				AlarmProbability:         0.15,
				DeviceFailureProbability: 0.02,
			},
			"emergency": {
				Description:              "Emergency situation",
				AlarmProbability:         0.30,
				DeviceFailureProbability: 0.05,
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Simulation.DurationMinutes == 0 {
		c.Simulation.DurationMinutes = 60
	}
	if c.Simulation.DevicesPerType == 0 {
		c.Simulation.DevicesPerType = 5
	}
	if c.Simulation.OutputDirectory == "" {
		c.Simulation.OutputDirectory = "simulation_data"
	}
	if c.DataSinks.Console.Format == "" {
		c.DataSinks.Console.Format = "detailed"
	}
	if c.DataSinks.File.Format == "" {
		c.DataSinks.File.Format = "jsonl"
	}
	if c.DataSinks.File.Directory == "" {
		c.DataSinks.File.Directory = c.Simulation.OutputDirectory
	}
	if c.DataSinks.Database.Driver == "" {
		c.DataSinks.Database.Driver = "sqlite"
	}
	if c.DataSinks.Database.File == "" {
		c.DataSinks.Database.File = "simulation.db"
	}
	if c.DataSinks.API.BatchSize == 0 {
		c.DataSinks.API.BatchSize = 10
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	for name, dev := range c.Devices {
		if dev.UpdateIntervalRange == [2]float64{} {
			dev.UpdateIntervalRange = [2]float64{1, 3}
			c.Devices[name] = dev
		}
	}
}

// Validate rejects configurations that cannot start simulating; these
// are the only fatal errors in the system.
func (c *Config) Validate() error {
	for name, dev := range c.Devices {
		if _, err := domain.ParseDeviceType(name); err != nil {
			return err
		}
		if dev.Count < 0 {
			return fmt.Errorf("devices.%s: count must be >= 0", name)
		}
		lo, hi := dev.UpdateIntervalRange[0], dev.UpdateIntervalRange[1]
		if lo <= 0 || hi < lo {
			return fmt.Errorf("devices.%s: update_interval_range [%v, %v] is invalid", name, lo, hi)
		}
	}

	switch c.DataSinks.Console.Format {
	case "simple", "detailed", "json":
	default:
		return fmt.Errorf("data_sinks.console.format %q is invalid", c.DataSinks.Console.Format)
	}

	switch c.DataSinks.File.Format {
	case "jsonl", "csv":
	default:
		return fmt.Errorf("data_sinks.file.format %q is invalid", c.DataSinks.File.Format)
	}

	switch c.DataSinks.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("data_sinks.database.driver %q is invalid", c.DataSinks.Database.Driver)
	}

	if c.DataSinks.API.Enabled && c.DataSinks.API.URL == "" {
		return fmt.Errorf("data_sinks.api.url is required when the api sink is enabled")
	}

	for name, sc := range c.Scenarios {
		if sc.AlarmProbability < 0 || sc.AlarmProbability > 1 {
			return fmt.Errorf("scenarios.%s: alarm_probability must be in [0,1]", name)
		}
		if sc.DeviceFailureProbability < 0 || sc.DeviceFailureProbability > 1 {
			return fmt.Errorf("scenarios.%s: device_failure_probability must be in [0,1]", name)
		}
	}
	return nil
}

// DatabaseDSN resolves the connection string for the configured
// driver.
func (c *Config) DatabaseDSN() string {
	if c.DataSinks.Database.DSN != "" {
		return c.DataSinks.Database.DSN
	}
	return c.DataSinks.Database.File
}
