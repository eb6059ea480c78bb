package cli

import (
	"github.com/spf13/cobra"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/app/config"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// The mode commands ignore the configuration file and build a fixed
// profile in memory; the shared flags still apply on top.

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Two minute smoke run with a handful of devices",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := modeConfig(2, map[domain.DeviceType]int{
			domain.DeviceTypeInfusionPump: 2,
			domain.DeviceTypePatientBed:   2,
			domain.DeviceTypeVitalSigns:   1,
		})
		cfg.DataSinks.Console.Format = "simple"
		applyOverrides(cfg)
		simulate(cfg, "")
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Ten minute demo with a full ward of devices",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := modeConfig(10, map[domain.DeviceType]int{
			domain.DeviceTypeInfusionPump: 10,
			domain.DeviceTypePatientBed:   8,
			domain.DeviceTypeVitalSigns:   5,
		})
		cfg.DataSinks.Console.Format = "detailed"
		applyOverrides(cfg)
		simulate(cfg, "")
	},
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Five minute high volume run, console disabled",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := modeConfig(5, map[domain.DeviceType]int{
			domain.DeviceTypeInfusionPump: 50,
			domain.DeviceTypePatientBed:   30,
			domain.DeviceTypeVitalSigns:   20,
		})
		cfg.DataSinks.Console.Enabled = false
		applyOverrides(cfg)
		simulate(cfg, "")
	},
}

func modeConfig(minutes float64, counts map[domain.DeviceType]int) *config.Config {
	cfg := config.Default()
	cfg.Simulation.DurationMinutes = minutes
	for dt, n := range counts {
		dev := cfg.Devices[string(dt)]
		dev.Enabled = true
		dev.Count = n
		cfg.Devices[string(dt)] = dev
	}
	return cfg
}
