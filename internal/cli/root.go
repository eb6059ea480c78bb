// Package cli wires the devicebridge commands: run, the quick/demo/
// stress shortcuts, scenario playback, and config validation.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/app/config"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/pkg/devicebridge"
)

var (
	configPath      string
	durationMinutes float64
	devicesPerType  int
	quiet           bool
)

var rootCmd = &cobra.Command{
	Use:   "devicebridge",
	Short: "Synthetic medical device telemetry simulator",
	Long: "devicebridge simulates fleets of infusion pumps, patient beds and " +
		"vital signs monitors and fans their telemetry out to console, file, " +
		"database and HTTP sinks.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		runSimulation("")
	},
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario <name>",
	Short: "Run a named scenario from the configuration file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSimulation(args[0])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := devicebridge.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}
		logrus.Infof("configuration ok: %d device groups, output %s",
			len(cfg.Devices), cfg.Simulation.OutputDirectory)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().Float64VarP(&durationMinutes, "duration", "d", 0, "override simulation duration in minutes")
	rootCmd.PersistentFlags().IntVarP(&devicesPerType, "devices-per-type", "n", 0, "override the device count for every enabled type")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disable the console sink")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(quickCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(validateCmd)
}

// Execute runs the CLI; command errors exit non-zero via cobra.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func runSimulation(scenario string) {
	cfg, err := devicebridge.LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("load configuration: %v", err)
	}
	applyOverrides(cfg)
	simulate(cfg, scenario)
}

// applyOverrides folds the shared CLI flags into a loaded configuration.
func applyOverrides(cfg *config.Config) {
	if durationMinutes > 0 {
		cfg.Simulation.DurationMinutes = durationMinutes
	}
	if devicesPerType > 0 {
		cfg.Simulation.DevicesPerType = devicesPerType
		for name, dev := range cfg.Devices {
			dev.Count = devicesPerType
			cfg.Devices[name] = dev
		}
	}
	if quiet {
		cfg.DataSinks.Console.Enabled = false
	}
}

func simulate(cfg *config.Config, scenario string) {
	var opts []devicebridge.Option
	if scenario != "" {
		opts = append(opts, devicebridge.WithScenario(scenario))
	}

	rt, err := devicebridge.NewRuntime(cfg, opts...)
	if err != nil {
		logrus.Fatalf("setup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		logrus.Fatalf("simulation: %v", err)
	}
}
