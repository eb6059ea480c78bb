package devicebridge

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/app/config"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

type collectorSink struct {
	mu   sync.Mutex
	recs []*domain.Record
}

func (c *collectorSink) Name() string { return "collector" }

func (c *collectorSink) Write(rec *domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return nil
}

func (c *collectorSink) Close() error { return nil }

func (c *collectorSink) records() []*domain.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.Record, len(c.recs))
	copy(out, c.recs)
	return out
}

func quietObs() *observability.Obs {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return observability.New(log)
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Simulation: config.SimulationConfig{
			DurationMinutes: 0.01, // 600ms
			OutputDirectory: t.TempDir(),
			Seed:            42,
		},
		Devices: map[string]config.DeviceConfig{
			"infusion_pump": {Enabled: true, Count: 1, UpdateIntervalRange: [2]float64{0.01, 0.02}},
		},
		DataSinks: config.SinksConfig{
			Console: config.ConsoleSinkConfig{Enabled: true, Format: "simple"},
			File:    config.FileSinkConfig{Enabled: true, Format: "jsonl", Directory: t.TempDir()},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestRuntimeEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	collector := &collectorSink{}
	var console bytes.Buffer

	rt, err := NewRuntime(cfg,
		WithObservability(quietObs()),
		WithConsoleWriter(&console),
		WithSink(collector))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	recs := collector.records()
	if len(recs) == 0 {
		t.Fatalf("no records delivered")
	}

	prevVolume := -1.0
	for i, rec := range recs {
		if rec.DeviceID != "infusion_pump_001" {
			t.Fatalf("record %d: unexpected device %s", i, rec.DeviceID)
		}
		flow := rec.Field("flow_rate").(float64)
		if flow < 0 || flow > 10 {
			t.Fatalf("record %d: flow_rate %v out of range", i, flow)
		}
		volume := rec.Field("volume_infused").(float64)
		if volume < prevVolume {
			t.Fatalf("record %d: volume_infused decreased from %v to %v", i, prevVolume, volume)
		}
		prevVolume = volume
	}

	if got := rt.Stats().Total(); got != int64(len(recs)) {
		t.Fatalf("stats total %d does not match delivered %d", got, len(recs))
	}

	if console.Len() == 0 {
		t.Fatalf("console sink produced no output")
	}

	matches, err := filepath.Glob(filepath.Join(cfg.Simulation.OutputDirectory, "simulation_stats_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one stats artifact, got %v (%v)", matches, err)
	}
	files, err := filepath.Glob(filepath.Join(cfg.DataSinks.File.Directory, "infusion_pump_data.jsonl"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected pump jsonl file, got %v (%v)", files, err)
	}
}

func TestRuntimeContextCancelStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.DurationMinutes = 60

	collector := &collectorSink{}
	rt, err := NewRuntime(cfg,
		WithObservability(quietObs()),
		WithConsoleWriter(io.Discard),
		WithSink(collector))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
}

func TestRuntimeScenarioFailureSuppressesRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenarios = map[string]config.ScenarioConfig{
		"all_fail": {Description: "every emit fails", DeviceFailureProbability: 1.0},
	}

	collector := &collectorSink{}
	rt, err := NewRuntime(cfg,
		WithObservability(quietObs()),
		WithConsoleWriter(io.Discard),
		WithSink(collector),
		WithScenario("all_fail"))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(collector.records()); got != 0 {
		t.Fatalf("injected failures should suppress every record, got %d", got)
	}
}

func TestRuntimeRejectsUnknownScenario(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewRuntime(cfg, WithObservability(quietObs()), WithScenario("apocalypse")); err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
}

func TestRuntimeRequiresDevices(t *testing.T) {
	cfg := testConfig(t)
	dev := cfg.Devices["infusion_pump"]
	dev.Enabled = false
	cfg.Devices["infusion_pump"] = dev

	if _, err := NewRuntime(cfg, WithObservability(quietObs())); err == nil {
		t.Fatalf("expected error when no device is enabled")
	}
}

func TestRuntimeSinkToggleDuringRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataSinks.File.Enabled = false

	collector := &collectorSink{}
	var console bytes.Buffer
	rt, err := NewRuntime(cfg,
		WithObservability(quietObs()),
		WithConsoleWriter(&console),
		WithSink(collector))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	if err := rt.Sinks().Disable("console"); err != nil {
		t.Fatalf("disable console: %v", err)
	}
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if console.Len() != 0 {
		t.Fatalf("disabled console received output")
	}
	if len(collector.records()) == 0 {
		t.Fatalf("collector should keep receiving while console is disabled")
	}
}
