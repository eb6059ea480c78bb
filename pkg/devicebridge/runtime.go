package devicebridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/devices"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	sinkadapter "github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/sink"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/app/config"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/app/simulator"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// Config re-exports the configuration root for programmatic callers.
type Config = config.Config

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Option customizes the dependencies assembled by NewRuntime.
type Option func(*overrides)

type overrides struct {
	obs           ports.Observability
	consoleWriter io.Writer
	extraSinks    []ports.Sink
	scenario      string
}

// WithObservability replaces the default logrus+Prometheus backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// WithConsoleWriter redirects console sink output; tests use this to
// capture formatted records.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *overrides) { o.consoleWriter = w }
}

// WithSink appends an extra sink to the fan-out after the configured
// ones.
func WithSink(s ports.Sink) Option {
	return func(o *overrides) { o.extraSinks = append(o.extraSinks, s) }
}

// WithScenario activates a named scenario from the configuration;
// an unknown name is a setup error.
func WithScenario(name string) Option {
	return func(o *overrides) { o.scenario = name }
}

// Runtime wires device runners to the sink fan-out and owns the whole
// lifecycle: start, periodic progress stats, graceful stop, final
// stats artifact.
type Runtime struct {
	cfg        *config.Config
	obs        ports.Observability
	devices    *simulator.Registry
	sinks      *sinkadapter.Registry
	stats      *simulator.Stats
	metricsSrv *http.Server
}

// NewRuntime assembles sinks and device runners from the configuration.
// All setup failures here are fatal; nothing starts simulating until
// this succeeds.
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.obs
	if obs == nil {
		obs = observability.New(logrus.StandardLogger())
	}

	var scenario *config.ScenarioConfig
	if o.scenario != "" {
		sc, ok := cfg.Scenarios[o.scenario]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", o.scenario)
		}
		scenario = &sc
		obs.LogInfo("scenario_selected",
			ports.Field{Key: "scenario", Value: o.scenario},
			ports.Field{Key: "description", Value: sc.Description})
	}

	sinks, err := buildSinks(cfg, o, obs)
	if err != nil {
		return nil, err
	}

	registry := simulator.NewRegistry(obs)
	if err := populateDevices(registry, cfg, scenario); err != nil {
		return nil, err
	}

	stats := simulator.NewStats()
	registry.Subscribe(stats.Record)
	registry.Subscribe(sinks.WriteToAll)

	rt := &Runtime{
		cfg:     cfg,
		obs:     obs,
		devices: registry,
		sinks:   sinks,
		stats:   stats,
	}

	if cfg.Metrics.Enabled {
		rt.metricsSrv = metricsServer(cfg.Metrics.Addr, obs)
	}
	return rt, nil
}

func buildSinks(cfg *config.Config, o overrides, obs ports.Observability) (*sinkadapter.Registry, error) {
	registry := sinkadapter.NewRegistry(obs)

	if cfg.DataSinks.Console.Enabled {
		console, err := sinkadapter.NewConsoleSink(cfg.DataSinks.Console.Format, o.consoleWriter)
		if err != nil {
			return nil, err
		}
		registry.Add(console)
	}
	if cfg.DataSinks.File.Enabled {
		file, err := sinkadapter.NewFileSink(cfg.DataSinks.File.Directory, cfg.DataSinks.File.Format)
		if err != nil {
			return nil, err
		}
		registry.Add(file)
	}
	if cfg.DataSinks.Database.Enabled {
		db, err := sinkadapter.NewDatabaseSink(cfg.DataSinks.Database.Driver, cfg.DatabaseDSN())
		if err != nil {
			return nil, err
		}
		registry.Add(db)
	}
	if cfg.DataSinks.API.Enabled {
		api, err := sinkadapter.NewAPISink(sinkadapter.APIConfig{
			URL:       cfg.DataSinks.API.URL,
			AuthToken: cfg.DataSinks.API.AuthToken,
			BatchSize: cfg.DataSinks.API.BatchSize,
		}, obs)
		if err != nil {
			return nil, err
		}
		registry.Add(api)
	}
	for _, s := range o.extraSinks {
		registry.Add(s)
	}
	return registry, nil
}

func populateDevices(registry *simulator.Registry, cfg *config.Config, scenario *config.ScenarioConfig) error {
	masterSeed := cfg.Simulation.Seed
	if masterSeed == 0 {
		masterSeed = time.Now().UnixNano()
	}
	setup := rand.New(rand.NewSource(masterSeed))

	for _, dt := range domain.DeviceTypes() {
		devCfg, ok := cfg.Devices[string(dt)]
		if !ok || !devCfg.Enabled {
			continue
		}
		lo, hi := devCfg.UpdateIntervalRange[0], devCfg.UpdateIntervalRange[1]

		for i := 0; i < devCfg.Count; i++ {
			interval := lo + setup.Float64()*(hi-lo)
			deviceCfg := domain.DeviceConfig{
				DeviceID:     fmt.Sprintf("%s_%03d", dt, i+1),
				DeviceType:   dt,
				Location:     fmt.Sprintf("Room_%d", 100+setup.Intn(900)),
				TickInterval: time.Duration(interval * float64(time.Second)),
				Enabled:      true,
			}

			seed := setup.Int63()
			gen, err := devices.New(deviceCfg, seed)
			if err != nil {
				return err
			}
			if scenario != nil {
				gen = devices.NewScenarioInjector(gen, setup.Int63(),
					scenario.AlarmProbability, scenario.DeviceFailureProbability)
			}
			registry.Add(deviceCfg, gen)
		}
	}

	if registry.Count() == 0 {
		return fmt.Errorf("no devices configured")
	}
	return nil
}

func metricsServer(addr string, obs ports.Observability) *http.Server {
	mux := http.NewServeMux()
	if o, ok := obs.(*observability.Obs); ok {
		mux.Handle("/metrics", promhttp.HandlerFor(o.Registry(), promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

// Devices exposes the simulation registry for inspection.
func (rt *Runtime) Devices() *simulator.Registry { return rt.devices }

// Sinks exposes the sink registry for enable/disable control.
func (rt *Runtime) Sinks() *sinkadapter.Registry { return rt.sinks }

// Stats exposes the live delivery counters.
func (rt *Runtime) Stats() *simulator.Stats { return rt.stats }

// Run starts every device runner and blocks until the configured
// duration elapses or the context is cancelled, then shuts down
// gracefully.
func (rt *Runtime) Run(ctx context.Context) error {
	duration := time.Duration(rt.cfg.Simulation.DurationMinutes * float64(time.Minute))

	rt.stats.MarkStart(time.Now())
	rt.devices.StartAll()
	rt.startMetrics()

	rt.obs.LogInfo("simulation_started",
		ports.Field{Key: "devices", Value: rt.devices.Count()},
		ports.Field{Key: "duration", Value: duration.String()})

	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	progress := time.NewTicker(30 * time.Second)
	defer progress.Stop()

	for {
		select {
		case <-ctx.Done():
			return rt.shutdown()
		case <-deadline.C:
			return rt.shutdown()
		case <-progress.C:
			rt.obs.LogInfo("simulation_progress",
				ports.Field{Key: "total_messages", Value: rt.stats.Total()})
		}
	}
}

func (rt *Runtime) startMetrics() {
	if rt.metricsSrv == nil {
		return
	}
	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.obs.LogError("metrics_server_exited", err)
		}
	}()
}

// shutdown stops runners first so no record is generated after the
// sinks begin closing, then persists the stats artifact.
func (rt *Runtime) shutdown() error {
	rt.devices.StopAll()
	rt.stats.MarkEnd(time.Now())

	var errs []error
	if err := rt.sinks.CloseAll(); err != nil {
		errs = append(errs, err)
	}

	if path, err := rt.stats.WriteFile(rt.cfg.Simulation.OutputDirectory); err != nil {
		errs = append(errs, err)
	} else {
		rt.obs.LogInfo("stats_written", ports.Field{Key: "path", Value: path})
	}

	if rt.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.metricsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	snap := rt.stats.Snapshot()
	rt.obs.LogInfo("simulation_finished",
		ports.Field{Key: "total_messages", Value: snap.TotalMessages})
	return errors.Join(errs...)
}
