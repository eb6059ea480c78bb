package simulator

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// stubGenerator emits records with a monotonically increasing tick
// field; failAlways simulates a broken device.
type stubGenerator struct {
	cfg        domain.DeviceConfig
	ticks      int
	failAlways bool
}

func (g *stubGenerator) Advance() { g.ticks++ }

func (g *stubGenerator) Emit() (*domain.Record, error) {
	if g.failAlways {
		return nil, fmt.Errorf("stub emit failure")
	}
	rec := domain.NewRecord(g.cfg.DeviceID, g.cfg.DeviceType, g.cfg.Location, time.Now(), "00000000")
	rec.Set("tick", g.ticks)
	return rec, nil
}

func runnerConfig(id string, interval time.Duration) domain.DeviceConfig {
	return domain.DeviceConfig{
		DeviceID:     id,
		DeviceType:   domain.DeviceTypeInfusionPump,
		Location:     "Room_101",
		TickInterval: interval,
		Enabled:      true,
	}
}

func testObs() *observability.Obs {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return observability.New(log)
}

func TestRunnerHistoryBounded(t *testing.T) {
	cfg := runnerConfig("pump_001", time.Second)
	gen := &stubGenerator{cfg: cfg}
	r := NewRunner(cfg, gen, nil)

	for i := 0; i < 150; i++ {
		r.tick()
	}

	history := r.History()
	if len(history) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(history))
	}
	if got := history[0].Field("tick"); got != 51 {
		t.Fatalf("oldest surviving record should be tick 51, got %v", got)
	}
	if got := history[99].Field("tick"); got != 150 {
		t.Fatalf("newest record should be tick 150, got %v", got)
	}
	if latest := r.Latest(); latest.Field("tick") != 150 {
		t.Fatalf("Latest should match newest history entry")
	}
}

func TestRunnerLatestNilBeforeFirstTick(t *testing.T) {
	cfg := runnerConfig("pump_001", time.Second)
	r := NewRunner(cfg, &stubGenerator{cfg: cfg}, nil)
	if r.Latest() != nil {
		t.Fatalf("expected nil before the first tick")
	}
}

func TestRunnerSubscriberPanicIsolation(t *testing.T) {
	cfg := runnerConfig("pump_001", time.Second)
	obs := testObs()
	r := NewRunner(cfg, &stubGenerator{cfg: cfg}, obs)

	var delivered []*domain.Record
	r.Subscribe(func(rec *domain.Record) { panic("subscriber bug") })
	r.Subscribe(func(rec *domain.Record) { delivered = append(delivered, rec) })

	r.tick()
	r.tick()

	if len(delivered) != 2 {
		t.Fatalf("later subscriber should receive every record, got %d", len(delivered))
	}
	if got := testutil.ToFloat64(obs.Counter(observability.MetricSubscriberPanics)); got != 2 {
		t.Fatalf("expected 2 panics counted, got %f", got)
	}
}

func TestRunnerEmitErrorSkipsRecord(t *testing.T) {
	cfg := runnerConfig("pump_001", time.Second)
	obs := testObs()
	r := NewRunner(cfg, &stubGenerator{cfg: cfg, failAlways: true}, obs)

	var delivered int
	r.Subscribe(func(rec *domain.Record) { delivered++ })

	r.tick()

	if delivered != 0 {
		t.Fatalf("failed emit must not fan out")
	}
	if len(r.History()) != 0 {
		t.Fatalf("failed emit must not enter history")
	}
	if got := testutil.ToFloat64(obs.Counter(observability.MetricGenerationErrors)); got != 1 {
		t.Fatalf("expected 1 generation error counted, got %f", got)
	}
}

func TestRunnerStartStop(t *testing.T) {
	cfg := runnerConfig("pump_001", 5*time.Millisecond)
	r := NewRunner(cfg, &stubGenerator{cfg: cfg}, nil)

	var count atomic.Int64
	r.Subscribe(func(rec *domain.Record) { count.Add(1) })

	r.Start()
	r.Start() // second start is a no-op

	deadline := time.Now().Add(5 * time.Second)
	for count.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if count.Load() < 3 {
		t.Fatalf("runner produced no records")
	}

	r.Stop()
	after := count.Load()
	time.Sleep(50 * time.Millisecond)
	if count.Load() != after {
		t.Fatalf("records delivered after Stop returned")
	}

	r.Stop() // second stop is a no-op
}

func TestRunnerDisabledSkipsGeneration(t *testing.T) {
	cfg := runnerConfig("pump_001", 5*time.Millisecond)
	gen := &stubGenerator{cfg: cfg}
	r := NewRunner(cfg, gen, nil)
	r.SetEnabled(false)

	var count atomic.Int64
	r.Subscribe(func(rec *domain.Record) { count.Add(1) })

	r.Start()
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 0 {
		t.Fatalf("disabled runner must not emit, got %d records", count.Load())
	}

	// Resuming picks up without restarting the runner.
	r.SetEnabled(true)
	deadline := time.Now().Add(5 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if count.Load() == 0 {
		t.Fatalf("re-enabled runner should resume emitting")
	}
}

func TestRunnerSubscribeDuringRun(t *testing.T) {
	cfg := runnerConfig("pump_001", 5*time.Millisecond)
	r := NewRunner(cfg, &stubGenerator{cfg: cfg}, nil)

	r.Start()
	defer r.Stop()

	var mu sync.Mutex
	var got []*domain.Record
	r.Subscribe(func(rec *domain.Record) {
		mu.Lock()
		got = append(got, rec)
		mu.Unlock()
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("late subscriber never received a record")
}
