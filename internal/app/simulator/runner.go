package simulator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// historyCap bounds the per-device record history.
const historyCap = 100

// Subscriber receives each emitted record during fan-out. A subscriber
// that panics is logged and isolated; it cannot stop the runner or
// starve later subscribers.
type Subscriber func(*domain.Record)

// Runner drives one device state machine on its own timer goroutine.
// Device state is owned exclusively by the runner's goroutine; the
// mutex only guards the subscriber list and history buffer, which are
// read from outside.
type Runner struct {
	cfg     domain.DeviceConfig
	gen     ports.Generator
	obs     ports.Observability
	enabled atomic.Bool

	mu      sync.Mutex
	subs    []Subscriber
	history []*domain.Record
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRunner(cfg domain.DeviceConfig, gen ports.Generator, obs ports.Observability) *Runner {
	if obs == nil {
		obs = observability.NewNop()
	}
	r := &Runner{cfg: cfg, gen: gen, obs: obs}
	r.enabled.Store(cfg.Enabled)
	return r
}

func (r *Runner) Config() domain.DeviceConfig { return r.cfg }

// SetEnabled pauses or resumes generation without destroying device
// state; the tick loop keeps running.
func (r *Runner) SetEnabled(enabled bool) { r.enabled.Store(enabled) }

// Subscribe registers a fan-out callback. Registration order is
// delivery order.
func (r *Runner) Subscribe(fn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Start launches the tick loop. Starting an already-running runner is
// a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.run(r.stopCh, r.doneCh)

	r.obs.LogInfo("runner_started",
		ports.Field{Key: "device_id", Value: r.cfg.DeviceID},
		ports.Field{Key: "device_type", Value: string(r.cfg.DeviceType)},
		ports.Field{Key: "interval", Value: r.cfg.TickInterval.String()})
}

// Stop halts the tick loop and waits for any in-flight tick to finish,
// guaranteeing no subscriber invocation happens after it returns.
// Stopping an already-stopped runner is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)
	<-doneCh

	r.obs.LogInfo("runner_stopped",
		ports.Field{Key: "device_id", Value: r.cfg.DeviceID})
}

func (r *Runner) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !r.enabled.Load() {
				continue
			}
			r.tick()
		}
	}
}

// tick advances state, emits one record, and fans it out. Ticks within
// one device are strictly sequential.
func (r *Runner) tick() {
	r.gen.Advance()
	rec, err := r.gen.Emit()
	if err != nil {
		r.obs.IncCounter(observability.MetricGenerationErrors, 1)
		r.obs.LogError("generation_failed", err,
			ports.Field{Key: "device_id", Value: r.cfg.DeviceID})
		return
	}

	r.mu.Lock()
	r.history = append(r.history, rec)
	if len(r.history) > historyCap {
		r.history = r.history[1:]
	}
	// Snapshot so a Subscribe during fan-out never races the loop.
	subs := make([]Subscriber, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	r.obs.IncCounter(observability.MetricRecordsGenerated, 1)
	for _, fn := range subs {
		r.notify(fn, rec)
	}
}

func (r *Runner) notify(fn Subscriber, rec *domain.Record) {
	defer func() {
		if p := recover(); p != nil {
			r.obs.IncCounter(observability.MetricSubscriberPanics, 1)
			r.obs.LogError("subscriber_panicked", fmt.Errorf("%v", p),
				ports.Field{Key: "device_id", Value: r.cfg.DeviceID})
		}
	}()
	fn(rec)
}

// Latest returns the most recent emitted record, or nil before the
// first tick completes.
func (r *Runner) Latest() *domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

// History copies the bounded record history, oldest first.
func (r *Runner) History() []*domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Record, len(r.history))
	copy(out, r.history)
	return out
}
