package simulator

import (
	"sync"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// Registry owns the fleet of device runners: lifecycle, global
// subscriber registration, and latest-record snapshots.
type Registry struct {
	obs ports.Observability

	mu      sync.Mutex
	runners map[string]*Runner
	order   []string
	subs    []Subscriber
}

func NewRegistry(obs ports.Observability) *Registry {
	if obs == nil {
		obs = observability.NewNop()
	}
	return &Registry{obs: obs, runners: make(map[string]*Runner)}
}

// Add registers a runner for the device. Adding a duplicate device id
// replaces the prior runner; avoiding that is the caller's
// responsibility. Global subscribers already registered are applied to
// the new runner.
func (r *Registry) Add(cfg domain.DeviceConfig, gen ports.Generator) *Runner {
	runner := NewRunner(cfg, gen, r.obs)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runners[cfg.DeviceID]; exists {
		r.obs.LogInfo("runner_replaced", ports.Field{Key: "device_id", Value: cfg.DeviceID})
	} else {
		r.order = append(r.order, cfg.DeviceID)
	}
	r.runners[cfg.DeviceID] = runner
	for _, fn := range r.subs {
		runner.Subscribe(fn)
	}
	return runner
}

// Subscribe registers a global subscriber on every current runner and,
// retroactively, on runners added later.
func (r *Registry) Subscribe(fn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
	for _, runner := range r.runners {
		runner.Subscribe(fn)
	}
}

// Runner looks up a runner by device id.
func (r *Registry) Runner(deviceID string) (*Runner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runner, ok := r.runners[deviceID]
	return runner, ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runners)
}

// StartAll starts every runner concurrently; one device failing to
// start never blocks the others.
func (r *Registry) StartAll() {
	var wg sync.WaitGroup
	for _, runner := range r.list() {
		wg.Add(1)
		go func(rn *Runner) {
			defer wg.Done()
			rn.Start()
		}(runner)
	}
	wg.Wait()
	r.obs.LogInfo("registry_started", ports.Field{Key: "devices", Value: r.Count()})
}

// StopAll stops every runner concurrently and returns once each has
// acknowledged, so no further fan-out happens afterwards.
func (r *Registry) StopAll() {
	var wg sync.WaitGroup
	for _, runner := range r.list() {
		wg.Add(1)
		go func(rn *Runner) {
			defer wg.Done()
			rn.Stop()
		}(runner)
	}
	wg.Wait()
	r.obs.LogInfo("registry_stopped", ports.Field{Key: "devices", Value: r.Count()})
}

// Latest returns each device's most recent record in registration
// order, skipping devices that have not produced one yet. It is a
// point-in-time view, not a cross-device consistent snapshot.
func (r *Registry) Latest() []*domain.Record {
	out := make([]*domain.Record, 0, r.Count())
	for _, runner := range r.list() {
		if rec := runner.Latest(); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (r *Registry) list() []*Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Runner, 0, len(r.order))
	for _, id := range r.order {
		if runner, ok := r.runners[id]; ok {
			out = append(out, runner)
		}
	}
	return out
}
