package sink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

type registration struct {
	sink    ports.Sink
	enabled bool
}

// Registry fans each record out to every enabled sink in registration
// order. A sink's failure is logged and isolated; it never prevents
// delivery to subsequent sinks and never disables the sink.
type Registry struct {
	mu    sync.Mutex
	sinks []*registration
	obs   ports.Observability
}

func NewRegistry(obs ports.Observability) *Registry {
	if obs == nil {
		obs = observability.NewNop()
	}
	return &Registry{obs: obs}
}

// Add appends a sink in fan-out order, enabled by default.
func (r *Registry) Add(s ports.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, &registration{sink: s, enabled: true})
	r.obs.LogInfo("sink_registered", ports.Field{Key: "sink", Value: s.Name()})
}

// WriteToAll delivers the record to every enabled sink in order.
func (r *Registry) WriteToAll(rec *domain.Record) {
	for _, reg := range r.snapshot() {
		if !reg.enabled {
			continue
		}
		start := time.Now()
		if err := reg.sink.Write(rec); err != nil {
			r.obs.IncCounter(observability.MetricSinkWriteErrors, 1)
			r.obs.LogError("sink_write_failed", err,
				ports.Field{Key: "sink", Value: reg.sink.Name()},
				ports.Field{Key: "device_id", Value: rec.DeviceID})
			continue
		}
		r.obs.ObserveLatency(observability.MetricSinkWriteLatency, time.Since(start).Seconds())
	}
}

// snapshot copies registrations so a concurrent Enable/Disable never
// races with an in-flight fan-out.
func (r *Registry) snapshot() []registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]registration, len(r.sinks))
	for i, reg := range r.sinks {
		out[i] = *reg
	}
	return out
}

// Enable turns a sink back on by name.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable stops fan-out to the named sink without closing it.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.sinks {
		if reg.sink.Name() == name {
			reg.enabled = enabled
			r.obs.LogInfo("sink_toggled",
				ports.Field{Key: "sink", Value: name},
				ports.Field{Key: "enabled", Value: enabled})
			return nil
		}
	}
	err := fmt.Errorf("sink %q not found", name)
	r.obs.LogError("sink_toggle_failed", err)
	return err
}

// Names lists registered sinks in fan-out order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sinks))
	for i, reg := range r.sinks {
		out[i] = reg.sink.Name()
	}
	return out
}

// CloseAll closes every sink, isolating failures the same way writes
// are isolated.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, reg := range r.snapshot() {
		if err := reg.sink.Close(); err != nil {
			r.obs.LogError("sink_close_failed", err,
				ports.Field{Key: "sink", Value: reg.sink.Name()})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
