package devices

import (
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

const (
	pumpTargetFlowRate = 5.0
	pumpReservoirML    = 500.0
)

// InfusionPump simulates an infusion pump as a clamped random walk:
// flow rate drifts around the target, pressure wanders, the battery
// drains, and infused volume accumulates from the flow rate.
type InfusionPump struct {
	cfg domain.DeviceConfig
	rng *rng

	flowRate      float64 // ml/hr, [0,10]
	pressure      float64 // psi, [10,50]
	batteryLevel  float64 // %, [0,100]
	volumeInfused float64 // ml, >= 0
}

func NewInfusionPump(cfg domain.DeviceConfig, seed int64) *InfusionPump {
	return &InfusionPump{
		cfg:          cfg,
		rng:          newRNG(seed),
		flowRate:     pumpTargetFlowRate,
		pressure:     25.0,
		batteryLevel: 100.0,
	}
}

func (p *InfusionPump) Advance() {
	p.flowRate = clamp(p.flowRate+p.rng.uniform(-0.2, 0.2), 0, 10)
	p.pressure = clamp(p.pressure+p.rng.uniform(-2, 2), 10, 50)
	p.batteryLevel = clamp(p.batteryLevel-p.rng.uniform(0.01, 0.05), 0, 100)
	p.volumeInfused += p.flowRate * (p.cfg.TickInterval.Seconds() / 3600)
}

func (p *InfusionPump) Emit() (*domain.Record, error) {
	rec := newBaseRecord(p.cfg, time.Now(), p.rng)
	rec.Set("flow_rate", round2(p.flowRate)).
		Set("target_flow_rate", pumpTargetFlowRate).
		Set("pressure", round1(p.pressure)).
		Set("battery_level", round1(p.batteryLevel)).
		Set("volume_infused", round2(p.volumeInfused)).
		Set("volume_remaining", round2(pumpReservoirML-p.volumeInfused)).
		Set("status", "running").
		Set("alarms", p.alarms()).
		Set("temperature", round1(p.rng.uniform(20, 25))).
		Set("pump_cycles", p.rng.uniformInt(1000, 5000))
	return rec, nil
}

// alarms is recomputed from scratch every tick; alarm conditions do
// not latch.
func (p *InfusionPump) alarms() []string {
	alarms := []string{}
	if p.batteryLevel < 20 {
		alarms = append(alarms, "LOW_BATTERY")
	}
	if p.pressure > 45 {
		alarms = append(alarms, "HIGH_PRESSURE")
	}
	if p.volumeInfused > 450 {
		alarms = append(alarms, "LOW_VOLUME")
	}
	return alarms
}

var _ ports.Generator = (*InfusionPump)(nil)
