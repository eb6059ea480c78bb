package devices

import (
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// PatientBed simulates a bed monitor. While occupied the patient's
// weight and position drift and a bed-exit risk is derived from the
// movement level; while unoccupied the state is frozen until a 5%
// per-tick occupancy transition resamples the weight.
type PatientBed struct {
	cfg domain.DeviceConfig
	rng *rng

	weight        float64 // kg, [50,150]
	positionAngle float64 // degrees, [0,70]
	occupancy     bool
	movementLevel int    // 0-5
	bedExitRisk   string // low | medium | high
}

func NewPatientBed(cfg domain.DeviceConfig, seed int64) *PatientBed {
	return &PatientBed{
		cfg:           cfg,
		rng:           newRNG(seed),
		weight:        75.0,
		positionAngle: 30.0,
		occupancy:     true,
		movementLevel: 2,
		bedExitRisk:   "low",
	}
}

func (b *PatientBed) Advance() {
	if b.occupancy {
		b.weight = clamp(b.weight+b.rng.uniform(-0.5, 0.5), 50, 150)
		b.positionAngle = clamp(b.positionAngle+b.rng.uniform(-5, 5), 0, 70)
		b.movementLevel = b.rng.uniformInt(0, 5)

		switch {
		case b.movementLevel > 3 && b.rng.chance(0.3):
			b.bedExitRisk = "high"
		case b.movementLevel > 1:
			b.bedExitRisk = "medium"
		default:
			b.bedExitRisk = "low"
		}
		return
	}

	if b.rng.chance(0.05) {
		b.occupancy = true
		b.weight = b.rng.uniform(60, 120)
	}
}

func (b *PatientBed) Emit() (*domain.Record, error) {
	callLight := false
	if b.rng.chance(0.1) {
		callLight = b.rng.chance(0.5)
	}

	rec := newBaseRecord(b.cfg, time.Now(), b.rng)
	rec.Set("weight", round1(b.weight)).
		Set("position_angle", round1(b.positionAngle)).
		Set("occupancy", b.occupancy).
		Set("movement_level", b.movementLevel).
		Set("bed_exit_risk", b.bedExitRisk).
		Set("rails_up", b.rng.chance(0.5)).
		Set("call_light", callLight).
		Set("room_temperature", round1(b.rng.uniform(20, 24))).
		Set("humidity", round1(b.rng.uniform(40, 60)))
	return rec, nil
}

var _ ports.Generator = (*PatientBed)(nil)
