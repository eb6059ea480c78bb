package devices

import (
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

var ecgRhythms = []string{"normal", "irregular", "atrial_fib"}

// VitalSigns simulates a vital signs monitor. Each vital takes a small
// bounded step per tick and is clamped to its physiological range; the
// alert set is derived fresh from the resulting values.
type VitalSigns struct {
	cfg domain.DeviceConfig
	rng *rng

	heartRate        int     // bpm, [45,150]
	systolic         int     // mmHg, [90,180]
	diastolic        int     // mmHg, [50,110]
	oxygenSaturation float64 // %, [85,100]
	respiratoryRate  int     // breaths/min, [8,30]
	temperature      float64 // C, [35,40]
}

func NewVitalSigns(cfg domain.DeviceConfig, seed int64) *VitalSigns {
	return &VitalSigns{
		cfg:              cfg,
		rng:              newRNG(seed),
		heartRate:        75,
		systolic:         120,
		diastolic:        80,
		oxygenSaturation: 98,
		respiratoryRate:  16,
		temperature:      36.5,
	}
}

func (v *VitalSigns) Advance() {
	v.heartRate = clampInt(v.heartRate+v.rng.uniformInt(-3, 3), 45, 150)
	v.systolic = clampInt(v.systolic+v.rng.uniformInt(-5, 5), 90, 180)
	v.diastolic = clampInt(v.diastolic+v.rng.uniformInt(-3, 3), 50, 110)
	v.oxygenSaturation = clamp(v.oxygenSaturation+v.rng.uniform(-1, 1), 85, 100)
	v.respiratoryRate = clampInt(v.respiratoryRate+v.rng.uniformInt(-1, 1), 8, 30)
	v.temperature = clamp(v.temperature+v.rng.uniform(-0.2, 0.2), 35, 40)
}

func (v *VitalSigns) Emit() (*domain.Record, error) {
	rec := newBaseRecord(v.cfg, time.Now(), v.rng)
	rec.Set("heart_rate", v.heartRate).
		Set("blood_pressure", map[string]int{
			"systolic":  v.systolic,
			"diastolic": v.diastolic,
		}).
		Set("oxygen_saturation", round1(v.oxygenSaturation)).
		Set("respiratory_rate", v.respiratoryRate).
		Set("temperature", round1(v.temperature)).
		Set("ecg_rhythm", v.rng.pick(ecgRhythms)).
		Set("alerts", v.alerts())
	return rec, nil
}

func (v *VitalSigns) alerts() []string {
	alerts := []string{}
	if v.heartRate > 100 {
		alerts = append(alerts, "TACHYCARDIA")
	} else if v.heartRate < 60 {
		alerts = append(alerts, "BRADYCARDIA")
	}
	if v.systolic > 140 {
		alerts = append(alerts, "HYPERTENSION")
	} else if v.systolic < 100 {
		alerts = append(alerts, "HYPOTENSION")
	}
	if v.oxygenSaturation < 90 {
		alerts = append(alerts, "LOW_OXYGEN")
	}
	if v.temperature > 38 {
		alerts = append(alerts, "FEVER")
	}
	return alerts
}

var _ ports.Generator = (*VitalSigns)(nil)
