package devices

import (
	"fmt"
	"math/rand"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// ScenarioAlarm is appended to a record's alarm or alert list when a
// scenario's alarm probability fires on a tick.
const ScenarioAlarm = "SCENARIO_ALARM"

// ScenarioInjector wraps a Generator with the failure and alarm
// probabilities of a named scenario. A failure draw makes Emit return
// an error for that tick (the runner logs it and skips the record); an
// alarm draw appends ScenarioAlarm to the emitted alarm list.
type ScenarioInjector struct {
	inner       ports.Generator
	rng         *rng
	alarmProb   float64
	failureProb float64
}

func NewScenarioInjector(inner ports.Generator, seed int64, alarmProb, failureProb float64) *ScenarioInjector {
	return &ScenarioInjector{
		inner:       inner,
		rng:         &rng{r: rand.New(rand.NewSource(seed))},
		alarmProb:   alarmProb,
		failureProb: failureProb,
	}
}

func (s *ScenarioInjector) Advance() { s.inner.Advance() }

func (s *ScenarioInjector) Emit() (*domain.Record, error) {
	if s.failureProb > 0 && s.rng.chance(s.failureProb) {
		return nil, fmt.Errorf("injected device failure")
	}

	rec, err := s.inner.Emit()
	if err != nil {
		return nil, err
	}

	if s.alarmProb > 0 && s.rng.chance(s.alarmProb) {
		rec = appendAlarm(rec)
	}
	return rec, nil
}

func appendAlarm(rec *domain.Record) *domain.Record {
	for _, key := range []string{"alarms", "alerts"} {
		if !rec.Has(key) {
			continue
		}
		if list, ok := rec.Field(key).([]string); ok {
			return rec.WithField(key, append(append([]string{}, list...), ScenarioAlarm))
		}
	}
	// Device types without an alarm list get a dedicated field.
	return rec.WithField("scenario_alarm", true)
}

var _ ports.Generator = (*ScenarioInjector)(nil)
