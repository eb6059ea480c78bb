package devices

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// New builds the state machine for the config's device type. The
// device-type set is closed; an unrecognized type is a setup error.
func New(cfg domain.DeviceConfig, seed int64) (ports.Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.DeviceType {
	case domain.DeviceTypeInfusionPump:
		return NewInfusionPump(cfg, seed), nil
	case domain.DeviceTypePatientBed:
		return NewPatientBed(cfg, seed), nil
	case domain.DeviceTypeVitalSigns:
		return NewVitalSigns(cfg, seed), nil
	}
	return nil, fmt.Errorf("unknown device type %q", cfg.DeviceType)
}

// newBaseRecord stamps the header every record carries: identity,
// generation time, and a short opaque session token.
func newBaseRecord(cfg domain.DeviceConfig, ts time.Time, _ *rng) *domain.Record {
	session := uuid.NewString()[:8]
	return domain.NewRecord(cfg.DeviceID, cfg.DeviceType, cfg.Location, ts, session)
}
