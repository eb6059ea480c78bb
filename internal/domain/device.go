package domain

import (
	"fmt"
	"time"
)

// DeviceType identifies one of the fixed simulated device kinds.
type DeviceType string

const (
	DeviceTypeInfusionPump DeviceType = "infusion_pump"
	DeviceTypePatientBed   DeviceType = "patient_bed"
	DeviceTypeVitalSigns   DeviceType = "vital_signs"
)

// DeviceTypes lists every supported type in canonical order.
func DeviceTypes() []DeviceType {
	return []DeviceType{DeviceTypeInfusionPump, DeviceTypePatientBed, DeviceTypeVitalSigns}
}

// ParseDeviceType validates a raw string against the closed type set.
func ParseDeviceType(raw string) (DeviceType, error) {
	switch DeviceType(raw) {
	case DeviceTypeInfusionPump, DeviceTypePatientBed, DeviceTypeVitalSigns:
		return DeviceType(raw), nil
	}
	return "", fmt.Errorf("unknown device type %q", raw)
}

func (t DeviceType) String() string { return string(t) }

// DeviceConfig is the immutable identity of one simulated device. It is
// created at registry setup time and never mutated after the runner
// starts; pausing generation goes through Runner.SetEnabled instead.
type DeviceConfig struct {
	DeviceID     string
	DeviceType   DeviceType
	Location     string
	TickInterval time.Duration
	Enabled      bool
}

func (c DeviceConfig) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if _, err := ParseDeviceType(string(c.DeviceType)); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("device %s: tick interval must be positive, got %s", c.DeviceID, c.TickInterval)
	}
	return nil
}
