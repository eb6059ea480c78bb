package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func testRecord() *Record {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := NewRecord("pump_001", DeviceTypeInfusionPump, "Room_101", ts, "ab12cd34")
	rec.Set("flow_rate", 5.2).
		Set("status", "running").
		Set("alarms", []string{"HIGH_PRESSURE"})
	return rec
}

func TestRecordFieldOrderAndLookup(t *testing.T) {
	rec := testRecord()

	names := rec.FieldNames()
	want := []string{"flow_rate", "status", "alarms"}
	if len(names) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), names)
	}
	for i, k := range want {
		if names[i] != k {
			t.Fatalf("field %d: expected %s, got %s", i, k, names[i])
		}
	}

	if got := rec.Field("flow_rate"); got != 5.2 {
		t.Fatalf("flow_rate: got %v", got)
	}
	if got := rec.Field("no_such_field"); got != Unavailable {
		t.Fatalf("missing field should yield %q, got %v", Unavailable, got)
	}
	if rec.Has("no_such_field") {
		t.Fatalf("Has should be false for a missing field")
	}
}

func TestRecordSetOverwriteKeepsOrder(t *testing.T) {
	rec := testRecord()
	rec.Set("flow_rate", 6.0)

	if got := rec.Field("flow_rate"); got != 6.0 {
		t.Fatalf("overwrite lost: got %v", got)
	}
	if names := rec.FieldNames(); names[0] != "flow_rate" || len(names) != 3 {
		t.Fatalf("overwrite changed ordering: %v", names)
	}
}

func TestRecordWithFieldCopies(t *testing.T) {
	rec := testRecord()
	clone := rec.WithField("alarms", []string{"HIGH_PRESSURE", "LOW_BATTERY"})

	orig, ok := rec.Field("alarms").([]string)
	if !ok || len(orig) != 1 {
		t.Fatalf("original record was mutated: %v", rec.Field("alarms"))
	}
	updated, ok := clone.Field("alarms").([]string)
	if !ok || len(updated) != 2 {
		t.Fatalf("clone missing updated field: %v", clone.Field("alarms"))
	}
	if clone.DeviceID != rec.DeviceID || clone.SessionID != rec.SessionID {
		t.Fatalf("clone lost header fields")
	}
}

func TestRecordMarshalJSONIsFlat(t *testing.T) {
	rec := testRecord()

	enc, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(enc, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if m["device_id"] != "pump_001" || m["device_type"] != "infusion_pump" {
		t.Fatalf("header fields missing: %v", m)
	}
	if m["flow_rate"] != 5.2 || m["status"] != "running" {
		t.Fatalf("payload fields missing: %v", m)
	}
	if _, nested := m["fields"]; nested {
		t.Fatalf("payload should be flattened into the top-level object")
	}
}

func TestRecordFlatten(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := NewRecord("vital_001", DeviceTypeVitalSigns, "Room_202", ts, "ef56ab78")
	rec.Set("heart_rate", 75).
		Set("blood_pressure", map[string]int{"systolic": 120, "diastolic": 80}).
		Set("alerts", []string{"TACHYCARDIA"})

	keys, vals := rec.Flatten("_")
	if len(keys) != len(vals) {
		t.Fatalf("keys/values length mismatch: %d vs %d", len(keys), len(vals))
	}

	byKey := make(map[string]string, len(keys))
	for i, k := range keys {
		byKey[k] = vals[i]
	}

	if keys[0] != "device_id" || byKey["device_id"] != "vital_001" {
		t.Fatalf("header columns must come first: %v", keys)
	}
	if byKey["blood_pressure_diastolic"] != "80" || byKey["blood_pressure_systolic"] != "120" {
		t.Fatalf("nested map not flattened: %v", byKey)
	}
	if byKey["alerts"] != `["TACHYCARDIA"]` {
		t.Fatalf("list should be embedded as JSON, got %q", byKey["alerts"])
	}
}

func TestParseDeviceType(t *testing.T) {
	for _, dt := range DeviceTypes() {
		parsed, err := ParseDeviceType(string(dt))
		if err != nil || parsed != dt {
			t.Fatalf("round trip failed for %s: %v", dt, err)
		}
	}
	if _, err := ParseDeviceType("ventilator"); err == nil {
		t.Fatalf("expected error for unknown device type")
	}
}

func TestDeviceConfigValidate(t *testing.T) {
	good := DeviceConfig{
		DeviceID:     "bed_001",
		DeviceType:   DeviceTypePatientBed,
		Location:     "Room_303",
		TickInterval: time.Second,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := good
	bad.DeviceID = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("empty device id should be rejected")
	}

	bad = good
	bad.TickInterval = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("zero tick interval should be rejected")
	}
}
