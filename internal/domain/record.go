package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Unavailable is the placeholder sinks substitute for fields a record
// does not carry. Sinks must degrade to it instead of failing.
const Unavailable = "N/A"

// Record is one immutable telemetry snapshot emitted by a device on a
// single tick. Every sink may read it independently; nothing mutates a
// record after emission.
type Record struct {
	DeviceID   string
	DeviceType DeviceType
	Location   string
	Timestamp  time.Time
	SessionID  string

	fields map[string]any
	order  []string
}

// NewRecord builds a record with the common header fields. Device
// payload fields are attached via Set during construction and the
// record is treated as frozen once emitted.
func NewRecord(id string, dt DeviceType, location string, ts time.Time, session string) *Record {
	return &Record{
		DeviceID:   id,
		DeviceType: dt,
		Location:   location,
		Timestamp:  ts,
		SessionID:  session,
		fields:     make(map[string]any),
	}
}

// Set attaches a device-specific field, remembering insertion order so
// tabular sinks get deterministic columns.
func (r *Record) Set(key string, value any) *Record {
	if _, dup := r.fields[key]; !dup {
		r.order = append(r.order, key)
	}
	r.fields[key] = value
	return r
}

// Field returns the named payload field, or Unavailable when absent.
func (r *Record) Field(key string) any {
	if v, ok := r.fields[key]; ok {
		return v
	}
	return Unavailable
}

// Has reports whether the payload carries the named field.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// FieldNames returns payload field names in emission order.
func (r *Record) FieldNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// WithField returns a copy of the record with one payload field
// replaced or added. The receiver is left untouched.
func (r *Record) WithField(key string, value any) *Record {
	clone := &Record{
		DeviceID:   r.DeviceID,
		DeviceType: r.DeviceType,
		Location:   r.Location,
		Timestamp:  r.Timestamp,
		SessionID:  r.SessionID,
		fields:     make(map[string]any, len(r.fields)+1),
		order:      make([]string, len(r.order)),
	}
	copy(clone.order, r.order)
	for k, v := range r.fields {
		clone.fields[k] = v
	}
	clone.Set(key, value)
	return clone
}

// baseKeys is the header column order shared by every device type.
var baseKeys = []string{"device_id", "device_type", "location", "timestamp", "session_id"}

func (r *Record) baseValues() map[string]any {
	return map[string]any{
		"device_id":   r.DeviceID,
		"device_type": string(r.DeviceType),
		"location":    r.Location,
		"timestamp":   r.Timestamp.Format(time.RFC3339Nano),
		"session_id":  r.SessionID,
	}
}

// MarshalJSON flattens the record into a single object: header fields
// followed by the payload, matching the wire contract of the API and
// file sinks.
func (r *Record) MarshalJSON() ([]byte, error) {
	m := r.baseValues()
	for k, v := range r.fields {
		m[k] = v
	}
	return json.Marshal(m)
}

// Flatten produces ordered column/value pairs for tabular encodings.
// Nested maps are joined with sep, list values are embedded as JSON
// strings.
func (r *Record) Flatten(sep string) ([]string, []string) {
	keys := make([]string, 0, len(baseKeys)+len(r.order))
	vals := make([]string, 0, len(baseKeys)+len(r.order))

	base := r.baseValues()
	for _, k := range baseKeys {
		keys = append(keys, k)
		vals = append(vals, fmt.Sprintf("%v", base[k]))
	}
	for _, k := range r.order {
		flatKeys, flatVals := flattenValue(k, r.fields[k], sep)
		keys = append(keys, flatKeys...)
		vals = append(vals, flatVals...)
	}
	return keys, vals
}

func flattenValue(key string, value any, sep string) ([]string, []string) {
	switch v := value.(type) {
	case map[string]any:
		sub := make([]string, 0, len(v))
		for k := range v {
			sub = append(sub, k)
		}
		sort.Strings(sub)
		var keys, vals []string
		for _, k := range sub {
			fk, fv := flattenValue(key+sep+k, v[k], sep)
			keys = append(keys, fk...)
			vals = append(vals, fv...)
		}
		return keys, vals
	case map[string]int:
		sub := make([]string, 0, len(v))
		for k := range v {
			sub = append(sub, k)
		}
		sort.Strings(sub)
		var keys, vals []string
		for _, k := range sub {
			keys = append(keys, key+sep+k)
			vals = append(vals, fmt.Sprintf("%d", v[k]))
		}
		return keys, vals
	case []string:
		enc, err := json.Marshal(v)
		if err != nil {
			return []string{key}, []string{Unavailable}
		}
		return []string{key}, []string{string(enc)}
	default:
		return []string{key}, []string{fmt.Sprintf("%v", v)}
	}
}
