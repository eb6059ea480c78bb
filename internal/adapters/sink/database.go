package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// Database drivers the sink knows how to speak to.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseSink writes every record into a common device_data table
// (full record serialized into one column) plus a device-type-specific
// table with typed columns, both inside one transaction. Many device
// runners write concurrently; a single mutex spans both inserts and
// the commit so a partial pair is never visible.
type DatabaseSink struct {
	mu      sync.Mutex
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driver string
	serial string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{driver: driver, serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}, nil
	case DriverPostgres:
		return dialect{driver: driver, serial: "SERIAL PRIMARY KEY"}, nil
	}
	return dialect{}, fmt.Errorf("database sink: unknown driver %q", driver)
}

// rebind converts ? placeholders to the driver's positional style.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewDatabaseSink opens the given driver/DSN and creates the schema.
func NewDatabaseSink(driver, dsn string) (*DatabaseSink, error) {
	dia, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database sink: open %s: %w", driver, err)
	}
	s := &DatabaseSink{db: db, dialect: dia}
	if err := s.setupTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewDatabaseSinkFromDB wraps an existing connection; used by tests.
func NewDatabaseSinkFromDB(db *sql.DB, driver string) (*DatabaseSink, error) {
	dia, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &DatabaseSink{db: db, dialect: dia}, nil
}

func (s *DatabaseSink) Name() string { return "database" }

func (s *DatabaseSink) setupTables() error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS device_data (
			id %s,
			device_id TEXT,
			device_type TEXT,
			location TEXT,
			timestamp TEXT,
			session_id TEXT,
			data_json TEXT
		)`, s.dialect.serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS infusion_pump_data (
			id %s,
			device_id TEXT,
			timestamp TEXT,
			flow_rate REAL,
			target_flow_rate REAL,
			pressure REAL,
			battery_level REAL,
			volume_infused REAL,
			volume_remaining REAL,
			status TEXT,
			alarms TEXT
		)`, s.dialect.serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS patient_bed_data (
			id %s,
			device_id TEXT,
			timestamp TEXT,
			weight REAL,
			position_angle REAL,
			occupancy BOOLEAN,
			movement_level INTEGER,
			bed_exit_risk TEXT
		)`, s.dialect.serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vital_signs_data (
			id %s,
			device_id TEXT,
			timestamp TEXT,
			heart_rate INTEGER,
			blood_pressure_sys INTEGER,
			blood_pressure_dia INTEGER,
			oxygen_saturation REAL,
			respiratory_rate INTEGER,
			temperature REAL
		)`, s.dialect.serial),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("database sink: create tables: %w", err)
		}
	}
	return nil
}

func (s *DatabaseSink) Write(rec *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("database sink: begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertCommon(tx, rec); err != nil {
		return err
	}
	if err := s.insertSpecific(tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database sink: commit: %w", err)
	}
	return nil
}

func (s *DatabaseSink) insertCommon(tx *sql.Tx, rec *domain.Record) error {
	enc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("database sink: marshal record: %w", err)
	}
	_, err = tx.Exec(s.dialect.rebind(
		`INSERT INTO device_data (device_id, device_type, location, timestamp, session_id, data_json)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		rec.DeviceID, string(rec.DeviceType), rec.Location,
		rec.Timestamp.Format(time.RFC3339Nano), rec.SessionID, string(enc))
	if err != nil {
		return fmt.Errorf("database sink: insert device_data: %w", err)
	}
	return nil
}

func (s *DatabaseSink) insertSpecific(tx *sql.Tx, rec *domain.Record) error {
	ts := rec.Timestamp.Format(time.RFC3339Nano)

	var err error
	switch rec.DeviceType {
	case domain.DeviceTypeInfusionPump:
		_, err = tx.Exec(s.dialect.rebind(
			`INSERT INTO infusion_pump_data
			 (device_id, timestamp, flow_rate, target_flow_rate, pressure,
			  battery_level, volume_infused, volume_remaining, status, alarms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.DeviceID, ts,
			rec.Field("flow_rate"), rec.Field("target_flow_rate"), rec.Field("pressure"),
			rec.Field("battery_level"), rec.Field("volume_infused"), rec.Field("volume_remaining"),
			rec.Field("status"), encodeList(rec.Field("alarms")))
	case domain.DeviceTypePatientBed:
		_, err = tx.Exec(s.dialect.rebind(
			`INSERT INTO patient_bed_data
			 (device_id, timestamp, weight, position_angle, occupancy, movement_level, bed_exit_risk)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			rec.DeviceID, ts,
			rec.Field("weight"), rec.Field("position_angle"), rec.Field("occupancy"),
			rec.Field("movement_level"), rec.Field("bed_exit_risk"))
	case domain.DeviceTypeVitalSigns:
		sys, dia := bloodPressure(rec)
		_, err = tx.Exec(s.dialect.rebind(
			`INSERT INTO vital_signs_data
			 (device_id, timestamp, heart_rate, blood_pressure_sys, blood_pressure_dia,
			  oxygen_saturation, respiratory_rate, temperature)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.DeviceID, ts,
			rec.Field("heart_rate"), sys, dia,
			rec.Field("oxygen_saturation"), rec.Field("respiratory_rate"), rec.Field("temperature"))
	default:
		return fmt.Errorf("database sink: unknown device type %q", rec.DeviceType)
	}
	if err != nil {
		return fmt.Errorf("database sink: insert %s: %w", rec.DeviceType, err)
	}
	return nil
}

func encodeList(v any) string {
	enc, err := json.Marshal(v)
	if err != nil {
		return domain.Unavailable
	}
	return string(enc)
}

func (s *DatabaseSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ ports.Sink = (*DatabaseSink)(nil)
