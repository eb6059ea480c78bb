package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// Console output formats.
const (
	ConsoleFormatSimple   = "simple"
	ConsoleFormatDetailed = "detailed"
	ConsoleFormatJSON     = "json"
)

// ConsoleSink prints each record to a writer. Writes arrive from many
// device runners concurrently, so output lines are serialized.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func NewConsoleSink(format string, w io.Writer) (*ConsoleSink, error) {
	switch format {
	case ConsoleFormatSimple, ConsoleFormatDetailed, ConsoleFormatJSON:
	default:
		return nil, fmt.Errorf("console sink: unknown format %q", format)
	}
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w, format: format}, nil
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) Write(rec *domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.format {
	case ConsoleFormatSimple:
		_, err := fmt.Fprintf(c.w, "%s %s: %s\n",
			rec.DeviceType, rec.DeviceID, rec.Timestamp.Format("2006-01-02T15:04:05"))
		return err
	case ConsoleFormatDetailed:
		return c.writeDetailed(rec)
	case ConsoleFormatJSON:
		enc, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.w, "%s\n", enc)
		return err
	}
	return nil
}

func (c *ConsoleSink) writeDetailed(rec *domain.Record) error {
	if _, err := fmt.Fprintf(c.w, "[%s] %s %s @ %s\n",
		rec.Timestamp.Format("2006-01-02T15:04:05"), rec.DeviceType, rec.DeviceID, rec.Location); err != nil {
		return err
	}

	var err error
	switch rec.DeviceType {
	case domain.DeviceTypeInfusionPump:
		_, err = fmt.Fprintf(c.w, "   Flow: %v ml/hr, Pressure: %v psi\n",
			rec.Field("flow_rate"), rec.Field("pressure"))
	case domain.DeviceTypePatientBed:
		_, err = fmt.Fprintf(c.w, "   Weight: %v kg, Position: %v deg\n",
			rec.Field("weight"), rec.Field("position_angle"))
	case domain.DeviceTypeVitalSigns:
		sys, dia := bloodPressure(rec)
		_, err = fmt.Fprintf(c.w, "   HR: %v, BP: %v/%v\n",
			rec.Field("heart_rate"), sys, dia)
	}
	return err
}

func bloodPressure(rec *domain.Record) (any, any) {
	bp, ok := rec.Field("blood_pressure").(map[string]int)
	if !ok {
		return domain.Unavailable, domain.Unavailable
	}
	return bp["systolic"], bp["diastolic"]
}

func (c *ConsoleSink) Close() error { return nil }

var _ ports.Sink = (*ConsoleSink)(nil)
