package ports

import "github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"

// Sink is a persistence or forwarding destination for telemetry
// records. Write may fail; the caller is responsible for isolating the
// failure so other sinks still receive the record.
type Sink interface {
	Write(rec *domain.Record) error
	Close() error
	Name() string
}
