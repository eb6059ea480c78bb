package observability

import "github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"

// Nop discards all logs and metrics. Used by tests and as a safe
// fallback when a component receives no observability backend.
type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) LogInfo(string, ...ports.Field)         {}
func (Nop) LogError(string, error, ...ports.Field) {}
func (Nop) IncCounter(string, float64)             {}
func (Nop) SetGauge(string, float64)               {}
func (Nop) ObserveLatency(string, float64)         {}

var _ ports.Observability = Nop{}
