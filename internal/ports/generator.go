package ports

import "github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"

// Generator is one device state machine. Advance is the only mutator
// and moves the state one tick forward; Emit is pure over the current
// state and must not be called before Advance on the same tick.
type Generator interface {
	Advance()
	Emit() (*domain.Record, error)
}
