package ports

import "time"

// BatchPolicy controls the API sink's dispatcher: flush when the
// buffer reaches BatchSize or when no record arrives within FlushIdle
// while the buffer is non-empty.
type BatchPolicy struct {
	BatchSize     int
	FlushIdle     time.Duration
	SingleTimeout time.Duration
	BatchTimeout  time.Duration
}

func (p *BatchPolicy) ApplyDefaults() {
	if p.BatchSize <= 0 {
		p.BatchSize = 10
	}
	if p.FlushIdle <= 0 {
		p.FlushIdle = time.Second
	}
	if p.SingleTimeout <= 0 {
		p.SingleTimeout = 5 * time.Second
	}
	if p.BatchTimeout <= 0 {
		p.BatchTimeout = 10 * time.Second
	}
}
