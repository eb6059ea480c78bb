package queue

import (
	"sync"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// RecordQueue is an unbounded in-memory FIFO feeding the API sink's
// dispatcher. Enqueue never blocks the producer; the dispatcher drains
// with TryDequeue after a signal on C.
type RecordQueue struct {
	mu     sync.Mutex
	data   []*domain.Record
	notify chan struct{}
}

func NewRecordQueue() *RecordQueue {
	return &RecordQueue{notify: make(chan struct{}, 1)}
}

func (q *RecordQueue) Enqueue(rec *domain.Record) {
	q.mu.Lock()
	q.data = append(q.data, rec)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryDequeue pops the oldest record, or reports false when empty.
func (q *RecordQueue) TryDequeue() (*domain.Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil, false
	}
	rec := q.data[0]
	q.data = q.data[1:]
	return rec, true
}

// C signals that at least one record has been enqueued since the last
// receive. It is a level trigger: the consumer must drain with
// TryDequeue until empty.
func (q *RecordQueue) C() <-chan struct{} {
	return q.notify
}

func (q *RecordQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}
