package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/queue"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// APISink forwards records to a remote ingestion endpoint. Write is
// non-blocking: records land in an unbounded FIFO and a single
// dispatcher goroutine flushes them in batches, either when the batch
// size is reached or when no record arrives within the idle window.
// Delivery is at-most-once: a failed send is logged and the batch is
// dropped, never retried.
type APISink struct {
	baseURL   string
	authToken string
	policy    ports.BatchPolicy
	client    *http.Client
	obs       ports.Observability

	q      *queue.RecordQueue
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// APIConfig configures the remote sink.
type APIConfig struct {
	URL       string
	AuthToken string
	BatchSize int
}

func NewAPISink(cfg APIConfig, obs ports.Observability) (*APISink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("api sink: url is required")
	}
	if obs == nil {
		obs = observability.NewNop()
	}

	policy := ports.BatchPolicy{BatchSize: cfg.BatchSize}
	policy.ApplyDefaults()

	s := &APISink{
		baseURL:   cfg.URL,
		authToken: cfg.AuthToken,
		policy:    policy,
		client:    &http.Client{},
		obs:       obs,
		q:         queue.NewRecordQueue(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go s.dispatch()
	return s, nil
}

func (s *APISink) Name() string { return "api" }

// Write enqueues and returns immediately; the producer never waits on
// the network.
func (s *APISink) Write(rec *domain.Record) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("api sink: closed")
	default:
	}
	s.q.Enqueue(rec)
	s.obs.SetGauge(observability.MetricAPIQueueLength, float64(s.q.Len()))
	return nil
}

// dispatch is the single background worker. It selects between a new
// record arriving, the idle flush window elapsing, and shutdown.
func (s *APISink) dispatch() {
	defer close(s.doneCh)

	idle := time.NewTimer(s.policy.FlushIdle)
	defer idle.Stop()

	var batch []*domain.Record

	resetIdle := func() {
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(s.policy.FlushIdle)
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.send(batch)
		batch = nil
	}

	for {
		select {
		case <-s.stopCh:
			// Drain whatever producers managed to enqueue, then
			// flush the final batch before exiting.
			for {
				rec, ok := s.q.TryDequeue()
				if !ok {
					break
				}
				batch = append(batch, rec)
				if len(batch) >= s.policy.BatchSize {
					flush()
				}
			}
			flush()
			return

		case <-s.q.C():
			for {
				rec, ok := s.q.TryDequeue()
				if !ok {
					break
				}
				batch = append(batch, rec)
				if len(batch) >= s.policy.BatchSize {
					flush()
				}
			}
			s.obs.SetGauge(observability.MetricAPIQueueLength, 0)
			resetIdle()

		case <-idle.C:
			flush()
			idle.Reset(s.policy.FlushIdle)
		}
	}
}

// send delivers one batch: a single record goes to the singular
// endpoint, two or more go to the batch endpoint wrapped in {"data":
// [...]}. Errors drop the batch.
func (s *APISink) send(batch []*domain.Record) {
	var (
		url     string
		payload any
		timeout time.Duration
	)
	if len(batch) == 1 {
		url = s.baseURL + "/devices/data"
		payload = batch[0]
		timeout = s.policy.SingleTimeout
	} else {
		url = s.baseURL + "/devices/data/batch"
		payload = map[string]any{"data": batch}
		timeout = s.policy.BatchTimeout
	}

	if err := s.post(url, payload, timeout); err != nil {
		s.obs.LogError("api_send_failed", err,
			ports.Field{Key: "records", Value: len(batch)})
		s.obs.IncCounter(observability.MetricAPIRecordsDropped, float64(len(batch)))
		return
	}

	s.obs.IncCounter(observability.MetricAPIBatchesSent, 1)
	s.obs.LogInfo("api_batch_sent", ports.Field{Key: "records", Value: len(batch)})
}

func (s *APISink) post(url string, payload any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Close stops the dispatcher after draining pending records and waits
// for it to exit.
func (s *APISink) Close() error {
	s.once.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
	return nil
}

var _ ports.Sink = (*APISink)(nil)
