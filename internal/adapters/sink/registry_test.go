package sink

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/adapters/observability"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// memorySink collects records for assertions; fail makes every write
// return an error.
type memorySink struct {
	mu   sync.Mutex
	name string
	fail bool
	recs []*domain.Record
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Write(rec *domain.Record) error {
	if m.fail {
		return fmt.Errorf("%s: write failed", m.name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) records() []*domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Record, len(m.recs))
	copy(out, m.recs)
	return out
}

func quietObs() *observability.Obs {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return observability.New(log)
}

func TestRegistryFailureIsolation(t *testing.T) {
	obs := quietObs()
	reg := NewRegistry(obs)

	failing := &memorySink{name: "failing", fail: true}
	second := &memorySink{name: "second"}
	third := &memorySink{name: "third"}
	reg.Add(failing)
	reg.Add(second)
	reg.Add(third)

	for i := 1; i <= 5; i++ {
		reg.WriteToAll(apiRecord(i))
	}

	for _, s := range []*memorySink{second, third} {
		got := s.records()
		if len(got) != 5 {
			t.Fatalf("%s: expected 5 records despite failing peer, got %d", s.name, len(got))
		}
		for i, rec := range got {
			want := fmt.Sprintf("infusion_pump_%03d", i+1)
			if rec.DeviceID != want {
				t.Fatalf("%s: record %d out of order: %s", s.name, i, rec.DeviceID)
			}
		}
	}

	if got := testutil.ToFloat64(obs.Counter(observability.MetricSinkWriteErrors)); got != 5 {
		t.Fatalf("expected 5 write errors counted, got %f", got)
	}
}

func TestRegistryDisableEnable(t *testing.T) {
	reg := NewRegistry(quietObs())
	console := &memorySink{name: "console"}
	file := &memorySink{name: "file"}
	reg.Add(console)
	reg.Add(file)

	reg.WriteToAll(apiRecord(1))
	reg.WriteToAll(apiRecord(2))

	if err := reg.Disable("console"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	reg.WriteToAll(apiRecord(3))
	reg.WriteToAll(apiRecord(4))

	if err := reg.Enable("console"); err != nil {
		t.Fatalf("enable: %v", err)
	}
	reg.WriteToAll(apiRecord(5))

	if got := len(console.records()); got != 3 {
		t.Fatalf("console should see 3 records, got %d", got)
	}
	if got := len(file.records()); got != 5 {
		t.Fatalf("file should see all 5 records, got %d", got)
	}
}

func TestRegistryUnknownSinkToggle(t *testing.T) {
	reg := NewRegistry(quietObs())
	reg.Add(&memorySink{name: "console"})

	if err := reg.Disable("database"); err == nil {
		t.Fatalf("expected error for unknown sink name")
	}
	// The failed toggle must not affect delivery.
	reg.WriteToAll(apiRecord(1))
}

func TestRegistryNamesInOrder(t *testing.T) {
	reg := NewRegistry(quietObs())
	reg.Add(&memorySink{name: "console"})
	reg.Add(&memorySink{name: "file"})
	reg.Add(&memorySink{name: "api"})

	names := reg.Names()
	want := []string{"console", "file", "api"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("position %d: expected %s, got %s", i, n, names[i])
		}
	}
}
