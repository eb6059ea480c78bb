package simulator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
)

// Stats counts delivered records per device type. It is fed as a
// registry subscriber and snapshotted to a timestamped file on stop.
type Stats struct {
	mu        sync.Mutex
	total     int64
	perType   map[domain.DeviceType]int64
	startTime time.Time
	endTime   time.Time
}

// StatsSnapshot is the persisted artifact shape.
type StatsSnapshot struct {
	TotalMessages         int64            `json:"total_messages"`
	MessagesPerDeviceType map[string]int64 `json:"messages_per_device_type"`
	StartTime             string           `json:"start_time"`
	EndTime               string           `json:"end_time"`
}

func NewStats() *Stats {
	return &Stats{perType: make(map[domain.DeviceType]int64)}
}

// Record is the Subscriber hook counting one delivered record.
func (s *Stats) Record(rec *domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.perType[rec.DeviceType]++
}

func (s *Stats) MarkStart(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = t
}

func (s *Stats) MarkEnd(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = t
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	perType := make(map[string]int64, len(s.perType))
	for dt, n := range s.perType {
		perType[string(dt)] = n
	}
	snap := StatsSnapshot{
		TotalMessages:         s.total,
		MessagesPerDeviceType: perType,
	}
	if !s.startTime.IsZero() {
		snap.StartTime = s.startTime.Format(time.RFC3339)
	}
	if !s.endTime.IsZero() {
		snap.EndTime = s.endTime.Format(time.RFC3339)
	}
	return snap
}

// Total returns the running message count.
func (s *Stats) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// WriteFile persists the snapshot once, to
// <dir>/simulation_stats_YYYYMMDD_HHMMSS.json, and returns the path.
func (s *Stats) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("stats: create %s: %w", dir, err)
	}
	name := fmt.Sprintf("simulation_stats_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	enc, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("stats: marshal: %w", err)
	}
	if err := os.WriteFile(path, enc, 0o644); err != nil {
		return "", fmt.Errorf("stats: write %s: %w", path, err)
	}
	return path, nil
}
