// FilePath: internal/monitoring/monitoring.go
package monitoring

import (
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

// Config holds monitoring configuration
type Config struct {
	LogLevel string
}

// Service keeps lightweight in-process counters of notable hub events
// (ingest outcomes, cleanup runs) and logs each occurrence. Counters are
// exposed through the health endpoint.
type Service struct {
	config Config

	mu       sync.RWMutex
	counters map[string]int64
}

// NewService creates a new monitoring service
func NewService(config Config) *Service {
	return &Service{
		config:   config,
		counters: make(map[string]int64),
	}
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	ts := time.Now()

	s.mu.Lock()
	s.counters[eventName]++
	count := s.counters[eventName]
	s.mu.Unlock()

	nuts.L.Debugf("[Monitoring] Event %s (#%d) recorded at %v with labels: %v", eventName, count, ts, labels)
}

// Counters returns a snapshot of all event counters.
func (s *Service) Counters() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]int64, len(s.counters))
	for name, count := range s.counters {
		snapshot[name] = count
	}
	return snapshot
}
