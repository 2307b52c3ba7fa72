package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SourceMetrics tracks scrape outcomes for a single code source
type SourceMetrics struct {
	Attempts       int64         `json:"attempts"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	CodesExtracted int64         `json:"codes_extracted"`
	LastDuration   time.Duration `json:"last_duration"`
	LastSuccess    time.Time     `json:"last_success"`
}

// ScrapeMetrics collects per-source scrape statistics for the lifetime of
// the process. Exposed through the stats command and the HTTP API.
type ScrapeMetrics struct {
	mutex   sync.RWMutex
	sources map[string]*SourceMetrics
}

// NewScrapeMetrics creates an empty metrics collector
func NewScrapeMetrics() *ScrapeMetrics {
	return &ScrapeMetrics{
		sources: make(map[string]*SourceMetrics),
	}
}

func (m *ScrapeMetrics) sourceLocked(source string) *SourceMetrics {
	entry, exists := m.sources[source]
	if !exists {
		entry = &SourceMetrics{}
		m.sources[source] = entry
	}
	return entry
}

// RecordScrape records the outcome of one scrape pass for a source
func (m *ScrapeMetrics) RecordScrape(source string, codesExtracted int, duration time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry := m.sourceLocked(source)
	entry.Attempts++
	entry.LastDuration = duration

	if err != nil {
		entry.Failures++
	} else {
		entry.Successes++
		entry.CodesExtracted += int64(codesExtracted)
		entry.LastSuccess = time.Now()
	}

	logrus.WithFields(logrus.Fields{
		"component":       "ScrapeMetrics",
		"source":          source,
		"codes_extracted": codesExtracted,
		"duration":        duration,
		"failed":          err != nil,
	}).Debug("Recorded scrape outcome")
}

// Snapshot returns a copy of the per-source metrics
func (m *ScrapeMetrics) Snapshot() map[string]SourceMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snapshot := make(map[string]SourceMetrics, len(m.sources))
	for source, entry := range m.sources {
		snapshot[source] = *entry
	}
	return snapshot
}
