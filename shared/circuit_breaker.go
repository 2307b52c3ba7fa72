package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SourceCircuitBreaker stops the scraper from hammering a code source that
// keeps failing. After failureThreshold consecutive failures the circuit for
// that source opens; attempts resume once cooldown has elapsed.
type SourceCircuitBreaker struct {
	failureThreshold int
	cooldown         time.Duration
	mutex            sync.Mutex
	failures         map[string]int
	lastFailureTime  map[string]time.Time
	circuitOpen      map[string]bool
}

// NewSourceCircuitBreaker creates a circuit breaker covering all scrape sources
func NewSourceCircuitBreaker(failureThreshold int, cooldown time.Duration) *SourceCircuitBreaker {
	return &SourceCircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		failures:         make(map[string]int),
		lastFailureTime:  make(map[string]time.Time),
		circuitOpen:      make(map[string]bool),
	}
}

// RecordFailure records a failed scrape for a source, opening the circuit
// once the failure threshold is reached
func (cb *SourceCircuitBreaker) RecordFailure(source string) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures[source]++
	cb.lastFailureTime[source] = time.Now()

	if cb.failures[source] >= cb.failureThreshold {
		cb.circuitOpen[source] = true
		logrus.WithFields(logrus.Fields{
			"component": "SourceCircuitBreaker",
			"source":    source,
			"failures":  cb.failures[source],
		}).Warn("Circuit breaker opened for source")
	}
}

// RecordSuccess resets the failure count and closes the circuit for a source
func (cb *SourceCircuitBreaker) RecordSuccess(source string) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures[source] = 0
	cb.circuitOpen[source] = false
}

// CanAttempt reports whether a scrape of this source should be attempted.
// An open circuit closes again once the cooldown has elapsed.
func (cb *SourceCircuitBreaker) CanAttempt(source string) bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.circuitOpen[source] {
		return true
	}

	if lastFailure, ok := cb.lastFailureTime[source]; ok {
		if time.Since(lastFailure) >= cb.cooldown {
			logrus.WithFields(logrus.Fields{
				"component": "SourceCircuitBreaker",
				"source":    source,
			}).Info("Circuit breaker cooldown elapsed, attempting source again")
			cb.circuitOpen[source] = false
			return true
		}
	}

	return false
}
