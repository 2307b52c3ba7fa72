package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewSourceCircuitBreaker(3, 1*time.Minute)

	cb.RecordFailure("source")
	cb.RecordFailure("source")
	assert.True(t, cb.CanAttempt("source"), "circuit stays closed below the threshold")

	cb.RecordFailure("source")
	assert.False(t, cb.CanAttempt("source"), "circuit opens at the threshold")
}

func TestCircuitBreakerTracksSourcesIndependently(t *testing.T) {
	cb := NewSourceCircuitBreaker(1, 1*time.Minute)

	cb.RecordFailure("broken")
	assert.False(t, cb.CanAttempt("broken"))
	assert.True(t, cb.CanAttempt("healthy"))
}

func TestCircuitBreakerSuccessResets(t *testing.T) {
	cb := NewSourceCircuitBreaker(2, 1*time.Minute)

	cb.RecordFailure("source")
	cb.RecordSuccess("source")
	cb.RecordFailure("source")
	assert.True(t, cb.CanAttempt("source"), "a success resets the consecutive failure count")
}

func TestCircuitBreakerCooldownReopens(t *testing.T) {
	cb := NewSourceCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure("source")
	assert.False(t, cb.CanAttempt("source"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.CanAttempt("source"), "attempts resume after the cooldown")
}
