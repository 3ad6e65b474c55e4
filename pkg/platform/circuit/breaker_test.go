package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("gotrue", WithFailureThreshold(3), WithSuccessThreshold(2))

	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateChange{Opened: true}, b.RecordFailure())
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())

	// Further failures do not report another transition.
	assert.Equal(t, StateChange{}, b.RecordFailure())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := New("gotrue", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.False(t, b.IsOpen())
}

func TestBreakerClosesAfterConsecutiveSuccesses(t *testing.T) {
	b := New("gotrue", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	assert.Equal(t, StateChange{}, b.RecordSuccess())
	b.RecordFailure()
	assert.Equal(t, StateChange{}, b.RecordSuccess())
	assert.True(t, b.IsOpen())
	assert.Equal(t, StateChange{Closed: true}, b.RecordSuccess())
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	b.Reset()
	assert.False(t, b.IsOpen())
}
