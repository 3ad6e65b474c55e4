package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "nightout/pkg/domain-errors"
)

func TestActive(t *testing.T) {
	assert.False(t, Statistics{}.Active())
	assert.True(t, Started(time.Now()).Active())
}

func TestCloneDetachesStartTime(t *testing.T) {
	start := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	orig := Started(start)

	clone := orig.Clone()
	*clone.SessionStartTime = start.Add(time.Hour)

	assert.True(t, orig.SessionStartTime.Equal(start))
}

func TestStartedTruncatesToStoredPrecision(t *testing.T) {
	local := time.Date(2026, 10, 18, 23, 30, 0, 123456789, time.FixedZone("CEST", 2*60*60))

	stats := Started(local)

	assert.Equal(t, time.Date(2026, 10, 18, 21, 30, 0, 123000000, time.UTC), *stats.SessionStartTime)
}

func TestEqualComparesInstants(t *testing.T) {
	utc := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("CEST", 2*60*60))

	a := Statistics{GroupTotal: 48.5, SessionStartTime: &utc}
	b := Statistics{GroupTotal: 48.5, SessionStartTime: &local}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Statistics{GroupTotal: 48.5}))
	assert.True(t, Statistics{}.Equal(Statistics{}))
}

func TestValidateTotal(t *testing.T) {
	assert.NoError(t, ValidateTotal(0))
	assert.NoError(t, ValidateTotal(48.50))

	for _, bad := range []float64{-0.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := ValidateTotal(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "value %v", bad)
	}
}

func TestValidateCount(t *testing.T) {
	assert.NoError(t, ValidateCount("squad size", 0))

	err := ValidateCount("squad size", -1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Contains(t, err.Error(), "squad size")
}
