package models

import (
	"math"
	"time"

	dErrors "nightout/pkg/domain-errors"
)

// Statistics is the running tally of the current outing.
// The zero value means no outing is active.
type Statistics struct {
	GroupTotal       float64
	VenuesVisited    int
	SquadSize        int
	TotalDrinks      int
	SessionStartTime *time.Time
}

// Active reports whether an outing has been started and not reset.
func (s Statistics) Active() bool {
	return s.SessionStartTime != nil
}

// Clone returns a copy that shares no pointers with s.
func (s Statistics) Clone() Statistics {
	out := s
	if s.SessionStartTime != nil {
		t := *s.SessionStartTime
		out.SessionStartTime = &t
	}
	return out
}

// StartTimePrecision is the resolution of a persisted start time.
const StartTimePrecision = time.Millisecond

// Started returns zeroed statistics stamped with the given start time,
// truncated to StartTimePrecision in UTC.
func Started(at time.Time) Statistics {
	at = at.UTC().Truncate(StartTimePrecision)
	return Statistics{SessionStartTime: &at}
}

// Equal compares field by field, treating start times as instants.
func (s Statistics) Equal(other Statistics) bool {
	if s.GroupTotal != other.GroupTotal ||
		s.VenuesVisited != other.VenuesVisited ||
		s.SquadSize != other.SquadSize ||
		s.TotalDrinks != other.TotalDrinks {
		return false
	}
	if s.SessionStartTime == nil || other.SessionStartTime == nil {
		return s.SessionStartTime == nil && other.SessionStartTime == nil
	}
	return s.SessionStartTime.Equal(*other.SessionStartTime)
}

// ValidateTotal rejects negative or non-finite currency amounts.
func ValidateTotal(total float64) error {
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return dErrors.New(dErrors.CodeInvalidInput, "group total must be a finite amount")
	}
	if total < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "group total must not be negative")
	}
	return nil
}

// ValidateCount rejects negative counters. field names the counter in the error.
func ValidateCount(field string, n int) error {
	if n < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must not be negative")
	}
	return nil
}
