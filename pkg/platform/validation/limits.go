package validation

import (
	"fmt"

	dErrors "nightout/pkg/domain-errors"
)

// MaxBodySize is the maximum allowed request body size (64 KB).
const MaxBodySize = 64 * 1024

// Tally limits
const (
	// MaxParticipants bounds the squad tracked by one drink tally.
	MaxParticipants = 50

	// MaxParticipantIDLength is the maximum length of a participant identifier.
	MaxParticipantIDLength = 64

	// MaxDrinkDelta bounds a single drink adjustment in either direction.
	MaxDrinkDelta = 100

	// MaxMenuItems bounds the drinks on one price list.
	MaxMenuItems = 20

	// MaxDrinkIDLength is the maximum length of a drink identifier.
	MaxDrinkIDLength = 32
)

// MaxEmailLength is the maximum length of an email address.
const MaxEmailLength = 255

// CheckSliceCount validates that a collection does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckMagnitude validates that |value| does not exceed max.
func CheckMagnitude(fieldName string, value, max int) error {
	if value > max || value < -max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be between -%d and %d", fieldName, max, max))
	}
	return nil
}
