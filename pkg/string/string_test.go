package string

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "participant_id", ToSnakeCase("ParticipantID"))
	assert.Equal(t, "group_total", ToSnakeCase("GroupTotal"))
	assert.Equal(t, "value", ToSnakeCase("Value"))
}

func TestTrimStrings(t *testing.T) {
	a, b := "  beer ", "\tp1\n"
	TrimStrings(&a, &b)
	assert.Equal(t, "beer", a)
	assert.Equal(t, "p1", b)
}
