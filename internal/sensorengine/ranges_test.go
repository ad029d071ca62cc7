package sensorengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRejectsOutOfRangeForKnownSensor(t *testing.T) {
	assert.False(t, IsValid("oil_press", -1))
	assert.False(t, IsValid("oil_press", 151))
	assert.True(t, IsValid("oil_press", 75))
}

func TestIsValidAlwaysTrueForUnconfiguredSensor(t *testing.T) {
	assert.True(t, IsValid("exotic_sensor", -999))
}

func TestConfirmationsTableHasExpectedGates(t *testing.T) {
	w, ok := Confirmations["def_level"]
	assert.True(t, ok)
	assert.Equal(t, 3, w.Readings)
	assert.Equal(t, 3600, w.Window)

	_, ok = Confirmations["exotic_sensor"]
	assert.False(t, ok)
}
