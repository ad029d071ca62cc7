package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCanonicalPassesThrough(t *testing.T) {
	assert.Equal(t, "oil_system", Normalize("oil_system"))
}

func TestNormalizeEnglishAndSpanishKeywords(t *testing.T) {
	assert.Equal(t, "oil_system", Normalize("Low oil pressure"))
	assert.Equal(t, "oil_system", Normalize("Presion de aceite baja"))
	assert.Equal(t, "cooling_system", Normalize("Coolant temperature high"))
	assert.Equal(t, "def_system", Normalize("DEF tank low"))
	assert.Equal(t, "electrical", Normalize("Battery voltage drop"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	once := Normalize("Gearbox slipping")
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeUnrecognizedFallsBackToSlug(t *testing.T) {
	assert.Equal(t, "some_weird_thing", Normalize("Some Weird Thing"))
}

func TestNormalizeIsCachedAcrossCalls(t *testing.T) {
	first := Normalize("Fault code P0128 detected")
	second := Normalize("Fault code P0128 detected")
	assert.Equal(t, first, second)
	assert.Equal(t, "dtc", first)
}
