package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimitUsesDefaultWhenNonPositive(t *testing.T) {
	assert.Equal(t, 25, ClampLimit(0, 0, 0))
	assert.Equal(t, 10, ClampLimit(-5, 10, 100))
}

func TestClampLimitClampsAboveMax(t *testing.T) {
	assert.Equal(t, 100, ClampLimit(500, 10, 100))
}

func TestClampLimitPassesThroughWithinBounds(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(50, 10, 100))
}

func TestClampLimitDefaultsMaxToDefaultWhenUnset(t *testing.T) {
	assert.Equal(t, 10, ClampLimit(999, 10, 0))
}
