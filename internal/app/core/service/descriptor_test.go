package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCapabilitiesAppendsWithoutMutatingOriginal(t *testing.T) {
	base := Descriptor{Name: "telemetry-loop", Layer: LayerIngestion, Capabilities: []string{"poll"}}
	extended := base.WithCapabilities("persist", "retry")

	assert.Equal(t, []string{"poll"}, base.Capabilities)
	assert.Equal(t, []string{"poll", "persist", "retry"}, extended.Capabilities)
}

func TestWithCapabilitiesNoopOnEmptyVariadic(t *testing.T) {
	base := Descriptor{Name: "telemetry-loop", Capabilities: []string{"poll"}}
	same := base.WithCapabilities()
	assert.Equal(t, base, same)
}
