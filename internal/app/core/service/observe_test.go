package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartObservationInvokesStartAndCompleteHooks(t *testing.T) {
	var startedMeta, completedMeta map[string]string
	var completeErr error
	var duration time.Duration

	hooks := ObservationHooks{
		OnStart: func(ctx context.Context, meta map[string]string) { startedMeta = meta },
		OnComplete: func(ctx context.Context, meta map[string]string, err error, d time.Duration) {
			completedMeta = meta
			completeErr = err
			duration = d
		},
	}

	meta := map[string]string{"truck_id": "truck-1"}
	done := StartObservation(context.Background(), hooks, meta)
	boom := errors.New("boom")
	done(boom)

	assert.Equal(t, meta, startedMeta)
	assert.Equal(t, meta, completedMeta)
	assert.ErrorIs(t, completeErr, boom)
	assert.GreaterOrEqual(t, duration, time.Duration(0))
}

func TestStartObservationToleratesNilHooks(t *testing.T) {
	done := StartObservation(context.Background(), NoopObservationHooks, nil)
	assert.NotPanics(t, func() { done(nil) })
}
