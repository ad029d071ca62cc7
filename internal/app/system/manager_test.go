package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
)

type recordingService struct {
	NoopService
	startErr error
	started  *[]string
	stopped  *[]string
}

func (r recordingService) Start(ctx context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	*r.started = append(*r.started, r.ServiceName)
	return nil
}

func (r recordingService) Stop(ctx context.Context) error {
	*r.stopped = append(*r.stopped, r.ServiceName)
	return nil
}

type describingService struct {
	recordingService
	descriptor core.Descriptor
}

func (d describingService) Descriptor() core.Descriptor { return d.descriptor }

func TestManagerStartsAndStopsInOrder(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "a"}, started: &started, stopped: &stopped}))
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "b"}, started: &started, stopped: &stopped}))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{"a", "b"}, started)

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, []string{"b", "a"}, stopped)
}

func TestManagerRejectsNilService(t *testing.T) {
	m := NewManager()
	err := m.Register(nil)
	assert.Error(t, err)
}

func TestManagerRejectsRegistrationAfterStart(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	require.NoError(t, m.Start(context.Background()))

	err := m.Register(recordingService{NoopService: NoopService{ServiceName: "late"}, started: &started, stopped: &stopped})
	assert.Error(t, err)
}

func TestManagerStopsAlreadyStartedServicesWhenOneFailsToStart(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "a"}, started: &started, stopped: &stopped}))
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "b"}, startErr: errors.New("boom"), started: &started, stopped: &stopped}))
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "c"}, started: &started, stopped: &stopped}))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, started, "service c must never start once b fails")
	assert.Equal(t, []string{"a"}, stopped, "only already-started services roll back")
}

func TestManagerStartAndStopAreIdempotent(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{NoopService: NoopService{ServiceName: "a"}, started: &started, stopped: &stopped}))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	assert.Len(t, started, 1)

	require.NoError(t, m.Stop(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
	assert.Len(t, stopped, 1)
}

func TestManagerDescriptorsAreSortedByLayerThenName(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	require.NoError(t, m.Register(describingService{
		recordingService: recordingService{NoopService: NoopService{ServiceName: "zeta"}, started: &started, stopped: &stopped},
		descriptor:       core.Descriptor{Name: "zeta", Layer: core.LayerHTTP},
	}))
	require.NoError(t, m.Register(describingService{
		recordingService: recordingService{NoopService: NoopService{ServiceName: "alpha"}, started: &started, stopped: &stopped},
		descriptor:       core.Descriptor{Name: "alpha", Layer: core.LayerEngine},
	}))

	descriptors := m.Descriptors()
	require.Len(t, descriptors, 2)
	assert.Equal(t, "alpha", descriptors[0].Name)
	assert.Equal(t, "zeta", descriptors[1].Name)
}
