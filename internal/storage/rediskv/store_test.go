package rediskv

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	store, err := New(fmt.Sprintf("redis://%s", mr.Addr()))
	require.NoError(t, err)
	return store, mr
}

func TestSaveAndLoadEstimatorStateRoundTrips(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveEstimatorState(ctx, "truck-1", []byte(`{"mean_pct":82.5}`)))

	blob, ok, err := store.LoadEstimatorState(ctx, "truck-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"mean_pct":82.5}`, string(blob))
}

func TestLoadEstimatorStateMissingKey(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	blob, ok, err := store.LoadEstimatorState(context.Background(), "unknown-truck")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, blob)
}

func TestSaveEstimatorStateSetsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveEstimatorState(context.Background(), "truck-2", []byte("blob")))
	ttl := mr.TTL(keyPrefix + "truck-2")
	assert.Equal(t, stateTTL, ttl)
}

func TestPingFailsAfterClose(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	err := store.Ping(context.Background())
	assert.Error(t, err)
}
