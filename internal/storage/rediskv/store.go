// Package rediskv implements the optional fast-path estimator state store
// backed by Redis (EWMA/CUSUM trend state is not stored here), used ahead of the operational Postgres blob store
// when REDIS_URL is configured (§4.2, §4.4).
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fleet-analytics:estimator-state:"
const stateTTL = 7 * 24 * time.Hour

// Store persists the Kalman estimator's per-truck state blob in Redis,
// keyed opaquely by truck ID. It satisfies storage.EstimatorStateStore.
type Store struct {
	client *redis.Client
}

// New connects to the Redis instance at url (a redis:// or rediss:// URL).
func New(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return &Store{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// SaveEstimatorState writes the truck's serialized Kalman state, refreshing
// its TTL on every write so a truck that stops reporting eventually ages
// out of the fast-path cache instead of accumulating forever.
func (s *Store) SaveEstimatorState(ctx context.Context, truckID string, blob []byte) error {
	return s.client.Set(ctx, keyPrefix+truckID, blob, stateTTL).Err()
}

// LoadEstimatorState reads the truck's cached state. ok is false both when
// the key is absent and when Redis is unreachable, mirroring the Postgres
// store's sql.ErrNoRows convention so callers can fall back uniformly.
func (s *Store) LoadEstimatorState(ctx context.Context, truckID string) ([]byte, bool, error) {
	blob, err := s.client.Get(ctx, keyPrefix+truckID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}
