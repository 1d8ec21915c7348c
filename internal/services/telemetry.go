package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bullwork-fleet/apiserver/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const snapshotTTL = 30 * time.Second

// SnapshotCache holds recent telemetry snapshots so rapid polls for the
// same vehicle see a stable reading.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TelemetryService produces mock telemetry snapshots. No device feed is
// wired up; readings are fixed sequences stamped at generation time.
type TelemetryService struct {
	cache  SnapshotCache
	logger *zap.Logger
}

// NewTelemetryService constructs the service. cache may be nil, in which
// case every request generates a fresh snapshot.
func NewTelemetryService(cache SnapshotCache, logger *zap.Logger) *TelemetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryService{cache: cache, logger: logger}
}

// Snapshot returns the telemetry reading for a vehicle, serving from the
// cache when a fresh entry exists. Cache failures fall back to
// generation.
func (s *TelemetryService) Snapshot(ctx context.Context, vehicleID int) (types.TelemetrySnapshot, error) {
	key := fmt.Sprintf("telemetry:%d", vehicleID)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			var snapshot types.TelemetrySnapshot
			if err := json.Unmarshal(data, &snapshot); err == nil {
				return snapshot, nil
			}
		}
	}

	snapshot := types.TelemetrySnapshot{
		Speed:       []int{10, 15, 20, 18, 22},
		Battery:     []int{100, 95, 90, 85, 80},
		Temperature: []int{30, 31, 32, 33, 34},
		GPS:         types.GPSPoint{Lat: 18.52, Lng: 73.85},
		LastUpdated: time.Now(),
	}

	if s.cache != nil {
		data, err := json.Marshal(snapshot)
		if err == nil {
			if err := s.cache.Set(ctx, key, data, snapshotTTL); err != nil {
				s.logger.Warn("cache telemetry snapshot", zap.Int("vehicle_id", vehicleID), zap.Error(err))
			}
		}
	}

	return snapshot, nil
}

// RedisSnapshotCache adapts a redis client to the SnapshotCache
// interface.
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
