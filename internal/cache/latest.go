package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"powermesh/internal/models"
)

// latestTTL bounds staleness of cached samples; the store remains the
// source of truth after expiry.
const latestTTL = time.Hour

// Latest caches the most recent power and energy sample per device in Redis.
// Ingestion writes it on every accepted sample; the engine reads it to avoid
// a store round-trip per condition.
type Latest struct {
	rdb *redis.Client
}

// NewLatest creates a latest-reading cache.
func NewLatest(rdb *redis.Client) *Latest {
	return &Latest{rdb: rdb}
}

func powerKey(homeID, deviceID string) string {
	return fmt.Sprintf("latest:power:%s:%s", homeID, deviceID)
}

func energyKey(homeID, deviceID string) string {
	return fmt.Sprintf("latest:energy:%s:%s", homeID, deviceID)
}

// SetPower stores the latest power reading for a device.
func (l *Latest) SetPower(ctx context.Context, r models.PowerReading) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return l.rdb.Set(ctx, powerKey(r.HomeID, r.DeviceID), raw, latestTTL).Err()
}

// SetEnergy stores the latest energy reading for a device.
func (l *Latest) SetEnergy(ctx context.Context, r models.EnergyReading) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return l.rdb.Set(ctx, energyKey(r.HomeID, r.DeviceID), raw, latestTTL).Err()
}

// Power returns the cached latest power reading, or (nil, nil) on a miss.
func (l *Latest) Power(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error) {
	raw, err := l.rdb.Get(ctx, powerKey(homeID, deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r models.PowerReading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Energy returns the cached latest energy reading, or (nil, nil) on a miss.
func (l *Latest) Energy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error) {
	raw, err := l.rdb.Get(ctx, energyKey(homeID, deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r models.EnergyReading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
