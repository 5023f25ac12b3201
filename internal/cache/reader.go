package cache

import (
	"context"

	"go.uber.org/zap"

	"powermesh/internal/models"
)

// Store is the durable fallback behind the cache.
type Store interface {
	LatestPower(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error)
	LatestEnergy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error)
}

// Reader serves latest-reading lookups from the cache and falls back to the
// store on a miss or cache error. A cache error is never surfaced: the store
// answer wins.
type Reader struct {
	latest *Latest
	store  Store
	logger *zap.Logger
}

// NewReader creates a cache-backed latest-reading reader.
func NewReader(latest *Latest, store Store, logger *zap.Logger) *Reader {
	return &Reader{latest: latest, store: store, logger: logger}
}

// LatestPower returns the most recent power reading for a device, or
// (nil, nil) when the device has never reported.
func (r *Reader) LatestPower(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error) {
	cached, err := r.latest.Power(ctx, homeID, deviceID)
	if err != nil {
		r.logger.Warn("latest power cache read failed, falling back to store",
			zap.String("device_id", deviceID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}
	return r.store.LatestPower(ctx, homeID, deviceID)
}

// LatestEnergy returns the most recent energy reading for a device, or
// (nil, nil) when the device has never reported.
func (r *Reader) LatestEnergy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error) {
	cached, err := r.latest.Energy(ctx, homeID, deviceID)
	if err != nil {
		r.logger.Warn("latest energy cache read failed, falling back to store",
			zap.String("device_id", deviceID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}
	return r.store.LatestEnergy(ctx, homeID, deviceID)
}
