package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	pkgcache "github.com/noah-isme/campus-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// ViewStore persists encoded timetable views.
type ViewStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Purge(ctx context.Context, pattern string) (int, error)
}

// TimetableCache fronts batch and faculty timetable reads.
// Store failures are logged and treated as misses so reads never fail on the cache.
type TimetableCache struct {
	store   ViewStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTimetableCache returns a cache over store. A nil store disables caching.
func NewTimetableCache(store ViewStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *TimetableCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

func (c *TimetableCache) enabled() bool {
	return c != nil && c.store != nil
}

// View looks up the cached timetable of an owner ("batch" or "faculty").
func (c *TimetableCache) View(ctx context.Context, kind, ownerID string) (*dto.TimetableView, bool) {
	if !c.enabled() {
		return nil, false
	}
	key := pkgcache.Key(kind, ownerID)
	began := time.Now()
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.RecordCacheOperation(false, time.Since(began))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("timetable cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var view dto.TimetableView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.metrics.RecordCacheOperation(false, time.Since(began))
		c.logger.Warn("discarding undecodable timetable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.metrics.RecordCacheOperation(true, time.Since(began))
	return &view, true
}

// Remember stores view under its owner key for the configured TTL.
func (c *TimetableCache) Remember(ctx context.Context, view dto.TimetableView) {
	if !c.enabled() {
		return
	}
	key := pkgcache.Key(view.Kind, view.OwnerID)
	payload, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn("timetable cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	began := time.Now()
	err = c.store.Set(ctx, key, payload, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(began))
	if err != nil {
		c.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge drops every cached timetable view after a regeneration.
func (c *TimetableCache) Purge(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if _, err := c.store.Purge(ctx, pkgcache.Pattern()); err != nil {
		c.logger.Warn("timetable cache purge failed", zap.Error(err))
	}
}
