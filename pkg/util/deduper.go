package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper is a redis-backed once-guard keyed by operation + entity id.
// Used to make externally retried mutations (double-clicked approvals,
// replayed webhooks) idempotent.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire a dedup lock for a given operation + id.
// Returns true the first time, false on a duplicate. When redis is
// unavailable it fails open and allows processing.
func (d *Deduper) AcquireOnce(ctx context.Context, operation string, id int) bool {
	key := fmt.Sprintf("dedup:%s:%d", operation, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("operation", operation),
				zap.Int("id", id),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated operation",
			zap.String("operation", operation),
			zap.Int("id", id),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the dedup key so the operation can be retried. Called
// when the guarded work fails before it commits anything.
func (d *Deduper) Release(ctx context.Context, operation string, id int) {
	key := fmt.Sprintf("dedup:%s:%d", operation, id)

	if err := d.rdb.Del(ctx, key).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Redis dedup release failed",
			zap.String("operation", operation),
			zap.Int("id", id),
			zap.Error(err),
		)
	}
}
