// Package search maintains the Redis-side popularity index of offers.
package search

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key of the sorted set ranking offers by active booking volume.
const popularSetKey = "offers:popular"

// Indexer refreshes the cached booking counters of offers. It runs off
// the offer.reindex queue so the write path never touches Redis.
type Indexer struct {
	DB  *sql.DB
	RDB *redis.Client
	Log *zap.Logger
}

func NewIndexer(db *sql.DB, rdb *redis.Client, log *zap.Logger) *Indexer {
	return &Indexer{DB: db, RDB: rdb, Log: log}
}

// Reindex recomputes the active booking count of one offer and writes
// it into the popularity set. Offers gone inactive are removed.
func (ix *Indexer) Reindex(ctx context.Context, offerID uint64) error {
	if ix.RDB == nil {
		return nil
	}
	var (
		count  int64
		active bool
	)
	err := ix.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN b.cancellation_date IS NULL THEN b.quantity END), 0),
		        o.is_active AND NOT o.is_soft_deleted
		   FROM offers o
		   LEFT JOIN stocks s ON s.offer_id = o.id
		   LEFT JOIN bookings b ON b.stock_id = s.id
		  WHERE o.id = ?
		  GROUP BY o.id, o.is_active, o.is_soft_deleted`, offerID).Scan(&count, &active)
	if err == sql.ErrNoRows {
		active = false
		err = nil
	}
	if err != nil {
		return fmt.Errorf("count bookings: %w", err)
	}

	member := fmt.Sprintf("%d", offerID)
	if !active {
		if err := ix.RDB.ZRem(ctx, popularSetKey, member).Err(); err != nil {
			return fmt.Errorf("zrem: %w", err)
		}
		ix.Log.Debug("offer removed from popularity index", zap.Uint64("offer_id", offerID))
		return nil
	}
	if err := ix.RDB.ZAdd(ctx, popularSetKey, redis.Z{Score: float64(count), Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	ix.Log.Debug("offer reindexed",
		zap.Uint64("offer_id", offerID), zap.Int64("active_quantity", count))
	return nil
}

// TopOfferIDs returns the most-booked offer IDs, best first.
func (ix *Indexer) TopOfferIDs(ctx context.Context, n int64) ([]string, error) {
	if ix.RDB == nil {
		return nil, nil
	}
	return ix.RDB.ZRevRange(ctx, popularSetKey, 0, n-1).Result()
}
