package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"auction-marketplace/internal/domain"
)

// RedisStatusCache is the write-back cache of resolver output. Readers that
// miss (or distrust) the cache fall back to resolving against the stored
// record; a stale entry here can never decide an admission.
type RedisStatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

func (r *RedisStatusCache) SetStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	key := fmt.Sprintf("auction:%s:status", auctionID)
	return r.client.Set(ctx, key, string(status), 0).Err()
}

func (r *RedisStatusCache) GetStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	key := fmt.Sprintf("auction:%s:status", auctionID)

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("status for auction %s: %w", auctionID, domain.ErrNotFound)
		}
		return "", err
	}

	status := domain.AuctionStatus(result)
	if !status.Valid() {
		return "", fmt.Errorf("status for auction %s: unknown value %q", auctionID, result)
	}
	return status, nil
}
