package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/redis/go-redis/v9"
)

const dynamicCodeKeyPrefix = "dynamic_code"

const (
	fieldOwnerID    = "owner_id"
	fieldHashedCode = "hashed_code"
	fieldExpiresAt  = "expires_at"
)

// deleteIfMatch removes KEYS[1] only when its hashed_code field equals ARGV[1].
var deleteIfMatch = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'hashed_code') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// DynamicCodeRepo stores one hash per owner under dynamic_code:<owner_id>,
// expired by Redis key TTL.
type DynamicCodeRepo struct {
	redis *redis.Client
}

func NewDynamicCodeRepo(rdb *redis.Client) *DynamicCodeRepo {
	return &DynamicCodeRepo{redis: rdb}
}

func (r *DynamicCodeRepo) key(ownerID string) string {
	return dynamicCodeKeyPrefix + ":" + ownerID
}

// Put replaces the owner's record and sets its TTL in one transaction.
func (r *DynamicCodeRepo) Put(ctx context.Context, c *domain.DynamicCode, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("dynamic code ttl must be positive: %w", domain.ErrBadRequest)
	}
	key := r.key(c.OwnerID)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldOwnerID, c.OwnerID,
			fieldHashedCode, c.HashedCode,
			fieldExpiresAt, c.ExpiresAt.UnixMilli(),
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put dynamic code: %w", err)
	}
	return nil
}

func (r *DynamicCodeRepo) Get(ctx context.Context, ownerID string) (*domain.DynamicCode, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("dynamic code: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("redis get dynamic code: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("dynamic code: %w", domain.ErrNotFound)
	}
	ms, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis decode dynamic code expiry: %w", err)
	}
	return &domain.DynamicCode{
		OwnerID:    fields[fieldOwnerID],
		HashedCode: fields[fieldHashedCode],
		ExpiresAt:  time.UnixMilli(ms),
	}, nil
}

// DeleteIf removes the owner's record only while it still holds hashedCode.
func (r *DynamicCodeRepo) DeleteIf(ctx context.Context, ownerID, hashedCode string) (bool, error) {
	n, err := deleteIfMatch.Run(ctx, r.redis, []string{r.key(ownerID)}, hashedCode).Int()
	if err != nil {
		return false, fmt.Errorf("redis delete dynamic code: %w", err)
	}
	return n > 0, nil
}
