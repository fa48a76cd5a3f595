package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:     client,
		baseTTL:    15 * time.Minute,
		receiptTTL: 7 * 24 * time.Hour,
	}
}

type RedisCache struct {
	client     *redis.Client
	baseTTL    time.Duration
	receiptTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, email string) ([]domain.CartLine, error) {
	key := cacheKey(email)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err2 := json.Unmarshal(data, &lines); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart lines failed: %w", err2)
	}

	return lines, nil
}

func (r *RedisCache) Set(ctx context.Context, email string, lines []domain.CartLine) error {
	key := cacheKey(email)
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart lines failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, email string) error {
	key := cacheKey(email)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

// ClaimReceipt records that a receipt for paymentID is being sent. It returns
// false when another delivery already claimed it.
func (r *RedisCache) ClaimReceipt(ctx context.Context, paymentID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, receiptKey(paymentID), time.Now().UTC().Format(time.RFC3339), r.receiptTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseReceipt drops a claim so that a later delivery may retry.
func (r *RedisCache) ReleaseReceipt(ctx context.Context, paymentID string) error {
	if err := r.client.Del(ctx, receiptKey(paymentID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(email string) string {
	return fmt.Sprintf("cart:%s", email)
}

func receiptKey(paymentID string) string {
	return fmt.Sprintf("receipt:%s", paymentID)
}
