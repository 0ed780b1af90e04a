// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MotionUpdatedStream carries after-motion-updated events between API instances.
const MotionUpdatedStream = "plenum.motion_updated"

type RedisDB struct {
	Client     *redis.Client
	PendingTTL time.Duration
}

func NewRedisDB(redisURL string, pendingTTL time.Duration) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	zap.L().Info("[Redis] Connected to Redis")
	return &RedisDB{Client: client, PendingTTL: pendingTTL}, nil
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		zap.L().Info("[Redis] Connection closed")
	}
}

// Cache methods
func (r *RedisDB) SetCache(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, "cache:"+key, data, expiration).Err()
}

func (r *RedisDB) GetCache(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Client.Get(ctx, "cache:"+key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// scanBatch is the COUNT hint for each SCAN round trip.
const scanBatch = 100

// InvalidateCache deletes cached keys matching pattern. It walks the keyspace
// with SCAN so a large instance is never blocked.
func (r *RedisDB) InvalidateCache(ctx context.Context, pattern string) error {
	var keys []string
	iter := r.Client.Scan(ctx, 0, "cache:"+pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.Client.Del(ctx, keys...).Err()
	}
	return nil
}

// ============================================
// Pending motions cache
// ============================================

func pendingKey(plenumID string, groupID int64) string {
	return fmt.Sprintf("pendingmotions:%s:%d", plenumID, groupID)
}

func (r *RedisDB) GetPending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, bool) {
	var motions []*repository.Motion
	err := r.GetCache(ctx, pendingKey(plenumID, groupID), &motions)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("[Redis] Pending cache read failed", zap.String("plenum", plenumID), zap.Error(err))
		}
		return nil, false
	}
	return motions, true
}

func (r *RedisDB) SetPending(ctx context.Context, plenumID string, groupID int64, motions []*repository.Motion) {
	if err := r.SetCache(ctx, pendingKey(plenumID, groupID), motions, r.PendingTTL); err != nil {
		zap.L().Warn("[Redis] Pending cache write failed", zap.String("plenum", plenumID), zap.Error(err))
	}
}

func (r *RedisDB) InvalidatePending(ctx context.Context, plenumID string) {
	if err := r.InvalidateCache(ctx, fmt.Sprintf("pendingmotions:%s:*", plenumID)); err != nil {
		zap.L().Warn("[Redis] Pending cache invalidation failed", zap.String("plenum", plenumID), zap.Error(err))
	}
}

// ============================================
// Motion update stream
// ============================================

// PublishMotionUpdate appends an event to the motion update stream.
func (r *RedisDB) PublishMotionUpdate(ctx context.Context, fields map[string]interface{}) error {
	return r.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: MotionUpdatedStream,
		MaxLen: 10000,
		Approx: true,
		Values: fields,
	}).Err()
}

// ReadMotionUpdates blocks until events after lastID arrive and returns them
// with the id to resume from.
func (r *RedisDB) ReadMotionUpdates(ctx context.Context, lastID string, block time.Duration) ([]map[string]interface{}, string, error) {
	streams, err := r.Client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{MotionUpdatedStream, lastID},
		Count:   100,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, lastID, nil
	}
	if err != nil {
		return nil, lastID, err
	}

	var events []map[string]interface{}
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			events = append(events, msg.Values)
			lastID = msg.ID
		}
	}
	return events, lastID, nil
}
