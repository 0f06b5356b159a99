package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cubedev/cubedev/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	publicRoomsKey = "cubedev:rooms:public"
	roomKeyPrefix  = "cubedev:rooms:detail:"

	publicRoomsTTL = 30 * time.Second
	roomDetailTTL  = 10 * time.Second
)

// ErrMiss is returned when the key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// RoomCache is a read-through cache over redis for the hot room read paths:
// the public room listing and room detail payloads. A nil *RoomCache is a
// valid, disabled cache, so callers never need to branch on configuration.
type RoomCache struct {
	client *redis.Client
}

// New connects to redis. Returns a disabled (nil) cache when no address is
// configured or the server is unreachable; the application degrades to
// hitting the database directly.
func New(cfg config.Redis) *RoomCache {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.S().Warnf("redis unreachable at %s, room cache disabled: %v", cfg.Addr, err)
		return nil
	}

	zap.S().Infof("room cache connected to redis at %s", cfg.Addr)
	return &RoomCache{client: client}
}

func (rc *RoomCache) get(ctx context.Context, key string, dest interface{}) error {
	if rc == nil {
		return ErrMiss
	}
	payload, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.S().Warnf("cache read failed for %s: %v", key, err)
		}
		return ErrMiss
	}
	return json.Unmarshal(payload, dest)
}

func (rc *RoomCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if rc == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := rc.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		zap.S().Warnf("cache write failed for %s: %v", key, err)
	}
}

func (rc *RoomCache) GetPublicRooms(ctx context.Context, limit int, dest interface{}) error {
	return rc.get(ctx, fmt.Sprintf("%s:%d", publicRoomsKey, limit), dest)
}

func (rc *RoomCache) SetPublicRooms(ctx context.Context, limit int, value interface{}) {
	rc.set(ctx, fmt.Sprintf("%s:%d", publicRoomsKey, limit), value, publicRoomsTTL)
}

func (rc *RoomCache) GetRoomDetails(ctx context.Context, roomID string, dest interface{}) error {
	return rc.get(ctx, roomKeyPrefix+roomID, dest)
}

func (rc *RoomCache) SetRoomDetails(ctx context.Context, roomID string, value interface{}) {
	rc.set(ctx, roomKeyPrefix+roomID, value, roomDetailTTL)
}

// InvalidateRoom drops the cached detail payload for a room after any
// mutation that changes what GetRoomDetails would return.
func (rc *RoomCache) InvalidateRoom(ctx context.Context, roomID string) {
	if rc == nil {
		return
	}
	if err := rc.client.Del(ctx, roomKeyPrefix+roomID).Err(); err != nil {
		zap.S().Warnf("cache invalidation failed for room %s: %v", roomID, err)
	}
}

// InvalidatePublicRooms drops every cached public listing page.
func (rc *RoomCache) InvalidatePublicRooms(ctx context.Context) {
	if rc == nil {
		return
	}
	iter := rc.client.Scan(ctx, 0, publicRoomsKey+":*", 0).Iterator()
	for iter.Next(ctx) {
		rc.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		zap.S().Warnf("cache invalidation scan failed: %v", err)
	}
}
