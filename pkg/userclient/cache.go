package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache はユーザー情報のキャッシュ。
type Cache interface {
	// Get はキャッシュ済みのユーザーを返す。存在しない場合は (nil, nil) を返す。
	Get(ctx context.Context, id string) (*User, error)
	// Set はユーザーをキャッシュする。
	Set(ctx context.Context, user *User) error
	// Delete はキャッシュを破棄する。
	Delete(ctx context.Context, id string) error
}

// cacheKeyPrefix はRedisのキー接頭辞。
const cacheKeyPrefix = "user-cache:"

// RedisCache はRedisを使ったユーザー情報キャッシュ。
type RedisCache struct {
	// rdb はRedisクライアント。
	rdb *redis.Client
	// ttl はキャッシュの有効期間。
	ttl time.Duration
}

// NewRedisCache はRedisキャッシュを生成する。
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get はキャッシュ済みのユーザーを返す。
func (c *RedisCache) Get(ctx context.Context, id string) (*User, error) {
	raw, err := c.rdb.Get(ctx, cacheKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーキャッシュの取得に失敗: %w", err)
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("ユーザーキャッシュのデシリアライズに失敗: %w", err)
	}
	return &u, nil
}

// Set はユーザーをTTL付きでキャッシュする。
func (c *RedisCache) Set(ctx context.Context, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("ユーザーキャッシュのシリアライズに失敗: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+user.ID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("ユーザーキャッシュの保存に失敗: %w", err)
	}
	return nil
}

// Delete はキャッシュを破棄する。
func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("ユーザーキャッシュの削除に失敗: %w", err)
	}
	return nil
}

// NopCache は何もキャッシュしない。REDIS_ADDR 未設定時に使用する。
type NopCache struct{}

// Get は常に (nil, nil) を返す。
func (NopCache) Get(context.Context, string) (*User, error) { return nil, nil }

// Set は何もしない。
func (NopCache) Set(context.Context, *User) error { return nil }

// Delete は何もしない。
func (NopCache) Delete(context.Context, string) error { return nil }
