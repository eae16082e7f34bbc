package aggregator

import (
	"context"
	"time"
)

// KVStore 抽象的 KV 存储（用于在单元测试中替换 Redis）
// store.RedisKV 实现了该接口；缓存不存在时返回 store.ErrMiss
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
