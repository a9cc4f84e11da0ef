package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX PX 的分布式锁
type Locker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewLocker ttl 需要大于一次训练的耗时
func (c *PubSubClient) NewLocker(ttl, retry time.Duration) *Locker {
	if retry <= 0 {
		retry = 200 * time.Millisecond
	}
	return &Locker{
		rdb:   c.rdb,
		ttl:   ttl,
		retry: retry,
	}
}

// Acquire 阻塞直到拿到锁或 ctx 结束
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s failed: %w", key, err)
		}
		if ok {
			return func() {
				// 调用方的 ctx 可能已取消，释放锁用独立的 ctx
				releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
