package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenCache 用 Redis 记录“已全覆盖”的 Content
// 挂在导入管线前面，重复导入大批量包时省掉绝大部分散列和查库。
// 实现 ingester.SeenCache 接口。
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewSeenCache(cfg Config) (*SeenCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &SeenCache{client: client, ttl: cfg.TTL}, nil
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (c *SeenCache) cacheKey(key string) string {
	return "dupidx:seen:" + key
}

// Seen 查询是否已全覆盖
// 架构决策：缓存故障降级。Redis 挂了就当 miss，退化为直接查库，
// 绝不因为缓存问题让导入失败。
func (c *SeenCache) Seen(ctx context.Context, key string) bool {
	val, err := c.client.Exists(ctx, c.cacheKey(key)).Result()
	if err != nil {
		fmt.Printf("WARN: redis error: %v\n", err)
		return false
	}
	return val > 0
}

// MarkSeen 写入覆盖标记
// 写失败同样只降级：标记丢了无非是下次多查一次库，正确性不受影响
func (c *SeenCache) MarkSeen(ctx context.Context, key string) {
	if err := c.client.Set(ctx, c.cacheKey(key), "1", c.ttl).Err(); err != nil {
		fmt.Printf("WARN: redis error: %v\n", err)
	}
}

// Close 释放连接
func (c *SeenCache) Close() error {
	return c.client.Close()
}
