package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/seqrec/seqrec/core"
)

// RedisHistory 是 Redis 实现的 History。
// 每个用户一个 list，key 为 {prefix}:{user}，RPUSH 保持时间先后顺序。
// 生产环境常用，支持持久化、集群、哨兵等。
type RedisHistory struct {
	client *redis.Client
	prefix string
}

// NewRedisHistory 连接 Redis 并检查连通性。prefix 为空时使用 "user:consumed"。
func NewRedisHistory(addr string, db int, prefix string) (*RedisHistory, error) {
	if prefix == "" {
		prefix = "user:consumed"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisHistory{client: client, prefix: prefix}, nil
}

func (r *RedisHistory) Name() string { return "redis" }

func (r *RedisHistory) key(user int) string {
	return fmt.Sprintf("%s:%d", r.prefix, user)
}

func (r *RedisHistory) GetConsumed(ctx context.Context, user int) ([]int, error) {
	vals, err := r.client.LRange(ctx, r.key(user), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, core.ErrStoreNotFound
	}
	items := make([]int, 0, len(vals))
	for _, v := range vals {
		it, err := strconv.Atoi(v)
		if err != nil {
			continue // 跳过脏数据
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *RedisHistory) AppendConsumed(ctx context.Context, user int, items ...int) error {
	if len(items) == 0 {
		return nil
	}
	args := make([]interface{}, len(items))
	for i, it := range items {
		args[i] = it
	}
	return r.client.RPush(ctx, r.key(user), args...).Err()
}

// Close 关闭底层连接。
func (r *RedisHistory) Close() error {
	return r.client.Close()
}

var _ History = (*RedisHistory)(nil)
