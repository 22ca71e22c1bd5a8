package cache

import (
	"context"
	"errors"
	"time"

	"github.com/getcharzp/go-sam/segment"
	"github.com/redis/go-redis/v9"
)

// Redis 基于 Redis 的特征缓存
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis 创建 Redis 缓存
func NewRedis(opts *redis.Options, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}
}

// Ping 检查连接
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get 从缓存获取图片特征
func (s *Redis) Get(ctx context.Context, imageID string) (*segment.EncodeResult, error) {
	data, err := s.client.Get(ctx, Key(imageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}
	return Unmarshal(data)
}

// Set 写入图片特征
func (s *Redis) Set(ctx context.Context, imageID string, res *segment.EncodeResult) error {
	data, err := Marshal(res)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, Key(imageID), data, s.ttl).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
