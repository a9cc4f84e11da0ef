package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PubSubClient Redis Pub/Sub 客户端封装
type PubSubClient struct {
	rdb *redis.Client
}

// NewPubSubClient 创建 Pub/Sub 客户端，支持密码认证
func NewPubSubClient(addr, password string, db int) (*PubSubClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PubSubClient{rdb: rdb}, nil
}

// Subscription 已确认的订阅
type Subscription struct {
	sub *redis.PubSub
}

// Listen 订阅 channel，返回时订阅已经生效，之后发布的消息不会丢
// 用于 Smart Wait：先订阅，再投递任务，再等待结果
func (c *PubSubClient) Listen(ctx context.Context, channel string) (*Subscription, error) {
	sub := c.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s failed: %w", channel, err)
	}
	return &Subscription{sub: sub}, nil
}

// Wait 等待一条消息，超时返回 context.DeadlineExceeded
func (s *Subscription) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case msg, ok := <-s.sub.Channel():
		if !ok {
			return "", fmt.Errorf("subscription closed")
		}
		return msg.Payload, nil
	case <-timeoutCtx.Done():
		return "", timeoutCtx.Err()
	}
}

// Close 取消订阅
func (s *Subscription) Close() error {
	return s.sub.Close()
}

// Publish 向指定 channel 发布消息
func (c *PubSubClient) Publish(ctx context.Context, channel string, message string) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

// Close 关闭连接
func (c *PubSubClient) Close() error {
	return c.rdb.Close()
}
