package lmstfy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"txcluster/internal/framework"
)

// 发布参数
const (
	defaultTTL   = 3600 // 消息存活时间（秒）
	defaultTries = 3    // 最大投递次数
)

// Client Lmstfy 客户端封装
type Client struct {
	cli       *client.LmstfyClient
	namespace string
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace string, token string) *Client {
	return &Client{
		cli:       client.NewLmstfyClient(host, port, namespace, token),
		namespace: namespace,
	}
}

// Publish 序列化后发布到队列
func (c *Client) Publish(_ context.Context, queue string, data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal job failed: %w", err)
	}

	jobID, pubErr := c.cli.Publish(queue, payload, defaultTTL, defaultTries, 0)
	if pubErr != nil {
		return "", fmt.Errorf("lmstfy publish failed: %w", pubErr)
	}
	return jobID, nil
}

// Consume 消费消息（实现 framework.MessageSource）
func (c *Client) Consume(queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	ttrSec := uint32(ttr.Seconds())
	timeoutSec := uint32(timeout.Seconds())

	job, err := c.cli.Consume(queue, ttrSec, timeoutSec)
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}

	// 超时未拉到消息
	if job == nil {
		return nil, nil
	}

	return &framework.Message{
		ID:    job.ID,
		Queue: job.Queue,
		Data:  job.Data,
	}, nil
}

// Ack 确认消息（实现 framework.MessageSource）
func (c *Client) Ack(queue string, jobID string) error {
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}
