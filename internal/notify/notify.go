// Package notify 定义经 Redis Pub/Sub 推送给前端的导出通知。
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 通知状态。
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Message WebSocket 消息体，字段名与前端解析保持一致。
type Message struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	Pages         int    `json:"pages,omitempty"`
	Filename      string `json:"filename,omitempty"`
}

// Publisher redis.Client 满足该接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Channel 用户的通知频道。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// Publish 向用户频道发布一条消息。
func Publish(ctx context.Context, p Publisher, userID uint, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(userID)
	if err := p.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
