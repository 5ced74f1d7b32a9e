package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// guardRedis redis.Client 满足该接口。
type guardRedis interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ExportGuard 同一份简历同时只允许一个导出任务。
// 标记带 TTL，worker 异常退出时也会自动过期。
type ExportGuard struct {
	client guardRedis
	ttl    time.Duration
}

// NewExportGuard 创建防重复标记。
func NewExportGuard(client guardRedis, ttl time.Duration) *ExportGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ExportGuard{client: client, ttl: ttl}
}

func exportGuardKey(userID, resumeID uint) string {
	return fmt.Sprintf("export_inflight:%d:%d", userID, resumeID)
}

// Acquire 成功占用返回 true；已有导出进行中返回 false。
func (g *ExportGuard) Acquire(ctx context.Context, userID, resumeID uint) (bool, error) {
	ok, err := g.client.SetNX(ctx, exportGuardKey(userID, resumeID), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire export guard: %w", err)
	}
	return ok, nil
}

// Release 释放标记，标记不存在时不报错。
func (g *ExportGuard) Release(ctx context.Context, userID, resumeID uint) error {
	if err := g.client.Del(ctx, exportGuardKey(userID, resumeID)).Err(); err != nil {
		return fmt.Errorf("release export guard: %w", err)
	}
	return nil
}
