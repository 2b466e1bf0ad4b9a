package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"beamline-scheduler/backend/config"
)

// Client Redis 客户端封装
// 当前用于 Token 黑名单、限流窗口，以及预约向导的"行编辑中"标记
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 行编辑标记 ──
//
// 时段编辑器进入 EDITING 状态时打标记，保存/撤销时清除。
// 向导"下一步"守卫据此拒绝在有未保存编辑时离开预约事件步骤。
// TTL 兜底：前端崩溃遗留的标记在过期后自动消失。

const editingPrefix = "booking:editing:"

// editingTTL 行编辑标记的兜底过期时间
const editingTTL = 30 * time.Minute

// MarkRowEditing 标记某预约下的一行进入编辑状态
func (c *Client) MarkRowEditing(ctx context.Context, bookingID, rowID string) error {
	key := editingPrefix + bookingID
	if err := c.rdb.SAdd(ctx, key, rowID).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, editingTTL).Err()
}

// ClearRowEditing 清除某行的编辑状态标记
func (c *Client) ClearRowEditing(ctx context.Context, bookingID, rowID string) error {
	return c.rdb.SRem(ctx, editingPrefix+bookingID, rowID).Err()
}

// HasEditingRows 判断某预约下是否存在处于编辑状态的行
func (c *Client) HasEditingRows(ctx context.Context, bookingID string) (bool, error) {
	n, err := c.rdb.SCard(ctx, editingPrefix+bookingID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流窗口 ──

// CheckRateLimit 固定窗口限流：窗口内第 limit+1 次请求开始拒绝
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
