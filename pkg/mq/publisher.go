package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"beamline-scheduler/backend/config"
)

// Publisher RabbitMQ topic 交换机发布器
// 用于向通知服务广播设备指派与预约生命周期事件。
// 为 nil 时所有发布调用降级为 no-op（与 Redis 降级策略一致）。
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// ── 路由键 ──

const (
	RouteAssignmentRequested = "equipment.assignment.requested"
	RouteAssignmentDecided   = "equipment.assignment.decided"
	RouteBookingActivated    = "booking.activated"
	RouteBookingFinalized    = "booking.finalized"
)

// NewPublisher 建立连接并声明 topic 交换机
// cfg.URL 为空时返回 (nil, nil)，调用方按禁用处理
func NewPublisher(cfg *config.MQConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("打开 channel 失败: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("声明交换机失败: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// Publish 以 JSON 发布一条事件消息
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}

// Close 关闭 channel 与连接
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
