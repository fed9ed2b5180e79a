package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resume-parser-go/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MessagePublisher 消息发布接口
type MessagePublisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

var _ MessagePublisher = (*RabbitMQ)(nil)

// RabbitMQ 发布解析完成事件
type RabbitMQ struct {
	conn        *amqp.Connection
	mu          sync.Mutex
	ch          *amqp.Channel
	exchangeMap map[string]bool
	logger      zerolog.Logger
}

// NewRabbitMQ 建立连接并打开发布通道
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		ch:          ch,
		exchangeMap: make(map[string]bool),
		logger:      logger,
	}
	if cfg.EventsExchange != "" {
		if err := mq.EnsureExchange(cfg.EventsExchange, amqp.ExchangeTopic, true); err != nil {
			mq.Close()
			return nil, err
		}
	}
	logger.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// channel 返回可用通道, 通道被服务端关闭后重新打开
func (r *RabbitMQ) channel() (*amqp.Channel, error) {
	if r.ch != nil && !r.ch.IsClosed() {
		return r.ch, nil
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("重新打开RabbitMQ通道失败: %w", err)
	}
	r.ch = ch
	return ch, nil
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	r.exchangeMap[exchangeName] = true
	r.logger.Debug().Str("exchange", exchangeName).Msg("已确保exchange存在")
	return nil
}

// PublishMessage 发布消息到exchange
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.channel()
	if err != nil {
		return err
	}

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}
	return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         message,
		Timestamp:    time.Now(),
	})
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		_ = r.ch.Close()
	}
	return r.conn.Close()
}
