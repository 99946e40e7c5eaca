package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig 描述 RabbitMQ 发布参数。
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher 将事件发布到 topic 类型的 exchange，routing key 为事件类型。
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

// NewAMQPPublisher 建立连接并声明 exchange，配置了 Queue 时一并绑定。
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "sentinelx.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ exchange 失败: %w", err)
	}
	if cfg.Queue != "" {
		if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
		}
		if err := ch.QueueBind(cfg.Queue, "#", exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("绑定 RabbitMQ 队列失败: %w", err)
		}
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish 实现 Publisher。
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.ch == nil {
		return errors.New("RabbitMQ 发布器未初始化")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
}

// Close 关闭 RabbitMQ 连接。
func (p *AMQPPublisher) Close() error {
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

var _ Publisher = (*AMQPPublisher)(nil)
