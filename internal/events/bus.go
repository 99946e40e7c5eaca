package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/pkg/logger"
)

// Bus 使用带缓冲的 channel 解耦事件产生方与发布方。
type Bus struct {
	ch        chan Event
	publisher Publisher
	timeout   time.Duration
	log       *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Option 定义 Bus 的可选配置。
type Option func(*Bus)

// WithPublishTimeout 设置单次发布的超时时间。
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger 替换默认日志实例。
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBus 创建事件总线。
func NewBus(publisher Publisher, size int, opts ...Option) (*Bus, error) {
	if publisher == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "事件发布器不能为空")
	}
	if size <= 0 {
		size = 256
	}
	b := &Bus{
		ch:        make(chan Event, size),
		publisher: publisher,
		timeout:   5 * time.Second,
		log:       logger.Named("events"),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Emit 非阻塞地投递事件，缓冲区满或总线关闭时丢弃并记录日志。
func (b *Bus) Emit(_ context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- event:
	default:
		b.log.Warn("事件缓冲区已满，丢弃事件", "type", event.Type, "key", event.Key)
	}
}

// Run 持续消费缓冲区直到 ctx 取消，随后排空剩余事件。
func (b *Bus) Run(ctx context.Context) error {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.drain()
			return ctx.Err()
		case event, ok := <-b.ch:
			if !ok {
				return nil
			}
			b.publish(event)
		}
	}
}

func (b *Bus) drain() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	for {
		select {
		case event := <-b.ch:
			b.publish(event)
		default:
			return
		}
	}
}

func (b *Bus) publish(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.publisher.Publish(ctx, event); err != nil {
		wrapped := xerrors.Wrap(xerrors.CodePublishFailure, err, "发布事件失败")
		b.log.Warn("发布事件失败", "type", event.Type, "id", event.ID, "error", wrapped)
	}
}

// Close 等待 Run 退出后关闭发布器。
func (b *Bus) Close(ctx context.Context) error {
	select {
	case <-b.done:
	case <-ctx.Done():
		return errors.Join(ctx.Err(), b.publisher.Close())
	}
	return b.publisher.Close()
}

var _ Emitter = (*Bus)(nil)
