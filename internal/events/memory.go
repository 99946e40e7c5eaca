package events

import (
	"context"
	"sync"
)

// MemoryPublisher 把事件保存在内存中，供测试和本地调试使用。
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewMemoryPublisher 创建内存发布器。
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{notify: make(chan struct{}, 1)}
}

// Publish 实现 Publisher。
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Events 返回已发布事件的副本。
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Notify 在每次发布后收到信号。
func (p *MemoryPublisher) Notify() <-chan struct{} { return p.notify }

// Close 实现 Publisher。
func (p *MemoryPublisher) Close() error { return nil }

var _ Publisher = (*MemoryPublisher)(nil)
