package indexer

import (
	"context"
	"log/slog"
	"sync"

	"Sentinel-X/internal/events"
	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// DefaultDecisionCapacity 是决策日志默认保留的条数。
const DefaultDecisionCapacity = 1000

// DecisionLog 是有界的追加日志，超出容量时丢弃最旧的记录。
type DecisionLog struct {
	mu       sync.RWMutex
	entries  []AgentDecision
	capacity int
	emitter  events.Emitter
	audit    *slog.Logger
}

// LogOption 定义 DecisionLog 的可选配置。
type LogOption func(*DecisionLog)

// WithCapacity 覆盖默认容量。
func WithCapacity(n int) LogOption {
	return func(l *DecisionLog) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithLogEmitter 在每次记录后发布 decision.recorded 事件。
func WithLogEmitter(e events.Emitter) LogOption {
	return func(l *DecisionLog) { l.emitter = e }
}

// NewDecisionLog 创建决策日志。
func NewDecisionLog(opts ...LogOption) *DecisionLog {
	l := &DecisionLog{capacity: DefaultDecisionCapacity, audit: logger.Audit()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Record 追加一条决策，长度超过容量时从头部裁剪。
func (l *DecisionLog) Record(ctx context.Context, decision AgentDecision) {
	l.mu.Lock()
	l.entries = append(l.entries, decision)
	if over := len(l.entries) - l.capacity; over > 0 {
		n := copy(l.entries, l.entries[over:])
		clear(l.entries[n:])
		l.entries = l.entries[:n]
	}
	l.mu.Unlock()

	metrics.ObserveDecision(DecisionKind(decision.Decision))
	l.audit.InfoContext(ctx, "agent decision recorded",
		"agent_id", decision.AgentID,
		"decision_type", DecisionKind(decision.Decision),
		"confidence", decision.Confidence,
	)
	if l.emitter == nil {
		return
	}
	if event, err := events.New(events.TypeDecisionRecorded, decision.AgentID, decision); err == nil {
		l.emitter.Emit(ctx, event)
	}
}

// Recent 按从新到旧的顺序返回至多 limit 条决策。
func (l *DecisionLog) Recent(limit int) []AgentDecision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]AgentDecision, 0, limit)
	for i := len(l.entries) - 1; i >= len(l.entries)-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len 返回当前保留的决策数量。
func (l *DecisionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
