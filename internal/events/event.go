package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type 区分事件种类，同时作为 AMQP routing key。
type Type string

const (
	TypeFeedIngested     Type = "feed.ingested"
	TypeDecisionRecorded Type = "decision.recorded"
)

// Event 是对外发布的索引事件。
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New 序列化载荷并生成事件 ID。
func New(typ Type, key string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("序列化事件载荷失败: %w", err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// Emitter 由产生事件的组件持有。Emit 不得阻塞调用方。
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Publisher 把事件投递到具体的消息中间件。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
