package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

type stubChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	closed   bool
}

func (s *stubChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	s.exchange = exchange
	s.key = key
	s.msg = msg
	return nil
}

func (s *stubChannel) Close() error {
	s.closed = true
	return nil
}

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error { return nil }

func TestNewEventAssignsIDAndPayload(t *testing.T) {
	event, err := New(TypeFeedIngested, "f1", map[string]int{"v": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID == "" || event.OccurredAt.IsZero() {
		t.Fatalf("event metadata missing: %+v", event)
	}
	if string(event.Payload) != `{"v":1}` {
		t.Fatalf("unexpected payload: %s", event.Payload)
	}
}

func TestAMQPPublisherUsesEventTypeAsRoutingKey(t *testing.T) {
	ch := &stubChannel{}
	pub := &AMQPPublisher{ch: ch, exchange: "sentinelx.events"}

	event, _ := New(TypeDecisionRecorded, "agent-1", map[string]string{"agent_id": "agent-1"})
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.exchange != "sentinelx.events" || ch.key != "decision.recorded" {
		t.Fatalf("unexpected routing: %s %s", ch.exchange, ch.key)
	}
	if ch.msg.MessageId != event.ID || ch.msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing: %+v", ch.msg)
	}

	var decoded Event
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Key != "agent-1" {
		t.Fatalf("unexpected key: %s", decoded.Key)
	}

	if err := pub.Close(); err != nil || !ch.closed {
		t.Fatalf("channel not closed: %v", err)
	}
}

func TestKafkaPublisherKeysByEventKey(t *testing.T) {
	w := &stubWriter{}
	pub := &KafkaPublisher{writer: w, topic: "sentinelx.events"}

	event, _ := New(TypeFeedIngested, "feed-9", map[string]string{"feed_id": "feed-9"})
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "feed-9" {
		t.Fatalf("unexpected messages: %+v", w.msgs)
	}

	w.err = errors.New("broker down")
	if err := pub.Publish(context.Background(), event); err == nil {
		t.Fatalf("expected writer error to surface")
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatalf("expected error without topic")
	}
}

func TestBusDeliversAndDrainsOnShutdown(t *testing.T) {
	pub := NewMemoryPublisher()
	bus, err := NewBus(pub, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- bus.Run(ctx) }()

	first, _ := New(TypeFeedIngested, "a", nil)
	bus.Emit(context.Background(), first)

	select {
	case <-pub.Notify():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for publish")
	}

	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected run error: %v", err)
	}
	if err := bus.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	late, _ := New(TypeFeedIngested, "late", nil)
	bus.Emit(context.Background(), late)
	if got := len(pub.Events()); got != 1 {
		t.Fatalf("expected 1 published event, got %d", got)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	pub := NewMemoryPublisher()
	bus, err := NewBus(pub, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := New(TypeFeedIngested, "x", nil)
	bus.Emit(context.Background(), e)
	bus.Emit(context.Background(), e)

	if len(bus.ch) != 1 {
		t.Fatalf("expected buffer to hold one event, got %d", len(bus.ch))
	}
}

func TestNewBusRequiresPublisher(t *testing.T) {
	if _, err := NewBus(nil, 1); err == nil {
		t.Fatalf("expected error for nil publisher")
	}
}
