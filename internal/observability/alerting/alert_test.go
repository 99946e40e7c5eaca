package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (s *stubNotifier) Channel() Channel { return s.channel }

func (s *stubNotifier) Notify(_ context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestFanoutFiltersBySeverity(t *testing.T) {
	a := &stubNotifier{channel: "a"}
	b := &stubNotifier{channel: "b"}
	d := NewFanout("high", a, b, nil)

	if err := d.Notify(context.Background(), Event{AgentID: "x", Severity: "low"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Notify(context.Background(), Event{AgentID: "x", Severity: "CRITICAL"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected only the critical event to be delivered, got %d/%d", len(a.events), len(b.events))
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	failing := &stubNotifier{channel: "a", err: errors.New("boom")}
	ok := &stubNotifier{channel: "b"}
	err := NewFanout("info", failing, ok).Notify(context.Background(), Event{Severity: "high"})
	if err == nil || !strings.Contains(err.Error(), "channel a: boom") {
		t.Fatalf("expected joined channel error, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Fatalf("healthy channel must still be notified")
	}
}

func TestRankTreatsUnknownAsMedium(t *testing.T) {
	if rank("weird") != rank("medium") {
		t.Fatalf("unknown severity should rank as medium")
	}
}

func TestSlackNotifier(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("unexpected body: %v", err)
		}
		text = body["text"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &SlackNotifier{WebhookURL: srv.URL, HTTPClient: srv.Client()}
	err := n.Notify(context.Background(), Event{AgentID: "whale-watcher", Severity: "high", Message: "large transfer", Confidence: 0.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "*[HIGH]* whale-watcher - large transfer") {
		t.Fatalf("unexpected slack text %q", text)
	}
}

func TestSlackNotifierReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	n := &SlackNotifier{WebhookURL: srv.URL, HTTPClient: srv.Client()}
	if err := n.Notify(context.Background(), Event{Severity: "high"}); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSlackNotifierWithoutWebhookIsNoop(t *testing.T) {
	if err := (&SlackNotifier{}).Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
