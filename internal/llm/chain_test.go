package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChainOrdersByPriorityStable(t *testing.T) {
	chain := NewChain([]Provider{
		&stubProvider{name: "openai", priority: 4},
		&stubProvider{name: "groq", priority: 1},
		nil,
		&stubProvider{name: "hf", priority: 3},
		&stubProvider{name: "hf-mirror", priority: 3},
	})

	got := chain.Providers()
	want := []string{"groq", "hf", "hf-mirror", "openai"}
	if len(got) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
}

func TestChainDispatchReportsWinner(t *testing.T) {
	chain := NewChain([]Provider{
		&stubProvider{name: "a", priority: 1, err: errors.New("boom")},
		&stubProvider{name: "b", priority: 2, output: "  text  "},
	})

	result, ok := chain.Dispatch(context.Background(), "prompt", CallOptions{})
	if !ok {
		t.Fatalf("expected dispatch to succeed")
	}
	if result.Text != "text" || result.Provider != "b" || result.Model != "b-model" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestChainDispatchNoProviders(t *testing.T) {
	if _, ok := NewChain(nil).Dispatch(context.Background(), "prompt", CallOptions{}); ok {
		t.Fatalf("expected empty chain to report no result")
	}
}

func TestChainAttemptTimeout(t *testing.T) {
	slow := &stubProvider{name: "slow", priority: 1}
	slow.hook = func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	fast := &stubProvider{name: "fast", priority: 2, output: "done"}
	chain := NewChain([]Provider{slow, fast}, WithAttemptTimeout(20*time.Millisecond))

	start := time.Now()
	result, ok := chain.Dispatch(context.Background(), "prompt", CallOptions{})
	if !ok || result.Provider != "fast" {
		t.Fatalf("expected fast provider to answer, got %+v ok=%v", result, ok)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("attempt timeout was not applied")
	}
}

func TestChainPassesCallOptions(t *testing.T) {
	var seen CallOptions
	p := &stubProvider{name: "p", priority: 1}
	p.hook = func(context.Context, string) (string, error) { return "ok", nil }
	capture := &optionsProvider{stubProvider: p, seen: &seen}

	tokens, temp := 300, 0.5
	NewChain([]Provider{capture}).Dispatch(context.Background(), "x", CallOptions{MaxTokens: &tokens, Temperature: &temp})
	if seen.MaxTokens == nil || *seen.MaxTokens != 300 || seen.Temperature == nil || *seen.Temperature != 0.5 {
		t.Fatalf("call options not forwarded: %+v", seen)
	}
}

type optionsProvider struct {
	*stubProvider
	seen *CallOptions
}

func (p *optionsProvider) Complete(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	*p.seen = opts
	return p.stubProvider.Complete(ctx, prompt, opts)
}
