package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/llm"
)

type fakeClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.err != nil {
		return goredis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) SetNX(_ context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd {
	if f.err != nil {
		return goredis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeClient) Close() error { return nil }

func TestResponseCacheRoundTrip(t *testing.T) {
	client := newFakeClient()
	cache := newResponseCache(client, "", 0)
	ctx := context.Background()

	proof := "0xaudit_proof_xyz"
	first := llm.Response{Output: "first", Confidence: 0.91, Verifiable: true, OnChainProof: &proof}
	stored, err := cache.StoreIfAbsent(ctx, "SecurityAudit_x", first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored {
		t.Fatalf("expected first write to be stored")
	}
	stored, err = cache.StoreIfAbsent(ctx, "SecurityAudit_x", llm.Response{Output: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored {
		t.Fatalf("expected second write to be rejected")
	}

	got, ok, err := cache.Load(ctx, "SecurityAudit_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || got.Output != "first" || got.OnChainProof == nil || *got.OnChainProof != proof {
		t.Fatalf("unexpected cached value %+v", got)
	}
	for key := range client.values {
		if !strings.HasPrefix(key, "sentinelx:llm:") || len(key) != len("sentinelx:llm:")+64 {
			t.Fatalf("unexpected key layout %s", key)
		}
	}
}

func TestResponseCacheMiss(t *testing.T) {
	cache := newResponseCache(newFakeClient(), "test:", time.Minute)
	_, ok, err := cache.Load(context.Background(), "GeneralQuery_nothing")
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestResponseCacheAppliesTTL(t *testing.T) {
	client := newFakeClient()
	cache := newResponseCache(client, "test:", time.Minute)
	if _, err := cache.StoreIfAbsent(context.Background(), "k", llm.Response{Output: "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ttl := range client.ttls {
		if ttl != time.Minute {
			t.Fatalf("expected ttl to be forwarded, got %v", ttl)
		}
	}
}

func TestResponseCacheErrors(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("connection refused")
	cache := newResponseCache(client, "", 0)

	if _, _, err := cache.Load(context.Background(), "k"); !xerrors.IsCode(err, xerrors.CodeCacheFailure) {
		t.Fatalf("expected cache failure on load, got %v", err)
	}
	if _, err := cache.StoreIfAbsent(context.Background(), "k", llm.Response{}); !xerrors.IsCode(err, xerrors.CodeCacheFailure) {
		t.Fatalf("expected cache failure on store, got %v", err)
	}
}

func TestNewResponseCacheRequiresAddress(t *testing.T) {
	if _, err := NewResponseCache(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without address")
	}
}
