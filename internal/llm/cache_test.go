package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryCacheKeepsFirstWrite(t *testing.T) {
	cache := NewMemoryCache(0)
	ctx := context.Background()

	cache.Put(ctx, "GeneralQuery_a", Response{Output: "first"})
	cache.Put(ctx, "GeneralQuery_a", Response{Output: "second"})

	got, ok := cache.Get(ctx, "GeneralQuery_a")
	if !ok || got.Output != "first" {
		t.Fatalf("expected first write to win, got %+v ok=%v", got, ok)
	}
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache(0)
	ctx := context.Background()
	cache.Put(ctx, "k", Response{Output: "x", Sources: []string{"a"}})

	got, _ := cache.Get(ctx, "k")
	got.Sources[0] = "mutated"

	again, _ := cache.Get(ctx, "k")
	if again.Sources[0] != "a" {
		t.Fatalf("cached value was mutated through a returned copy")
	}
}

func TestFingerprintIsExact(t *testing.T) {
	if Fingerprint(TaskGeneralQuery, "Hello") == Fingerprint(TaskGeneralQuery, "hello") {
		t.Fatalf("fingerprint must be case sensitive")
	}
	if Fingerprint(TaskGeneralQuery, "hello") == Fingerprint(TaskGeneralQuery, "hello ") {
		t.Fatalf("fingerprint must be whitespace sensitive")
	}
	if got := Fingerprint(TaskSecurityAudit, "x"); got != "SecurityAudit_x" {
		t.Fatalf("unexpected fingerprint %q", got)
	}
}

type fakeRemote struct {
	items   map[string]Response
	loadErr  error
	storeErr error
	stores   int
}

func (f *fakeRemote) Load(_ context.Context, fp string) (Response, bool, error) {
	if f.loadErr != nil {
		return Response{}, false, f.loadErr
	}
	resp, ok := f.items[fp]
	return resp, ok, nil
}

func (f *fakeRemote) StoreIfAbsent(_ context.Context, fp string, resp Response) (bool, error) {
	f.stores++
	if f.storeErr != nil {
		return false, f.storeErr
	}
	if _, ok := f.items[fp]; ok {
		return false, nil
	}
	f.items[fp] = resp
	return true, nil
}

func TestTieredCacheBackfillsLocal(t *testing.T) {
	remote := &fakeRemote{items: map[string]Response{"k": {Output: "remote"}}}
	local := NewMemoryCache(0)
	tiered := NewTieredCache(local, remote)

	got, ok := tiered.Get(context.Background(), "k")
	if !ok || got.Output != "remote" {
		t.Fatalf("expected remote hit, got %+v ok=%v", got, ok)
	}
	if local.Len() != 1 {
		t.Fatalf("expected local backfill")
	}
}

func TestTieredCacheTreatsRemoteErrorAsMiss(t *testing.T) {
	remote := &fakeRemote{items: map[string]Response{}, loadErr: errors.New("connection refused")}
	tiered := NewTieredCache(NewMemoryCache(0), remote)

	if _, ok := tiered.Get(context.Background(), "k"); ok {
		t.Fatalf("expected miss when remote fails")
	}
	tiered.Put(context.Background(), "k", Response{Output: "v"})
	if remote.stores != 1 {
		t.Fatalf("expected write-through to remote")
	}
	if got, ok := tiered.Get(context.Background(), "k"); !ok || got.Output != "v" {
		t.Fatalf("expected local hit after put, got %+v", got)
	}
}

func TestTieredCacheAdoptsRemoteWinner(t *testing.T) {
	remote := &fakeRemote{items: map[string]Response{"k": {Output: "from another instance"}}}
	local := NewMemoryCache(0)
	tiered := NewTieredCache(local, remote)

	tiered.Put(context.Background(), "k", Response{Output: "mine"})

	got, ok := local.Get(context.Background(), "k")
	if !ok || got.Output != "from another instance" {
		t.Fatalf("expected local tier to hold the remote winner, got %+v ok=%v", got, ok)
	}
	if remote.items["k"].Output != "from another instance" {
		t.Fatalf("remote value must not be overwritten, got %+v", remote.items["k"])
	}
}

func TestTieredCacheKeepsLocalWhenRemoteWriteFails(t *testing.T) {
	remote := &fakeRemote{items: map[string]Response{}, storeErr: errors.New("connection reset")}
	local := NewMemoryCache(0)
	tiered := NewTieredCache(local, remote)

	tiered.Put(context.Background(), "k", Response{Output: "v"})
	if got, ok := local.Get(context.Background(), "k"); !ok || got.Output != "v" {
		t.Fatalf("expected local write when remote fails, got %+v ok=%v", got, ok)
	}
}

func TestBuildPromptLayout(t *testing.T) {
	prompt := buildPrompt(Request{
		Prompt:   "Is this safe?",
		Context:  []string{"line one", "  ", "line two"},
		TaskType: TaskSecurityAudit,
	})
	if !strings.HasPrefix(prompt, templates[TaskSecurityAudit].instruction+"\n\nContext:\n- line one\n- line two\n\n") {
		t.Fatalf("unexpected prompt layout: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Is this safe?") {
		t.Fatalf("prompt must end with the caller prompt: %q", prompt)
	}

	bare := buildPrompt(Request{Prompt: "hi", TaskType: TaskGeneralQuery})
	if bare != templates[TaskGeneralQuery].instruction+"\n\nhi" {
		t.Fatalf("unexpected prompt without context: %q", bare)
	}
}

func TestCannedVerifiability(t *testing.T) {
	for _, task := range TaskTypes {
		resp := Canned(task)
		if resp.Verifiable != (resp.OnChainProof != nil) {
			t.Fatalf("task %s: verifiable flag inconsistent with proof", task)
		}
	}
	if Canned(TaskCodeExplanation).Verifiable || Canned(TaskGeneralQuery).Verifiable {
		t.Fatalf("code explanation and general query carry no proof")
	}
}
