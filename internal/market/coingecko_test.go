package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoinID(t *testing.T) {
	cases := map[string]string{
		"CELO": "celo",
		"cUSD": "celo-dollar",
		"ceur": "celo-euro",
		"btc":  "celo",
		"":     "celo",
	}
	for in, want := range cases {
		if got := CoinID(in); got != want {
			t.Fatalf("CoinID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteFromCoinGecko(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "celo-dollar" || q.Get("vs_currencies") != "usd" || q.Get("include_24hr_vol") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"celo-dollar":{"usd":0.999,"usd_24h_change":-0.12,"usd_market_cap":42000000,"usd_24h_vol":1500000}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client(), CacheTTL: time.Minute})
	quote := client.Quote(context.Background(), "cUSD")
	if quote.Source != SourceCoinGecko || quote.PriceUSD != 0.999 || quote.Change24h != -0.12 || quote.Asset != "cUSD" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	again := client.Quote(context.Background(), "cusd")
	if again.Asset != "cusd" || again.PriceUSD != 0.999 {
		t.Fatalf("unexpected cached quote %+v", again)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached quote to skip upstream, got %d calls", calls.Load())
	}
}

func TestQuoteFallsBackToMock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	quote := client.Quote(context.Background(), "CELO")
	if quote.Source != SourceMock || quote.PriceUSD != 0.65 || quote.Change24h != 2.5 || quote.MarketCap != 500000000 {
		t.Fatalf("unexpected mock quote %+v", quote)
	}
	if quote.Timestamp == 0 {
		t.Fatalf("mock quote must carry a timestamp")
	}
}

func TestQuoteOffline(t *testing.T) {
	client := NewClient(Config{Offline: true, BaseURL: "http://127.0.0.1:1"})
	if quote := client.Quote(context.Background(), "celo"); quote.Source != SourceMock {
		t.Fatalf("expected mock quote offline, got %+v", quote)
	}
}

func TestQuoteMissingCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if quote := client.Quote(context.Background(), "celo"); quote.Source != SourceMock {
		t.Fatalf("expected mock quote for empty payload, got %+v", quote)
	}
}

func TestPromptContext(t *testing.T) {
	live := Quote{PriceUSD: 0.65, Change24h: 2.5, MarketCap: 500000000, Volume24h: 1200000, Source: SourceCoinGecko}
	want := "Current Price: $0.65\n24h Change: 2.5%\nMarket Cap: $500000000\n24h Volume: $1200000"
	if got := PromptContext(live); got != want {
		t.Fatalf("unexpected prompt context %q", got)
	}
	if got := PromptContext(Quote{Source: SourceMock, PriceUSD: 0.65}); got != "" {
		t.Fatalf("mock quotes must not reach the prompt, got %q", got)
	}
}
