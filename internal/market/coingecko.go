package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/pkg/logger"
)

const (
	defaultBaseURL  = "https://api.coingecko.com/api/v3"
	defaultCacheTTL = 30 * time.Second
	defaultTimeout  = 10 * time.Second
)

// Source 标记行情来自 CoinGecko 还是本地模拟。
type Source string

const (
	SourceCoinGecko Source = "coingecko"
	SourceMock      Source = "mock"
)

// Quote 是某个资产的美元行情。
type Quote struct {
	Asset     string  `json:"asset"`
	PriceUSD  float64 `json:"price_usd"`
	Change24h float64 `json:"change_24h"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
	Source    Source  `json:"source"`
	Timestamp uint64  `json:"timestamp"`
}

// Config 描述 CoinGecko 客户端。
type Config struct {
	BaseURL    string
	CacheTTL   time.Duration
	Timeout    time.Duration
	Offline    bool
	HTTPClient *http.Client
}

// Client 查询 CoinGecko simple/price 接口，失败时返回模拟行情。
// 成功的行情按币种缓存一小段时间。
type Client struct {
	baseURL    string
	offline    bool
	httpClient *http.Client
	quotes     *cache.Cache
	now        func() time.Time
	log        *slog.Logger
}

// NewClient 根据配置创建行情客户端。
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		offline:    cfg.Offline,
		httpClient: httpClient,
		quotes:     cache.New(ttl, 2*ttl),
		now:        time.Now,
		log:        logger.Named("market"),
	}
}

// CoinID 把资产符号映射为 CoinGecko 的币种 ID，未知符号按 CELO 处理。
func CoinID(asset string) string {
	switch strings.ToLower(strings.TrimSpace(asset)) {
	case "cusd":
		return "celo-dollar"
	case "ceur":
		return "celo-euro"
	default:
		return "celo"
	}
}

// Quote 返回资产行情。它从不失败：上游不可用时返回 Source 为 mock 的固定行情。
// 返回的 Asset 字段保持调用方传入的原样。
func (c *Client) Quote(ctx context.Context, asset string) Quote {
	id := CoinID(asset)
	if cached, ok := c.quotes.Get(id); ok {
		q := cached.(Quote)
		q.Asset = asset
		return q
	}

	if !c.offline {
		q, err := c.fetch(ctx, id)
		if err == nil {
			c.quotes.SetDefault(id, q)
			q.Asset = asset
			return q
		}
		c.log.Warn("获取行情失败，返回模拟数据", "coin", id, "error", err)
	}
	return Quote{
		Asset:     asset,
		PriceUSD:  0.65,
		Change24h: 2.5,
		MarketCap: 500000000,
		Source:    SourceMock,
		Timestamp: uint64(c.now().Unix()),
	}
}

func (c *Client) fetch(ctx context.Context, id string) (Quote, error) {
	query := url.Values{}
	query.Set("ids", id)
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")
	endpoint := c.baseURL + "/simple/price?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("构建行情请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, "请求 CoinGecko 失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Quote{}, xerrors.New(xerrors.CodeUpstreamUnavailable,
			fmt.Sprintf("CoinGecko 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded map[string]struct {
		USD          *float64 `json:"usd"`
		USD24hChange float64  `json:"usd_24h_change"`
		USDMarketCap float64  `json:"usd_market_cap"`
		USD24hVol    float64  `json:"usd_24h_vol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Quote{}, xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, "解析 CoinGecko 响应失败")
	}
	entry, ok := decoded[id]
	if !ok || entry.USD == nil {
		return Quote{}, xerrors.New(xerrors.CodeUpstreamUnavailable, fmt.Sprintf("CoinGecko 响应缺少 %s", id))
	}
	return Quote{
		PriceUSD:  *entry.USD,
		Change24h: entry.USD24hChange,
		MarketCap: entry.USDMarketCap,
		Volume24h: entry.USD24hVol,
		Source:    SourceCoinGecko,
		Timestamp: uint64(c.now().Unix()),
	}, nil
}

// PromptContext 把实时行情格式化为提示词片段。模拟行情不进入提示词，返回空串。
func PromptContext(q Quote) string {
	if q.Source != SourceCoinGecko {
		return ""
	}
	return fmt.Sprintf("Current Price: $%s\n24h Change: %s%%\nMarket Cap: $%s\n24h Volume: $%s",
		number(q.PriceUSD), number(q.Change24h), number(q.MarketCap), number(q.Volume24h))
}

func number(v float64) string {
	return decimal.NewFromFloat(v).String()
}
