// Package sentinelx is a Go client for the Sentinel-X REST API.
package sentinelx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Inference calls walk a provider chain, so it is longer than a plain REST timeout.
const DefaultHTTPTimeout = 60 * time.Second

// Client wraps the HTTP interactions with the Sentinel-X API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// DataFeed is a normalized observation submitted to the indexer. Source uses a
// single-key object such as {"Oracle":"coingecko"}; DataType is either a
// string such as "Price" or {"Custom":"tag"}.
type DataFeed struct {
	FeedID      string            `json:"feed_id"`
	Source      map[string]string `json:"source"`
	DataType    json.RawMessage   `json:"data_type"`
	Timestamp   uint64            `json:"timestamp"`
	RawData     json.RawMessage   `json:"raw_data"`
	CleanedData json.RawMessage   `json:"cleaned_data,omitempty"`
}

// AgentDecision is a decision recorded by an autonomous agent. DecisionType
// carries one variant: {"Trade":{...}}, {"Alert":{...}} or {"Monitor":{...}}.
type AgentDecision struct {
	AgentID      string          `json:"agent_id"`
	DecisionType json.RawMessage `json:"decision_type"`
	Confidence   float64         `json:"confidence"`
	Reasoning    string          `json:"reasoning"`
	Timestamp    uint64          `json:"timestamp"`
	DataSources  []string        `json:"data_sources"`
}

// IndexerMetrics is the indexer throughput snapshot.
type IndexerMetrics struct {
	TotalFeedsProcessed uint64  `json:"total_feeds_processed"`
	FeedsPerSecond      float64 `json:"feeds_per_second"`
	AverageLatencyMs    float64 `json:"average_latency_ms"`
	ActiveFeeds         uint32  `json:"active_feeds"`
	LastUpdate          uint64  `json:"last_update"`
}

// InferenceRequest is the body of /api/ai/query.
type InferenceRequest struct {
	Prompt      string   `json:"prompt"`
	Context     []string `json:"context,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TaskType    string   `json:"task_type,omitempty"`
}

// InferenceResponse is the structured answer returned by every AI endpoint.
type InferenceResponse struct {
	Output         string   `json:"output"`
	Confidence     float64  `json:"confidence"`
	ReasoningSteps []string `json:"reasoning_steps"`
	Sources        []string `json:"sources"`
	Verifiable     bool     `json:"verifiable"`
	OnChainProof   *string  `json:"on_chain_proof"`
}

// ProviderInfo describes one inference backend in attempt order.
type ProviderInfo struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
}

// ModelInfo reports the active inference backend.
type ModelInfo struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Providers []ProviderInfo `json:"providers"`
}

// Health is the /api/health payload.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	Indexer struct {
		FeedsProcessed uint64  `json:"feeds_processed"`
		FeedsPerSecond float64 `json:"feeds_per_second"`
		ActiveFeeds    uint32  `json:"active_feeds"`
	} `json:"indexer"`
	AIModel ModelInfo `json:"ai_model"`
}

// Quote is a USD market quote.
type Quote struct {
	Asset     string  `json:"asset"`
	PriceUSD  float64 `json:"price_usd"`
	Change24h float64 `json:"change_24h"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
	Source    string  `json:"source"`
	Timestamp uint64  `json:"timestamp"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("sentinelx api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sentinelx api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the Sentinel-X API. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Health reports service status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.get(ctx, "/api/health", nil, &out)
	return out, err
}

// IndexerMetrics returns the indexer throughput snapshot.
func (c *Client) IndexerMetrics(ctx context.Context) (IndexerMetrics, error) {
	var out IndexerMetrics
	err := c.get(ctx, "/api/indexer/metrics", nil, &out)
	return out, err
}

// Ingest submits a data feed.
func (c *Client) Ingest(ctx context.Context, feed DataFeed) error {
	return c.post(ctx, "/api/indexer/ingest", feed, nil)
}

// Feeds lists stored feeds. The server clamps limit to [1,100].
func (c *Client) Feeds(ctx context.Context, limit int) ([]DataFeed, error) {
	var out struct {
		Feeds []DataFeed `json:"feeds"`
	}
	err := c.get(ctx, "/api/indexer/feeds", limitQuery(limit), &out)
	return out.Feeds, err
}

// RecordDecision appends an agent decision to the log.
func (c *Client) RecordDecision(ctx context.Context, decision AgentDecision) error {
	return c.post(ctx, "/api/indexer/agents/decisions", decision, nil)
}

// Decisions lists the most recent decisions, newest first.
func (c *Client) Decisions(ctx context.Context, limit int) ([]AgentDecision, error) {
	var out struct {
		Decisions []AgentDecision `json:"decisions"`
	}
	err := c.get(ctx, "/api/indexer/agents/decisions", limitQuery(limit), &out)
	return out.Decisions, err
}

// Query runs a free-form inference request.
func (c *Client) Query(ctx context.Context, req InferenceRequest) (InferenceResponse, error) {
	var out InferenceResponse
	err := c.post(ctx, "/api/ai/query", req, &out)
	return out, err
}

// AnalyzeContract asks for an analysis of the contract at address.
func (c *Client) AnalyzeContract(ctx context.Context, address string) (InferenceResponse, error) {
	var out InferenceResponse
	err := c.post(ctx, "/api/ai/contract/analyze", map[string]string{"contract_address": address}, &out)
	return out, err
}

// AuditCode asks for a security audit of contract source code.
func (c *Client) AuditCode(ctx context.Context, code string) (InferenceResponse, error) {
	var out InferenceResponse
	err := c.post(ctx, "/api/ai/security/audit", map[string]string{"code": code}, &out)
	return out, err
}

// PredictPrice asks for a 24 hour price outlook. An empty asset means CELO.
func (c *Client) PredictPrice(ctx context.Context, asset string) (InferenceResponse, error) {
	var out InferenceResponse
	err := c.post(ctx, "/api/ai/price/predict", map[string]string{"asset": asset}, &out)
	return out, err
}

// ModelInfo reports the active inference backend.
func (c *Client) ModelInfo(ctx context.Context) (ModelInfo, error) {
	var out ModelInfo
	err := c.get(ctx, "/api/ai/model", nil, &out)
	return out, err
}

// Price returns the current quote for asset.
func (c *Client) Price(ctx context.Context, asset string) (Quote, error) {
	var out Quote
	err := c.get(ctx, "/api/price/"+url.PathEscape(asset), nil, &out)
	return out, err
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: apiErr}); err != nil {
				// flat payloads, e.g. the 501 feature notices
				_ = json.Unmarshal(data, apiErr)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
