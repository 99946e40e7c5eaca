package llm

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// CannedProvider 是没有任何后端可用时 ModelInfo 报告的名称。
const CannedProvider = "canned-fallback"

// Enricher 在构造提示词之前为请求补充上下文行。
type Enricher interface {
	Enrich(ctx context.Context, req Request) []string
}

// ModelInfo 描述当前生效的推理后端配置。
type ModelInfo struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Providers []ProviderInfo `json:"providers"`
}

// Engine 组合缓存、提示词模板与后端调度链。
// 同一指纹的并发请求只会触发一次调度，其余请求等待并共享结果。
type Engine struct {
	chain    *Chain
	cache    ResponseCache
	enricher Enricher
	flights  singleflight.Group
	log      *slog.Logger
	audit    *slog.Logger
}

// EngineOption 定义 Engine 的可选配置。
type EngineOption func(*Engine)

// WithCache 替换默认的进程内缓存。
func WithCache(c ResponseCache) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithEnricher 注入上下文补充器。
func WithEnricher(en Enricher) EngineOption {
	return func(e *Engine) { e.enricher = en }
}

// NewEngine 创建推理引擎。chain 为 nil 时等同于没有任何后端。
func NewEngine(chain *Chain, opts ...EngineOption) *Engine {
	if chain == nil {
		chain = NewChain(nil)
	}
	e := &Engine{
		chain: chain,
		cache: NewMemoryCache(0),
		log:   logger.Named("llm.engine"),
		audit: logger.Audit(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Process 返回请求的推理结果。它从不失败：
// 缓存命中直接返回，否则依次尝试后端，全部不可用时返回任务类别的预置回答。
// 结果写入缓存后，同一指纹后续的请求得到完全相同的响应。
func (e *Engine) Process(ctx context.Context, req Request) Response {
	if !req.TaskType.Valid() {
		req.TaskType = TaskGeneralQuery
	}
	fp := Fingerprint(req.TaskType, req.Prompt)

	if resp, ok := e.cache.Get(ctx, fp); ok {
		metrics.ObserveCacheLookup(true)
		return resp
	}
	metrics.ObserveCacheLookup(false)

	// 调用方取消时仍让飞行中的调度完成，以便等待者与缓存拿到结果。
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := e.flights.Do(fp, func() (any, error) {
		if resp, ok := e.cache.Get(flightCtx, fp); ok {
			return resp, nil
		}
		resp := e.generate(flightCtx, req)
		e.cache.Put(flightCtx, fp, resp)
		if stored, ok := e.cache.Get(flightCtx, fp); ok {
			return stored, nil
		}
		return resp, nil
	})
	return v.(Response).clone()
}

func (e *Engine) generate(ctx context.Context, req Request) Response {
	if e.enricher != nil {
		extra := e.enricher.Enrich(ctx, req)
		if len(extra) > 0 {
			req.Context = append(append([]string(nil), req.Context...), extra...)
		}
	}

	tpl := templates[req.TaskType]
	result, ok := e.chain.Dispatch(ctx, buildPrompt(req), CallOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if ok {
		e.log.Debug("推理完成", "task_type", req.TaskType, "provider", result.Provider)
		return tpl.wrap(result.Text)
	}

	metrics.ObserveFallback(string(req.TaskType))
	e.audit.InfoContext(ctx, "canned inference fallback",
		"task_type", req.TaskType,
		"providers", e.chain.Len(),
	)
	return Canned(req.TaskType)
}

// ModelInfo 报告优先级最高的后端以及完整的尝试顺序。
func (e *Engine) ModelInfo() ModelInfo {
	providers := e.chain.Providers()
	info := ModelInfo{Provider: CannedProvider, Model: CannedProvider, Providers: providers}
	if len(providers) > 0 {
		info.Provider = providers[0].Name
		info.Model = providers[0].Model
	}
	return info
}
