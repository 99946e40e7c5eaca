package llm

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// DefaultAttemptTimeout 是单个后端尝试的超时时间。
const DefaultAttemptTimeout = 30 * time.Second

// errEmptyOutput 表示后端返回了空文本。
var errEmptyOutput = errors.New("empty completion")

// Result 是调度链成功时的产出。
type Result struct {
	Text     string
	Provider string
	Model    string
}

// ProviderInfo 描述已配置的后端，仅用于自省。
type ProviderInfo struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
}

// Chain 按优先级顺序依次尝试后端，第一个返回非空文本的后端胜出。
// 后端之间严格串行，不做并发竞速。
type Chain struct {
	providers []Provider
	timeout   time.Duration
	log       *slog.Logger
}

// ChainOption 定义 Chain 的可选配置。
type ChainOption func(*Chain)

// WithAttemptTimeout 覆盖单次尝试的超时时间。
func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChain 创建调度链。priority 越小越先尝试，同优先级保持传入顺序。
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	ordered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	c := &Chain{
		providers: ordered,
		timeout:   DefaultAttemptTimeout,
		log:       logger.Named("llm.chain"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Dispatch 遍历后端直到某个返回非空文本。
// 没有后端或全部失败时 ok 为 false，此时调用方负责兜底。
func (c *Chain) Dispatch(ctx context.Context, prompt string, opts CallOptions) (Result, bool) {
	for _, p := range c.providers {
		text, err := c.attempt(ctx, p, prompt, opts)
		if err != nil {
			c.log.Warn("推理后端调用失败，尝试下一个",
				"provider", p.Name(),
				"error", xerrors.Wrap(xerrors.CodeProviderFailure, err, p.Name()),
			)
			continue
		}
		return Result{Text: text, Provider: p.Name(), Model: p.Model()}, true
	}
	return Result{}, false
}

func (c *Chain) attempt(ctx context.Context, p Provider, prompt string, opts CallOptions) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Complete(attemptCtx, prompt, opts)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		metrics.ObserveProviderAttempt(p.Name(), metrics.OutcomeError, elapsed)
		return "", err
	case strings.TrimSpace(text) == "":
		metrics.ObserveProviderAttempt(p.Name(), metrics.OutcomeEmpty, elapsed)
		return "", errEmptyOutput
	default:
		metrics.ObserveProviderAttempt(p.Name(), metrics.OutcomeSuccess, elapsed)
		return strings.TrimSpace(text), nil
	}
}

// Providers 按尝试顺序返回后端描述。
func (c *Chain) Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, ProviderInfo{Name: p.Name(), Model: p.Model(), Priority: p.Priority()})
	}
	return out
}

// Len 返回已配置的后端数量。
func (c *Chain) Len() int { return len(c.providers) }
