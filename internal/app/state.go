package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"Sentinel-X/internal/events"
	"Sentinel-X/internal/indexer"
	"Sentinel-X/internal/llm"
	"Sentinel-X/internal/market"
	"Sentinel-X/internal/observability/alerting"
	"Sentinel-X/internal/web3"
	"Sentinel-X/pkg/logger"
)

const defaultAlertTimeout = 10 * time.Second

// State 持有进程内全部领域组件。
type State struct {
	Feeds     *indexer.FeedStore
	Decisions *indexer.DecisionLog
	Engine    *llm.Engine
	Chain     *web3.Service
	Market    *market.Client

	bus          *events.Bus
	alerts       alerting.Dispatcher
	alertTimeout time.Duration
	pending      sync.WaitGroup
	closers      []func() error
	once         sync.Once
	log          *slog.Logger
}

// Option 定义 State 的可选配置，主要供测试替换组件。
type Option func(*State)

// WithFeeds 替换 feed 存储。
func WithFeeds(s *indexer.FeedStore) Option {
	return func(st *State) { st.Feeds = s }
}

// WithDecisions 替换决策日志。
func WithDecisions(l *indexer.DecisionLog) Option {
	return func(st *State) { st.Decisions = l }
}

// WithEngine 替换推理引擎。
func WithEngine(e *llm.Engine) Option {
	return func(st *State) { st.Engine = e }
}

// WithChain 替换链上数据服务。
func WithChain(c *web3.Service) Option {
	return func(st *State) { st.Chain = c }
}

// WithMarket 替换行情客户端。
func WithMarket(m *market.Client) Option {
	return func(st *State) { st.Market = m }
}

// WithAlerts 设置 Alert 决策的通知分发器。
func WithAlerts(d alerting.Dispatcher) Option {
	return func(st *State) { st.alerts = d }
}

// New 创建 State，未指定的组件使用离线默认实现。
func New(opts ...Option) *State {
	st := &State{alertTimeout: defaultAlertTimeout, log: logger.Named("app")}
	for _, opt := range opts {
		if opt != nil {
			opt(st)
		}
	}
	if st.Feeds == nil {
		st.Feeds = indexer.NewFeedStore()
	}
	if st.Decisions == nil {
		st.Decisions = indexer.NewDecisionLog()
	}
	if st.Engine == nil {
		st.Engine = llm.NewEngine(nil)
	}
	if st.Chain == nil {
		st.Chain = web3.NewService(nil, "")
	}
	if st.Market == nil {
		st.Market = market.NewClient(market.Config{Offline: true})
	}
	return st
}

// Run 驱动事件总线直到 ctx 取消。未启用事件发布时直接等待 ctx 结束。
func (s *State) Run(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return nil
	}
	if err := s.bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close 释放链连接、缓存与消息中间件连接，可重复调用。
func (s *State) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.pending.Wait()
		if s.bus != nil {
			err = errors.Join(err, s.bus.Close(ctx))
		}
		for i := len(s.closers) - 1; i >= 0; i-- {
			err = errors.Join(err, s.closers[i]())
		}
		s.Chain.Close()
	})
	if err != nil {
		s.log.Warn("释放资源失败", "error", err)
	}
	return err
}

// RecordDecision 写入决策日志；Alert 决策随后在后台转发给通知渠道。
func (s *State) RecordDecision(ctx context.Context, decision indexer.AgentDecision) {
	s.Decisions.Record(ctx, decision)

	alert, ok := decision.Decision.(indexer.Alert)
	if !ok || s.alerts == nil {
		return
	}
	event := alerting.Event{
		AgentID:     decision.AgentID,
		Severity:    alert.Severity,
		Message:     alert.Message,
		Confidence:  decision.Confidence,
		Reasoning:   decision.Reasoning,
		DataSources: decision.DataSources,
		OccurredAt:  time.Now().UTC(),
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.alertTimeout)
		defer cancel()
		if err := s.alerts.Notify(notifyCtx, event); err != nil {
			s.log.Warn("告警通知失败", "agent_id", event.AgentID, "error", err)
		}
	}()
}
