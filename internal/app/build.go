package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"Sentinel-X/internal/config"
	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/events"
	"Sentinel-X/internal/indexer"
	"Sentinel-X/internal/knowledge"
	"Sentinel-X/internal/llm"
	"Sentinel-X/internal/llm/huggingface"
	"Sentinel-X/internal/llm/ollama"
	"Sentinel-X/internal/llm/openai"
	"Sentinel-X/internal/market"
	"Sentinel-X/internal/observability/alerting"
	"Sentinel-X/internal/storage/redis"
	"Sentinel-X/internal/web3/provider"
	"Sentinel-X/pkg/logger"
)

// Build 根据配置组装全部组件。链节点与 Redis 不可用时降级运行，不返回错误。
func Build(ctx context.Context, cfg *config.Config) (*State, error) {
	if cfg == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "配置不能为空")
	}
	log := logger.Named("app")

	providers, err := newProviders(cfg.LLM.Providers, nil)
	if err != nil {
		return nil, err
	}
	kb, err := knowledge.LoadStaticProvider(cfg.Knowledge.Source, cfg.Knowledge.MaxResults)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "加载知识库失败")
	}

	st := &State{alerts: newAlerts(cfg.Alerting), alertTimeout: cfg.Alerting.Timeout.Std(), log: log}
	if st.alertTimeout <= 0 {
		st.alertTimeout = defaultAlertTimeout
	}
	st.Chain, err = provider.Connect(ctx, cfg.Web3)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化链上数据服务失败")
	}
	st.bus, err = newBus(cfg.Events, cfg.Indexer.EventBuffer)
	if err != nil {
		st.Chain.Close()
		return nil, err
	}

	var storeOpts []indexer.StoreOption
	logOpts := []indexer.LogOption{indexer.WithCapacity(cfg.Indexer.DecisionCapacity)}
	if st.bus != nil {
		storeOpts = append(storeOpts, indexer.WithStoreEmitter(st.bus))
		logOpts = append(logOpts, indexer.WithLogEmitter(st.bus))
	}
	st.Feeds = indexer.NewFeedStore(storeOpts...)
	st.Decisions = indexer.NewDecisionLog(logOpts...)

	chain := llm.NewChain(providers, llm.WithAttemptTimeout(cfg.LLM.AttemptTimeout.Std()))
	if chain.Len() == 0 {
		log.Warn("未配置任何推理后端，所有请求将返回兜底回答")
	}
	st.Engine = llm.NewEngine(chain, llm.WithCache(st.newCache(ctx, cfg)), llm.WithEnricher(kb))

	st.Market = market.NewClient(market.Config{
		BaseURL:  cfg.Market.BaseURL,
		CacheTTL: cfg.Market.CacheTTL.Std(),
		Timeout:  cfg.Market.Timeout.Std(),
		Offline:  cfg.Market.Offline,
	})

	log.Info("服务状态已就绪",
		"providers", chain.Len(),
		"network", st.Chain.Network(),
		"chain_connected", st.Chain.Connected(),
		"events", cfg.Events.Driver,
	)
	return st, nil
}

// newCache 返回进程内缓存，配置了 Redis 时叠加共享层。Redis 不可达时仅使用本地缓存。
func (s *State) newCache(ctx context.Context, cfg *config.Config) llm.ResponseCache {
	local := llm.NewMemoryCache(cfg.LLM.CacheTTL.Std())
	if strings.TrimSpace(cfg.Redis.Address) == "" {
		return local
	}
	remote, err := redis.NewResponseCache(ctx, redis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.LLM.CacheTTL.Std(),
	})
	if err != nil {
		s.log.Warn("Redis 缓存不可用，仅使用进程内缓存", "address", cfg.Redis.Address, "error", err)
		return local
	}
	s.closers = append(s.closers, remote.Close)
	return llm.NewTieredCache(local, remote)
}

// newProviders 按配置创建推理后端。未启用或缺少凭据的后端被跳过。
func newProviders(cfg config.ProvidersConfig, httpClient *http.Client) ([]llm.Provider, error) {
	var providers []llm.Provider

	if p := cfg.Groq; !p.Disabled && p.ResolveAPIKey() != "" {
		client, err := openai.NewClient(openai.Config{
			Name:       "groq",
			APIKey:     p.ResolveAPIKey(),
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Priority:   p.Priority,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, providerError("groq", err)
		}
		providers = append(providers, client)
	}

	if p := cfg.Ollama; !p.Disabled && strings.TrimSpace(p.BaseURL) != "" {
		client, err := ollama.NewClient(ollama.Config{
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Priority:   p.Priority,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, providerError("ollama", err)
		}
		providers = append(providers, client)
	}

	if p := cfg.HuggingFace; !p.Disabled && p.ResolveAPIKey() != "" {
		client, err := huggingface.NewClient(huggingface.Config{
			APIKey:   p.ResolveAPIKey(),
			BaseURL:  p.BaseURL,
			Model:    p.Model,
			Priority: p.Priority,
		})
		if err != nil {
			return nil, providerError("huggingface", err)
		}
		providers = append(providers, client)
	}

	if p := cfg.OpenAI; !p.Disabled && p.ResolveAPIKey() != "" {
		client, err := openai.NewClient(openai.Config{
			Name:       "openai",
			APIKey:     p.ResolveAPIKey(),
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Priority:   p.Priority,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, providerError("openai", err)
		}
		providers = append(providers, client)
	}

	return providers, nil
}

func providerError(name string, err error) error {
	return xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("初始化推理后端 %s 失败", name))
}

// newBus 按驱动创建事件总线，driver 为 none 时返回 nil。
func newBus(cfg config.EventsConfig, buffer int) (*events.Bus, error) {
	var (
		publisher events.Publisher
		err       error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "amqp":
		publisher, err = events.NewAMQPPublisher(events.AMQPConfig{
			URL:      cfg.AMQP.URL,
			Exchange: cfg.AMQP.Exchange,
			Queue:    cfg.AMQP.Queue,
		})
	case "kafka":
		publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
	case "memory":
		publisher = events.NewMemoryPublisher()
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("未知的事件驱动: %q", cfg.Driver))
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化事件发布器失败")
	}
	return events.NewBus(publisher, buffer)
}

// newAlerts 总是写审计日志，配置了 Webhook 时同时推送到 Slack。
func newAlerts(cfg config.AlertingConfig) alerting.Dispatcher {
	notifiers := []alerting.Notifier{alerting.NewAuditNotifier()}
	if url := strings.TrimSpace(cfg.SlackWebhookURL); url != "" {
		notifiers = append(notifiers, &alerting.SlackNotifier{WebhookURL: url})
	}
	return alerting.NewFanout(cfg.MinSeverity, notifiers...)
}
