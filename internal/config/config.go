package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 描述了 Sentinel-X 在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	LLM       LLMConfig       `yaml:"llm"`
	Redis     RedisConfig     `yaml:"redis"`
	Events    EventsConfig    `yaml:"events"`
	Web3      Web3Config      `yaml:"web3"`
	Market    MarketConfig    `yaml:"market"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Alerting  AlertingConfig  `yaml:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address           string   `yaml:"address"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig 描述独立的 Prometheus 监听地址，为空时仅挂载在 API 路由上。
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// LoggingConfig 对应 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Format  string      `yaml:"format"`
	Outputs []string    `yaml:"outputs"`
	Audit   AuditConfig `yaml:"audit"`
}

// AuditConfig 控制审计日志的落盘位置。
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// IndexerConfig 描述实时索引器的容量参数。
type IndexerConfig struct {
	DecisionCapacity int `yaml:"decision_capacity"`
	EventBuffer      int `yaml:"event_buffer"`
}

// LLMConfig 用于配置推理调度链路。
type LLMConfig struct {
	AttemptTimeout Duration        `yaml:"attempt_timeout"`
	CacheTTL       Duration        `yaml:"cache_ttl"`
	Providers      ProvidersConfig `yaml:"providers"`
}

// ProvidersConfig 按名称列出可选的推理后端。
type ProvidersConfig struct {
	Groq        ProviderConfig `yaml:"groq"`
	Ollama      ProviderConfig `yaml:"ollama"`
	HuggingFace ProviderConfig `yaml:"huggingface"`
	OpenAI      ProviderConfig `yaml:"openai"`
}

// ProviderConfig 描述单个推理后端。凭证或地址缺失时该后端不会被加入调度链。
type ProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Priority  int    `yaml:"priority"`
	Disabled  bool   `yaml:"disabled"`
}

// ResolveAPIKey 返回显式配置或环境变量中的密钥。
func (p ProviderConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

// RedisConfig 描述可选的 Redis 二级响应缓存。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// EventsConfig 控制索引事件的外发渠道。
type EventsConfig struct {
	Driver string      `yaml:"driver"`
	AMQP   AMQPConfig  `yaml:"amqp"`
	Kafka  KafkaConfig `yaml:"kafka"`
}

// AMQPConfig 描述 RabbitMQ 连接参数。
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// KafkaConfig 描述 Kafka 生产者参数。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Web3Config 包含访问 Celo 节点所需的 RPC 地址。
type Web3Config struct {
	RPCURL         string   `yaml:"rpc_url"`
	FallbackRPCURL string   `yaml:"fallback_rpc_url"`
	ChainConfig    string   `yaml:"chain_config"`
	DefaultChain   string   `yaml:"default_chain"`
	DialTimeout    Duration `yaml:"dial_timeout"`
	Offline        bool     `yaml:"offline"`
}

// MarketConfig 描述行情数据源。
type MarketConfig struct {
	BaseURL  string   `yaml:"base_url"`
	CacheTTL Duration `yaml:"cache_ttl"`
	Timeout  Duration `yaml:"timeout"`
	Offline  bool     `yaml:"offline"`
}

// KnowledgeConfig 描述静态知识库。
type KnowledgeConfig struct {
	Source     string `yaml:"source"`
	MaxResults int    `yaml:"max_results"`
}

// AlertingConfig 控制智能体 Alert 决策的通知转发。
type AlertingConfig struct {
	MinSeverity     string   `yaml:"min_severity"`
	SlackWebhookURL string   `yaml:"slack_webhook_url"`
	Timeout         Duration `yaml:"timeout"`
}

// Duration 允许在 YAML 中使用 "30s" 这类写法。
type Duration time.Duration

// UnmarshalYAML 实现 yaml.Unmarshaler。
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = 0
		return nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("无效的时间间隔 %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 返回标准库的 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load 解析指定路径的 YAML 配置，叠加环境变量后填充默认值。
// 文件不存在时仅使用环境变量与默认值。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."

	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置失败: %w", err)
			}
			baseDir = filepath.Dir(path)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

// applyEnv 让部署环境的变量覆盖文件配置。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(port))
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("PORT 必须是有效端口: %q", port)
		}
		c.Server.Address = ":" + strconv.Itoa(n)
	}
	if v, ok := lookup("CELO_RPC_URL"); ok {
		c.Web3.RPCURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("GROQ_API_KEY"); ok {
		c.LLM.Providers.Groq.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("OLLAMA_URL"); ok {
		c.LLM.Providers.Ollama.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("HUGGINGFACE_API_KEY"); ok {
		c.LLM.Providers.HuggingFace.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.LLM.Providers.OpenAI.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Address = strings.TrimSpace(v)
	}
	if v, ok := lookup("SLACK_WEBHOOK_URL"); ok {
		c.Alerting.SlackWebhookURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = strings.TrimSpace(v)
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":3000"
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = Duration(5 * time.Second)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(5 * time.Second)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}

	if c.Indexer.DecisionCapacity <= 0 {
		c.Indexer.DecisionCapacity = 1000
	}
	if c.Indexer.EventBuffer <= 0 {
		c.Indexer.EventBuffer = 256
	}

	if c.LLM.AttemptTimeout <= 0 {
		c.LLM.AttemptTimeout = Duration(30 * time.Second)
	}
	p := &c.LLM.Providers
	setProviderDefaults(&p.Groq, "https://api.groq.com/openai/v1", "llama-3.1-8b-instant", 1)
	setProviderDefaults(&p.Ollama, "", "llama3", 2)
	setProviderDefaults(&p.HuggingFace, "https://api-inference.huggingface.co", "mistralai/Mistral-7B-Instruct-v0.2", 3)
	setProviderDefaults(&p.OpenAI, "https://api.openai.com/v1", "gpt-4o-mini", 4)

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "sentinelx:llm:"
	}

	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.AMQP.Exchange == "" {
		c.Events.AMQP.Exchange = "sentinelx.events"
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "sentinelx.events"
	}

	if c.Web3.FallbackRPCURL == "" {
		c.Web3.FallbackRPCURL = "https://forno.celo.org"
	}
	if c.Web3.DialTimeout <= 0 {
		c.Web3.DialTimeout = Duration(10 * time.Second)
	}
	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}

	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Market.CacheTTL <= 0 {
		c.Market.CacheTTL = Duration(30 * time.Second)
	}
	if c.Market.Timeout <= 0 {
		c.Market.Timeout = Duration(10 * time.Second)
	}

	if c.Knowledge.Source != "" && !filepath.IsAbs(c.Knowledge.Source) {
		c.Knowledge.Source = filepath.Join(baseDir, c.Knowledge.Source)
	}
	if c.Knowledge.MaxResults <= 0 {
		c.Knowledge.MaxResults = 3
	}

	if c.Alerting.MinSeverity == "" {
		c.Alerting.MinSeverity = "high"
	}
	if c.Alerting.Timeout <= 0 {
		c.Alerting.Timeout = Duration(10 * time.Second)
	}
}

func setProviderDefaults(p *ProviderConfig, baseURL, model string, priority int) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.Priority == 0 {
		p.Priority = priority
	}
}
