package indexer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SourceKind 枚举数据来源类别。
type SourceKind string

const (
	SourceOnChain  SourceKind = "OnChain"
	SourceOffChain SourceKind = "OffChain"
	SourceSocial   SourceKind = "Social"
	SourceOracle   SourceKind = "Oracle"
)

// FeedSource 是带载荷的来源标记，序列化为 {"OnChain":"0x.."}。
type FeedSource struct {
	Kind  SourceKind
	Value string
}

// OnChain 构造链上地址来源。
func OnChain(address string) FeedSource { return FeedSource{Kind: SourceOnChain, Value: address} }

// OffChain 构造 API 端点来源。
func OffChain(endpoint string) FeedSource { return FeedSource{Kind: SourceOffChain, Value: endpoint} }

// Social 构造社交账号来源。
func Social(handle string) FeedSource { return FeedSource{Kind: SourceSocial, Value: handle} }

// Oracle 构造预言机来源。
func Oracle(id string) FeedSource { return FeedSource{Kind: SourceOracle, Value: id} }

// MarshalJSON 实现 json.Marshaler。
func (s FeedSource) MarshalJSON() ([]byte, error) {
	if !s.Kind.valid() {
		return nil, fmt.Errorf("unknown feed source %q", s.Kind)
	}
	return json.Marshal(map[string]string{string(s.Kind): s.Value})
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (s *FeedSource) UnmarshalJSON(data []byte) error {
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("feed source must be an object like {\"OnChain\":\"0x..\"}: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("feed source must carry exactly one variant, got %d", len(tagged))
	}
	for k, v := range tagged {
		kind := SourceKind(k)
		if !kind.valid() {
			return fmt.Errorf("unknown feed source %q", k)
		}
		*s = FeedSource{Kind: kind, Value: v}
	}
	return nil
}

func (k SourceKind) valid() bool {
	switch k {
	case SourceOnChain, SourceOffChain, SourceSocial, SourceOracle:
		return true
	}
	return false
}

// DataKind 枚举数据类型。
type DataKind string

const (
	KindTransaction DataKind = "Transaction"
	KindBlock       DataKind = "Block"
	KindPrice       DataKind = "Price"
	KindSentiment   DataKind = "Sentiment"
	KindEvent       DataKind = "Event"
	KindCustom      DataKind = "Custom"
)

// DataType 序列化为 "Price" 或 {"Custom":"tag"}。
type DataType struct {
	Kind DataKind
	Tag  string
}

// Custom 构造自定义数据类型。
func Custom(tag string) DataType { return DataType{Kind: KindCustom, Tag: tag} }

// Of 构造无载荷的数据类型。
func Of(kind DataKind) DataType { return DataType{Kind: kind} }

func (t DataType) String() string {
	if t.Kind == KindCustom {
		return "Custom(" + t.Tag + ")"
	}
	return string(t.Kind)
}

// MarshalJSON 实现 json.Marshaler。
func (t DataType) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindTransaction, KindBlock, KindPrice, KindSentiment, KindEvent:
		return json.Marshal(string(t.Kind))
	case KindCustom:
		return json.Marshal(map[string]string{string(KindCustom): t.Tag})
	default:
		return nil, fmt.Errorf("unknown data type %q", t.Kind)
	}
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (t *DataType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		switch kind := DataKind(name); kind {
		case KindTransaction, KindBlock, KindPrice, KindSentiment, KindEvent:
			*t = DataType{Kind: kind}
			return nil
		default:
			return fmt.Errorf("unknown data type %q", name)
		}
	}
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("data type must be a string or {\"Custom\":\"tag\"}: %w", err)
	}
	tag, ok := tagged[string(KindCustom)]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("data type object must be {\"Custom\":\"tag\"}")
	}
	*t = Custom(tag)
	return nil
}

// DataFeed 表示一条经过归一化的外部观测。
type DataFeed struct {
	FeedID      string          `json:"feed_id"`
	Source      FeedSource      `json:"source"`
	DataType    DataType        `json:"data_type"`
	Timestamp   uint64          `json:"timestamp"`
	RawData     json.RawMessage `json:"raw_data"`
	CleanedData json.RawMessage `json:"cleaned_data"`
}

// Validate 检查调用方输入是否可被接受。
func (f DataFeed) Validate() error {
	if strings.TrimSpace(f.FeedID) == "" {
		return fmt.Errorf("feed_id is required")
	}
	if !f.Source.Kind.valid() {
		return fmt.Errorf("source is required")
	}
	if f.DataType.Kind == "" {
		return fmt.Errorf("data_type is required")
	}
	if len(f.RawData) > 0 && !json.Valid(f.RawData) {
		return fmt.Errorf("raw_data must be valid JSON")
	}
	return nil
}

// Metrics 是索引器的聚合快照。
type Metrics struct {
	TotalFeedsProcessed uint64  `json:"total_feeds_processed"`
	FeedsPerSecond      float64 `json:"feeds_per_second"`
	AverageLatencyMs    float64 `json:"average_latency_ms"`
	ActiveFeeds         uint32  `json:"active_feeds"`
	LastUpdate          uint64  `json:"last_update"`
}

// Decision 是智能体决策的封闭和类型，仅 Trade、Alert、Monitor 实现。
type Decision interface {
	decisionKind() string
}

// Trade 交易决策。
type Trade struct {
	Action string  `json:"action"`
	Asset  string  `json:"asset"`
	Amount float64 `json:"amount"`
}

// Alert 告警决策。
type Alert struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Monitor 监控决策。
type Monitor struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

func (Trade) decisionKind() string   { return "Trade" }
func (Alert) decisionKind() string   { return "Alert" }
func (Monitor) decisionKind() string { return "Monitor" }

// DecisionKind 返回决策的变体名称。
func DecisionKind(d Decision) string {
	if d == nil {
		return ""
	}
	return d.decisionKind()
}

// AgentDecision 是一条自主智能体的决策记录。
type AgentDecision struct {
	AgentID     string   `json:"agent_id"`
	Decision    Decision `json:"-"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
	Timestamp   uint64   `json:"timestamp"`
	DataSources []string `json:"data_sources"`
}

type agentDecisionWire struct {
	AgentID      string          `json:"agent_id"`
	DecisionType json.RawMessage `json:"decision_type"`
	Confidence   float64         `json:"confidence"`
	Reasoning    string          `json:"reasoning"`
	Timestamp    uint64          `json:"timestamp"`
	DataSources  []string        `json:"data_sources"`
}

// MarshalJSON 以 {"decision_type":{"Trade":{...}}} 的形式输出。
func (d AgentDecision) MarshalJSON() ([]byte, error) {
	if d.Decision == nil {
		return nil, fmt.Errorf("decision_type is required")
	}
	inner, err := json.Marshal(map[string]Decision{d.Decision.decisionKind(): d.Decision})
	if err != nil {
		return nil, err
	}
	sources := d.DataSources
	if sources == nil {
		sources = []string{}
	}
	return json.Marshal(agentDecisionWire{
		AgentID:      d.AgentID,
		DecisionType: inner,
		Confidence:   d.Confidence,
		Reasoning:    d.Reasoning,
		Timestamp:    d.Timestamp,
		DataSources:  sources,
	})
}

// UnmarshalJSON 解析外部标记形式的决策类型。
func (d *AgentDecision) UnmarshalJSON(data []byte) error {
	var wire agentDecisionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(wire.DecisionType, &tagged); err != nil || len(tagged) != 1 {
		return fmt.Errorf("decision_type must carry exactly one of Trade, Alert, Monitor")
	}
	var decision Decision
	for kind, body := range tagged {
		var err error
		switch kind {
		case "Trade":
			var v Trade
			err = json.Unmarshal(body, &v)
			decision = v
		case "Alert":
			var v Alert
			err = json.Unmarshal(body, &v)
			decision = v
		case "Monitor":
			var v Monitor
			err = json.Unmarshal(body, &v)
			decision = v
		default:
			return fmt.Errorf("unknown decision_type %q", kind)
		}
		if err != nil {
			return fmt.Errorf("decode %s decision: %w", kind, err)
		}
	}
	*d = AgentDecision{
		AgentID:     wire.AgentID,
		Decision:    decision,
		Confidence:  wire.Confidence,
		Reasoning:   wire.Reasoning,
		Timestamp:   wire.Timestamp,
		DataSources: wire.DataSources,
	}
	return nil
}

// Validate 检查决策的基本约束。
func (d AgentDecision) Validate() error {
	if strings.TrimSpace(d.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if d.Decision == nil {
		return fmt.Errorf("decision_type is required")
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v", d.Confidence)
	}
	return nil
}
