package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// TaskType 区分推理请求的任务类别。
type TaskType string

const (
	TaskContractAnalysis    TaskType = "ContractAnalysis"
	TaskSecurityAudit       TaskType = "SecurityAudit"
	TaskCodeExplanation     TaskType = "CodeExplanation"
	TaskTransactionAnalysis TaskType = "TransactionAnalysis"
	TaskPricePredict        TaskType = "PricePredict"
	TaskGeneralQuery        TaskType = "GeneralQuery"
)

// TaskTypes 按固定顺序列出全部任务类别。
var TaskTypes = []TaskType{
	TaskContractAnalysis,
	TaskSecurityAudit,
	TaskCodeExplanation,
	TaskTransactionAnalysis,
	TaskPricePredict,
	TaskGeneralQuery,
}

// Valid 判断任务类别是否受支持。
func (t TaskType) Valid() bool {
	_, ok := templates[t]
	return ok
}

// UnmarshalJSON 拒绝未知的任务类别。
func (t *TaskType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("task_type must be a string: %w", err)
	}
	candidate := TaskType(name)
	if !candidate.Valid() {
		return fmt.Errorf("unknown task_type %q", name)
	}
	*t = candidate
	return nil
}

// Request 描述一次推理请求。
type Request struct {
	Prompt      string   `json:"prompt"`
	Context     []string `json:"context,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TaskType    TaskType `json:"task_type"`
}

// Response 是推理引擎返回给调用方的结构化结果。
type Response struct {
	Output         string   `json:"output"`
	Confidence     float64  `json:"confidence"`
	ReasoningSteps []string `json:"reasoning_steps"`
	Sources        []string `json:"sources"`
	Verifiable     bool     `json:"verifiable"`
	OnChainProof   *string  `json:"on_chain_proof"`
}

// clone 返回不与缓存共享切片的副本。
func (r Response) clone() Response {
	out := r
	out.ReasoningSteps = append([]string(nil), r.ReasoningSteps...)
	out.Sources = append([]string(nil), r.Sources...)
	if r.OnChainProof != nil {
		proof := *r.OnChainProof
		out.OnChainProof = &proof
	}
	return out
}

// Fingerprint 由任务类别与原始提示词拼接而成，大小写与空白均敏感。
func Fingerprint(task TaskType, prompt string) string {
	return string(task) + "_" + prompt
}

// CallOptions 是传递给单个后端的生成参数。
type CallOptions struct {
	MaxTokens   *int
	Temperature *float64
}

// Provider 是一个可通过网络调用的推理后端。
type Provider interface {
	Name() string
	Model() string
	Priority() int
	Complete(ctx context.Context, prompt string, opts CallOptions) (string, error)
}
