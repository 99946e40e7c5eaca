package app

import (
	"context"
	"strings"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/llm"
	"Sentinel-X/internal/market"
)

// DefaultAsset 是价格预测未指定资产时使用的符号。
const DefaultAsset = "CELO"

var gasOptimizationTips = []string{
	"Use uint256 for gas efficiency",
	"Cache storage variables in memory",
	"Use events for off-chain data",
}

// ContractExplanation 是合约解读接口的返回结构。
type ContractExplanation struct {
	ContractAddress    string   `json:"contract_address"`
	Explanation        string   `json:"explanation"`
	SecurityAnalysis   []string `json:"security_analysis"`
	GasOptimizationTip []string `json:"gas_optimization_tips"`
}

// Query 在调用方提示词前附加最新的链上上下文后交给推理引擎。
func (s *State) Query(ctx context.Context, req llm.Request) (llm.Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return llm.Response{}, xerrors.New(xerrors.CodeInvalidArgument, "prompt 不能为空")
	}
	req.Prompt = "Blockchain Context:\n" + s.Chain.Summary(ctx) + "\n\nUser Query: " + req.Prompt
	return s.Engine.Process(ctx, req), nil
}

// AnalyzeContract 请求对指定地址合约做功能与风险分析。
func (s *State) AnalyzeContract(ctx context.Context, address string) (llm.Response, error) {
	address, err := requireField("contract_address", address)
	if err != nil {
		return llm.Response{}, err
	}
	prompt := s.Chain.Summary(ctx) +
		"\nAnalyze smart contract at address: " + address +
		"\nProvide security analysis, functionality overview, and potential risks."
	return s.Engine.Process(ctx, fixedRequest(llm.TaskContractAnalysis, prompt, 500, 0.7)), nil
}

// AuditCode 对提交的合约源码做安全审计。
func (s *State) AuditCode(ctx context.Context, code string) (llm.Response, error) {
	code, err := requireField("code", code)
	if err != nil {
		return llm.Response{}, err
	}
	prompt := "Perform security audit on: " + code
	return s.Engine.Process(ctx, fixedRequest(llm.TaskSecurityAudit, prompt, 1000, 0.3)), nil
}

// PredictPrice 结合链上上下文与行情数据预测资产未来 24 小时价格。
func (s *State) PredictPrice(ctx context.Context, asset string) (llm.Response, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		asset = DefaultAsset
	}
	quote := s.Market.Quote(ctx, asset)
	prompt := s.Chain.Summary(ctx) + "\n" + market.PromptContext(quote) +
		"\n\nPredict " + asset + " price for next 24 hours based on current market data and blockchain activity."
	return s.Engine.Process(ctx, fixedRequest(llm.TaskPricePredict, prompt, 300, 0.5)), nil
}

// ExplainContract 生成合约说明，安全分析取推理步骤的前三条。
func (s *State) ExplainContract(ctx context.Context, address string) (ContractExplanation, error) {
	address, err := requireField("contract_address", address)
	if err != nil {
		return ContractExplanation{}, err
	}
	prompt := s.Chain.Summary(ctx) +
		"\nExplain smart contract at: " + address +
		"\nProvide: functionality, security analysis, and gas optimization tips."
	resp := s.Engine.Process(ctx, fixedRequest(llm.TaskContractAnalysis, prompt, 800, 0.7))

	steps := resp.ReasoningSteps
	if len(steps) > 3 {
		steps = steps[:3]
	}
	return ContractExplanation{
		ContractAddress:    address,
		Explanation:        resp.Output,
		SecurityAnalysis:   append([]string{}, steps...),
		GasOptimizationTip: append([]string(nil), gasOptimizationTips...),
	}, nil
}

func fixedRequest(task llm.TaskType, prompt string, maxTokens int, temperature float64) llm.Request {
	return llm.Request{
		Prompt:      prompt,
		TaskType:    task,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
}

func requireField(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, name+" 不能为空")
	}
	return value, nil
}
