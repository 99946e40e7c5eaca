package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Sentinel-X/internal/llm"
)

// Snippet 描述可供大模型引用的一段知识。
type Snippet struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
	// Tasks 限定条目适用的任务类别，为空表示不按任务匹配。
	Tasks []string `json:"tasks"`
}

// StaticProvider 基于内存条目做关键词检索，并作为推理引擎的上下文补充器。
type StaticProvider struct {
	items      []Snippet
	maxResults int
}

var _ llm.Enricher = (*StaticProvider)(nil)

// NewStaticProvider 创建静态知识库实例。
func NewStaticProvider(items []Snippet, maxResults int) *StaticProvider {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &StaticProvider{
		items:      items,
		maxResults: maxResults,
	}
}

// LoadStaticProvider 从 JSON 文件加载知识条目，路径为空时使用内置的 Celo 条目。
func LoadStaticProvider(path string, maxResults int) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return NewStaticProvider(builtin, maxResults), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析知识库路径失败: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取知识库文件失败: %w", err)
	}
	defer file.Close()

	var entries []Snippet
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("解析知识库文件失败: %w", err)
	}

	return NewStaticProvider(entries, maxResults), nil
}

// Query 返回与提示词或任务类别匹配的条目，至多 maxResults 条。
func (p *StaticProvider) Query(prompt string, task llm.TaskType) []Snippet {
	if p == nil {
		return nil
	}

	prompt = strings.ToLower(prompt)
	results := make([]Snippet, 0, p.maxResults)
	for _, item := range p.items {
		if matches(item, prompt, task) {
			results = append(results, item)
			if len(results) >= p.maxResults {
				break
			}
		}
	}
	return results
}

// Enrich 实现 llm.Enricher，每个命中的条目生成一行上下文。
func (p *StaticProvider) Enrich(_ context.Context, req llm.Request) []string {
	snippets := p.Query(req.Prompt, req.TaskType)
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, strings.TrimSpace(s.Title)+": "+strings.TrimSpace(s.Content))
	}
	return lines
}

func matches(snippet Snippet, prompt string, task llm.TaskType) bool {
	for _, t := range snippet.Tasks {
		if strings.EqualFold(strings.TrimSpace(t), string(task)) {
			return true
		}
	}
	for _, keyword := range snippet.Keywords {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized == "" {
			continue
		}
		if strings.Contains(prompt, normalized) {
			return true
		}
	}
	return false
}
