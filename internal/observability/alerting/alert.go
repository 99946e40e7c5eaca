package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Sentinel-X/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelAudit Channel = "audit"
	ChannelSlack Channel = "slack"
)

// Event 描述一条需要转发的智能体告警决策。
type Event struct {
	AgentID     string
	Severity    string
	Message     string
	Confidence  float64
	Reasoning   string
	DataSources []string
	OccurredAt  time.Time
}

// Notifier 负责将事件发送到指定渠道。
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher 将事件广播给多个通知器。
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

var severityRank = map[string]int{
	"info":     0,
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// rank 返回严重级别的序号，未知级别按 medium 处理。
func rank(severity string) int {
	if r, ok := severityRank[strings.ToLower(strings.TrimSpace(severity))]; ok {
		return r
	}
	return severityRank["medium"]
}

// FanoutDispatcher 把达到阈值的事件投递到全部通知器。
type FanoutDispatcher struct {
	notifiers   map[Channel]Notifier
	minSeverity int
}

// NewFanout 创建一个新的 FanoutDispatcher，低于 minSeverity 的事件被忽略。
func NewFanout(minSeverity string, notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set, minSeverity: rank(minSeverity)}
}

// Notify 将事件广播至所有注册渠道。
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil || rank(event.Severity) < d.minSeverity {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AuditNotifier 把告警写入审计日志。
type AuditNotifier struct {
	log *slog.Logger
}

// NewAuditNotifier 使用进程级审计日志创建通知器。
func NewAuditNotifier() *AuditNotifier {
	return &AuditNotifier{log: logger.Audit()}
}

// Channel 返回审计渠道。
func (n *AuditNotifier) Channel() Channel { return ChannelAudit }

// Notify 记录一条审计日志。
func (n *AuditNotifier) Notify(ctx context.Context, event Event) error {
	n.log.WarnContext(ctx, "agent alert",
		"agent_id", event.AgentID,
		"severity", event.Severity,
		"message", event.Message,
		"confidence", event.Confidence,
		"data_sources", event.DataSources,
	)
	return nil
}

// SlackNotifier 通过 Incoming Webhook 发送告警。
type SlackNotifier struct {
	WebhookURL string
	HTTPClient *http.Client
}

// Channel 返回 Slack 渠道。
func (n *SlackNotifier) Channel() Channel { return ChannelSlack }

// Notify 发送 Slack 消息。
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || strings.TrimSpace(n.WebhookURL) == "" {
		logger.L().Warn("SlackNotifier 未正确配置，跳过发送", slog.String("agent_id", event.AgentID))
		return nil
	}
	text := fmt.Sprintf("*[%s]* %s - %s (confidence %.2f)",
		strings.ToUpper(event.Severity), event.AgentID, event.Message, event.Confidence)
	if event.Reasoning != "" {
		text += "\n" + event.Reasoning
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("序列化 Slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建 Slack 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("调用 Slack Webhook 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("slack webhook 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

var (
	_ Notifier   = (*AuditNotifier)(nil)
	_ Notifier   = (*SlackNotifier)(nil)
	_ Dispatcher = (*FanoutDispatcher)(nil)
)
