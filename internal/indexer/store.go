package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/events"
	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// FeedStore 保存每个 feed_id 最新的归一化记录以及吞吐指标。
// 记录与指标由同一把读写锁保护，读者不会看到只更新了一半的状态。
type FeedStore struct {
	mu      sync.RWMutex
	feeds   map[string]DataFeed
	order   []string
	metrics Metrics
	first   time.Time

	now     func() time.Time
	emitter events.Emitter
	log     *slog.Logger
}

// StoreOption 定义 FeedStore 的可选配置。
type StoreOption func(*FeedStore)

// WithStoreEmitter 在每次成功写入后发布 feed.ingested 事件。
func WithStoreEmitter(e events.Emitter) StoreOption {
	return func(s *FeedStore) { s.emitter = e }
}

// WithClock 替换时间来源，主要用于测试。
func WithClock(now func() time.Time) StoreOption {
	return func(s *FeedStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFeedStore 创建空的 FeedStore。
func NewFeedStore(opts ...StoreOption) *FeedStore {
	s := &FeedStore{
		feeds: make(map[string]DataFeed),
		now:   time.Now,
		log:   logger.Named("indexer"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Ingest 归一化并写入一条记录，重复的 feed_id 原地覆盖。
func (s *FeedStore) Ingest(ctx context.Context, feed DataFeed) error {
	start := s.now()

	cleaned, err := clean(feed)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.feeds[cleaned.FeedID]; !exists {
		s.order = append(s.order, cleaned.FeedID)
	}
	s.feeds[cleaned.FeedID] = cleaned

	end := s.now()
	if s.first.IsZero() {
		s.first = start
	}
	s.metrics.TotalFeedsProcessed++
	s.metrics.ActiveFeeds = uint32(len(s.feeds))
	s.metrics.AverageLatencyMs = float64(end.Sub(start).Microseconds()) / 1000
	s.metrics.LastUpdate = uint64(end.Unix())
	elapsed := end.Sub(s.first).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	s.metrics.FeedsPerSecond = float64(s.metrics.TotalFeedsProcessed) / elapsed
	s.mu.Unlock()

	metrics.ObserveIngest(string(cleaned.DataType.Kind))
	s.log.Debug("feed ingested", "feed_id", cleaned.FeedID, "data_type", cleaned.DataType.String())
	s.emit(ctx, cleaned)
	return nil
}

func (s *FeedStore) emit(ctx context.Context, feed DataFeed) {
	if s.emitter == nil {
		return
	}
	event, err := events.New(events.TypeFeedIngested, feed.FeedID, feed)
	if err != nil {
		s.log.Warn("构建事件失败", "feed_id", feed.FeedID, "error", err)
		return
	}
	s.emitter.Emit(ctx, event)
}

// clean 按数据类型生成 cleaned_data：交易与价格加上标记包装，其余原样透传。
func clean(feed DataFeed) (DataFeed, error) {
	raw := feed.RawData
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if !json.Valid(raw) {
		return DataFeed{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("feed %s 的 raw_data 不是合法 JSON", feed.FeedID))
	}

	var wrapped any
	switch feed.DataType.Kind {
	case KindTransaction:
		wrapped = struct {
			Normalized bool            `json:"normalized"`
			Data       json.RawMessage `json:"data"`
		}{true, raw}
	case KindPrice:
		wrapped = struct {
			Validated bool            `json:"validated"`
			Data      json.RawMessage `json:"data"`
		}{true, raw}
	default:
		feed.CleanedData = append(json.RawMessage(nil), raw...)
		return feed, nil
	}

	body, err := json.Marshal(wrapped)
	if err != nil {
		return DataFeed{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, fmt.Sprintf("feed %s 的 cleaned_data 序列化失败", feed.FeedID))
	}
	feed.CleanedData = body
	return feed, nil
}

// Metrics 返回一致的指标快照。
func (s *FeedStore) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Feeds 按首次写入顺序返回至多 limit 条记录的副本。
func (s *FeedStore) Feeds(limit int) []DataFeed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]DataFeed, 0, limit)
	for _, id := range s.order[:limit] {
		out = append(out, s.feeds[id])
	}
	return out
}

// Get 返回单条记录。
func (s *FeedStore) Get(feedID string) (DataFeed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[feedID]
	return feed, ok
}
