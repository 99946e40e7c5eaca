package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/llm"
)

const defaultPrefix = "sentinelx:llm:"

// Config 描述 Redis 连接参数。
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// commands 是缓存实际使用到的 Redis 命令子集。
type commands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Close() error
}

// ResponseCache 在多个实例之间共享推理结果。键为指纹的 SHA-256，写入使用 SETNX，
// 与进程内缓存一样保留第一次写入的值。
type ResponseCache struct {
	client commands
	prefix string
	ttl    time.Duration
}

var _ llm.RemoteCache = (*ResponseCache)(nil)

// NewResponseCache 连接 Redis 并校验可用性。
func NewResponseCache(ctx context.Context, cfg Config) (*ResponseCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newResponseCache(client, cfg.Prefix, cfg.TTL), nil
}

func newResponseCache(client commands, prefix string, ttl time.Duration) *ResponseCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ResponseCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ResponseCache) key(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Load 实现 llm.RemoteCache。
func (c *ResponseCache) Load(ctx context.Context, fingerprint string) (llm.Response, bool, error) {
	raw, err := c.client.Get(ctx, c.key(fingerprint)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return llm.Response{}, false, nil
	}
	if err != nil {
		return llm.Response{}, false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取 Redis 缓存失败")
	}
	var resp llm.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return llm.Response{}, false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "解析 Redis 缓存失败")
	}
	return resp, true, nil
}

// StoreIfAbsent 实现 llm.RemoteCache，使用 SETNX 保留第一次写入的值。
func (c *ResponseCache) StoreIfAbsent(ctx context.Context, fingerprint string, resp llm.Response) (bool, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "序列化缓存结果失败")
	}
	stored, err := c.client.SetNX(ctx, c.key(fingerprint), payload, c.ttl).Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入 Redis 缓存失败")
	}
	return stored, nil
}

// Close 释放连接。
func (c *ResponseCache) Close() error {
	return c.client.Close()
}
