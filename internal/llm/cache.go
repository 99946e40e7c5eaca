package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"Sentinel-X/pkg/logger"
)

// ResponseCache 以指纹为键保存推理结果。同一指纹只保存第一次写入的值。
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (Response, bool)
	Put(ctx context.Context, fingerprint string, resp Response)
}

// MemoryCache 基于 go-cache 的进程内缓存。ttl 为 0 时永不过期也不淘汰。
type MemoryCache struct {
	items *cache.Cache
}

// NewMemoryCache 创建进程内缓存。
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &MemoryCache{items: cache.New(expiration, cleanup)}
}

// Get 实现 ResponseCache。
func (c *MemoryCache) Get(_ context.Context, fingerprint string) (Response, bool) {
	v, ok := c.items.Get(fingerprint)
	if !ok {
		return Response{}, false
	}
	return v.(Response).clone(), true
}

// Put 实现 ResponseCache。已存在的指纹保持原值。
func (c *MemoryCache) Put(_ context.Context, fingerprint string, resp Response) {
	_ = c.items.Add(fingerprint, resp.clone(), cache.DefaultExpiration)
}

// Len 返回当前缓存条目数。
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// RemoteCache 是跨进程共享的二级缓存，例如 Redis。
type RemoteCache interface {
	Load(ctx context.Context, fingerprint string) (Response, bool, error)
	// StoreIfAbsent 仅在指纹不存在时写入，stored 报告本次写入是否生效。
	StoreIfAbsent(ctx context.Context, fingerprint string, resp Response) (stored bool, err error)
}

// TieredCache 先查本地缓存，再查远端缓存并回填本地。
// 远端故障只记录日志并视为未命中。
type TieredCache struct {
	local  *MemoryCache
	remote RemoteCache
	log    *slog.Logger
}

// NewTieredCache 组合本地与远端缓存。
func NewTieredCache(local *MemoryCache, remote RemoteCache) *TieredCache {
	return &TieredCache{local: local, remote: remote, log: logger.Named("llm.cache")}
}

// Get 实现 ResponseCache。
func (c *TieredCache) Get(ctx context.Context, fingerprint string) (Response, bool) {
	if resp, ok := c.local.Get(ctx, fingerprint); ok {
		return resp, true
	}
	resp, ok, err := c.remote.Load(ctx, fingerprint)
	if err != nil {
		c.log.Warn("读取远端缓存失败", "error", err)
		return Response{}, false
	}
	if !ok {
		return Response{}, false
	}
	c.local.Put(ctx, fingerprint, resp)
	return c.local.Get(ctx, fingerprint)
}

// Put 实现 ResponseCache。先写远端，远端已有其他实例的结果时本地回填该结果，
// 保证共享同一远端的实例对同一指纹返回相同内容。
func (c *TieredCache) Put(ctx context.Context, fingerprint string, resp Response) {
	stored, err := c.remote.StoreIfAbsent(ctx, fingerprint, resp)
	if err != nil {
		c.log.Warn("写入远端缓存失败", "error", err)
		c.local.Put(ctx, fingerprint, resp)
		return
	}
	if stored {
		c.local.Put(ctx, fingerprint, resp)
		return
	}

	winner, ok, err := c.remote.Load(ctx, fingerprint)
	switch {
	case err != nil:
		c.log.Warn("读取远端缓存失败", "error", err)
		c.local.Put(ctx, fingerprint, resp)
	case !ok:
		// 远端条目在两次调用之间过期。
		c.local.Put(ctx, fingerprint, resp)
	default:
		c.local.Put(ctx, fingerprint, winner)
	}
}

var (
	_ ResponseCache = (*MemoryCache)(nil)
	_ ResponseCache = (*TieredCache)(nil)
)
