package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedCallable Redis 响应缓存包装器。
// 键为请求内容的 SHA-256；缓存故障不阻断调用，只记录日志后穿透。
type CachedCallable struct {
	inner  Callable
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// DefaultCacheTTL 默认缓存时长
const DefaultCacheTTL = time.Hour

// NewCachedCallable 创建缓存包装器
func NewCachedCallable(inner Callable, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCallable {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCallable{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		prefix: "reask:llm:",
		logger: logger.With(zap.String("component", "llm_cache")),
	}
}

// Call 实现 Callable 接口
func (c *CachedCallable) Call(ctx context.Context, req *CallRequest) (*Response, error) {
	key := c.cacheKey(req)

	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var resp Response
		if err := json.Unmarshal(cached, &resp); err == nil {
			c.logger.Debug("llm cache hit", zap.String("key", key))
			return &resp, nil
		}
		c.logger.Warn("llm cache entry corrupt, evicting", zap.String("key", key))
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("llm cache read failed", zap.Error(err))
	}

	resp, err := c.inner.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("llm cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// cacheKey 请求内容哈希
func (c *CachedCallable) cacheKey(req *CallRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return c.prefix + hex.EncodeToString(sum[:])
}
