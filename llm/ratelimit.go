package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedCallable 令牌桶限流包装器。
// 上游配额通常以 RPM 计；等待期间 ctx 取消会立即返回。
type RateLimitedCallable struct {
	inner   Callable
	limiter *rate.Limiter
}

// NewRateLimitedCallable 创建限流包装器
func NewRateLimitedCallable(inner Callable, rps float64, burst int) *RateLimitedCallable {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedCallable{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Call 实现 Callable 接口
func (c *RateLimitedCallable) Call(ctx context.Context, req *CallRequest) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.Call(ctx, req)
}
