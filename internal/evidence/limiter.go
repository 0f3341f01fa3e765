package evidence

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter 按主机限速器
// 每个文献服务主机独立限速，避免触发对方的流量限制
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// newHostLimiter 创建按主机限速器
func newHostLimiter(perSecond float64) *hostLimiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(perSecond),
		burst:    1,
	}
}

// Wait 阻塞直到获得目标主机的请求许可或上下文取消
func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	return l.get(host).Wait(ctx)
}

// get 获取或创建主机对应的限速器
func (l *hostLimiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.perHost, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}
