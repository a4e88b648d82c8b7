package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/confstake/internal/api/http/types"
)

// idleLimiterTTL 超过该时间未使用的限流器会被回收
const idleLimiterTTL = 10 * time.Minute

// RateLimit 按客户端IP限流
// - 读操作（GET/HEAD）宽松限流
// - 写操作（质押、赎回、履约等）严格限流
type RateLimit struct {
	limiters   map[string]*rateLimiter
	mu         sync.Mutex
	readLimit  int // 读操作QPS限制，0 不限流
	writeLimit int // 写操作QPS限制，0 不限流
	now        func() time.Time
	lastSweep  time.Time
}

// rateLimiter 令牌桶，按秒补充
type rateLimiter struct {
	tokens     int
	maxTokens  int
	lastRefill time.Time
	lastUsed   time.Time
}

// NewRateLimit 创建限流中间件
func NewRateLimit(readLimit, writeLimit int) *RateLimit {
	return &RateLimit{
		limiters:   make(map[string]*rateLimiter),
		readLimit:  readLimit,
		writeLimit: writeLimit,
		now:        time.Now,
	}
}

// Middleware 返回Gin中间件
func (m *RateLimit) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		write := isWriteOperation(c.Request.Method)
		limit := m.readLimit
		if write {
			limit = m.writeLimit
		}
		if limit <= 0 {
			c.Next()
			return
		}

		if !m.allowRequest(c.ClientIP(), write, limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apitypes.NewErrorResponse(
				apitypes.ErrRateLimitExceeded,
				"Request rate limit exceeded",
				map[string]interface{}{
					"limit":      limit,
					"retryAfter": "1s",
				},
			).WithRequestID(GetRequestID(c)))
			return
		}

		c.Next()
	}
}

func isWriteOperation(method string) bool {
	return method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions
}

// allowRequest 检查是否允许请求
func (m *RateLimit) allowRequest(clientIP string, write bool, limit int) bool {
	key := "r:" + clientIP
	if write {
		key = "w:" + clientIP
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = &rateLimiter{
			tokens:     limit,
			maxTokens:  limit,
			lastRefill: now,
		}
		m.limiters[key] = limiter
	}
	limiter.lastUsed = now
	return limiter.consume(now)
}

// sweep 回收空闲限流器，调用方持有锁
func (m *RateLimit) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < idleLimiterTTL {
		return
	}
	m.lastSweep = now
	for key, limiter := range m.limiters {
		if now.Sub(limiter.lastUsed) > idleLimiterTTL {
			delete(m.limiters, key)
		}
	}
}

// consume 消费一个令牌
func (r *rateLimiter) consume(now time.Time) bool {
	elapsed := now.Sub(r.lastRefill)
	if tokensToAdd := int(elapsed.Seconds()) * r.maxTokens; tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}
