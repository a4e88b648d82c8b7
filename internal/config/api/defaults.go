package api

import "time"

const (
	defaultHTTPEnabled    = true
	defaultHTTPAddress    = "127.0.0.1:28680"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultEnableMetrics  = true
	defaultMaxRequestSize = 1 << 20 // 1MB
	defaultReadRateLimit  = 100     // 每客户端每秒读请求数
	defaultWriteRateLimit = 10      // 每客户端每秒写请求数
)
