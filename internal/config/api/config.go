// Package api 提供API服务配置
package api

import (
	"time"

	"github.com/weisyn/confstake/pkg/types"
)

// APIOptions API服务配置选项
type APIOptions struct {
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig HTTP API配置
type HTTPConfig struct {
	Enabled bool   `json:"enabled"` // 是否启用HTTP服务
	Address string `json:"address"` // 监听地址 host:port

	// 超时配置
	ReadTimeout  time.Duration `json:"read_timeout"`  // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout"` // 写入超时时间

	EnableMetrics  bool  `json:"enable_metrics"`   // 是否暴露 /metrics
	MaxRequestSize int64 `json:"max_request_size"` // 最大请求大小(字节)

	// 按客户端IP限流，0 表示不限流
	ReadRateLimit  int `json:"read_rate_limit"`
	WriteRateLimit int `json:"write_rate_limit"`
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig *types.UserAPIConfig) *Config {
	options := &APIOptions{
		HTTP: HTTPConfig{
			Enabled:        defaultHTTPEnabled,
			Address:        defaultHTTPAddress,
			ReadTimeout:    defaultReadTimeout,
			WriteTimeout:   defaultWriteTimeout,
			EnableMetrics:  defaultEnableMetrics,
			MaxRequestSize: defaultMaxRequestSize,
			ReadRateLimit:  defaultReadRateLimit,
			WriteRateLimit: defaultWriteRateLimit,
		},
	}

	if userConfig != nil {
		if userConfig.HTTPEnabled != nil {
			options.HTTP.Enabled = *userConfig.HTTPEnabled
		}
		if userConfig.HTTPAddress != nil {
			options.HTTP.Address = *userConfig.HTTPAddress
		}
		if userConfig.Metrics != nil {
			options.HTTP.EnableMetrics = *userConfig.Metrics
		}
		if userConfig.ReadRateLimit != nil {
			options.HTTP.ReadRateLimit = *userConfig.ReadRateLimit
		}
		if userConfig.WriteRateLimit != nil {
			options.HTTP.WriteRateLimit = *userConfig.WriteRateLimit
		}
	}

	return &Config{options: options}
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}
