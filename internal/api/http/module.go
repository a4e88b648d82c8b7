package http

import (
	"go.uber.org/fx"
)

// Module 返回HTTP API模块
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(NewServer),
		// 显式依赖，确保服务器被创建并注册生命周期钩子
		fx.Invoke(func(*Server) {}),
	)
}
