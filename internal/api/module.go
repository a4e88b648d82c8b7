// Package api 组织节点对外提供的API服务
package api

import (
	"github.com/weisyn/confstake/internal/api/http"
	"go.uber.org/fx"
)

// Module 返回API模块选项
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
	)
}
