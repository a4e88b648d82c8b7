// Package event 提供事件管理功能
package event

import (
	"go.uber.org/fx"

	eventInterface "github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Logger log.Logger `optional:"true"` // 日志记录器（可选）
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus // 基础事件总线
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			func(input ModuleInput) ModuleOutput {
				if input.Logger != nil {
					input.Logger.With("module", "event").Info("事件总线已创建")
				}
				return ModuleOutput{EventBus: New()}
			},
		),
	)
}
