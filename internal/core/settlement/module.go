package settlement

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	logimpl "github.com/weisyn/confstake/internal/core/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/config"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
)

// ModuleInput 结算模块输入依赖
type ModuleInput struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Provider    config.Provider
	BadgerStore storage.BadgerStore
	Logger      log.Logger `optional:"true"`
}

// ModuleOutput 结算模块输出服务
type ModuleOutput struct {
	fx.Out

	Settlement settlement.Settlement
	Book       *Book
}

// Module 返回结算模块
func Module() fx.Option {
	return fx.Module("settlement",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建账户簿，启动时写入初始余额
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	options, err := input.Provider.GetSettlement()
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("加载结算配置失败: %w", err)
	}

	logger := logimpl.NewModuleLogger(input.Logger, "settlement")
	book, err := NewBook(input.BadgerStore, options.Vault, logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	input.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := book.Seed(ctx, options.Genesis); err != nil {
				return fmt.Errorf("写入初始余额失败: %w", err)
			}
			return nil
		},
	})

	return ModuleOutput{Settlement: book, Book: book}, nil
}
