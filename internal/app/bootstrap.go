package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/confstake/internal/api"
	config "github.com/weisyn/confstake/internal/config"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto"
	"github.com/weisyn/confstake/internal/core/infrastructure/event"
	log "github.com/weisyn/confstake/internal/core/infrastructure/log"
	"github.com/weisyn/confstake/internal/core/infrastructure/storage"
	"github.com/weisyn/confstake/internal/core/oracle"
	"github.com/weisyn/confstake/internal/core/settlement"
	"github.com/weisyn/confstake/internal/core/stake"
	configiface "github.com/weisyn/confstake/pkg/interfaces/config"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{
		opts: opts,
	}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),  // 1. 配置(不依赖其他)
		log.Module(),     // 2. 日志(依赖配置)
		crypto.Module(),  // 3. 密码学
		event.Module(),   // 4. 事件总线
		storage.Module(), // 5. 存储(依赖配置和日志)
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
//
// 预言机模块通过 Invoke 取得质押模块导出的回调目标，两者之间没有构造期循环
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		settlement.Module(), // 1. 结算账户簿
		oracle.Module(),     // 2. 解密预言机（提供加密公钥与证明验证）
		stake.Module(),      // 3. 质押账本与赎回协议
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	var modules []fx.Option
	if b.opts.enableAPI {
		modules = append(modules, api.Module())
	}
	return append(modules, b.opts.extra...)
}

// SetupModules 按层组装全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupBusinessLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建fx应用
func (b *Bootstrap) CreateFxApp() error {
	appConfig, err := resolveAppConfig(b.opts)
	if err != nil {
		return err
	}
	b.opts.appConfig = appConfig
	if err := createDataDirectories(appConfig); err != nil {
		return err
	}

	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
	)
	return b.fxApp.Err()
}

// StartApp 启动应用
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
