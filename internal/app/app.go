// Package app 负责装配并运行质押账本节点
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	// startTimeout 启动超时
	startTimeout = 60 * time.Second
	// stopTimeout 停止超时，给数据库足够时间完成同步和关闭
	stopTimeout = 60 * time.Second
)

// App 是节点应用的对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait() error
}

// internalApp 节点应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Stop 停止应用
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待中断或终止信号
func (a *internalApp) Wait() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sig := <-signals
	fmt.Printf("\n收到信号 %v，正在优雅退出...\n", sig)
	return a.Stop()
}

// Start 装配并启动节点
func Start(appOptions ...Option) (App, error) {
	bootstrap := NewBootstrap(newOptions(appOptions...))
	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := bootstrap.StartApp(ctx); err != nil {
		return nil, err
	}

	return &internalApp{bootstrap: bootstrap}, nil
}
