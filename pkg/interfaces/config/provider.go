// Package config 定义配置提供者接口
package config

import (
	apiconfig "github.com/weisyn/confstake/internal/config/api"
	logconfig "github.com/weisyn/confstake/internal/config/log"
	oracleconfig "github.com/weisyn/confstake/internal/config/oracle"
	settlementconfig "github.com/weisyn/confstake/internal/config/settlement"
	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	badgerconfig "github.com/weisyn/confstake/internal/config/storage/badger"
)

// Provider 配置提供者
//
// 每个 Get 方法返回已应用默认值的完整配置选项
type Provider interface {
	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetBadger 获取BadgerDB存储配置
	GetBadger() *badgerconfig.BadgerOptions

	// GetStake 获取质押协议配置
	GetStake() *stakeconfig.StakeOptions

	// GetOracle 获取预言机配置
	GetOracle() *oracleconfig.OracleOptions

	// GetSettlement 获取结算配置
	GetSettlement() (*settlementconfig.SettlementOptions, error)

	// GetAPI 获取API服务配置
	GetAPI() *apiconfig.APIOptions

	// GetEnvironment 获取运行环境：dev | test | prod
	GetEnvironment() string

	// GetDataRoot 获取数据根目录
	GetDataRoot() string
}
