package config

import (
	"github.com/weisyn/confstake/internal/config/api"
	"github.com/weisyn/confstake/internal/config/log"
	"github.com/weisyn/confstake/internal/config/oracle"
	"github.com/weisyn/confstake/internal/config/settlement"
	"github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/internal/config/storage/badger"
	"github.com/weisyn/confstake/pkg/interfaces/config"
	"github.com/weisyn/confstake/pkg/types"
	"github.com/weisyn/confstake/pkg/utils"
)

const (
	defaultEnvironment = "dev"
	defaultDataRoot    = "./data"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者；appConfig 为 nil 时全部使用默认值
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// GetBadger 获取BadgerDB存储配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	storageConfig := p.appConfig.Storage
	if storageConfig == nil || storageConfig.DataRoot == nil {
		// 未单独配置存储根目录时，跟随 data_dir
		dataRoot := p.GetDataRoot()
		merged := &types.UserStorageConfig{DataRoot: &dataRoot}
		if storageConfig != nil {
			merged.InMemory = storageConfig.InMemory
		}
		storageConfig = merged
	}
	return badger.New(storageConfig).GetOptions()
}

// GetStake 获取质押协议配置
func (p *Provider) GetStake() *stake.StakeOptions {
	return stake.New(p.appConfig.Stake).GetOptions()
}

// GetOracle 获取预言机配置
func (p *Provider) GetOracle() *oracle.OracleOptions {
	return oracle.New(p.appConfig.Oracle, p.GetDataRoot()).GetOptions()
}

// GetSettlement 获取结算配置
func (p *Provider) GetSettlement() (*settlement.SettlementOptions, error) {
	cfg, err := settlement.New(p.appConfig.Settlement)
	if err != nil {
		return nil, err
	}
	return cfg.GetOptions(), nil
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetEnvironment 获取运行环境
func (p *Provider) GetEnvironment() string {
	if p.appConfig.Environment != nil && *p.appConfig.Environment != "" {
		return *p.appConfig.Environment
	}
	return defaultEnvironment
}

// GetDataRoot 获取数据根目录（绝对路径）
func (p *Provider) GetDataRoot() string {
	if p.appConfig.Storage != nil && p.appConfig.Storage.DataRoot != nil {
		return utils.ResolveDataPath(*p.appConfig.Storage.DataRoot)
	}
	if p.appConfig.DataDir != nil && *p.appConfig.DataDir != "" {
		return utils.ResolveDataPath(*p.appConfig.DataDir)
	}
	return utils.ResolveDataPath(defaultDataRoot)
}
