// Package stake 提供质押协议配置
package stake

import (
	"github.com/ethereum/go-ethereum/common"

	configtypes "github.com/weisyn/confstake/pkg/types"
)

// StakeOptions 质押协议配置选项
type StakeOptions struct {
	// StrictSender 启用后只有 OraclePrincipal 可以调用履约；
	// 关闭时（开发/测试模式）任何调用方只要提供有效证明即可履约
	StrictSender bool `json:"strict_sender"`

	OraclePrincipal common.Address `json:"oracle_principal"` // 预言机回调主体
	LedgerPrincipal common.Address `json:"ledger_principal"` // 账本主体，获得每个加密余额的查看权
	Operator        common.Address `json:"operator"`         // 运营方，可重试滞留提取
}

// Config 质押协议配置实现
type Config struct {
	options *StakeOptions
}

// New 创建质押协议配置
func New(userConfig *configtypes.UserStakeConfig) *Config {
	options := &StakeOptions{
		StrictSender:    defaultStrictSender,
		LedgerPrincipal: common.HexToAddress(defaultLedgerPrincipal),
	}

	if userConfig != nil {
		if userConfig.StrictSender != nil {
			options.StrictSender = *userConfig.StrictSender
		}
		if userConfig.OraclePrincipal != nil {
			options.OraclePrincipal = common.HexToAddress(*userConfig.OraclePrincipal)
		}
		if userConfig.LedgerPrincipal != nil {
			options.LedgerPrincipal = common.HexToAddress(*userConfig.LedgerPrincipal)
		}
		if userConfig.Operator != nil {
			options.Operator = common.HexToAddress(*userConfig.Operator)
		}
	}

	return &Config{options: options}
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *StakeOptions {
	return c.options
}
