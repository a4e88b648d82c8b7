// Package settlement 提供结算账户簿配置
package settlement

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	configtypes "github.com/weisyn/confstake/pkg/types"
	"github.com/weisyn/confstake/pkg/utils"
)

// GenesisBalance 初始账户余额
type GenesisBalance struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

// SettlementOptions 结算配置选项
type SettlementOptions struct {
	Vault   common.Address   `json:"vault"`   // 金库账户
	Genesis []GenesisBalance `json:"genesis"` // 初始余额（按地址排序）
}

// Config 结算配置实现
type Config struct {
	options *SettlementOptions
}

// New 创建结算配置；初始余额格式错误时返回错误
func New(userConfig *configtypes.UserSettlementConfig) (*Config, error) {
	options := &SettlementOptions{
		Vault: common.HexToAddress(defaultVault),
	}

	if userConfig != nil {
		if userConfig.Vault != nil {
			options.Vault = common.HexToAddress(*userConfig.Vault)
		}
		for account, amountStr := range userConfig.Genesis {
			if !common.IsHexAddress(account) {
				return nil, fmt.Errorf("初始余额账户地址无效: %s", account)
			}
			amount, err := utils.ParseUnits(amountStr)
			if err != nil {
				return nil, fmt.Errorf("账户 %s 初始余额无效: %w", account, err)
			}
			options.Genesis = append(options.Genesis, GenesisBalance{
				Account: common.HexToAddress(account),
				Amount:  amount,
			})
		}
		sort.Slice(options.Genesis, func(i, j int) bool {
			return options.Genesis[i].Account.Cmp(options.Genesis[j].Account) < 0
		})
	}

	return &Config{options: options}, nil
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *SettlementOptions {
	return c.options
}
