// Package settlement 定义价值转移（结算网络）接口
package settlement

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/types"
)

// Settlement 结算接口
//
// 核心把转账失败视为所在操作的致命错误，不做自动重试。
type Settlement interface {
	// Escrow 从 from 收取 amount 存入金库
	Escrow(ctx context.Context, from types.Address, amount *uint256.Int) error

	// Transfer 从金库向 to 转出 amount
	Transfer(ctx context.Context, to types.Address, amount *uint256.Int) error

	// BalanceOf 查询账户余额
	BalanceOf(ctx context.Context, account types.Address) (*uint256.Int, error)
}
