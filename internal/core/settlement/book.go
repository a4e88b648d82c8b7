// Package settlement 实现基于 BadgerDB 的结算账户簿
//
// 质押资金从质押人账户托管到金库账户，赎回履约时从金库转给受益人。
//
// 存储布局：
//
//	acct/bal/<address>   账户余额（32字节大端 uint256）
//	acct/genesis         初始余额已写入标记
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	settlementconfig "github.com/weisyn/confstake/internal/config/settlement"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
	"github.com/weisyn/confstake/pkg/types"
)

// ErrInsufficientBalance 账户余额不足
var ErrInsufficientBalance = errors.New("账户余额不足")

var (
	prefixBalance = []byte("acct/bal/")
	keyGenesis    = []byte("acct/genesis")
)

func balanceKey(account types.Address) []byte {
	return append(append([]byte(nil), prefixBalance...), account.Bytes()...)
}

// Book 账户簿，实现 settlement.Settlement
type Book struct {
	store  storage.BadgerStore
	vault  types.Address
	logger log.Logger
}

var _ settlement.Settlement = (*Book)(nil)

// NewBook 创建账户簿
func NewBook(store storage.BadgerStore, vault types.Address, logger log.Logger) (*Book, error) {
	if store == nil {
		return nil, fmt.Errorf("store 不能为空")
	}
	if vault == types.ZeroAddress {
		return nil, fmt.Errorf("%w: 金库账户不能为零地址", types.ErrInvalidAddress)
	}
	return &Book{store: store, vault: vault, logger: logger}, nil
}

// Vault 金库账户
func (b *Book) Vault() types.Address {
	return b.vault
}

// Escrow 从 from 收取 amount 存入金库
func (b *Book) Escrow(ctx context.Context, from types.Address, amount *uint256.Int) error {
	return b.move(ctx, from, b.vault, amount)
}

// Transfer 从金库向 to 转出 amount
func (b *Book) Transfer(ctx context.Context, to types.Address, amount *uint256.Int) error {
	if to == types.ZeroAddress {
		return fmt.Errorf("%w: 收款方不能为零地址", types.ErrInvalidAddress)
	}
	return b.move(ctx, b.vault, to, amount)
}

// BalanceOf 查询账户余额
func (b *Book) BalanceOf(ctx context.Context, account types.Address) (*uint256.Int, error) {
	var balance *uint256.Int
	err := b.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		balance, err = readBalance(tx, account)
		return err
	})
	return balance, err
}

// Credit 直接增加账户余额（初始余额、开发水龙头）
func (b *Book) Credit(ctx context.Context, account types.Address, amount *uint256.Int) error {
	return b.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		return credit(tx, account, amount)
	})
}

// Seed 写入初始余额，只在首次启动时生效
func (b *Book) Seed(ctx context.Context, genesis []settlementconfig.GenesisBalance) (bool, error) {
	seeded := false
	err := b.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		done, err := tx.Exists(keyGenesis)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		for _, entry := range genesis {
			if err := credit(tx, entry.Account, entry.Amount); err != nil {
				return fmt.Errorf("写入账户 %s 初始余额失败: %w", entry.Account.Hex(), err)
			}
		}
		seeded = true
		return tx.Set(keyGenesis, []byte{1})
	})
	if err != nil {
		return false, err
	}
	if seeded && b.logger != nil {
		b.logger.Infof("初始余额已写入: %d 个账户", len(genesis))
	}
	return seeded, nil
}

func (b *Book) move(ctx context.Context, from, to types.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("转账金额为空")
	}
	err := b.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		balance, err := readBalance(tx, from)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return fmt.Errorf("%w: 账户 %s 余额 %s，需要 %s", ErrInsufficientBalance, from.Hex(), balance, amount)
		}
		if err := writeBalance(tx, from, new(uint256.Int).Sub(balance, amount)); err != nil {
			return err
		}
		return credit(tx, to, amount)
	})
	if err != nil {
		return err
	}
	if b.logger != nil {
		b.logger.Debugf("结算转账: from=%s to=%s amount=%s", from.Hex(), to.Hex(), amount)
	}
	return nil
}

func credit(tx storage.BadgerTransaction, account types.Address, amount *uint256.Int) error {
	balance, err := readBalance(tx, account)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return fmt.Errorf("账户 %s 余额溢出", account.Hex())
	}
	return writeBalance(tx, account, sum)
}

func readBalance(tx storage.BadgerTransaction, account types.Address) (*uint256.Int, error) {
	data, err := tx.Get(balanceKey(account))
	if err != nil {
		return nil, fmt.Errorf("读取账户余额失败: %w", err)
	}
	if data == nil {
		return new(uint256.Int), nil
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("账户 %s 余额编码损坏", account.Hex())
	}
	return new(uint256.Int).SetBytes32(data), nil
}

func writeBalance(tx storage.BadgerTransaction, account types.Address, balance *uint256.Int) error {
	if balance.IsZero() {
		return tx.Delete(balanceKey(account))
	}
	raw := balance.Bytes32()
	return tx.Set(balanceKey(account), raw[:])
}
