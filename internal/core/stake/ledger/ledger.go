// Package ledger 实现质押账本：存活凭证到加密值单元的绑定
package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

// prefixBalance stk/bal/<id> -> 密文句柄
var prefixBalance = []byte("stk/bal/")

func balanceKey(id types.CertificateID) []byte {
	return append(append([]byte(nil), prefixBalance...), id.Bytes()...)
}

// Ledger 实现 stake.StakeLedger
type Ledger struct {
	cells     cryptointf.ValueCellManager
	principal types.Address // 账本主体，获得每个余额的查看权
}

var _ stake.StakeLedger = (*Ledger)(nil)

// New 创建质押账本
func New(cells cryptointf.ValueCellManager, principal types.Address) *Ledger {
	return &Ledger{
		cells:     cells,
		principal: principal,
	}
}

// RecordStake 加密金额并绑定到凭证
func (l *Ledger) RecordStake(tx storage.BadgerTransaction, id types.CertificateID, amount *uint256.Int, staker types.Address) (*types.EncryptedBalance, error) {
	if amount == nil || amount.IsZero() {
		return nil, types.ErrZeroAmount
	}

	existing, err := tx.Get(balanceKey(id))
	if err != nil {
		return nil, fmt.Errorf("读取加密余额绑定失败: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("凭证 %s 已有存活的加密余额", id)
	}

	handle, err := l.cells.Encrypt(tx, amount)
	if err != nil {
		return nil, err
	}
	for _, principal := range []types.Address{l.principal, staker} {
		if err := l.cells.GrantView(tx, handle, principal); err != nil {
			return nil, fmt.Errorf("授予查看权限失败: %w", err)
		}
	}

	if err := tx.Set(balanceKey(id), handle[:]); err != nil {
		return nil, err
	}

	viewers, err := l.cells.Viewers(tx, handle)
	if err != nil {
		return nil, err
	}
	return &types.EncryptedBalance{
		CertificateID: id,
		Handle:        handle,
		Viewers:       viewers,
	}, nil
}

// GetBalance 返回凭证绑定的密文句柄
func (l *Ledger) GetBalance(tx storage.BadgerTransaction, id types.CertificateID) (types.CiphertextHandle, error) {
	data, err := tx.Get(balanceKey(id))
	if err != nil {
		return types.CiphertextHandle{}, fmt.Errorf("读取加密余额绑定失败: %w", err)
	}
	if data == nil {
		return types.CiphertextHandle{}, fmt.Errorf("%w: %s", types.ErrStakeNotFound, id)
	}

	handle, err := types.BytesToHandle(data)
	if err != nil {
		return types.CiphertextHandle{}, err
	}
	ok, err := l.cells.IsInitialized(tx, handle)
	if err != nil {
		return types.CiphertextHandle{}, err
	}
	if !ok {
		return types.CiphertextHandle{}, fmt.Errorf("%w: %s", types.ErrStakeNotFound, id)
	}
	return handle, nil
}

// ClearStake 移除绑定并消费加密单元
func (l *Ledger) ClearStake(tx storage.BadgerTransaction, id types.CertificateID) error {
	handle, err := l.GetBalance(tx, id)
	if err != nil {
		return err
	}
	if err := l.cells.Clear(tx, handle); err != nil {
		return err
	}
	return tx.Delete(balanceKey(id))
}
