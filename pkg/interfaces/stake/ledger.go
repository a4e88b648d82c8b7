package stake

import (
	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// StakeLedger 质押账本：存活凭证 -> 加密值单元
//
// 一个凭证最多只有一个存活的加密余额。
type StakeLedger interface {
	// RecordStake 创建加密单元、向账本主体和质押人授予查看权并绑定到 id
	// amount 为 0 时返回 ErrZeroAmount
	RecordStake(tx storage.BadgerTransaction, id types.CertificateID, amount *uint256.Int, staker types.Address) (*types.EncryptedBalance, error)

	// GetBalance 返回绑定的密文句柄
	// "从未质押"与"已赎回"不可区分，均返回 ErrStakeNotFound
	GetBalance(tx storage.BadgerTransaction, id types.CertificateID) (types.CiphertextHandle, error)

	// ClearStake 原子地移除绑定并消费单元
	ClearStake(tx storage.BadgerTransaction, id types.CertificateID) error
}
