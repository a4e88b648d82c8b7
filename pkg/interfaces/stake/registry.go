// Package stake 定义保密质押账本各组件的接口
//
// 组件自底向上：凭证登记簿（CertificateRegistry）、质押账本（StakeLedger）、
// 待提取表（PendingTable）、赎回协议（RedemptionProtocol）。
// 前三者都是事务内仓储：方法接收调用方打开的事务，由协议统一提交或回滚。
package stake

import (
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// CertificateRegistry 凭证登记簿
//
// 独占凭证 ID 到持有人的映射。下一个 ID 的计数器由登记簿自身持有，
// ID 永不复用，已销毁 ID 上遗留的授权不会匹配到之后铸造的凭证。
type CertificateRegistry interface {
	// Mint 为 owner 铸造新凭证，返回 ID（上一个 ID + 1）
	Mint(tx storage.BadgerTransaction, owner types.Address) (types.CertificateID, error)

	// Burn 销毁凭证；凭证不存在时返回 ErrInvalidCertificate
	Burn(tx storage.BadgerTransaction, id types.CertificateID) error

	// OwnerOf 返回凭证持有人；不存在时返回 ErrCertificateNotFound
	OwnerOf(tx storage.BadgerTransaction, id types.CertificateID) (types.Address, error)

	// Exists 凭证是否存活
	Exists(tx storage.BadgerTransaction, id types.CertificateID) (bool, error)

	// IsAuthorized caller 是否为持有人、该凭证的被批准地址或持有人的批准操作员
	IsAuthorized(tx storage.BadgerTransaction, caller types.Address, id types.CertificateID) (bool, error)

	// TokensOf 按获得顺序返回 owner 持有的凭证快照
	TokensOf(tx storage.BadgerTransaction, owner types.Address) ([]types.CertificateID, error)

	// Approve 批准 to 操作凭证 id；to 为零地址表示撤销
	Approve(tx storage.BadgerTransaction, caller, to types.Address, id types.CertificateID) error

	// GetApproved 返回凭证的被批准地址
	GetApproved(tx storage.BadgerTransaction, id types.CertificateID) (types.Address, error)

	// SetApprovalForAll 设置 operator 是否可操作 owner 的全部凭证
	SetApprovalForAll(tx storage.BadgerTransaction, owner, operator types.Address, approved bool) error

	// IsApprovedForAll operator 是否为 owner 的批准操作员
	IsApprovedForAll(tx storage.BadgerTransaction, owner, operator types.Address) (bool, error)

	// Transfer 将凭证从 from 转给 to，caller 必须被授权
	Transfer(tx storage.BadgerTransaction, caller, from, to types.Address, id types.CertificateID) error
}
