package stake

import (
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// PendingTable 待提取表
//
// 维护 请求ID -> 待提取记录 以及 凭证ID -> 活跃请求ID 两个映射，
// 两者生命周期一致：同一事务内创建、同一事务内删除。
type PendingTable interface {
	// NextRequestID 分配下一个请求ID（单调递增，从1开始）
	NextRequestID(tx storage.BadgerTransaction) (types.RequestID, error)

	// Put 登记待提取记录并标记凭证为待处理
	// 凭证已有活跃请求时返回 ErrRedemptionAlreadyPending
	Put(tx storage.BadgerTransaction, record *types.PendingWithdrawal) error

	// Get 读取待提取记录；不存在时返回 ErrUnknownRequest
	Get(tx storage.BadgerTransaction, requestID types.RequestID) (*types.PendingWithdrawal, error)

	// Consume 删除记录、清除凭证的待处理标记和索引，返回被删除的记录
	// 不存在时返回 ErrUnknownRequest
	Consume(tx storage.BadgerTransaction, requestID types.RequestID) (*types.PendingWithdrawal, error)

	// IsPending 凭证是否有活跃请求
	IsPending(tx storage.BadgerTransaction, id types.CertificateID) (bool, error)

	// RequestFor 凭证的活跃请求ID，没有时返回 0
	RequestFor(tx storage.BadgerTransaction, id types.CertificateID) (types.RequestID, error)

	// PutStranded 记录滞留提取
	PutStranded(tx storage.BadgerTransaction, record *types.StrandedWithdrawal) error

	// GetStranded 读取滞留提取；不存在时返回 ErrStrandedNotFound
	GetStranded(tx storage.BadgerTransaction, requestID types.RequestID) (*types.StrandedWithdrawal, error)

	// DeleteStranded 删除滞留提取记录
	DeleteStranded(tx storage.BadgerTransaction, requestID types.RequestID) error

	// ListStranded 按请求ID升序列出滞留提取
	ListStranded(tx storage.BadgerTransaction) ([]*types.StrandedWithdrawal, error)
}
