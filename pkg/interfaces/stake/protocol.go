package stake

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// RedemptionProtocol 赎回协议编排器
//
// 每凭证状态机：Staked → Redeeming → released（凭证已销毁，无回到空闲的路径）。
// 每个入口都是一个原子临界区；失败时共享状态与调用前完全一致，
// 唯一例外是 ErrTransferFailed（待提取记录已删除，资金转入滞留记录）。
type RedemptionProtocol interface {
	oracle.Fulfiller
	Query

	// Stake 托管 amount 并为 staker 铸造凭证，返回凭证ID
	Stake(ctx context.Context, staker types.Address, amount *uint256.Int) (types.CertificateID, error)

	// Redeem 销毁凭证并把加密余额提交给预言机，返回请求ID
	// 该步骤不可逆：凭证销毁后只有 Fulfill 能为它移动资金
	Redeem(ctx context.Context, caller types.Address, id types.CertificateID) (types.RequestID, error)

	// RetryStranded 重试滞留提取的转账，仅预言机主体或运营方可调用
	RetryStranded(ctx context.Context, caller types.Address, requestID types.RequestID) error

	// Approve 批准 to 操作凭证
	Approve(ctx context.Context, caller, to types.Address, id types.CertificateID) error

	// SetApprovalForAll 设置批准操作员
	SetApprovalForAll(ctx context.Context, owner, operator types.Address, approved bool) error

	// TransferCertificate 转让凭证
	TransferCertificate(ctx context.Context, caller, from, to types.Address, id types.CertificateID) error
}

// Query 对外查询面
type Query interface {
	// GetEncryptedBalance 凭证的加密余额；已赎回或从未质押均返回 ErrStakeNotFound
	GetEncryptedBalance(ctx context.Context, id types.CertificateID) (*types.EncryptedBalance, error)

	// OwnerOf 凭证持有人
	OwnerOf(ctx context.Context, id types.CertificateID) (types.Address, error)

	// TokensOf 持有人的凭证列表（获得顺序）
	TokensOf(ctx context.Context, owner types.Address) ([]types.CertificateID, error)

	// PendingRequestFor 凭证的活跃请求ID，没有时返回 0
	PendingRequestFor(ctx context.Context, id types.CertificateID) (types.RequestID, error)

	// IsPending 凭证是否有待完成的赎回
	IsPending(ctx context.Context, id types.CertificateID) (bool, error)

	// PendingRecord 待提取记录
	PendingRecord(ctx context.Context, requestID types.RequestID) (*types.PendingWithdrawal, error)

	// StrandedWithdrawals 全部滞留提取
	StrandedWithdrawals(ctx context.Context) ([]*types.StrandedWithdrawal, error)
}
