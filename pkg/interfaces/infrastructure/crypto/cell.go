package crypto

import (
	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// ValueCellManager 加密值单元能力
//
// 单元把明文金额绑定到一个密文句柄上。句柄一经签发即持久存在，直到被 Clear。
// 所有方法在调用方提供的事务内执行，从而与账本其他状态同一事务提交或回滚。
//
// 任何具体实现（同态加密后端或测试桩）都可以替换进来，不影响账本逻辑。
type ValueCellManager interface {
	// Encrypt 加密明文并签发句柄；仅在输入格式错误时失败
	Encrypt(tx storage.BadgerTransaction, plaintext *uint256.Int) (types.CiphertextHandle, error)

	// IsInitialized 句柄是否指向一个有效（未清除）的单元
	IsInitialized(tx storage.BadgerTransaction, handle types.CiphertextHandle) (bool, error)

	// ExportForProof 导出可交给预言机验证的密文字节
	ExportForProof(tx storage.BadgerTransaction, handle types.CiphertextHandle) ([]byte, error)

	// GrantView 授予指定主体查看权限
	GrantView(tx storage.BadgerTransaction, handle types.CiphertextHandle, principal types.Address) error

	// CanView 指定主体是否拥有查看权限
	CanView(tx storage.BadgerTransaction, handle types.CiphertextHandle, principal types.Address) (bool, error)

	// Viewers 返回已授权主体（按授予顺序）
	Viewers(tx storage.BadgerTransaction, handle types.CiphertextHandle) ([]types.Address, error)

	// Clear 消费单元，此后 IsInitialized 返回 false
	Clear(tx storage.BadgerTransaction, handle types.CiphertextHandle) error
}
