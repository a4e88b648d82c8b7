// Package events 定义质押账本对外发布的事件类型常量
//
// 命名规范：domain.action
//
//	eventBus.Subscribe(events.EventTypeStakeMinted, handler)
package events

import (
	"github.com/weisyn/confstake/pkg/types"
)

// EventType 事件类型别名
type EventType = types.EventType

// 质押生命周期事件
const (
	// EventTypeStakeMinted 质押成功、凭证铸造
	EventTypeStakeMinted EventType = "stake.minted"

	// EventTypeRedemptionRequested 赎回已发起，等待预言机履约
	EventTypeRedemptionRequested EventType = "stake.redemption_requested"

	// EventTypeRedemptionCompleted 预言机履约完成，资金已释放
	EventTypeRedemptionCompleted EventType = "stake.redemption_completed"

	// EventTypeWithdrawalStranded 解密已验证但转账失败，资金滞留
	EventTypeWithdrawalStranded EventType = "stake.withdrawal_stranded"

	// EventTypeWithdrawalRecovered 滞留资金经重试释放
	EventTypeWithdrawalRecovered EventType = "stake.withdrawal_recovered"
)

// AllStakeEvents 返回全部质押事件类型，用于启用历史记录
func AllStakeEvents() []EventType {
	return []EventType{
		EventTypeStakeMinted,
		EventTypeRedemptionRequested,
		EventTypeRedemptionCompleted,
		EventTypeWithdrawalStranded,
		EventTypeWithdrawalRecovered,
	}
}
