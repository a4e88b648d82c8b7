// Package event 定义事件总线接口
//
// 质押协议在每个成功的状态变更提交后发布事件；发布发生在临界区内，
// 因此同一总线上的事件顺序等于调用顺序。
package event

import (
	"github.com/weisyn/confstake/pkg/types"
)

// EventType 事件类型别名
type EventType = types.EventType

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 同步订阅事件
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// SubscribeOnce 一次性订阅事件
	SubscribeOnce(eventType EventType, handler interface{}) error
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool
	// WaitAsync 等待所有异步处理完成
	WaitAsync()

	// EnableEventHistory 启用事件历史记录，maxSize 为保留条数上限
	EnableEventHistory(eventType EventType, maxSize int) error
	// DisableEventHistory 禁用事件历史记录
	DisableEventHistory(eventType EventType) error
	// GetEventHistory 获取指定事件类型的历史记录，未启用时返回 nil
	GetEventHistory(eventType EventType) []interface{}
}
