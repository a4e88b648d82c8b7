// Package event 提供基于 asaskevich/EventBus 的事件总线实现
// 在底层总线之上增加按事件类型保留的历史记录，供查询接口和测试回放
package event

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
)

// EventBus 是基于asaskevich/EventBus的事件总线实现
type EventBus struct {
	bus evbus.Bus // 底层事件总线

	historyMu    sync.RWMutex
	historyLimit map[event.EventType]int           // 已启用历史记录的类型及其上限
	eventHistory map[event.EventType][]interface{} // 历史事件存储
}

var _ event.EventBus = (*EventBus)(nil)

// New 创建事件总线实例
func New() *EventBus {
	return &EventBus{
		bus:          evbus.New(),
		historyLimit: make(map[event.EventType]int),
		eventHistory: make(map[event.EventType][]interface{}),
	}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// SubscribeOnce 实现一次性订阅
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 实现发布
// 只记录单参数事件，多参数时记录参数切片
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	eb.saveEventToHistory(eventType, args)
	eb.bus.Publish(string(eventType), args...)
}

// HasCallback 检查是否有订阅者
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	return eb.bus.HasCallback(string(eventType))
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// EnableEventHistory 启用事件历史记录
func (eb *EventBus) EnableEventHistory(eventType event.EventType, maxSize int) error {
	if maxSize <= 0 {
		return fmt.Errorf("历史记录上限必须为正数: %d", maxSize)
	}

	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()

	eb.historyLimit[eventType] = maxSize
	if history := eb.eventHistory[eventType]; len(history) > maxSize {
		eb.eventHistory[eventType] = history[len(history)-maxSize:]
	}
	return nil
}

// DisableEventHistory 禁用事件历史记录并清空已有记录
func (eb *EventBus) DisableEventHistory(eventType event.EventType) error {
	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()

	delete(eb.historyLimit, eventType)
	delete(eb.eventHistory, eventType)
	return nil
}

// GetEventHistory 获取指定类型的事件历史（按发布顺序）
func (eb *EventBus) GetEventHistory(eventType event.EventType) []interface{} {
	eb.historyMu.RLock()
	defer eb.historyMu.RUnlock()

	if _, ok := eb.historyLimit[eventType]; !ok {
		return nil
	}
	history := eb.eventHistory[eventType]
	out := make([]interface{}, len(history))
	copy(out, history)
	return out
}

// saveEventToHistory 按上限保存事件
func (eb *EventBus) saveEventToHistory(eventType event.EventType, args []interface{}) {
	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()

	limit, ok := eb.historyLimit[eventType]
	if !ok {
		return
	}

	var entry interface{}
	if len(args) == 1 {
		entry = args[0]
	} else {
		entry = append([]interface{}(nil), args...)
	}

	history := append(eb.eventHistory[eventType], entry)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	eb.eventHistory[eventType] = history
}
