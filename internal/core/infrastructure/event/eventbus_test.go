package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
)

func TestEventBusSyncAndAsync(t *testing.T) {
	eventBus := New()

	// 同步订阅
	var receivedData string
	handler := func(data string) {
		receivedData = data
	}
	require.NoError(t, eventBus.Subscribe(event.EventType("test-event"), handler))
	assert.True(t, eventBus.HasCallback(event.EventType("test-event")))

	eventBus.Publish(event.EventType("test-event"), "hello world")
	assert.Equal(t, "hello world", receivedData)

	// 异步订阅
	var asyncData string
	var asyncWg sync.WaitGroup
	asyncWg.Add(1)
	asyncHandler := func(data string) {
		time.Sleep(10 * time.Millisecond)
		asyncData = data
		asyncWg.Done()
	}
	require.NoError(t, eventBus.SubscribeAsync(event.EventType("async-event"), asyncHandler, false))

	eventBus.Publish(event.EventType("async-event"), "async data")
	eventBus.WaitAsync()
	asyncWg.Wait()
	assert.Equal(t, "async data", asyncData)

	// 取消订阅后不再接收
	require.NoError(t, eventBus.Unsubscribe(event.EventType("test-event"), handler))
	receivedData = ""
	eventBus.Publish(event.EventType("test-event"), "should not receive")
	assert.Empty(t, receivedData)
}

func TestSubscribeOnce(t *testing.T) {
	eventBus := New()
	count := 0
	require.NoError(t, eventBus.SubscribeOnce(event.EventType("once"), func(int) { count++ }))

	eventBus.Publish(event.EventType("once"), 1)
	eventBus.Publish(event.EventType("once"), 2)
	assert.Equal(t, 1, count)
}

func TestEventHistory(t *testing.T) {
	eventBus := New()
	typ := event.EventType("history")

	// 未启用时不记录
	eventBus.Publish(typ, "dropped")
	assert.Nil(t, eventBus.GetEventHistory(typ))

	require.NoError(t, eventBus.EnableEventHistory(typ, 2))
	eventBus.Publish(typ, "a")
	eventBus.Publish(typ, "b")
	eventBus.Publish(typ, "c")

	assert.Equal(t, []interface{}{"b", "c"}, eventBus.GetEventHistory(typ), "超过上限时保留最新记录")

	// 多参数事件记录为切片
	eventBus.Publish(typ, "d", 4)
	history := eventBus.GetEventHistory(typ)
	require.Len(t, history, 2)
	assert.Equal(t, []interface{}{"d", 4}, history[1])

	require.NoError(t, eventBus.DisableEventHistory(typ))
	assert.Nil(t, eventBus.GetEventHistory(typ))

	assert.Error(t, eventBus.EnableEventHistory(typ, 0))
}
