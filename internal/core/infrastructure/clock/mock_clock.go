package clock

import (
	"sync"
	"time"
)

// MockClock 可手动推进的时钟，用于测试
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

// NewMockClock 创建以 initial 为起点的时钟
func NewMockClock(initial time.Time) *MockClock { return &MockClock{currentTime: initial} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Unix() int64 { return c.Now().Unix() }

// Advance 推进时间
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	c.mu.Unlock()
}
