// Package clock 提供时间源实现
package clock

import (
	"time"

	infraClock "github.com/weisyn/confstake/pkg/interfaces/infrastructure/clock"
)

// SystemClock 使用系统真实时间
type SystemClock struct{}

// NewSystemClock 创建系统时钟
func NewSystemClock() infraClock.Clock { return &SystemClock{} }

func (c *SystemClock) Now() time.Time { return time.Now() }
func (c *SystemClock) Unix() int64    { return time.Now().Unix() }
