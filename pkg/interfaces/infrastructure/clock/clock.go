// Package clock 定义时间源接口
package clock

import "time"

// Clock 时间源
//
// 账本记录提交时间与滞留时间时通过该接口取时，测试中可替换为可控时钟
type Clock interface {
	Now() time.Time
	Unix() int64
}
