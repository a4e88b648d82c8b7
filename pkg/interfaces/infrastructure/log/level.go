package log

// Level 日志级别
type Level string

// 日志级别常量
const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	FatalLevel Level = "fatal"
)

// String 返回级别名称
func (l Level) String() string {
	return string(l)
}
