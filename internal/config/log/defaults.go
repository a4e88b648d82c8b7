package log

import (
	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	// defaultLogLevel 默认日志级别
	defaultLogLevel = "info"

	// defaultToConsole 默认输出到控制台，指定文件路径后关闭
	defaultToConsole = true

	// defaultMaxSize 单个日志文件最大 100MB
	defaultMaxSize = 100

	// defaultMaxBackups 最多保留 10 个备份
	defaultMaxBackups = 10

	// defaultMaxAge 保留 30 天
	defaultMaxAge = 30

	// defaultCompress 压缩历史日志
	defaultCompress = true

	// defaultEnableCaller 记录调用位置
	defaultEnableCaller = true

	// defaultEnableStacktrace Error 级别附带堆栈
	defaultEnableStacktrace = true
)

// 默认的日志级别映射
var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}
