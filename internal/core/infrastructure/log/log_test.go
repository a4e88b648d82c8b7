package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logconfig "github.com/weisyn/confstake/internal/config/log"
)

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "node.log")
	cfg := logconfig.NewFromOptions(&logconfig.LogOptions{
		Level:    "debug",
		FilePath: logPath,
		MaxSize:  1,
	})

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Debugf("写入测试 %d", 42)
	logger.With("module", "stake").Info("带模块字段")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入测试 42")
	assert.Contains(t, string(data), `"module":"stake"`)
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "node.log")
	logger, err := New(logconfig.NewFromOptions(&logconfig.LogOptions{
		Level:    "warn",
		FilePath: logPath,
	}))
	require.NoError(t, err)

	logger.Info("不应出现")
	logger.Warn("应该出现")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "不应出现")
	assert.Contains(t, string(data), "应该出现")
}

func TestNewModuleLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewFromZap(zap.New(core))

	NewModuleLogger(base, "oracle").Infof("请求 %d 已提交", 7)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "请求 7 已提交", entries[0].Message)
	assert.Equal(t, "oracle", entries[0].ContextMap()["module"])

	assert.Nil(t, NewModuleLogger(nil, "oracle"))
}

func TestWithDropsDanglingKey(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := NewFromZap(zap.New(core))

	base.With("request_id", uint64(3), "dangling").Info("ok")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, uint64(3), ctx["request_id"])
	assert.NotContains(t, ctx, "dangling")
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	nop := NewNop()
	SetLogger(nop)
	assert.Same(t, nop, GetLogger())

	SetLogger(nil)
	assert.Same(t, nop, GetLogger(), "nil 不替换全局记录器")
}
