package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFullVersion(t *testing.T) {
	origTime := BuildTime
	t.Cleanup(func() { BuildTime = origTime })

	BuildTime = "unknown"
	out := GetFullVersion()
	assert.Contains(t, out, Version)
	assert.NotContains(t, out, "构建时间")

	BuildTime = "2026-01-02T03:04:05Z"
	assert.Contains(t, GetFullVersion(), "2026-01-02 03:04:05 UTC")

	BuildTime = "yesterday"
	assert.Contains(t, GetFullVersion(), "构建时间: yesterday")
}
