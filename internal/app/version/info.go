// Package version 构建版本信息，通过 -ldflags 注入
package version

import (
	"fmt"
	"runtime"
	"time"
)

// 构建时注入的变量
var (
	Version   = "v0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown" // RFC3339
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo 获取完整构建信息
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersion 多行版本说明，用于命令行输出
func GetFullVersion() string {
	info := GetBuildInfo()
	versionStr := fmt.Sprintf("confstake %s (%s)", info.Version, info.Commit)

	if info.BuildTime != "unknown" {
		if parsedTime, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			versionStr += fmt.Sprintf("\n构建时间: %s", parsedTime.Format("2006-01-02 15:04:05 MST"))
		} else {
			versionStr += fmt.Sprintf("\n构建时间: %s", info.BuildTime)
		}
	}
	versionStr += fmt.Sprintf("\nGo版本: %s", info.GoVersion)
	versionStr += fmt.Sprintf("\n平台: %s", info.Platform)
	return versionStr
}
