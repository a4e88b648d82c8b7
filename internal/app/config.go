package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weisyn/confstake/pkg/types"
)

// ConfigPathEnv 指定配置文件路径的环境变量，优先于命令行参数
const ConfigPathEnv = "CONFSTAKE_CONFIG_PATH"

// defaultConfigPath 默认配置文件路径
const defaultConfigPath = "configs/confstake.json"

// resolveAppConfig 按优先级确定用户配置
//
//  1. WithAppConfig 直接给定的配置
//  2. WithEmbeddedConfig 嵌入的配置内容
//  3. 环境变量 CONFSTAKE_CONFIG_PATH 或 WithConfigFile 指定的文件
//  4. 默认路径；文件不存在时全部使用默认值
func resolveAppConfig(o *options) (*types.AppConfig, error) {
	if o.appConfig != nil {
		return o.appConfig, nil
	}
	if len(o.embeddedConfig) > 0 {
		return parseAppConfig(o.embeddedConfig)
	}

	path, explicit := configFilePath(o)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &types.AppConfig{}, nil
		}
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	appConfig, err := parseAppConfig(data)
	if err != nil {
		return nil, fmt.Errorf("配置文件 %s: %w", path, err)
	}
	return appConfig, nil
}

// configFilePath 返回配置文件路径，以及路径是否由用户显式指定
func configFilePath(o *options) (string, bool) {
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath, true
	}
	if o.configFilePath != "" {
		return o.configFilePath, true
	}
	return defaultConfigPath, false
}

func parseAppConfig(data []byte) (*types.AppConfig, error) {
	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &appConfig, nil
}

// createDataDirectories 根据配置创建数据与日志目录
func createDataDirectories(appConfig *types.AppConfig) error {
	var directories []string
	if appConfig.DataDir != nil && *appConfig.DataDir != "" {
		directories = append(directories, *appConfig.DataDir)
	}
	if appConfig.Storage != nil && appConfig.Storage.DataRoot != nil {
		directories = append(directories, *appConfig.Storage.DataRoot)
	}
	if appConfig.Log != nil && appConfig.Log.FilePath != nil && *appConfig.Log.FilePath != "" {
		directories = append(directories, filepath.Dir(*appConfig.Log.FilePath))
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}
