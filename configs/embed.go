package configs

import _ "embed"

// 嵌入各环境的配置文件
//
//go:embed development/config.json
var developmentConfig []byte

//go:embed production/config.json
var productionConfig []byte

// GetDevelopmentConfig 获取开发环境配置
func GetDevelopmentConfig() []byte {
	return developmentConfig
}

// GetProductionConfig 获取生产环境配置
func GetProductionConfig() []byte {
	return productionConfig
}

// Get 按环境名获取嵌入配置，未知环境返回 nil
func Get(environment string) []byte {
	switch environment {
	case "dev", "development":
		return developmentConfig
	case "prod", "production":
		return productionConfig
	default:
		return nil
	}
}
