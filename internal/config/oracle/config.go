// Package oracle 提供解密预言机配置
package oracle

import (
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	configtypes "github.com/weisyn/confstake/pkg/types"
	"github.com/weisyn/confstake/pkg/utils"
)

// OracleOptions 预言机配置选项
type OracleOptions struct {
	// Enabled 是否在本节点内运行解密预言机
	// 关闭时预言机为外部服务，经 HTTP 回调履约
	Enabled bool `json:"enabled"`

	KeystorePath  string        `json:"keystore_path"`  // 密钥库文件路径
	PasswordEnv   string        `json:"password_env"`   // 存放口令的环境变量名
	Workers       int           `json:"workers"`        // 解密工作协程数
	QueueSize     int           `json:"queue_size"`     // 请求队列容量
	CallbackDelay time.Duration `json:"callback_delay"` // 回调前延迟

	// 证明验证参数（外部预言机时必须配置；本地预言机时由密钥库推导）
	Threshold     int              `json:"threshold"`      // 所需签名者数量
	Signers       []common.Address `json:"signers"`        // 受信任签名者
	EncryptionKey []byte           `json:"encryption_key"` // 预言机加密公钥（未压缩 65 字节或压缩 33 字节）
}

// Config 预言机配置实现
type Config struct {
	options *OracleOptions
}

// New 创建预言机配置
func New(userConfig *configtypes.UserOracleConfig, dataRoot string) *Config {
	options := &OracleOptions{
		Enabled:       defaultEnabled,
		KeystorePath:  filepath.Join(dataRoot, defaultKeystoreFile),
		PasswordEnv:   defaultPasswordEnv,
		Workers:       defaultWorkers,
		QueueSize:     defaultQueueSize,
		CallbackDelay: defaultCallbackDelay,
		Threshold:     defaultThreshold,
	}

	if userConfig != nil {
		if userConfig.Enabled != nil {
			options.Enabled = *userConfig.Enabled
		}
		if userConfig.KeystorePath != nil {
			options.KeystorePath = utils.ResolveDataPath(*userConfig.KeystorePath)
		}
		if userConfig.PasswordEnv != nil {
			options.PasswordEnv = *userConfig.PasswordEnv
		}
		if userConfig.Workers != nil && *userConfig.Workers > 0 {
			options.Workers = *userConfig.Workers
		}
		if userConfig.QueueSize != nil && *userConfig.QueueSize > 0 {
			options.QueueSize = *userConfig.QueueSize
		}
		if userConfig.CallbackDelayMs != nil && *userConfig.CallbackDelayMs >= 0 {
			options.CallbackDelay = time.Duration(*userConfig.CallbackDelayMs) * time.Millisecond
		}
		if userConfig.Threshold != nil && *userConfig.Threshold > 0 {
			options.Threshold = *userConfig.Threshold
		}
		for _, signer := range userConfig.Signers {
			options.Signers = append(options.Signers, common.HexToAddress(signer))
		}
		if userConfig.EncryptionKey != nil {
			if key, err := hexutil.Decode(*userConfig.EncryptionKey); err == nil {
				options.EncryptionKey = key
			}
		}
	}

	return &Config{options: options}
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *OracleOptions {
	return c.options
}
