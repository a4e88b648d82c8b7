package types

// AppConfig 应用配置文件结构
//
// 字段使用指针类型区分"未设置"与"设置为零值"：
//   - nil: 配置文件中未出现，使用系统默认值
//   - &value: 用户明确设置，即使是 0、false、"" 也会被采用
type AppConfig struct {
	AppName     *string `json:"app_name,omitempty"`    // 应用名称
	DataDir     *string `json:"data_dir,omitempty"`    // 数据目录路径
	Environment *string `json:"environment,omitempty"` // 运行环境：dev | test | prod

	Log        *UserLogConfig        `json:"log,omitempty"`
	Storage    *UserStorageConfig    `json:"storage,omitempty"`
	Stake      *UserStakeConfig      `json:"stake,omitempty"`
	Oracle     *UserOracleConfig     `json:"oracle,omitempty"`
	Settlement *UserSettlementConfig `json:"settlement,omitempty"`
	API        *UserAPIConfig        `json:"api,omitempty"`
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level    *string `json:"level,omitempty"`     // 日志级别：debug, info, warn, error, fatal
	FilePath *string `json:"file_path,omitempty"` // 日志文件路径
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	DataRoot *string `json:"data_root,omitempty"` // 数据根目录，badger 位于 {data_root}/badger
	InMemory *bool   `json:"in_memory,omitempty"` // 是否使用内存数据库（数据不持久化）
}

// UserStakeConfig 用户质押协议配置
type UserStakeConfig struct {
	// StrictSender 为 true 时，只有预言机主体可以调用履约
	StrictSender    *bool   `json:"strict_sender,omitempty"`
	OraclePrincipal *string `json:"oracle_principal,omitempty"` // 预言机回调主体地址
	LedgerPrincipal *string `json:"ledger_principal,omitempty"` // 账本自身主体地址（加密余额查看权）
	Operator        *string `json:"operator,omitempty"`         // 运营方地址（可重试滞留提取）
}

// UserOracleConfig 用户预言机配置
type UserOracleConfig struct {
	Enabled         *bool    `json:"enabled,omitempty"`           // 是否在本节点内运行解密预言机
	KeystorePath    *string  `json:"keystore_path,omitempty"`     // 预言机密钥库文件
	PasswordEnv     *string  `json:"password_env,omitempty"`      // 存放密钥库口令的环境变量名
	Workers         *int     `json:"workers,omitempty"`           // 解密工作协程数
	QueueSize       *int     `json:"queue_size,omitempty"`        // 请求队列容量
	CallbackDelayMs *int     `json:"callback_delay_ms,omitempty"` // 回调前的人为延迟（测试网模拟）
	Threshold       *int     `json:"threshold,omitempty"`         // 证明所需签名者数量
	Signers         []string `json:"signers,omitempty"`           // 受信任签名者地址
	EncryptionKey   *string  `json:"encryption_key,omitempty"`    // 预言机加密公钥（十六进制）
}

// UserSettlementConfig 用户结算配置
type UserSettlementConfig struct {
	Vault   *string           `json:"vault,omitempty"`   // 金库账户地址
	Genesis map[string]string `json:"genesis,omitempty"` // 初始账户余额（地址 -> 十进制金额）
}

// UserAPIConfig 用户API配置
type UserAPIConfig struct {
	HTTPEnabled *bool   `json:"http_enabled,omitempty"` // 是否启用HTTP服务（默认true）
	HTTPAddress *string `json:"http_address,omitempty"` // 监听地址（默认 127.0.0.1:28680）
	Metrics     *bool   `json:"metrics,omitempty"`      // 是否暴露 /metrics

	ReadRateLimit  *int `json:"read_rate_limit,omitempty"`  // 每客户端每秒读请求数，0 不限流
	WriteRateLimit *int `json:"write_rate_limit,omitempty"` // 每客户端每秒写请求数，0 不限流
}
