package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/fx"

	oracleconfig "github.com/weisyn/confstake/internal/config/oracle"
	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/proof"
	logimpl "github.com/weisyn/confstake/internal/core/infrastructure/log"
	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

const (
	// generatedSigners 自动生成密钥库时的签名者数量
	generatedSigners = 3
)

// ModuleInput 预言机模块输入依赖
type ModuleInput struct {
	fx.In

	OracleOptions     *oracleconfig.OracleOptions
	StakeOptions      *stakeconfig.StakeOptions
	BadgerStore       storage.BadgerStore
	EncryptionManager cryptointf.EncryptionManager
	Logger            log.Logger `optional:"true"`
}

// ModuleOutput 预言机模块输出服务
type ModuleOutput struct {
	fx.Out

	DecryptionOracle oracle.DecryptionOracle
	ProofVerifier    oracle.ProofVerifier
	EncryptionKey    []byte `name:"oracle_encryption_key"` // 账本加密金额所用的公钥
	Outbox           *Outbox
	Local            *LocalOracle // 外部预言机模式下为 nil
}

// Module 返回预言机模块
func Module() fx.Option {
	return fx.Module("oracle",
		fx.Provide(ProvideServices),
		fx.Invoke(RegisterLifecycle),
	)
}

// ProvideServices 按配置创建本地预言机或外部网关
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(input.Logger, "oracle")
	outbox := NewOutbox(input.BadgerStore, logger)

	if !input.OracleOptions.Enabled {
		return provideExternal(input.OracleOptions, input.StakeOptions, outbox, logger)
	}

	password := os.Getenv(input.OracleOptions.PasswordEnv)
	if password == "" {
		return ModuleOutput{}, fmt.Errorf("本地预言机需要通过环境变量 %s 提供密钥库口令", input.OracleOptions.PasswordEnv)
	}
	keys, err := OpenOrCreateKeystore(input.OracleOptions, password, input.EncryptionManager, logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	// 未配置预言机主体时采用密钥库主体
	if input.StakeOptions.OraclePrincipal == types.ZeroAddress {
		input.StakeOptions.OraclePrincipal = keys.Principal()
	} else if input.StakeOptions.OraclePrincipal != keys.Principal() && logger != nil {
		logger.Warnf("配置的预言机主体 %s 与密钥库主体 %s 不同，本地预言机将以配置的主体回调",
			input.StakeOptions.OraclePrincipal.Hex(), keys.Principal().Hex())
	}

	verifier, err := keys.Verifier()
	if err != nil {
		return ModuleOutput{}, err
	}
	local, err := NewLocalOracle(keys, input.EncryptionManager, outbox, input.StakeOptions.OraclePrincipal, input.OracleOptions, logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		DecryptionOracle: local,
		ProofVerifier:    verifier,
		EncryptionKey:    keys.EncryptionPublicKey(),
		Outbox:           outbox,
		Local:            local,
	}, nil
}

func provideExternal(options *oracleconfig.OracleOptions, stakeOptions *stakeconfig.StakeOptions, outbox *Outbox, logger log.Logger) (ModuleOutput, error) {
	if len(options.EncryptionKey) == 0 {
		return ModuleOutput{}, fmt.Errorf("外部预言机模式必须配置 oracle.encryption_key")
	}
	// 严格发送方模式下零地址主体无法通过任何回调
	if stakeOptions.StrictSender && stakeOptions.OraclePrincipal == types.ZeroAddress {
		return ModuleOutput{}, fmt.Errorf("外部预言机模式启用 stake.strict_sender 时必须配置 stake.oracle_principal")
	}
	verifier, err := proof.NewVerifier(options.Signers, options.Threshold)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("外部预言机签名者配置无效: %w", err)
	}
	if logger != nil {
		logger.Infof("使用外部预言机: signers=%d threshold=%d", len(options.Signers), options.Threshold)
	}
	return ModuleOutput{
		DecryptionOracle: NewGateway(outbox, logger),
		ProofVerifier:    verifier,
		EncryptionKey:    options.EncryptionKey,
		Outbox:           outbox,
	}, nil
}

// OpenOrCreateKeystore 解锁密钥库；文件不存在时生成并保存
func OpenOrCreateKeystore(options *oracleconfig.OracleOptions, password string, enc cryptointf.EncryptionManager, logger log.Logger) (*KeyMaterial, error) {
	keys, err := LoadKeystore(options.KeystorePath, password, enc)
	if err == nil {
		return keys, nil
	}
	if !errors.Is(err, ErrKeystoreNotFound) {
		return nil, err
	}

	threshold := options.Threshold
	signers := generatedSigners
	if threshold > signers {
		signers = threshold
	}
	keys, err = GenerateKeyMaterial(signers, threshold)
	if err != nil {
		return nil, err
	}
	if err := SaveKeystore(options.KeystorePath, password, keys, enc); err != nil {
		return nil, fmt.Errorf("保存预言机密钥库失败: %w", err)
	}
	if logger != nil {
		logger.Warnf("未找到预言机密钥库，已生成新密钥库: %s (%d-of-%d)", options.KeystorePath, threshold, signers)
	}
	return keys, nil
}

// LifecycleInput 预言机生命周期依赖
type LifecycleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Outbox    *Outbox
	Local     *LocalOracle     `optional:"true"`
	Fulfiller oracle.Fulfiller `optional:"true"`
	EventBus  event.EventBus   `optional:"true"`
}

// RegisterLifecycle 注入回调目标并管理本地预言机启停
func RegisterLifecycle(input LifecycleInput) error {
	if input.EventBus != nil {
		if err := input.Outbox.Watch(input.EventBus); err != nil {
			return fmt.Errorf("订阅履约事件失败: %w", err)
		}
	}
	if input.Local == nil {
		return nil
	}
	if input.Fulfiller == nil {
		return fmt.Errorf("本地预言机需要履约回调目标")
	}

	input.Local.SetFulfiller(input.Fulfiller)
	input.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Local.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			input.Local.Stop()
			return nil
		},
	})
	return nil
}
