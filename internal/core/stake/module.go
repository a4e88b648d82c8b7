// Package stake 提供保密质押账本模块的 fx 配置
//
// 🎯 **模块职责**：
// - 创建加密值单元管理器（使用预言机加密公钥）
// - 创建凭证登记簿、质押账本、待提取表
// - 创建赎回协议并作为预言机回调目标导出
//
// 📋 **导出服务**：
// - stake.RedemptionProtocol
// - stake.Query
// - oracle.Fulfiller
package stake

import (
	"fmt"

	"go.uber.org/fx"

	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/internal/core/infrastructure/clock"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/cell"
	logimpl "github.com/weisyn/confstake/internal/core/infrastructure/log"
	"github.com/weisyn/confstake/internal/core/stake/ledger"
	"github.com/weisyn/confstake/internal/core/stake/pending"
	"github.com/weisyn/confstake/internal/core/stake/protocol"
	"github.com/weisyn/confstake/internal/core/stake/registry"
	"github.com/weisyn/confstake/pkg/constants/events"
	clockif "github.com/weisyn/confstake/pkg/interfaces/infrastructure/clock"
	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
	stakeif "github.com/weisyn/confstake/pkg/interfaces/stake"
)

// ModuleInput 质押模块输入依赖
type ModuleInput struct {
	fx.In

	// ========== 基础设施组件 ==========
	Logger      log.Logger          `optional:"true"`
	BadgerStore storage.BadgerStore `optional:"false"`
	EventBus    event.EventBus      `optional:"true"`
	Clock       clockif.Clock       `optional:"false"`

	// ========== 密码学组件 ==========
	EncryptionManager cryptointf.EncryptionManager `optional:"false"`
	EncryptionKey     []byte                       `name:"oracle_encryption_key"`

	// ========== 外部协作方 ==========
	DecryptionOracle oracle.DecryptionOracle `optional:"false"`
	ProofVerifier    oracle.ProofVerifier    `optional:"false"`
	Settlement       settlement.Settlement   `optional:"false"`

	Options *stakeconfig.StakeOptions
}

// ModuleOutput 质押模块输出服务
type ModuleOutput struct {
	fx.Out

	RedemptionProtocol stakeif.RedemptionProtocol
	Query              stakeif.Query
	Fulfiller          oracle.Fulfiller
	ValueCellManager   cryptointf.ValueCellManager
}

// Module 返回质押模块
func Module() fx.Option {
	return fx.Module("stake",
		fx.Provide(
			clock.NewSystemClock,
			ProvideServices,
		),
		fx.Invoke(EnableEventHistory),
	)
}

// eventHistorySize 每种质押事件保留的条数
const eventHistorySize = 1024

// HistoryInput 事件历史依赖
type HistoryInput struct {
	fx.In

	EventBus event.EventBus `optional:"true"`
}

// EnableEventHistory 为全部质押事件启用历史记录，供事件查询接口使用
func EnableEventHistory(input HistoryInput) error {
	if input.EventBus == nil {
		return nil
	}
	for _, eventType := range events.AllStakeEvents() {
		if err := input.EventBus.EnableEventHistory(eventType, eventHistorySize); err != nil {
			return fmt.Errorf("启用事件历史失败: %w", err)
		}
	}
	return nil
}

// ProvideServices 组装质押账本各组件
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(input.Logger, "stake")

	cells, err := cell.NewManager(input.EncryptionManager, input.EncryptionKey)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建加密值单元管理器失败: %w", err)
	}

	svc, err := protocol.NewService(protocol.Dependencies{
		Store:      input.BadgerStore,
		Registry:   registry.New(),
		Ledger:     ledger.New(cells, input.Options.LedgerPrincipal),
		Pending:    pending.New(),
		Cells:      cells,
		Oracle:     input.DecryptionOracle,
		Verifier:   input.ProofVerifier,
		Settlement: input.Settlement,
		Clock:      input.Clock,
		EventBus:   input.EventBus,
		Logger:     logger,
		Options:    input.Options,
	})
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建赎回协议失败: %w", err)
	}

	return ModuleOutput{
		RedemptionProtocol: svc,
		Query:              svc,
		Fulfiller:          svc,
		ValueCellManager:   cells,
	}, nil
}
