// Package protocol 实现保密质押的两阶段赎回协议
//
// 🎯 **核心职责**：
// - 质押：托管资金、铸造凭证、记录加密余额
// - 赎回：销毁凭证、导出密文提交预言机、登记待提取记录
// - 履约：验证解密证明、删除待提取记录、向受益人转账
// - 滞留恢复：转账失败的提取可由预言机主体或运营方重试
//
// 🏗️ **并发模型**：
// 每个入口是一个临界区：单槽信号量（可被 ctx 取消）包裹一个 BadgerDB 读写事务。
// 进入临界区后传给协作方（结算、预言机）的 ctx 带有标记，
// 协作方用该 ctx 回调任何写入口都会得到 ErrReentrantCall。
// 事件在提交后、释放信号量前发布，因此事件顺序与调用顺序一致。
package protocol

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/clock"
	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

// Dependencies 协议依赖
type Dependencies struct {
	Store      storage.BadgerStore         // 必需
	Registry   stake.CertificateRegistry   // 必需
	Ledger     stake.StakeLedger           // 必需
	Pending    stake.PendingTable          // 必需
	Cells      cryptointf.ValueCellManager // 必需
	Oracle     oracle.DecryptionOracle     // 必需
	Verifier   oracle.ProofVerifier        // 必需
	Settlement settlement.Settlement       // 必需
	Clock      clock.Clock                 // 必需
	EventBus   event.EventBus              // 可选
	Logger     log.Logger                  // 可选
	Options    *stakeconfig.StakeOptions   // 必需
}

// Service 赎回协议实现
type Service struct {
	store      storage.BadgerStore
	registry   stake.CertificateRegistry
	ledger     stake.StakeLedger
	pending    stake.PendingTable
	cells      cryptointf.ValueCellManager
	oracle     oracle.DecryptionOracle
	verifier   oracle.ProofVerifier
	settlement settlement.Settlement
	clock      clock.Clock
	eventBus   event.EventBus
	logger     log.Logger
	options    *stakeconfig.StakeOptions

	// section 单槽信号量，持有者即临界区所有者
	section chan struct{}

	// collaborating 临界区持有者正在调用结算或预言机
	collaborating atomic.Bool

	// sequence 事件序号
	sequence atomic.Uint64
}

var _ stake.RedemptionProtocol = (*Service)(nil)

// NewService 创建赎回协议服务
func NewService(deps Dependencies) (*Service, error) {
	required := []struct {
		name string
		ok   bool
	}{
		{"store", deps.Store != nil},
		{"registry", deps.Registry != nil},
		{"ledger", deps.Ledger != nil},
		{"pending", deps.Pending != nil},
		{"cells", deps.Cells != nil},
		{"oracle", deps.Oracle != nil},
		{"verifier", deps.Verifier != nil},
		{"settlement", deps.Settlement != nil},
		{"clock", deps.Clock != nil},
		{"options", deps.Options != nil},
	}
	for _, r := range required {
		if !r.ok {
			return nil, fmt.Errorf("%s 不能为空", r.name)
		}
	}

	s := &Service{
		store:      deps.Store,
		registry:   deps.Registry,
		ledger:     deps.Ledger,
		pending:    deps.Pending,
		cells:      deps.Cells,
		oracle:     deps.Oracle,
		verifier:   deps.Verifier,
		settlement: deps.Settlement,
		clock:      deps.Clock,
		eventBus:   deps.EventBus,
		logger:     deps.Logger,
		options:    deps.Options,
		section:    make(chan struct{}, 1),
	}

	if s.logger != nil {
		s.logger.Infof("✅ 赎回协议已创建: strict_sender=%v oracle=%s",
			s.options.StrictSender, s.options.OraclePrincipal.Hex())
	}
	return s, nil
}

// sectionKey 临界区标记的 ctx 键
type sectionKey struct{}

// enter 进入临界区
//
// 返回带标记的 ctx 和释放函数。ctx 已带有本服务的标记，或临界区持有者正在调用协作方时
// 返回 ErrReentrantCall；等待期间 ctx 被取消时返回 ctx.Err()。
func (s *Service) enter(ctx context.Context) (context.Context, func(), error) {
	if owner, ok := ctx.Value(sectionKey{}).(*Service); ok && owner == s {
		return nil, nil, types.ErrReentrantCall
	}
	if s.collaborating.Load() {
		return nil, nil, fmt.Errorf("%w: 账本正在等待结算或预言机返回", types.ErrReentrantCall)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	select {
	case s.section <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return context.WithValue(ctx, sectionKey{}, s), func() { <-s.section }, nil
}

// collaborate 在临界区内调用结算或预言机
//
// 调用期间协作方即使换用新的 ctx 回调入口，也会得到 ErrReentrantCall 而不是等待临界区
func (s *Service) collaborate(fn func() error) error {
	s.collaborating.Store(true)
	defer s.collaborating.Store(false)
	return fn()
}

// publish 发布事件
//
// 只能在临界区内调用
func (s *Service) publish(eventType types.EventType, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(eventType, &types.EventEnvelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Sequence:  s.sequence.Add(1),
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
}

func (s *Service) debugf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debugf(format, args...)
	}
}

func (s *Service) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

func (s *Service) warnf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warnf(format, args...)
	}
}

func (s *Service) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}
