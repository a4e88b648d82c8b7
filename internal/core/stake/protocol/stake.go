package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// Stake 托管 amount 并为 staker 铸造凭证
//
// 流程：
//  1. 校验金额与地址
//  2. 通过结算托管资金
//  3. 单事务内铸造凭证并记录加密余额；事务失败时退回托管资金
//  4. 发布 stake.minted
func (s *Service) Stake(ctx context.Context, staker types.Address, amount *uint256.Int) (id types.CertificateID, err error) {
	start := time.Now()
	defer func() { observe("stake", start, err) }()

	if amount == nil || amount.IsZero() {
		return 0, types.ErrZeroAmount
	}
	if staker == types.ZeroAddress {
		return 0, fmt.Errorf("%w: 质押人不能为零地址", types.ErrInvalidAddress)
	}

	sctx, leave, err := s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer leave()

	if err := s.collaborate(func() error {
		return s.settlement.Escrow(sctx, staker, amount)
	}); err != nil {
		return 0, fmt.Errorf("%w: 托管质押资金失败: %v", types.ErrTransferFailed, err)
	}

	var balance *types.EncryptedBalance
	err = s.store.RunInTransaction(sctx, func(tx storage.BadgerTransaction) error {
		minted, err := s.registry.Mint(tx, staker)
		if err != nil {
			return err
		}
		balance, err = s.ledger.RecordStake(tx, minted, amount, staker)
		if err != nil {
			return err
		}
		id = minted
		return nil
	})
	if err != nil {
		// 取消信号不能阻止退款
		refundErr := s.collaborate(func() error {
			return s.settlement.Transfer(context.WithoutCancel(sctx), staker, amount)
		})
		if refundErr != nil {
			s.errorf("质押失败后退回托管资金失败: staker=%s amount=%s err=%v", staker.Hex(), amount, refundErr)
		}
		return 0, fmt.Errorf("记录质押失败: %w", err)
	}

	s.publish(events.EventTypeStakeMinted, &types.StakeMinted{
		Staker:        staker,
		CertificateID: id,
		Handle:        balance.Handle,
	})
	s.infof("质押完成: staker=%s certificate=%s handle=%s", staker.Hex(), id, balance.Handle)
	return id, nil
}

// Redeem 发起赎回
//
// 单事务内依次：校验凭证存在、调用方授权、无活跃请求；读取并清除加密余额；
// 销毁凭证；分配请求ID；提交预言机；登记待提取记录。
// 任一步失败整个事务回滚，已提交给预言机的请求随之撤回。受益人为调用方。
func (s *Service) Redeem(ctx context.Context, caller types.Address, id types.CertificateID) (requestID types.RequestID, err error) {
	start := time.Now()
	defer func() { observe("redeem", start, err) }()

	sctx, leave, err := s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer leave()

	var submitted *oracle.DecryptionRequest
	err = s.store.RunInTransaction(sctx, func(tx storage.BadgerTransaction) error {
		exists, err := s.registry.Exists(tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", types.ErrInvalidCertificate, id)
		}

		authorized, err := s.registry.IsAuthorized(tx, caller, id)
		if err != nil {
			return err
		}
		if !authorized {
			return fmt.Errorf("%w: %s 不能赎回凭证 %s", types.ErrUnauthorized, caller.Hex(), id)
		}

		pending, err := s.pending.IsPending(tx, id)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: %s", types.ErrRedemptionAlreadyPending, id)
		}

		handle, err := s.ledger.GetBalance(tx, id)
		if err != nil {
			return err
		}
		ciphertext, err := s.cells.ExportForProof(tx, handle)
		if err != nil {
			return fmt.Errorf("导出密文失败: %w", err)
		}
		if err := s.ledger.ClearStake(tx, id); err != nil {
			return err
		}
		if err := s.registry.Burn(tx, id); err != nil {
			return err
		}

		allocated, err := s.pending.NextRequestID(tx)
		if err != nil {
			return err
		}

		request := &oracle.DecryptionRequest{
			RequestID:   allocated,
			Handles:     []types.CiphertextHandle{handle},
			Ciphertexts: [][]byte{ciphertext},
		}
		if err := s.collaborate(func() error {
			return s.oracle.Submit(sctx, request)
		}); err != nil {
			return fmt.Errorf("提交解密请求失败: %w", err)
		}
		submitted = request

		if err := s.pending.Put(tx, &types.PendingWithdrawal{
			RequestID:        allocated,
			Beneficiary:      caller,
			CertificateID:    id,
			Handle:           handle,
			CiphertextDigest: crypto.Keccak256Hash(ciphertext),
			SubmittedAt:      s.clock.Unix(),
		}); err != nil {
			return err
		}

		requestID = allocated
		return nil
	})
	if err != nil {
		if submitted != nil {
			s.withdraw(sctx, submitted.RequestID)
		}
		return 0, err
	}

	s.publish(events.EventTypeRedemptionRequested, &types.RedemptionRequested{
		Beneficiary:   caller,
		CertificateID: id,
		RequestID:     requestID,
	})
	s.infof("赎回已提交: certificate=%s request=%s beneficiary=%s", id, requestID, caller.Hex())
	return requestID, nil
}

// withdraw 撤回已提交但所属事务未提交的解密请求
//
// 请求ID随事务回滚会被下一次赎回复用，残留请求必须移除
func (s *Service) withdraw(ctx context.Context, requestID types.RequestID) {
	canceler, ok := s.oracle.(oracle.Canceler)
	if !ok {
		s.warnf("预言机不支持撤回请求，残留请求将在回调时被拒绝: request=%s", requestID)
		return
	}
	if err := s.collaborate(func() error {
		return canceler.Cancel(context.WithoutCancel(ctx), requestID)
	}); err != nil {
		s.errorf("撤回解密请求失败: request=%s err=%v", requestID, err)
	}
}
