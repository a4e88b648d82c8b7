package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// Fulfill 预言机回调：交付明文与证明
//
// 校验（发送方、记录存在、证明、明文格式）全部在任何写入之前完成。
// 通过后先提交删除待提取记录的事务，再转账；
// 转账失败时记录滞留提取并返回 ErrTransferFailed，同一请求无法再次履约。
func (s *Service) Fulfill(ctx context.Context, caller types.Address, requestID types.RequestID, cleartext, proof []byte) (err error) {
	start := time.Now()
	defer func() { observe("fulfill", start, err) }()

	sctx, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	if s.options.StrictSender && caller != s.options.OraclePrincipal {
		return fmt.Errorf("%w: 履约调用方 %s 不是预言机主体", types.ErrUnauthorized, caller.Hex())
	}

	var (
		record *types.PendingWithdrawal
		amount *uint256.Int
	)
	err = s.store.RunInTransaction(sctx, func(tx storage.BadgerTransaction) error {
		rec, err := s.pending.Get(tx, requestID)
		if err != nil {
			return err
		}
		if err := s.verifier.Verify(requestID, rec.CiphertextDigest, cleartext, proof); err != nil {
			return err
		}
		decoded, err := types.DecodeAmount(cleartext)
		if err != nil {
			return err
		}
		if _, err := s.pending.Consume(tx, requestID); err != nil {
			return err
		}
		record, amount = rec, decoded
		return nil
	})
	if err != nil {
		s.debugf("履约被拒绝: request=%s err=%v", requestID, err)
		return err
	}

	// 待提取记录已删除，调用方取消不能再中断转账
	transferCtx := context.WithoutCancel(sctx)
	if err := s.collaborate(func() error {
		return s.settlement.Transfer(transferCtx, record.Beneficiary, amount)
	}); err != nil {
		s.strand(sctx, record, amount, err)
		return fmt.Errorf("%w: request=%s: %v", types.ErrTransferFailed, requestID, err)
	}

	s.publish(events.EventTypeRedemptionCompleted, &types.RedemptionCompleted{
		Beneficiary:   record.Beneficiary,
		CertificateID: record.CertificateID,
		RequestID:     requestID,
		Amount:        amount,
	})
	s.infof("赎回完成: certificate=%s request=%s beneficiary=%s amount=%s",
		record.CertificateID, requestID, record.Beneficiary.Hex(), amount)
	return nil
}

// strand 记录滞留提取并发布 stake.withdrawal_stranded
func (s *Service) strand(ctx context.Context, record *types.PendingWithdrawal, amount *uint256.Int, cause error) {
	strandedTotal.Inc()

	stranded := &types.StrandedWithdrawal{
		RequestID:     record.RequestID,
		Beneficiary:   record.Beneficiary,
		CertificateID: record.CertificateID,
		Amount:        amount,
		Attempts:      1,
		LastError:     cause.Error(),
		StrandedAt:    s.clock.Unix(),
	}
	err := s.store.RunInTransaction(context.WithoutCancel(ctx), func(tx storage.BadgerTransaction) error {
		return s.pending.PutStranded(tx, stranded)
	})
	if err != nil {
		s.errorf("记录滞留提取失败: request=%s beneficiary=%s amount=%s err=%v",
			record.RequestID, record.Beneficiary.Hex(), amount, err)
	}

	s.publish(events.EventTypeWithdrawalStranded, &types.WithdrawalStranded{
		Beneficiary:   record.Beneficiary,
		CertificateID: record.CertificateID,
		RequestID:     record.RequestID,
		Amount:        amount,
		Reason:        cause.Error(),
	})
	s.warnf("转账失败，资金滞留: request=%s beneficiary=%s amount=%s err=%v",
		record.RequestID, record.Beneficiary.Hex(), amount, cause)
}

// RetryStranded 重试滞留提取的转账
//
// 仅预言机主体或运营方可调用。成功后删除滞留记录；失败时累加尝试次数并保留记录。
func (s *Service) RetryStranded(ctx context.Context, caller types.Address, requestID types.RequestID) (err error) {
	start := time.Now()
	defer func() { observe("retry_stranded", start, err) }()

	sctx, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	if !s.canRetry(caller) {
		return fmt.Errorf("%w: %s 不能重试滞留提取", types.ErrUnauthorized, caller.Hex())
	}

	var stranded *types.StrandedWithdrawal
	err = s.store.View(sctx, func(tx storage.BadgerTransaction) error {
		var err error
		stranded, err = s.pending.GetStranded(tx, requestID)
		return err
	})
	if err != nil {
		return err
	}

	transferCtx := context.WithoutCancel(sctx)
	if transferErr := s.collaborate(func() error {
		return s.settlement.Transfer(transferCtx, stranded.Beneficiary, stranded.Amount)
	}); transferErr != nil {
		stranded.Attempts++
		stranded.LastError = transferErr.Error()
		if err := s.store.RunInTransaction(context.WithoutCancel(sctx), func(tx storage.BadgerTransaction) error {
			return s.pending.PutStranded(tx, stranded)
		}); err != nil {
			s.errorf("更新滞留提取失败: request=%s err=%v", requestID, err)
		}
		return fmt.Errorf("%w: request=%s attempts=%d: %v", types.ErrTransferFailed, requestID, stranded.Attempts, transferErr)
	}

	// 资金已转出，删除失败只记录日志
	if err := s.store.RunInTransaction(context.WithoutCancel(sctx), func(tx storage.BadgerTransaction) error {
		return s.pending.DeleteStranded(tx, requestID)
	}); err != nil {
		s.errorf("删除滞留提取失败，需人工处理: request=%s err=%v", requestID, err)
	}

	s.publish(events.EventTypeWithdrawalRecovered, &types.WithdrawalRecovered{
		Beneficiary:   stranded.Beneficiary,
		CertificateID: stranded.CertificateID,
		RequestID:     requestID,
		Amount:        stranded.Amount,
	})
	s.infof("滞留提取已释放: request=%s beneficiary=%s amount=%s attempts=%d",
		requestID, stranded.Beneficiary.Hex(), stranded.Amount, stranded.Attempts+1)
	return nil
}

func (s *Service) canRetry(caller types.Address) bool {
	if caller == types.ZeroAddress {
		return false
	}
	return caller == s.options.OraclePrincipal || caller == s.options.Operator
}
