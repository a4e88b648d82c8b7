package protocol

import (
	"context"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// 查询在只读事务的一致快照上执行，不进入临界区

// GetEncryptedBalance 凭证的加密余额
func (s *Service) GetEncryptedBalance(ctx context.Context, id types.CertificateID) (*types.EncryptedBalance, error) {
	var balance *types.EncryptedBalance
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		handle, err := s.ledger.GetBalance(tx, id)
		if err != nil {
			return err
		}
		viewers, err := s.cells.Viewers(tx, handle)
		if err != nil {
			return err
		}
		balance = &types.EncryptedBalance{
			CertificateID: id,
			Handle:        handle,
			Viewers:       viewers,
		}
		return nil
	})
	return balance, err
}

// OwnerOf 凭证持有人
func (s *Service) OwnerOf(ctx context.Context, id types.CertificateID) (types.Address, error) {
	var owner types.Address
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		owner, err = s.registry.OwnerOf(tx, id)
		return err
	})
	return owner, err
}

// TokensOf 持有人的凭证列表
func (s *Service) TokensOf(ctx context.Context, owner types.Address) ([]types.CertificateID, error) {
	var ids []types.CertificateID
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		ids, err = s.registry.TokensOf(tx, owner)
		return err
	})
	return ids, err
}

// PendingRequestFor 凭证的活跃请求ID
func (s *Service) PendingRequestFor(ctx context.Context, id types.CertificateID) (types.RequestID, error) {
	var requestID types.RequestID
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		requestID, err = s.pending.RequestFor(tx, id)
		return err
	})
	return requestID, err
}

// IsPending 凭证是否有待完成的赎回
func (s *Service) IsPending(ctx context.Context, id types.CertificateID) (bool, error) {
	requestID, err := s.PendingRequestFor(ctx, id)
	if err != nil {
		return false, err
	}
	return requestID != 0, nil
}

// PendingRecord 待提取记录
func (s *Service) PendingRecord(ctx context.Context, requestID types.RequestID) (*types.PendingWithdrawal, error) {
	var record *types.PendingWithdrawal
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		record, err = s.pending.Get(tx, requestID)
		return err
	})
	return record, err
}

// StrandedWithdrawals 全部滞留提取
func (s *Service) StrandedWithdrawals(ctx context.Context) ([]*types.StrandedWithdrawal, error) {
	var records []*types.StrandedWithdrawal
	err := s.store.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		records, err = s.pending.ListStranded(tx)
		return err
	})
	return records, err
}
