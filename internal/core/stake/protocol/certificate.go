package protocol

import (
	"context"
	"time"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// Approve 批准 to 操作凭证 id
func (s *Service) Approve(ctx context.Context, caller, to types.Address, id types.CertificateID) (err error) {
	start := time.Now()
	defer func() { observe("approve", start, err) }()

	return s.mutate(ctx, func(tx storage.BadgerTransaction) error {
		return s.registry.Approve(tx, caller, to, id)
	})
}

// SetApprovalForAll 设置 operator 是否可操作 owner 的全部凭证
func (s *Service) SetApprovalForAll(ctx context.Context, owner, operator types.Address, approved bool) (err error) {
	start := time.Now()
	defer func() { observe("set_approval_for_all", start, err) }()

	return s.mutate(ctx, func(tx storage.BadgerTransaction) error {
		return s.registry.SetApprovalForAll(tx, owner, operator, approved)
	})
}

// TransferCertificate 转让凭证
//
// 待赎回的凭证已被销毁，因此只有存活凭证可以转让
func (s *Service) TransferCertificate(ctx context.Context, caller, from, to types.Address, id types.CertificateID) (err error) {
	start := time.Now()
	defer func() { observe("transfer_certificate", start, err) }()

	err = s.mutate(ctx, func(tx storage.BadgerTransaction) error {
		return s.registry.Transfer(tx, caller, from, to, id)
	})
	if err == nil {
		s.debugf("凭证已转让: certificate=%s from=%s to=%s", id, from.Hex(), to.Hex())
	}
	return err
}

// mutate 在临界区内执行一个读写事务
func (s *Service) mutate(ctx context.Context, fn func(tx storage.BadgerTransaction) error) error {
	sctx, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()
	return s.store.RunInTransaction(sctx, fn)
}
