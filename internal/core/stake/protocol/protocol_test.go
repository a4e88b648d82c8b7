package protocol

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/internal/core/infrastructure/clock"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/encryption"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/proof"
	"github.com/weisyn/confstake/internal/core/infrastructure/event"
	"github.com/weisyn/confstake/internal/core/stake/ledger"
	"github.com/weisyn/confstake/internal/core/stake/pending"
	"github.com/weisyn/confstake/internal/core/stake/registry"
	"github.com/weisyn/confstake/internal/core/stake/testutil"
	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

var (
	alice           = common.HexToAddress("0xa11ce")
	bob             = common.HexToAddress("0xb0b")
	mallory         = common.HexToAddress("0xbad")
	oraclePrincipal = common.HexToAddress("0x0a")
	ledgerPrincipal = common.HexToAddress("0x1e")
	operator        = common.HexToAddress("0x09")
)

type harness struct {
	svc        *Service
	store      storage.BadgerStore
	cells      *testutil.Cells
	oracle     *fakeOracle
	settlement *fakeSettlement
	signerKeys []*ecdsa.PrivateKey
	signer     *proof.Signer

	mu     sync.Mutex
	events []*types.EventEnvelope
}

type harnessOption func(*Dependencies)

func nonStrict() harnessOption {
	return func(d *Dependencies) { d.Options.StrictSender = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store:      testutil.NewStore(t),
		cells:      testutil.NewCells(t),
		oracle:     &fakeOracle{},
		settlement: newFakeSettlement(),
	}
	for i := 0; i < 3; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		h.signerKeys = append(h.signerKeys, key)
	}
	h.signer = proof.NewSigner(h.signerKeys...)
	verifier, err := proof.NewVerifier(h.signer.Addresses(), 2)
	require.NoError(t, err)

	bus := event.New()
	for _, eventType := range events.AllStakeEvents() {
		require.NoError(t, bus.Subscribe(eventType, func(env *types.EventEnvelope) {
			h.mu.Lock()
			h.events = append(h.events, env)
			h.mu.Unlock()
		}))
	}

	deps := Dependencies{
		Store:      h.store,
		Registry:   registry.New(),
		Ledger:     ledger.New(h.cells, ledgerPrincipal),
		Pending:    pending.New(),
		Cells:      h.cells,
		Oracle:     h.oracle,
		Verifier:   verifier,
		Settlement: h.settlement,
		Clock:      clock.NewMockClock(time.Unix(1_700_000_000, 0)),
		EventBus:   bus,
		Options: &stakeconfig.StakeOptions{
			StrictSender:    true,
			OraclePrincipal: oraclePrincipal,
			LedgerPrincipal: ledgerPrincipal,
			Operator:        operator,
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.svc, err = NewService(deps)
	require.NoError(t, err)

	h.settlement.fund(alice, 1_000_000)
	h.settlement.fund(bob, 1_000_000)
	return h
}

func (h *harness) stake(t *testing.T, staker types.Address, amount uint64) types.CertificateID {
	t.Helper()
	id, err := h.svc.Stake(context.Background(), staker, uint256.NewInt(amount))
	require.NoError(t, err)
	return id
}

func (h *harness) redeem(t *testing.T, caller types.Address, id types.CertificateID) *oracle.DecryptionRequest {
	t.Helper()
	requestID, err := h.svc.Redeem(context.Background(), caller, id)
	require.NoError(t, err)
	req := h.oracle.last()
	require.NotNil(t, req)
	require.Equal(t, requestID, req.RequestID)
	return req
}

// decrypt 模拟预言机：解密密文并生成门限证明
func (h *harness) decrypt(t *testing.T, req *oracle.DecryptionRequest) (cleartext, sig []byte) {
	t.Helper()
	require.Len(t, req.Ciphertexts, 1)
	cleartext, err := encryption.NewEncryptionService().Decrypt(req.Ciphertexts[0], h.cells.PrivateKey)
	require.NoError(t, err)
	sig, err = h.signer.Sign(req.RequestID, crypto.Keccak256Hash(req.Ciphertexts[0]), cleartext)
	require.NoError(t, err)
	return cleartext, sig
}

func (h *harness) fulfill(t *testing.T, req *oracle.DecryptionRequest) error {
	t.Helper()
	cleartext, sig := h.decrypt(t, req)
	return h.svc.Fulfill(context.Background(), oraclePrincipal, req.RequestID, cleartext, sig)
}

func (h *harness) recorded() []*types.EventEnvelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*types.EventEnvelope(nil), h.events...)
}

func (h *harness) eventTypes() []types.EventType {
	var out []types.EventType
	for _, env := range h.recorded() {
		out = append(out, env.Type)
	}
	return out
}

func TestStakeMintsCertificateWithEncryptedBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.stake(t, alice, 100)
	second := h.stake(t, alice, 250)
	assert.Equal(t, types.CertificateID(1), first)
	assert.Equal(t, types.CertificateID(2), second)

	ids, err := h.svc.TokensOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []types.CertificateID{1, 2}, ids)

	owner, err := h.svc.OwnerOf(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	balance, err := h.svc.GetEncryptedBalance(ctx, second)
	require.NoError(t, err)
	assert.False(t, balance.Handle.IsZero())
	assert.ElementsMatch(t, []types.Address{ledgerPrincipal, alice}, balance.Viewers)

	assert.Equal(t, uint64(1_000_000-350), h.settlement.balance(alice))
	assert.Equal(t, uint64(350), h.settlement.vaultBalance())

	recorded := h.recorded()
	require.Len(t, recorded, 2)
	minted, ok := recorded[1].Payload.(*types.StakeMinted)
	require.True(t, ok)
	assert.Equal(t, events.EventTypeStakeMinted, recorded[1].Type)
	assert.Equal(t, second, minted.CertificateID)
	assert.Equal(t, balance.Handle, minted.Handle)
	assert.NotEmpty(t, recorded[1].ID)
}

func TestStakeRejectsZeroAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Stake(ctx, alice, uint256.NewInt(0))
	assert.ErrorIs(t, err, types.ErrZeroAmount)
	_, err = h.svc.Stake(ctx, alice, nil)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	ids, err := h.svc.TokensOf(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
	assert.Empty(t, h.recorded())

	// 失败的调用不消耗凭证ID
	assert.Equal(t, types.CertificateID(1), h.stake(t, alice, 1))
}

func TestStakeRejectsUnfundedStaker(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Stake(context.Background(), mallory, uint256.NewInt(10))
	assert.ErrorIs(t, err, types.ErrTransferFailed)
	_, err = h.svc.OwnerOf(context.Background(), 1)
	assert.ErrorIs(t, err, types.ErrCertificateNotFound)
}

type failingLedger struct {
	stake.StakeLedger
}

func (failingLedger) RecordStake(storage.BadgerTransaction, types.CertificateID, *uint256.Int, types.Address) (*types.EncryptedBalance, error) {
	return nil, errors.New("磁盘已满")
}

func TestStakeRefundsEscrowWhenRecordingFails(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Ledger = failingLedger{StakeLedger: d.Ledger}
	})

	_, err := h.svc.Stake(context.Background(), alice, uint256.NewInt(500))
	require.Error(t, err)

	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
	assert.Equal(t, uint64(0), h.settlement.vaultBalance())

	ids, err := h.svc.TokensOf(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, h.recorded())
}

func TestRedeemBurnsCertificateAndSubmitsCiphertext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 777)
	balance, err := h.svc.GetEncryptedBalance(ctx, id)
	require.NoError(t, err)

	req := h.redeem(t, alice, id)
	assert.Equal(t, types.RequestID(1), req.RequestID)
	assert.Equal(t, []types.CiphertextHandle{balance.Handle}, req.Handles)
	assert.Equal(t, uint64(777), h.cells.Reveal(t, req.Ciphertexts[0]))

	_, err = h.svc.OwnerOf(ctx, id)
	assert.ErrorIs(t, err, types.ErrCertificateNotFound)
	_, err = h.svc.GetEncryptedBalance(ctx, id)
	assert.ErrorIs(t, err, types.ErrStakeNotFound)

	pendingNow, err := h.svc.IsPending(ctx, id)
	require.NoError(t, err)
	assert.True(t, pendingNow)
	requestID, err := h.svc.PendingRequestFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, requestID)

	record, err := h.svc.PendingRecord(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, alice, record.Beneficiary)
	assert.Equal(t, id, record.CertificateID)
	assert.Equal(t, crypto.Keccak256Hash(req.Ciphertexts[0]), record.CiphertextDigest)
	assert.Equal(t, int64(1_700_000_000), record.SubmittedAt)

	assert.Equal(t, []types.EventType{events.EventTypeStakeMinted, events.EventTypeRedemptionRequested}, h.eventTypes())
	requested := h.recorded()[1].Payload.(*types.RedemptionRequested)
	assert.Equal(t, alice, requested.Beneficiary)
	assert.Equal(t, id, requested.CertificateID)
	assert.Equal(t, req.RequestID, requested.RequestID)
}

func TestRedeemValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Redeem(ctx, alice, 42)
	assert.ErrorIs(t, err, types.ErrInvalidCertificate)

	id := h.stake(t, alice, 10)
	_, err = h.svc.Redeem(ctx, mallory, id)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	// 失败的赎回不改变任何状态
	owner, err := h.svc.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	_, err = h.svc.GetEncryptedBalance(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.oracle.submitted())

	h.redeem(t, alice, id)
	_, err = h.svc.Redeem(ctx, alice, id)
	assert.ErrorIs(t, err, types.ErrInvalidCertificate)
	assert.Len(t, h.oracle.submitted(), 1)
}

func TestRedeemByApprovedAddressPaysCaller(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 300)
	require.ErrorIs(t, h.svc.Approve(ctx, mallory, bob, id), types.ErrUnauthorized)
	require.NoError(t, h.svc.Approve(ctx, alice, bob, id))

	req := h.redeem(t, bob, id)
	require.NoError(t, h.fulfill(t, req))

	assert.Equal(t, uint64(1_000_000+300), h.settlement.balance(bob))
	assert.Equal(t, uint64(1_000_000-300), h.settlement.balance(alice))
}

func TestRedeemByOperator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 5)
	require.NoError(t, h.svc.SetApprovalForAll(ctx, alice, bob, true))
	h.redeem(t, bob, id)

	second := h.stake(t, alice, 6)
	require.NoError(t, h.svc.SetApprovalForAll(ctx, alice, bob, false))
	_, err := h.svc.Redeem(ctx, bob, second)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestTransferredCertificateRedeemableByNewHolder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 40)
	require.NoError(t, h.svc.TransferCertificate(ctx, alice, alice, bob, id))

	_, err := h.svc.Redeem(ctx, alice, id)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	req := h.redeem(t, bob, id)
	require.NoError(t, h.fulfill(t, req))
	assert.Equal(t, uint64(1_000_000+40), h.settlement.balance(bob))
}

func TestRedeemRollsBackWhenSubmitFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 90)
	h.oracle.submitErr = errors.New("网关不可用")

	_, err := h.svc.Redeem(ctx, alice, id)
	require.Error(t, err)

	owner, err := h.svc.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	_, err = h.svc.GetEncryptedBalance(ctx, id)
	require.NoError(t, err)
	pendingNow, err := h.svc.IsPending(ctx, id)
	require.NoError(t, err)
	assert.False(t, pendingNow)

	// 提交本身失败时没有需要撤回的请求
	assert.Empty(t, h.oracle.cancelledIDs())

	h.oracle.submitErr = nil
	req := h.redeem(t, alice, id)
	assert.Equal(t, types.RequestID(1), req.RequestID)
}

// failingPending 登记待提取记录时失败
type failingPending struct {
	stake.PendingTable
}

func (failingPending) Put(storage.BadgerTransaction, *types.PendingWithdrawal) error {
	return errors.New("写入冲突")
}

func TestRedeemWithdrawsSubmittedRequestOnRollback(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Pending = failingPending{PendingTable: d.Pending}
	})
	ctx := context.Background()

	id := h.stake(t, alice, 70)
	_, err := h.svc.Redeem(ctx, alice, id)
	require.Error(t, err)

	// 请求已提交给预言机，事务回滚后必须撤回
	require.Len(t, h.oracle.submitted(), 1)
	assert.Equal(t, []types.RequestID{h.oracle.last().RequestID}, h.oracle.cancelledIDs())

	owner, err := h.svc.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	pendingNow, err := h.svc.IsPending(ctx, id)
	require.NoError(t, err)
	assert.False(t, pendingNow)
	assert.Equal(t, []types.EventType{events.EventTypeStakeMinted}, h.eventTypes())
}

func TestFulfillReleasesFundsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 1234)
	req := h.redeem(t, alice, id)
	cleartext, sig := h.decrypt(t, req)

	require.NoError(t, h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
	assert.Equal(t, uint64(0), h.settlement.vaultBalance())

	pendingNow, err := h.svc.IsPending(ctx, id)
	require.NoError(t, err)
	assert.False(t, pendingNow)
	_, err = h.svc.PendingRecord(ctx, req.RequestID)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)

	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)
	assert.Equal(t, 1, h.settlement.transfers)

	recorded := h.recorded()
	require.Len(t, recorded, 3)
	completed, ok := recorded[2].Payload.(*types.RedemptionCompleted)
	require.True(t, ok)
	assert.Equal(t, alice, completed.Beneficiary)
	assert.Equal(t, id, completed.CertificateID)
	assert.Equal(t, uint64(1234), completed.Amount.Uint64())
}

func TestFulfillStrictSender(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.redeem(t, alice, h.stake(t, alice, 50))
	cleartext, sig := h.decrypt(t, req)

	err := h.svc.Fulfill(ctx, mallory, req.RequestID, cleartext, sig)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = h.svc.PendingRecord(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 0, h.settlement.transfers)

	require.NoError(t, h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig))
}

func TestFulfillAnySenderWhenNotStrict(t *testing.T) {
	h := newHarness(t, nonStrict())

	req := h.redeem(t, alice, h.stake(t, alice, 50))
	cleartext, sig := h.decrypt(t, req)

	require.NoError(t, h.svc.Fulfill(context.Background(), mallory, req.RequestID, cleartext, sig))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
}

func TestFulfillUnknownRequest(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Fulfill(context.Background(), oraclePrincipal, 99, make([]byte, 32), nil)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)
}

func TestFulfillRejectsInvalidProofs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.redeem(t, alice, h.stake(t, alice, 500))
	cleartext, sig := h.decrypt(t, req)
	digest := crypto.Keccak256Hash(req.Ciphertexts[0])

	// 篡改金额
	inflated := types.EncodeAmount(uint256.NewInt(500_000))
	err := h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, inflated, sig)
	assert.ErrorIs(t, err, types.ErrInvalidProof)

	// 签名者不足门限
	single, err := proof.NewSigner(h.signerKeys[0]).Sign(req.RequestID, digest, cleartext)
	require.NoError(t, err)
	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, single)
	assert.ErrorIs(t, err, types.ErrInvalidProof)

	// 绑定到其他请求的证明
	other, err := h.signer.Sign(req.RequestID+1, digest, cleartext)
	require.NoError(t, err)
	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, other)
	assert.ErrorIs(t, err, types.ErrInvalidProof)

	// 不受信任的签名者
	outsiderKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	outsider, err := proof.NewSigner(outsiderKey, h.signerKeys[0]).Sign(req.RequestID, digest, cleartext)
	require.NoError(t, err)
	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, outsider)
	assert.ErrorIs(t, err, types.ErrInvalidProof)

	// 记录仍在，正确的证明依然可以履约
	_, err = h.svc.PendingRecord(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 0, h.settlement.transfers)

	require.NoError(t, h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
}

func TestFulfillRejectsMalformedCleartext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.redeem(t, alice, h.stake(t, alice, 8))
	short := []byte{0x08}
	sig, err := h.signer.Sign(req.RequestID, crypto.Keccak256Hash(req.Ciphertexts[0]), short)
	require.NoError(t, err)

	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, short, sig)
	assert.ErrorIs(t, err, types.ErrInvalidCleartext)

	pendingNow, err := h.svc.IsPending(ctx, 1)
	require.NoError(t, err)
	assert.True(t, pendingNow)
}

func TestFulfillTransferFailureStrandsFunds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.stake(t, alice, 640)
	req := h.redeem(t, alice, id)
	cleartext, sig := h.decrypt(t, req)

	h.settlement.failTransfers(errors.New("收款方拒收"))
	err := h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig)
	assert.ErrorIs(t, err, types.ErrTransferFailed)

	// 待提取记录已删除，重放无效
	err = h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)

	stranded, err := h.svc.StrandedWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, req.RequestID, stranded[0].RequestID)
	assert.Equal(t, alice, stranded[0].Beneficiary)
	assert.Equal(t, uint64(640), stranded[0].Amount.Uint64())
	assert.Equal(t, uint32(1), stranded[0].Attempts)
	assert.Contains(t, stranded[0].LastError, "收款方拒收")

	assert.Equal(t, events.EventTypeWithdrawalStranded, h.eventTypes()[2])

	// 只有预言机主体或运营方可以重试
	err = h.svc.RetryStranded(ctx, alice, req.RequestID)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	err = h.svc.RetryStranded(ctx, operator, req.RequestID)
	assert.ErrorIs(t, err, types.ErrTransferFailed)
	stranded, err = h.svc.StrandedWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, uint32(2), stranded[0].Attempts)

	h.settlement.failTransfers(nil)
	require.NoError(t, h.svc.RetryStranded(ctx, oraclePrincipal, req.RequestID))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))

	stranded, err = h.svc.StrandedWithdrawals(ctx)
	require.NoError(t, err)
	assert.Empty(t, stranded)

	err = h.svc.RetryStranded(ctx, oraclePrincipal, req.RequestID)
	assert.ErrorIs(t, err, types.ErrStrandedNotFound)
	assert.Equal(t, 1, h.settlement.transfers)

	got := h.eventTypes()
	assert.Equal(t, events.EventTypeWithdrawalRecovered, got[len(got)-1])
}

func TestFulfillCompletesTransferAfterCallerCancels(t *testing.T) {
	h := newHarness(t)

	id := h.stake(t, alice, 310)
	req := h.redeem(t, alice, id)
	cleartext, sig := h.decrypt(t, req)

	// 待提取记录删除后调用方立即取消
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.settlement.onTransfer = func(context.Context) { cancel() }

	require.NoError(t, h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
	assert.Equal(t, uint64(0), h.settlement.vaultBalance())

	stranded, err := h.svc.StrandedWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stranded)
	got := h.eventTypes()
	assert.Equal(t, events.EventTypeRedemptionCompleted, got[len(got)-1])
}

func TestRetryStrandedCompletesTransferAfterCallerCancels(t *testing.T) {
	h := newHarness(t)

	req := h.redeem(t, alice, h.stake(t, alice, 45))
	cleartext, sig := h.decrypt(t, req)
	h.settlement.failTransfers(errors.New("收款方拒收"))
	err := h.svc.Fulfill(context.Background(), oraclePrincipal, req.RequestID, cleartext, sig)
	require.ErrorIs(t, err, types.ErrTransferFailed)
	h.settlement.failTransfers(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.settlement.onTransfer = func(context.Context) { cancel() }

	require.NoError(t, h.svc.RetryStranded(ctx, operator, req.RequestID))
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))

	stranded, err := h.svc.StrandedWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stranded)
}

func TestReentrantCallsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.stake(t, alice, 10)
	second := h.stake(t, alice, 20)
	req := h.redeem(t, alice, first)
	cleartext, sig := h.decrypt(t, req)

	var reentryErrs []error
	h.settlement.onTransfer = func(cbCtx context.Context) {
		_, err := h.svc.Redeem(cbCtx, alice, second)
		reentryErrs = append(reentryErrs, err)
		reentryErrs = append(reentryErrs, h.svc.Fulfill(cbCtx, oraclePrincipal, req.RequestID, cleartext, sig))
		_, err = h.svc.Stake(cbCtx, alice, uint256.NewInt(1))
		reentryErrs = append(reentryErrs, err)
	}

	require.NoError(t, h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig))
	require.Len(t, reentryErrs, 3)
	for _, err := range reentryErrs {
		assert.ErrorIs(t, err, types.ErrReentrantCall)
	}

	// 重入失败没有留下副作用
	owner, err := h.svc.OwnerOf(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	assert.Equal(t, 1, h.settlement.transfers)
}

func TestReentrantCallsWithFreshContextRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.stake(t, alice, 10)
	second := h.stake(t, alice, 20)
	req := h.redeem(t, alice, first)
	cleartext, sig := h.decrypt(t, req)

	// 回调方丢弃传入的 ctx，换用新的 ctx 调用入口
	var reentryErrs []error
	h.settlement.onTransfer = func(context.Context) {
		fresh := context.Background()
		_, err := h.svc.Redeem(fresh, alice, second)
		reentryErrs = append(reentryErrs, err)
		reentryErrs = append(reentryErrs, h.svc.Fulfill(fresh, oraclePrincipal, req.RequestID, cleartext, sig))
		_, err = h.svc.Stake(fresh, alice, uint256.NewInt(1))
		reentryErrs = append(reentryErrs, err)
	}

	done := make(chan error, 1)
	go func() { done <- h.svc.Fulfill(ctx, oraclePrincipal, req.RequestID, cleartext, sig) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("回调方换用新的 ctx 后履约未返回")
	}

	require.Len(t, reentryErrs, 3)
	for _, err := range reentryErrs {
		assert.ErrorIs(t, err, types.ErrReentrantCall)
	}

	// 回调结束后入口恢复可用
	h.settlement.onTransfer = nil
	owner, err := h.svc.OwnerOf(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	h.redeem(t, alice, second)
	assert.Equal(t, 1, h.settlement.transfers)
}

func TestCancelledContextLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Stake(ctx, alice, uint256.NewInt(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(1_000_000), h.settlement.balance(alice))
}

// fulfillWhenIdle 账本正在等待结算返回时稍后重试
func fulfillWhenIdle(ctx context.Context, svc *Service, requestID types.RequestID, cleartext, sig []byte) error {
	for {
		err := svc.Fulfill(ctx, oraclePrincipal, requestID, cleartext, sig)
		if !errors.Is(err, types.ErrReentrantCall) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentOutOfOrderFulfillment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 8
	var reqs []*oracle.DecryptionRequest
	for i := 1; i <= n; i++ {
		amount := uint64(i * 100)
		staker := alice
		if i%2 == 0 {
			staker = bob
		}
		reqs = append(reqs, h.redeem(t, staker, h.stake(t, staker, amount)))
	}

	type args struct {
		req       *oracle.DecryptionRequest
		cleartext []byte
		sig       []byte
	}
	prepared := make([]args, 0, n)
	for i := n - 1; i >= 0; i-- {
		cleartext, sig := h.decrypt(t, reqs[i])
		prepared = append(prepared, args{reqs[i], cleartext, sig})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(prepared)*2)
	for i, a := range prepared {
		wg.Add(2)
		go func(i int, a args) {
			defer wg.Done()
			errs[2*i] = fulfillWhenIdle(ctx, h.svc, a.req.RequestID, a.cleartext, a.sig)
		}(i, a)
		// 同一请求的重复回调
		go func(i int, a args) {
			defer wg.Done()
			errs[2*i+1] = fulfillWhenIdle(ctx, h.svc, a.req.RequestID, a.cleartext, a.sig)
		}(i, a)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, types.ErrUnknownRequest)
	}
	assert.Equal(t, n, succeeded)
	assert.Equal(t, n, h.settlement.transfers)
	assert.Equal(t, uint64(0), h.settlement.vaultBalance())
	assert.Equal(t, uint64(2_000_000), h.settlement.balance(alice)+h.settlement.balance(bob))

	for _, req := range reqs {
		_, err := h.svc.PendingRecord(ctx, req.RequestID)
		assert.ErrorIs(t, err, types.ErrUnknownRequest)
	}
}

func TestEventSequenceFollowsCallOrder(t *testing.T) {
	h := newHarness(t)

	req := h.redeem(t, alice, h.stake(t, alice, 11))
	h.stake(t, bob, 12)
	require.NoError(t, h.fulfill(t, req))

	assert.Equal(t, []types.EventType{
		events.EventTypeStakeMinted,
		events.EventTypeRedemptionRequested,
		events.EventTypeStakeMinted,
		events.EventTypeRedemptionCompleted,
	}, h.eventTypes())

	recorded := h.recorded()
	for i := 1; i < len(recorded); i++ {
		assert.Equal(t, recorded[i-1].Sequence+1, recorded[i].Sequence)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "invalid_proof", resultLabel(errors.Join(errors.New("x"), types.ErrInvalidProof)))
	assert.Equal(t, "error", resultLabel(errors.New("x")))
}
