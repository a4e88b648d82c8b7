package oracle

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oracleconfig "github.com/weisyn/confstake/internal/config/oracle"
	stakeconfig "github.com/weisyn/confstake/internal/config/stake"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/encryption"
	"github.com/weisyn/confstake/internal/core/infrastructure/event"
	"github.com/weisyn/confstake/internal/core/stake/testutil"
	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

func TestKeystoreRoundTrip(t *testing.T) {
	enc := encryption.NewEncryptionService()
	path := filepath.Join(t.TempDir(), "keys", "oracle.json")

	keys, err := GenerateKeyMaterial(3, 2)
	require.NoError(t, err)
	require.NoError(t, SaveKeystore(path, "s3cret", keys, enc))

	loaded, err := LoadKeystore(path, "s3cret", enc)
	require.NoError(t, err)
	assert.Equal(t, keys.Principal(), loaded.Principal())
	assert.Equal(t, keys.EncryptionPublicKey(), loaded.EncryptionPublicKey())
	assert.Equal(t, keys.Signer().Addresses(), loaded.Signer().Addresses())
	assert.Equal(t, 2, loaded.Threshold)

	info, err := ReadPublicInfo(path)
	require.NoError(t, err)
	assert.Equal(t, keys.Principal(), info.Principal)
	assert.Equal(t, 2, info.Threshold)
	assert.Len(t, info.Signers, 3)

	_, err = LoadKeystore(path, "wrong", enc)
	assert.Error(t, err)

	_, err = LoadKeystore(filepath.Join(t.TempDir(), "missing.json"), "s3cret", enc)
	assert.ErrorIs(t, err, ErrKeystoreNotFound)
}

func TestGenerateKeyMaterialValidatesThreshold(t *testing.T) {
	_, err := GenerateKeyMaterial(2, 3)
	assert.Error(t, err)
	_, err = GenerateKeyMaterial(1, 0)
	assert.Error(t, err)
}

func TestOpenOrCreateKeystore(t *testing.T) {
	enc := encryption.NewEncryptionService()
	options := &oracleconfig.OracleOptions{
		KeystorePath: filepath.Join(t.TempDir(), "oracle.json"),
		Threshold:    2,
	}

	created, err := OpenOrCreateKeystore(options, "pw", enc, nil)
	require.NoError(t, err)
	assert.Len(t, created.SignerKeys, generatedSigners)

	opened, err := OpenOrCreateKeystore(options, "pw", enc, nil)
	require.NoError(t, err)
	assert.Equal(t, created.Principal(), opened.Principal())
}

func request(id types.RequestID, ciphertext []byte) *oracle.DecryptionRequest {
	var handle types.CiphertextHandle
	copy(handle[:], crypto.Keccak256(ciphertext))
	return &oracle.DecryptionRequest{
		RequestID:   id,
		Handles:     []types.CiphertextHandle{handle},
		Ciphertexts: [][]byte{ciphertext},
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := testutil.NewStore(t)
	outbox := NewOutbox(store, nil)
	ctx := context.Background()

	require.NoError(t, outbox.Put(ctx, request(2, []byte("b"))))
	require.NoError(t, outbox.Put(ctx, request(1, []byte("a"))))
	assert.Error(t, outbox.Put(ctx, &oracle.DecryptionRequest{}))

	list, err := outbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, types.RequestID(1), list[0].RequestID)
	assert.Equal(t, []byte("a"), list[0].Ciphertexts[0])

	bus := event.New()
	require.NoError(t, outbox.Watch(bus))
	bus.Publish(events.EventTypeRedemptionCompleted, &types.EventEnvelope{
		Type:    events.EventTypeRedemptionCompleted,
		Payload: &types.RedemptionCompleted{RequestID: 1},
	})

	_, err = outbox.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)
	got, err := outbox.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, types.RequestID(2), got.RequestID)

	require.NoError(t, outbox.Delete(ctx, 2))
	list, err = outbox.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// recordingFulfiller 记录回调
type recordingFulfiller struct {
	mu      sync.Mutex
	calls   map[types.RequestID]*uint256.Int
	callers []types.Address
}

func (f *recordingFulfiller) Fulfill(_ context.Context, caller types.Address, requestID types.RequestID, cleartext, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callers = append(f.callers, caller)
	amount, err := types.DecodeAmount(cleartext)
	if err != nil {
		return err
	}
	f.calls[requestID] = amount
	return nil
}

func (f *recordingFulfiller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestLocalOracleDecryptsSignsAndCallsBack(t *testing.T) {
	store := testutil.NewStore(t)
	enc := encryption.NewEncryptionService()
	keys, err := GenerateKeyMaterial(3, 2)
	require.NoError(t, err)
	outbox := NewOutbox(store, nil)
	principal := common.HexToAddress("0x0a")

	local, err := NewLocalOracle(keys, enc, outbox, principal, &oracleconfig.OracleOptions{
		Workers:       2,
		QueueSize:     8,
		CallbackDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	fulfiller := &recordingFulfiller{calls: make(map[types.RequestID]*uint256.Int)}
	assert.Error(t, local.Start(context.Background()))
	local.SetFulfiller(fulfiller)

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		ciphertext, err := enc.Encrypt(types.EncodeAmount(uint256.NewInt(uint64(i*10))), keys.EncryptionPublicKey())
		require.NoError(t, err)
		require.NoError(t, local.Submit(ctx, request(types.RequestID(i), ciphertext)))
	}

	require.NoError(t, local.Start(ctx))
	defer local.Stop()

	require.Eventually(t, func() bool { return fulfiller.count() == 3 }, 5*time.Second, 10*time.Millisecond)

	fulfiller.mu.Lock()
	for i := 1; i <= 3; i++ {
		assert.Equal(t, uint64(i*10), fulfiller.calls[types.RequestID(i)].Uint64())
	}
	for _, caller := range fulfiller.callers {
		assert.Equal(t, principal, caller)
	}
	fulfiller.mu.Unlock()

	require.Eventually(t, func() bool {
		list, err := outbox.List(ctx)
		return err == nil && len(list) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLocalOracleProofVerifies(t *testing.T) {
	enc := encryption.NewEncryptionService()
	keys, err := GenerateKeyMaterial(3, 2)
	require.NoError(t, err)
	local, err := NewLocalOracle(keys, enc, NewOutbox(testutil.NewStore(t), nil), common.Address{}, &oracleconfig.OracleOptions{}, nil)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt(types.EncodeAmount(uint256.NewInt(99)), keys.EncryptionPublicKey())
	require.NoError(t, err)
	req := request(7, ciphertext)

	cleartext, proofBytes, err := local.Decrypt(req)
	require.NoError(t, err)

	verifier, err := keys.Verifier()
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(7, crypto.Keccak256Hash(ciphertext), cleartext, proofBytes))
	assert.ErrorIs(t, verifier.Verify(8, crypto.Keccak256Hash(ciphertext), cleartext, proofBytes), types.ErrInvalidProof)
}

func TestLocalOracleDropsUndecryptableRequests(t *testing.T) {
	store := testutil.NewStore(t)
	keys, err := GenerateKeyMaterial(1, 1)
	require.NoError(t, err)
	outbox := NewOutbox(store, nil)
	local, err := NewLocalOracle(keys, encryption.NewEncryptionService(), outbox, common.Address{}, &oracleconfig.OracleOptions{Workers: 1, QueueSize: 4}, nil)
	require.NoError(t, err)

	fulfiller := &recordingFulfiller{calls: make(map[types.RequestID]*uint256.Int)}
	local.SetFulfiller(fulfiller)

	ctx := context.Background()
	require.NoError(t, local.Submit(ctx, request(1, []byte("not a ciphertext"))))
	require.NoError(t, local.Start(ctx))
	defer local.Stop()

	require.Eventually(t, func() bool {
		list, err := outbox.List(ctx)
		return err == nil && len(list) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, fulfiller.count())
}

func TestLocalOracleSkipsWithdrawnRequests(t *testing.T) {
	store := testutil.NewStore(t)
	enc := encryption.NewEncryptionService()
	keys, err := GenerateKeyMaterial(1, 1)
	require.NoError(t, err)
	outbox := NewOutbox(store, nil)
	local, err := NewLocalOracle(keys, enc, outbox, common.HexToAddress("0x0a"), &oracleconfig.OracleOptions{Workers: 1, QueueSize: 8}, nil)
	require.NoError(t, err)

	fulfiller := &recordingFulfiller{calls: make(map[types.RequestID]*uint256.Int)}
	local.SetFulfiller(fulfiller)

	ctx := context.Background()
	submit := func(id types.RequestID, amount uint64) {
		ciphertext, err := enc.Encrypt(types.EncodeAmount(uint256.NewInt(amount)), keys.EncryptionPublicKey())
		require.NoError(t, err)
		require.NoError(t, local.Submit(ctx, request(id, ciphertext)))
	}

	// 请求1被撤回；请求2被撤回后以同一ID重新提交
	submit(1, 10)
	submit(2, 20)
	require.NoError(t, local.Cancel(ctx, 1))
	require.NoError(t, local.Cancel(ctx, 2))
	submit(2, 25)

	require.NoError(t, local.Start(ctx))
	defer local.Stop()

	require.Eventually(t, func() bool {
		list, err := outbox.List(ctx)
		return err == nil && len(list) == 0
	}, 5*time.Second, 10*time.Millisecond)

	fulfiller.mu.Lock()
	defer fulfiller.mu.Unlock()
	assert.NotContains(t, fulfiller.calls, types.RequestID(1))
	require.Contains(t, fulfiller.calls, types.RequestID(2))
	assert.Equal(t, uint64(25), fulfiller.calls[2].Uint64())
}

// busyFulfiller 前若干次回调返回 ErrReentrantCall
type busyFulfiller struct {
	mu       sync.Mutex
	busyFor  int
	attempts int
}

func (f *busyFulfiller) Fulfill(context.Context, types.Address, types.RequestID, []byte, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.busyFor {
		return types.ErrReentrantCall
	}
	return nil
}

func (f *busyFulfiller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func TestLocalOracleRetriesWhileLedgerBusy(t *testing.T) {
	store := testutil.NewStore(t)
	enc := encryption.NewEncryptionService()
	keys, err := GenerateKeyMaterial(1, 1)
	require.NoError(t, err)
	outbox := NewOutbox(store, nil)
	local, err := NewLocalOracle(keys, enc, outbox, common.HexToAddress("0x0a"), &oracleconfig.OracleOptions{Workers: 1, QueueSize: 4}, nil)
	require.NoError(t, err)

	fulfiller := &busyFulfiller{busyFor: 3}
	local.SetFulfiller(fulfiller)

	ctx := context.Background()
	ciphertext, err := enc.Encrypt(types.EncodeAmount(uint256.NewInt(5)), keys.EncryptionPublicKey())
	require.NoError(t, err)
	require.NoError(t, local.Submit(ctx, request(1, ciphertext)))
	require.NoError(t, local.Start(ctx))
	defer local.Stop()

	require.Eventually(t, func() bool {
		list, err := outbox.List(ctx)
		return err == nil && len(list) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, fulfiller.count())
}

func TestGatewayCancelRemovesRequest(t *testing.T) {
	outbox := NewOutbox(testutil.NewStore(t), nil)
	gateway := NewGateway(outbox, nil)
	ctx := context.Background()

	require.NoError(t, gateway.Submit(ctx, request(1, []byte("a"))))
	require.NoError(t, gateway.Cancel(ctx, 1))
	_, err := outbox.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrUnknownRequest)
}

func TestExternalModeRequiresPrincipalWhenStrict(t *testing.T) {
	keys, err := GenerateKeyMaterial(2, 2)
	require.NoError(t, err)
	input := ModuleInput{
		OracleOptions: &oracleconfig.OracleOptions{
			Enabled:       false,
			EncryptionKey: keys.EncryptionPublicKey(),
			Signers:       keys.Signer().Addresses(),
			Threshold:     2,
		},
		StakeOptions:      &stakeconfig.StakeOptions{StrictSender: true},
		BadgerStore:       testutil.NewStore(t),
		EncryptionManager: encryption.NewEncryptionService(),
	}

	_, err = ProvideServices(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stake.oracle_principal")

	input.StakeOptions.OraclePrincipal = common.HexToAddress("0x0a")
	out, err := ProvideServices(input)
	require.NoError(t, err)
	assert.IsType(t, &Gateway{}, out.DecryptionOracle)
	assert.Nil(t, out.Local)

	// 非严格模式允许任意调用方回调
	input.StakeOptions = &stakeconfig.StakeOptions{}
	_, err = ProvideServices(input)
	assert.NoError(t, err)
}
