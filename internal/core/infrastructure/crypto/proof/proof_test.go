package proof

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/pkg/types"
)

func genKeys(t *testing.T, n int) []*ecdsa.PrivateKey {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = key
	}
	return keys
}

func TestSignAndVerify(t *testing.T) {
	keys := genKeys(t, 3)
	signer := NewSigner(keys[0], keys[1])
	verifier, err := NewVerifier(NewSigner(keys...).Addresses(), 2)
	require.NoError(t, err)

	digest := common.HexToHash("0xabc")
	cleartext := types.EncodeAmount(uint256.NewInt(500))

	proof, err := signer.Sign(7, digest, cleartext)
	require.NoError(t, err)
	assert.Len(t, proof, 2*SignatureLength)

	assert.NoError(t, verifier.Verify(7, digest, cleartext, proof))

	t.Run("明文被篡改", func(t *testing.T) {
		err := verifier.Verify(7, digest, types.EncodeAmount(uint256.NewInt(501)), proof)
		assert.ErrorIs(t, err, types.ErrInvalidProof)
	})

	t.Run("请求ID不匹配", func(t *testing.T) {
		err := verifier.Verify(8, digest, cleartext, proof)
		assert.ErrorIs(t, err, types.ErrInvalidProof)
	})

	t.Run("密文摘要不匹配", func(t *testing.T) {
		err := verifier.Verify(7, common.HexToHash("0xabd"), cleartext, proof)
		assert.ErrorIs(t, err, types.ErrInvalidProof)
	})
}

func TestVerifyThreshold(t *testing.T) {
	keys := genKeys(t, 3)
	verifier, err := NewVerifier(NewSigner(keys...).Addresses(), 2)
	require.NoError(t, err)

	digest := common.HexToHash("0x01")
	cleartext := types.EncodeAmount(uint256.NewInt(1))

	// 单个签名不足门限
	single, err := NewSigner(keys[0]).Sign(1, digest, cleartext)
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.Verify(1, digest, cleartext, single), types.ErrInvalidProof)

	// 同一签名者重复签名不计两次
	dup := append(append([]byte(nil), single...), single...)
	assert.ErrorIs(t, verifier.Verify(1, digest, cleartext, dup), types.ErrInvalidProof)

	// 不受信任的签名者
	outsider := genKeys(t, 1)
	mixed, err := NewSigner(keys[0], outsider[0]).Sign(1, digest, cleartext)
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.Verify(1, digest, cleartext, mixed), types.ErrInvalidProof)
}

func TestVerifyMalformed(t *testing.T) {
	keys := genKeys(t, 1)
	verifier, err := NewVerifier(NewSigner(keys...).Addresses(), 1)
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.Verify(1, common.Hash{}, nil, nil), types.ErrInvalidProof)
	assert.ErrorIs(t, verifier.Verify(1, common.Hash{}, nil, make([]byte, 64)), types.ErrInvalidProof)
	assert.ErrorIs(t, verifier.Verify(1, common.Hash{}, nil, make([]byte, SignatureLength)), types.ErrInvalidProof)
}

func TestNewVerifierRejectsBadThreshold(t *testing.T) {
	addrs := NewSigner(genKeys(t, 2)...).Addresses()

	_, err := NewVerifier(addrs, 0)
	assert.Error(t, err)
	_, err = NewVerifier(addrs, 3)
	assert.Error(t, err)
	_, err = NewVerifier(append(addrs, addrs[0]), 3)
	assert.Error(t, err, "重复地址只计一次")
}
