package testutil

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/cell"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/encryption"
	"github.com/weisyn/confstake/pkg/types"
)

// Cells 测试用加密单元管理器及其对应的预言机私钥
type Cells struct {
	*cell.Manager
	PrivateKey []byte
	PublicKey  []byte
}

// NewCells 生成预言机加密密钥并创建单元管理器
func NewCells(t testing.TB) *Cells {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	pub := crypto.CompressPubkey(&key.PublicKey)
	m, err := cell.NewManager(encryption.NewEncryptionService(), pub)
	require.NoError(t, err)

	return &Cells{
		Manager:    m,
		PrivateKey: crypto.FromECDSA(key),
		PublicKey:  pub,
	}
}

// Reveal 用预言机私钥解密密文得到金额，模拟预言机
func (c *Cells) Reveal(t testing.TB, ciphertext []byte) uint64 {
	t.Helper()
	plain, err := encryption.NewEncryptionService().Decrypt(ciphertext, c.PrivateKey)
	require.NoError(t, err)
	amount, err := types.DecodeAmount(plain)
	require.NoError(t, err)
	return amount.Uint64()
}
