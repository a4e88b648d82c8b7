// Package cell 实现加密值单元
//
// 金额以32字节大端编码后用 ECIES 加密给预言机的加密公钥，
// 句柄为密文的 keccak256。单元与查看权限保存在 BadgerDB 中，直到被清除。
// 本包不持有任何私钥，账本无法解密。
package cell

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

// 存储键前缀
var cellPrefix = []byte("cell/")

// ErrCellNotFound 句柄不存在或已清除
var ErrCellNotFound = errors.New("加密单元不存在")

// record 单元的持久化形式
type record struct {
	Ciphertext []byte          `json:"ciphertext"`
	Viewers    []types.Address `json:"viewers"`
}

// Manager 实现 ValueCellManager 接口
type Manager struct {
	encryption cryptointf.EncryptionManager
	publicKey  []byte // 预言机加密公钥
}

var _ cryptointf.ValueCellManager = (*Manager)(nil)

// NewManager 创建加密单元管理器
func NewManager(encryption cryptointf.EncryptionManager, oraclePublicKey []byte) (*Manager, error) {
	if len(oraclePublicKey) == 0 {
		return nil, fmt.Errorf("预言机加密公钥未配置")
	}
	return &Manager{
		encryption: encryption,
		publicKey:  append([]byte(nil), oraclePublicKey...),
	}, nil
}

// Digest 计算密文摘要，即单元句柄
func Digest(ciphertext []byte) types.CiphertextHandle {
	return types.CiphertextHandle(crypto.Keccak256Hash(ciphertext))
}

func cellKey(handle types.CiphertextHandle) []byte {
	key := make([]byte, 0, len(cellPrefix)+types.HandleLength)
	key = append(key, cellPrefix...)
	return append(key, handle[:]...)
}

// Encrypt 加密金额并签发句柄
func (m *Manager) Encrypt(tx storage.BadgerTransaction, plaintext *uint256.Int) (types.CiphertextHandle, error) {
	if plaintext == nil {
		return types.CiphertextHandle{}, fmt.Errorf("明文金额为空")
	}

	ciphertext, err := m.encryption.Encrypt(types.EncodeAmount(plaintext), m.publicKey)
	if err != nil {
		return types.CiphertextHandle{}, fmt.Errorf("加密金额失败: %w", err)
	}

	handle := Digest(ciphertext)
	if err := m.save(tx, handle, &record{Ciphertext: ciphertext}); err != nil {
		return types.CiphertextHandle{}, err
	}
	return handle, nil
}

// IsInitialized 句柄是否指向有效单元
func (m *Manager) IsInitialized(tx storage.BadgerTransaction, handle types.CiphertextHandle) (bool, error) {
	if handle.IsZero() {
		return false, nil
	}
	return tx.Exists(cellKey(handle))
}

// ExportForProof 导出密文
func (m *Manager) ExportForProof(tx storage.BadgerTransaction, handle types.CiphertextHandle) ([]byte, error) {
	rec, err := m.load(tx, handle)
	if err != nil {
		return nil, err
	}
	return rec.Ciphertext, nil
}

// GrantView 授予查看权限，重复授予无副作用
func (m *Manager) GrantView(tx storage.BadgerTransaction, handle types.CiphertextHandle, principal types.Address) error {
	rec, err := m.load(tx, handle)
	if err != nil {
		return err
	}
	for _, viewer := range rec.Viewers {
		if viewer == principal {
			return nil
		}
	}
	rec.Viewers = append(rec.Viewers, principal)
	return m.save(tx, handle, rec)
}

// CanView 检查查看权限
func (m *Manager) CanView(tx storage.BadgerTransaction, handle types.CiphertextHandle, principal types.Address) (bool, error) {
	rec, err := m.load(tx, handle)
	if err != nil {
		return false, err
	}
	for _, viewer := range rec.Viewers {
		if viewer == principal {
			return true, nil
		}
	}
	return false, nil
}

// Viewers 返回已授权主体
func (m *Manager) Viewers(tx storage.BadgerTransaction, handle types.CiphertextHandle) ([]types.Address, error) {
	rec, err := m.load(tx, handle)
	if err != nil {
		return nil, err
	}
	return rec.Viewers, nil
}

// Clear 消费单元
func (m *Manager) Clear(tx storage.BadgerTransaction, handle types.CiphertextHandle) error {
	ok, err := m.IsInitialized(tx, handle)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, handle)
	}
	return tx.Delete(cellKey(handle))
}

func (m *Manager) load(tx storage.BadgerTransaction, handle types.CiphertextHandle) (*record, error) {
	data, err := tx.Get(cellKey(handle))
	if err != nil {
		return nil, fmt.Errorf("读取加密单元失败: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, handle)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("解析加密单元失败: %w", err)
	}
	return &rec, nil
}

func (m *Manager) save(tx storage.BadgerTransaction, handle types.CiphertextHandle, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化加密单元失败: %w", err)
	}
	return tx.Set(cellKey(handle), data)
}
