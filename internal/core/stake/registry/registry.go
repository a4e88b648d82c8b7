// Package registry 实现凭证登记簿
//
// 存储布局（BadgerDB）：
//
//	reg/next                    最近铸造的凭证ID（8字节大端）
//	reg/owner/<id>              持有人地址
//	reg/approved/<id>           单凭证被批准地址
//	reg/operator/<owner><op>    批准操作员标记
//	reg/seq/<owner>             持有人的下一个插入序号
//	reg/tokens/<owner><seq>     持有人第 seq 个获得的凭证ID
//	reg/tokpos/<id>             凭证在持有人列表中的序号
package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

var (
	keyNext         = []byte("reg/next")
	prefixOwner     = []byte("reg/owner/")
	prefixApproved  = []byte("reg/approved/")
	prefixOperator  = []byte("reg/operator/")
	prefixSeq       = []byte("reg/seq/")
	prefixTokens    = []byte("reg/tokens/")
	prefixTokenPos  = []byte("reg/tokpos/")
	operatorEnabled = []byte{1}
)

func key(prefix []byte, parts ...[]byte) []byte {
	k := append([]byte(nil), prefix...)
	for _, part := range parts {
		k = append(k, part...)
	}
	return k
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func readUint64(tx storage.BadgerTransaction, k []byte) (uint64, error) {
	data, err := tx.Get(k)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("计数器 %s 长度无效: %d", k, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Registry 实现 stake.CertificateRegistry
type Registry struct{}

var _ stake.CertificateRegistry = (*Registry)(nil)

// New 创建凭证登记簿
func New() *Registry {
	return &Registry{}
}

// Mint 为 owner 铸造新凭证
func (r *Registry) Mint(tx storage.BadgerTransaction, owner types.Address) (types.CertificateID, error) {
	if owner == types.ZeroAddress {
		return 0, fmt.Errorf("%w: 不能向零地址铸造凭证", types.ErrInvalidAddress)
	}

	last, err := readUint64(tx, keyNext)
	if err != nil {
		return 0, fmt.Errorf("读取凭证计数器失败: %w", err)
	}
	id := types.CertificateID(last + 1)

	if err := tx.Set(keyNext, id.Bytes()); err != nil {
		return 0, err
	}
	if err := tx.Set(key(prefixOwner, id.Bytes()), owner.Bytes()); err != nil {
		return 0, err
	}
	if err := r.appendToken(tx, owner, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Burn 销毁凭证，同时清除其批准地址与持有人列表项
func (r *Registry) Burn(tx storage.BadgerTransaction, id types.CertificateID) error {
	owner, err := r.owner(tx, id)
	if err != nil {
		return err
	}
	if owner == types.ZeroAddress {
		return fmt.Errorf("%w: %s", types.ErrInvalidCertificate, id)
	}

	if err := r.removeToken(tx, owner, id); err != nil {
		return err
	}
	if err := tx.Delete(key(prefixApproved, id.Bytes())); err != nil {
		return err
	}
	return tx.Delete(key(prefixOwner, id.Bytes()))
}

// OwnerOf 返回凭证持有人
func (r *Registry) OwnerOf(tx storage.BadgerTransaction, id types.CertificateID) (types.Address, error) {
	owner, err := r.owner(tx, id)
	if err != nil {
		return types.ZeroAddress, err
	}
	if owner == types.ZeroAddress {
		return types.ZeroAddress, fmt.Errorf("%w: %s", types.ErrCertificateNotFound, id)
	}
	return owner, nil
}

// Exists 凭证是否存活
func (r *Registry) Exists(tx storage.BadgerTransaction, id types.CertificateID) (bool, error) {
	return tx.Exists(key(prefixOwner, id.Bytes()))
}

// IsAuthorized 检查 caller 是否可操作凭证；凭证不存在时返回 false
func (r *Registry) IsAuthorized(tx storage.BadgerTransaction, caller types.Address, id types.CertificateID) (bool, error) {
	owner, err := r.owner(tx, id)
	if err != nil {
		return false, err
	}
	if owner == types.ZeroAddress || caller == types.ZeroAddress {
		return false, nil
	}
	if caller == owner {
		return true, nil
	}

	approved, err := r.GetApproved(tx, id)
	if err != nil {
		return false, err
	}
	if approved == caller {
		return true, nil
	}

	return r.IsApprovedForAll(tx, owner, caller)
}

// TokensOf 按获得顺序返回 owner 的凭证
func (r *Registry) TokensOf(tx storage.BadgerTransaction, owner types.Address) ([]types.CertificateID, error) {
	ids := make([]types.CertificateID, 0)
	err := tx.PrefixScan(key(prefixTokens, owner.Bytes()), func(_, value []byte) error {
		id, err := types.CertificateIDFromBytes(value)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历持有人凭证失败: %w", err)
	}
	return ids, nil
}

// Approve 批准 to 操作凭证，caller 必须是持有人或其批准操作员
func (r *Registry) Approve(tx storage.BadgerTransaction, caller, to types.Address, id types.CertificateID) error {
	owner, err := r.owner(tx, id)
	if err != nil {
		return err
	}
	if owner == types.ZeroAddress {
		return fmt.Errorf("%w: %s", types.ErrInvalidCertificate, id)
	}
	if to == owner {
		return fmt.Errorf("%w: 不能批准给当前持有人", types.ErrInvalidAddress)
	}
	if caller != owner {
		operator, err := r.IsApprovedForAll(tx, owner, caller)
		if err != nil {
			return err
		}
		if !operator {
			return fmt.Errorf("%w: %s 不能批准凭证 %s", types.ErrUnauthorized, caller.Hex(), id)
		}
	}

	if to == types.ZeroAddress {
		return tx.Delete(key(prefixApproved, id.Bytes()))
	}
	return tx.Set(key(prefixApproved, id.Bytes()), to.Bytes())
}

// GetApproved 返回凭证的被批准地址，没有时返回零地址
func (r *Registry) GetApproved(tx storage.BadgerTransaction, id types.CertificateID) (types.Address, error) {
	data, err := tx.Get(key(prefixApproved, id.Bytes()))
	if err != nil {
		return types.ZeroAddress, err
	}
	return bytesToAddress(data), nil
}

// SetApprovalForAll 设置批准操作员
func (r *Registry) SetApprovalForAll(tx storage.BadgerTransaction, owner, operator types.Address, approved bool) error {
	if operator == owner {
		return fmt.Errorf("%w: 不能把自己设为操作员", types.ErrInvalidAddress)
	}
	k := key(prefixOperator, owner.Bytes(), operator.Bytes())
	if approved {
		return tx.Set(k, operatorEnabled)
	}
	return tx.Delete(k)
}

// IsApprovedForAll operator 是否为 owner 的批准操作员
func (r *Registry) IsApprovedForAll(tx storage.BadgerTransaction, owner, operator types.Address) (bool, error) {
	data, err := tx.Get(key(prefixOperator, owner.Bytes(), operator.Bytes()))
	if err != nil {
		return false, err
	}
	return bytes.Equal(data, operatorEnabled), nil
}

// Transfer 转让凭证，清除原批准地址
func (r *Registry) Transfer(tx storage.BadgerTransaction, caller, from, to types.Address, id types.CertificateID) error {
	owner, err := r.owner(tx, id)
	if err != nil {
		return err
	}
	if owner == types.ZeroAddress {
		return fmt.Errorf("%w: %s", types.ErrInvalidCertificate, id)
	}
	if owner != from {
		return fmt.Errorf("%w: 凭证 %s 不属于 %s", types.ErrUnauthorized, id, from.Hex())
	}
	if to == types.ZeroAddress {
		return fmt.Errorf("%w: 不能转让给零地址", types.ErrInvalidAddress)
	}

	authorized, err := r.IsAuthorized(tx, caller, id)
	if err != nil {
		return err
	}
	if !authorized {
		return fmt.Errorf("%w: %s 不能转让凭证 %s", types.ErrUnauthorized, caller.Hex(), id)
	}

	if err := tx.Delete(key(prefixApproved, id.Bytes())); err != nil {
		return err
	}
	if err := r.removeToken(tx, from, id); err != nil {
		return err
	}
	if err := tx.Set(key(prefixOwner, id.Bytes()), to.Bytes()); err != nil {
		return err
	}
	return r.appendToken(tx, to, id)
}

// owner 读取持有人，不存在时返回零地址
func (r *Registry) owner(tx storage.BadgerTransaction, id types.CertificateID) (types.Address, error) {
	data, err := tx.Get(key(prefixOwner, id.Bytes()))
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("读取凭证持有人失败: %w", err)
	}
	return bytesToAddress(data), nil
}

func (r *Registry) appendToken(tx storage.BadgerTransaction, owner types.Address, id types.CertificateID) error {
	seqKey := key(prefixSeq, owner.Bytes())
	seq, err := readUint64(tx, seqKey)
	if err != nil {
		return err
	}
	if err := tx.Set(seqKey, encodeUint64(seq+1)); err != nil {
		return err
	}
	if err := tx.Set(key(prefixTokens, owner.Bytes(), encodeUint64(seq)), id.Bytes()); err != nil {
		return err
	}
	return tx.Set(key(prefixTokenPos, id.Bytes()), encodeUint64(seq))
}

func (r *Registry) removeToken(tx storage.BadgerTransaction, owner types.Address, id types.CertificateID) error {
	posKey := key(prefixTokenPos, id.Bytes())
	data, err := tx.Get(posKey)
	if err != nil {
		return err
	}
	if len(data) != 8 {
		return fmt.Errorf("凭证 %s 的持有人列表索引缺失", id)
	}
	if err := tx.Delete(key(prefixTokens, owner.Bytes(), data)); err != nil {
		return err
	}
	return tx.Delete(posKey)
}

// bytesToAddress 把存储值转换为地址，长度不符时返回零地址
func bytesToAddress(data []byte) types.Address {
	if len(data) != common.AddressLength {
		return types.ZeroAddress
	}
	return common.BytesToAddress(data)
}
