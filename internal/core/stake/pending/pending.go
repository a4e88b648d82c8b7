// Package pending 实现待提取表
//
// 存储布局（BadgerDB）：
//
//	pnd/next                最近分配的请求ID
//	pnd/req/<requestID>     待提取记录（JSON）
//	pnd/cert/<certID>       凭证的活跃请求ID，同时作为待处理标记
//	pnd/stranded/<reqID>    滞留提取记录（JSON）
package pending

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

var (
	keyNext        = []byte("pnd/next")
	prefixRequest  = []byte("pnd/req/")
	prefixCert     = []byte("pnd/cert/")
	prefixStranded = []byte("pnd/stranded/")
)

func key(prefix, suffix []byte) []byte {
	return append(append([]byte(nil), prefix...), suffix...)
}

// Table 实现 stake.PendingTable
type Table struct{}

var _ stake.PendingTable = (*Table)(nil)

// New 创建待提取表
func New() *Table {
	return &Table{}
}

// NextRequestID 分配下一个请求ID
func (t *Table) NextRequestID(tx storage.BadgerTransaction) (types.RequestID, error) {
	data, err := tx.Get(keyNext)
	if err != nil {
		return 0, fmt.Errorf("读取请求计数器失败: %w", err)
	}
	var last uint64
	if data != nil {
		if len(data) != 8 {
			return 0, fmt.Errorf("请求计数器长度无效: %d", len(data))
		}
		last = binary.BigEndian.Uint64(data)
	}

	next := types.RequestID(last + 1)
	if err := tx.Set(keyNext, next.Bytes()); err != nil {
		return 0, err
	}
	return next, nil
}

// Put 登记待提取记录
func (t *Table) Put(tx storage.BadgerTransaction, record *types.PendingWithdrawal) error {
	if record.RequestID == 0 {
		return fmt.Errorf("请求ID不能为0")
	}

	pending, err := t.IsPending(tx, record.CertificateID)
	if err != nil {
		return err
	}
	if pending {
		return fmt.Errorf("%w: %s", types.ErrRedemptionAlreadyPending, record.CertificateID)
	}

	exists, err := tx.Exists(key(prefixRequest, record.RequestID.Bytes()))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("请求 %s 已存在", record.RequestID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化待提取记录失败: %w", err)
	}
	if err := tx.Set(key(prefixRequest, record.RequestID.Bytes()), data); err != nil {
		return err
	}
	return tx.Set(key(prefixCert, record.CertificateID.Bytes()), record.RequestID.Bytes())
}

// Get 读取待提取记录
func (t *Table) Get(tx storage.BadgerTransaction, requestID types.RequestID) (*types.PendingWithdrawal, error) {
	data, err := tx.Get(key(prefixRequest, requestID.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("读取待提取记录失败: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownRequest, requestID)
	}

	var record types.PendingWithdrawal
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("解析待提取记录失败: %w", err)
	}
	return &record, nil
}

// Consume 删除记录及其索引
func (t *Table) Consume(tx storage.BadgerTransaction, requestID types.RequestID) (*types.PendingWithdrawal, error) {
	record, err := t.Get(tx, requestID)
	if err != nil {
		return nil, err
	}
	if err := tx.Delete(key(prefixRequest, requestID.Bytes())); err != nil {
		return nil, err
	}
	if err := tx.Delete(key(prefixCert, record.CertificateID.Bytes())); err != nil {
		return nil, err
	}
	return record, nil
}

// IsPending 凭证是否有活跃请求
func (t *Table) IsPending(tx storage.BadgerTransaction, id types.CertificateID) (bool, error) {
	requestID, err := t.RequestFor(tx, id)
	if err != nil {
		return false, err
	}
	return requestID != 0, nil
}

// RequestFor 凭证的活跃请求ID
func (t *Table) RequestFor(tx storage.BadgerTransaction, id types.CertificateID) (types.RequestID, error) {
	data, err := tx.Get(key(prefixCert, id.Bytes()))
	if err != nil {
		return 0, fmt.Errorf("读取请求索引失败: %w", err)
	}
	if data == nil {
		return 0, nil
	}
	return types.RequestIDFromBytes(data)
}

// PutStranded 记录滞留提取（覆盖同一请求ID的旧记录）
func (t *Table) PutStranded(tx storage.BadgerTransaction, record *types.StrandedWithdrawal) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化滞留记录失败: %w", err)
	}
	return tx.Set(key(prefixStranded, record.RequestID.Bytes()), data)
}

// GetStranded 读取滞留提取
func (t *Table) GetStranded(tx storage.BadgerTransaction, requestID types.RequestID) (*types.StrandedWithdrawal, error) {
	data, err := tx.Get(key(prefixStranded, requestID.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("读取滞留记录失败: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrStrandedNotFound, requestID)
	}
	return decodeStranded(data)
}

// DeleteStranded 删除滞留提取
func (t *Table) DeleteStranded(tx storage.BadgerTransaction, requestID types.RequestID) error {
	return tx.Delete(key(prefixStranded, requestID.Bytes()))
}

// ListStranded 按请求ID升序列出滞留提取
func (t *Table) ListStranded(tx storage.BadgerTransaction) ([]*types.StrandedWithdrawal, error) {
	records := make([]*types.StrandedWithdrawal, 0)
	err := tx.PrefixScan(prefixStranded, func(_, value []byte) error {
		record, err := decodeStranded(value)
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func decodeStranded(data []byte) (*types.StrandedWithdrawal, error) {
	var record types.StrandedWithdrawal
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("解析滞留记录失败: %w", err)
	}
	return &record, nil
}
