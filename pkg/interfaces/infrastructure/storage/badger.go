// Package storage 定义键值存储接口
//
// 账本的全部状态（凭证、加密余额、待提取记录、账户簿）都落在同一个 BadgerDB 实例上。
// 每个状态变更入口在一个读写事务中完成：fn 返回错误则整体回滚，保证调用失败时
// 共享状态与调用前完全一致。
package storage

import (
	"context"
)

// BadgerStore 键值存储接口
type BadgerStore interface {
	// Close 关闭数据库，确保已提交的事务写入磁盘
	Close() error

	// Get 获取指定键的值；键不存在时返回 nil, nil
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 设置键值对
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除指定键；键不存在时不返回错误
	Delete(ctx context.Context, key []byte) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// PrefixScan 按前缀扫描，返回 map 的键为存储键的字符串形式
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// View 在只读事务中执行 fn，读到的是一致快照
	View(ctx context.Context, fn func(tx BadgerTransaction) error) error

	// RunInTransaction 在读写事务中执行 fn
	// fn 返回错误则回滚，否则提交
	RunInTransaction(ctx context.Context, fn func(tx BadgerTransaction) error) error
}

// BadgerTransaction 事务内操作接口
type BadgerTransaction interface {
	// Get 获取指定键的值；键不存在时返回 nil, nil
	Get(key []byte) ([]byte, error)

	// Set 设置键值对
	Set(key, value []byte) error

	// Delete 删除指定键
	Delete(key []byte) error

	// Exists 检查键是否存在
	Exists(key []byte) (bool, error)

	// PrefixScan 按键序遍历前缀下的所有键值对
	// fn 返回错误时停止遍历并返回该错误
	PrefixScan(prefix []byte, fn func(key, value []byte) error) error
}
