// Package testutil 提供质押组件测试共用的辅助函数
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	badgerconfig "github.com/weisyn/confstake/internal/config/storage/badger"
	"github.com/weisyn/confstake/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
)

// NewStore 创建内存 BadgerDB，测试结束时自动关闭
func NewStore(t testing.TB) *badger.Store {
	t.Helper()
	store, err := badger.New(badgerconfig.NewInMemory(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Update 在读写事务中执行 fn
func Update(t testing.TB, store storage.BadgerStore, fn func(tx storage.BadgerTransaction) error) error {
	t.Helper()
	return store.RunInTransaction(context.Background(), fn)
}

// View 在只读事务中执行 fn，fn 出错时测试失败
func View(t testing.TB, store storage.BadgerStore, fn func(tx storage.BadgerTransaction)) {
	t.Helper()
	err := store.View(context.Background(), func(tx storage.BadgerTransaction) error {
		fn(tx)
		return nil
	})
	require.NoError(t, err)
}
