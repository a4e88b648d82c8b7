// Package badger 提供基于BadgerDB的存储实现
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	badgerconfig "github.com/weisyn/confstake/internal/config/storage/badger"
	log "github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	interfaces "github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"go.uber.org/zap"
)

// ErrStoreClosing 存储正在关闭，拒绝新的写入
var ErrStoreClosing = errors.New("badger store is closing")

// Store 实现BadgerStore接口
type Store struct {
	db         *badgerdb.DB
	config     *badgerconfig.Config
	logger     log.Logger
	cancelFunc context.CancelFunc // 用于取消后台任务

	// 关闭过程中阻断写入，等待 in-flight 写事务退出
	closing int32
	writeWg sync.WaitGroup
}

var _ interfaces.BadgerStore = (*Store)(nil)

// New 创建并打开BadgerStore
func New(config *badgerconfig.Config, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	var opts badgerdb.Options
	if config.IsInMemory() {
		logger.Info("初始化BadgerDB存储（内存模式）")
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		dataDir := config.GetPath()
		if dataDir == "" {
			return nil, fmt.Errorf("BadgerDB数据目录未配置")
		}
		logger.Infof("初始化BadgerDB存储，数据目录: %s", dataDir)
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("无法创建BadgerDB数据目录: %w", err)
		}
		opts = badgerdb.DefaultOptions(dataDir)
		opts.SyncWrites = config.IsSyncWritesEnabled()
		// 降低 value log 文件大小，减少 mmap 占用
		opts.ValueLogFileSize = 64 << 20
	}

	if size := config.GetMemTableSize(); size > 0 {
		opts.MemTableSize = size
	}
	// 单批写入上限为内存表的15%，必须容纳内联值阈值
	if maxBatch := opts.MemTableSize * 15 / 100; opts.ValueThreshold > maxBatch {
		return nil, fmt.Errorf("BadgerDB内存表过小: mem_table_size=%d 时单批上限 %d 小于值阈值 %d，至少需要 %d",
			opts.MemTableSize, maxBatch, opts.ValueThreshold, minMemTableSize(opts.ValueThreshold))
	}
	opts.BlockCacheSize = 32 << 20
	opts.IndexCacheSize = 16 << 20
	opts.NumMemtables = 2
	opts.NumCompactors = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}

	store := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	store.cancelFunc = cancel
	if config.IsAutoCompactionEnabled() && !config.IsInMemory() {
		store.StartMaintenanceRoutines(ctx)
	}

	logger.Info("BadgerDB存储初始化完成")
	return store, nil
}

// nopLogger 在 logger 未注入时使用，避免 nil 指针崩溃
type nopLogger struct{}

func (nopLogger) Debug(string)                   {}
func (nopLogger) Debugf(string, ...interface{})  {}
func (nopLogger) Info(string)                    {}
func (nopLogger) Infof(string, ...interface{})   {}
func (nopLogger) Warn(string)                    {}
func (nopLogger) Warnf(string, ...interface{})   {}
func (nopLogger) Error(string)                   {}
func (nopLogger) Errorf(string, ...interface{})  {}
func (nopLogger) Fatal(string)                   {}
func (nopLogger) Fatalf(string, ...interface{})  {}
func (nopLogger) With(...interface{}) log.Logger { return nopLogger{} }
func (nopLogger) Sync() error                    { return nil }
func (nopLogger) GetZapLogger() *zap.Logger      { return zap.NewNop() }

// Close 关闭存储并释放资源
func (s *Store) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	// 等待所有写事务退出
	waitCh := make(chan struct{})
	go func() {
		s.writeWg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(30 * time.Second):
		s.logger.Warn("等待 in-flight 写事务超时（30s），继续关闭 BadgerDB")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("关闭BadgerDB失败: %w", err)
	}

	s.logger.Info("BadgerDB存储已关闭")
	return nil
}

func (s *Store) beginWrite() (func(), error) {
	if atomic.LoadInt32(&s.closing) == 1 {
		return nil, ErrStoreClosing
	}
	s.writeWg.Add(1)
	// Add 之后再检查一次，避免与 Close 交错
	if atomic.LoadInt32(&s.closing) == 1 {
		s.writeWg.Done()
		return nil, ErrStoreClosing
	}
	return s.writeWg.Done, nil
}

// Get 获取指定键的值
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var valCopy []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil // 键不存在时返回nil值和nil错误
			}
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger获取键失败: %w", err)
	}
	return valCopy, nil
}

// Set 设置键值对
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete 删除指定键的值
func (s *Store) Delete(ctx context.Context, key []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
}

// Exists 检查键是否存在
func (s *Store) Exists(ctx context.Context, key []byte) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger检查键存在性失败: %w", err)
	}
	return exists, nil
}

// PrefixScan 按前缀扫描键值对
func (s *Store) PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := s.View(ctx, func(tx interfaces.BadgerTransaction) error {
		return tx.PrefixScan(prefix, func(key, value []byte) error {
			result[string(key)] = value
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badger前缀扫描失败: %w", err)
	}
	return result, nil
}

// View 在只读事务中执行操作
func (s *Store) View(ctx context.Context, fn func(tx interfaces.BadgerTransaction) error) error {
	txn := s.db.NewTransaction(false)
	tx := &Transaction{
		txn:   txn,
		state: int32(TxActive),
	}
	defer tx.Discard()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx)
}

// RunInTransaction 在读写事务中执行操作
// fn 返回错误时丢弃事务，原始错误可通过 errors.Is 匹配
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx interfaces.BadgerTransaction) error) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &Transaction{
		txn:   s.db.NewTransaction(true),
		state: int32(TxActive),
	}

	// 确保事务最终被关闭
	defer func() {
		if tx.IsActive() {
			tx.Discard()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Discard()
		return fmt.Errorf("事务执行失败: %w", err)
	}

	if tx.IsActive() {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("事务提交失败: %w", err)
		}
	} else if tx.IsDiscarded() {
		return fmt.Errorf("事务已被丢弃")
	}

	return nil
}

// badgerLogger 将 BadgerDB 内部日志转发到 log.Logger
type badgerLogger struct {
	logger log.Logger
}

// newBadgerLogger 创建BadgerDB日志适配器
func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

// Errorf 输出错误日志
func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

// Warningf 输出警告日志
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

// Infof BadgerDB 的 info 日志较多，降级为 debug
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

// Debugf 输出调试日志
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

// minMemTableSize 容纳给定值阈值所需的最小内存表大小
func minMemTableSize(valueThreshold int64) int64 {
	return (valueThreshold*100 + 14) / 15
}
