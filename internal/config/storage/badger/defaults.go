package badger

import (
	"github.com/weisyn/confstake/pkg/utils"
)

// getDefaultPath 获取默认数据库路径
func getDefaultPath() string {
	return utils.ResolveDataPath("./data/badger")
}

const (
	// defaultSyncWrites 默认同步写入
	// 账本状态（凭证、待提取记录）丢失会造成资金滞留，必须落盘后才返回
	defaultSyncWrites = true

	// defaultMemTableSize 默认内存表 64MB
	defaultMemTableSize = 64 << 20

	// defaultEnableAutoCompaction 默认启用自动压缩
	defaultEnableAutoCompaction = true
)
