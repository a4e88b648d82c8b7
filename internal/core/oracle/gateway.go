package oracle

import (
	"context"
	"fmt"

	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// Gateway 外部预言机网关
//
// 只负责把请求写入发件箱；外部预言机通过 API 拉取请求并调用履约接口
type Gateway struct {
	outbox *Outbox
	logger log.Logger
}

var (
	_ oracle.DecryptionOracle = (*Gateway)(nil)
	_ oracle.Canceler         = (*Gateway)(nil)
)

// NewGateway 创建外部预言机网关
func NewGateway(outbox *Outbox, logger log.Logger) *Gateway {
	return &Gateway{outbox: outbox, logger: logger}
}

// Submit 保存请求等待外部预言机拉取
func (g *Gateway) Submit(ctx context.Context, req *oracle.DecryptionRequest) error {
	if err := g.outbox.Put(ctx, req); err != nil {
		return fmt.Errorf("保存解密请求失败: %w", err)
	}
	if g.logger != nil {
		g.logger.Debugf("解密请求已入发件箱: request=%s", req.RequestID)
	}
	return nil
}

// Cancel 从发件箱移除请求，外部预言机不会再拉取到它
func (g *Gateway) Cancel(ctx context.Context, requestID types.RequestID) error {
	return g.outbox.Delete(ctx, requestID)
}
