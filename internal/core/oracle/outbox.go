package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// prefixOutbox orc/outbox/<requestID> -> 解密请求（JSON）
var prefixOutbox = []byte("orc/outbox/")

func outboxKey(requestID types.RequestID) []byte {
	return append(append([]byte(nil), prefixOutbox...), requestID.Bytes()...)
}

// Outbox 已提交、尚未完成的解密请求
//
// 本地预言机重启后从这里恢复队列；外部预言机通过 API 拉取。
// 同一请求ID再次写入时覆盖旧请求。
type Outbox struct {
	store  storage.BadgerStore
	logger log.Logger
}

// NewOutbox 创建请求发件箱
func NewOutbox(store storage.BadgerStore, logger log.Logger) *Outbox {
	return &Outbox{store: store, logger: logger}
}

// Put 保存请求
func (o *Outbox) Put(ctx context.Context, req *oracle.DecryptionRequest) error {
	if req == nil || req.RequestID == 0 {
		return fmt.Errorf("解密请求无效")
	}
	if len(req.Handles) != len(req.Ciphertexts) {
		return fmt.Errorf("句柄数量 %d 与密文数量 %d 不一致", len(req.Handles), len(req.Ciphertexts))
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化解密请求失败: %w", err)
	}
	return o.store.Set(ctx, outboxKey(req.RequestID), data)
}

// Get 读取请求；不存在时返回 ErrUnknownRequest
func (o *Outbox) Get(ctx context.Context, requestID types.RequestID) (*oracle.DecryptionRequest, error) {
	data, err := o.store.Get(ctx, outboxKey(requestID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownRequest, requestID)
	}
	return decodeRequest(data)
}

// List 按请求ID升序列出请求
func (o *Outbox) List(ctx context.Context) ([]*oracle.DecryptionRequest, error) {
	requests := make([]*oracle.DecryptionRequest, 0)
	err := o.store.View(ctx, func(tx storage.BadgerTransaction) error {
		return tx.PrefixScan(prefixOutbox, func(_, value []byte) error {
			req, err := decodeRequest(value)
			if err != nil {
				return err
			}
			requests = append(requests, req)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// Delete 删除请求
func (o *Outbox) Delete(ctx context.Context, requestID types.RequestID) error {
	return o.store.Delete(ctx, outboxKey(requestID))
}

// Watch 订阅履约事件，请求完成或滞留后从发件箱移除
func (o *Outbox) Watch(bus event.EventBus) error {
	handler := func(env *types.EventEnvelope) {
		var requestID types.RequestID
		switch payload := env.Payload.(type) {
		case *types.RedemptionCompleted:
			requestID = payload.RequestID
		case *types.WithdrawalStranded:
			requestID = payload.RequestID
		default:
			return
		}
		if err := o.Delete(context.Background(), requestID); err != nil && o.logger != nil {
			o.logger.Warnf("移除已完成的解密请求失败: request=%s err=%v", requestID, err)
		}
	}
	if err := bus.Subscribe(events.EventTypeRedemptionCompleted, handler); err != nil {
		return err
	}
	return bus.Subscribe(events.EventTypeWithdrawalStranded, handler)
}

func decodeRequest(data []byte) (*oracle.DecryptionRequest, error) {
	var req oracle.DecryptionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("解析解密请求失败: %w", err)
	}
	return &req, nil
}
