// Package oracle 实现解密预言机
//
// 🎯 **两种运行方式**：
// - 本地预言机（LocalOracle）：节点内持有解密私钥和门限签名密钥，
//   工作协程解密提交的密文、生成证明并以预言机主体身份回调履约
// - 外部网关（Gateway）：只把请求写入发件箱，由外部预言机通过 API 拉取并回调
//
// 两种方式都先把请求持久化到发件箱，节点重启后不会丢失在途请求。
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	oracleconfig "github.com/weisyn/confstake/internal/config/oracle"
	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/proof"
	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// resyncInterval 重新扫描发件箱的周期
const resyncInterval = 30 * time.Second

const (
	// busyRetries 账本忙于调用结算时回调的最大重试次数
	busyRetries = 50
	// busyRetryDelay 忙碌重试间隔
	busyRetryDelay = 20 * time.Millisecond
)

var (
	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "confstake",
		Subsystem: "oracle",
		Name:      "requests_processed_total",
		Help:      "Total number of decryption requests processed by the local oracle",
	}, []string{"result"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "confstake",
		Subsystem: "oracle",
		Name:      "queue_depth",
		Help:      "Number of decryption requests waiting in the local oracle queue",
	})
)

// LocalOracle 节点内解密预言机
type LocalOracle struct {
	keys       *KeyMaterial
	signer     *proof.Signer
	encryption cryptointf.EncryptionManager
	outbox     *Outbox
	principal  types.Address
	options    *oracleconfig.OracleOptions
	logger     log.Logger

	mu        sync.Mutex
	fulfiller oracle.Fulfiller
	inflight  map[types.RequestID]struct{}
	queue     chan *oracle.DecryptionRequest
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var (
	_ oracle.DecryptionOracle = (*LocalOracle)(nil)
	_ oracle.Canceler         = (*LocalOracle)(nil)
)

// NewLocalOracle 创建本地预言机
//
// principal 为回调履约时使用的调用方地址
func NewLocalOracle(
	keys *KeyMaterial,
	encryption cryptointf.EncryptionManager,
	outbox *Outbox,
	principal types.Address,
	options *oracleconfig.OracleOptions,
	logger log.Logger,
) (*LocalOracle, error) {
	if keys == nil || keys.EncryptionKey == nil {
		return nil, fmt.Errorf("预言机密钥材料为空")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox 不能为空")
	}
	workers := options.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := options.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	opts := *options
	opts.Workers = workers

	return &LocalOracle{
		keys:       keys,
		signer:     keys.Signer(),
		encryption: encryption,
		outbox:     outbox,
		principal:  principal,
		options:    &opts,
		logger:     logger,
		inflight:   make(map[types.RequestID]struct{}),
		queue:      make(chan *oracle.DecryptionRequest, queueSize),
	}, nil
}

// SetFulfiller 设置回调目标
//
// 回调目标依赖本预言机，只能在两者都创建后注入
func (o *LocalOracle) SetFulfiller(f oracle.Fulfiller) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fulfiller = f
}

// Submit 持久化请求并放入处理队列
func (o *LocalOracle) Submit(ctx context.Context, req *oracle.DecryptionRequest) error {
	if err := o.outbox.Put(ctx, req); err != nil {
		return fmt.Errorf("保存解密请求失败: %w", err)
	}
	o.enqueue(req)
	return nil
}

// Cancel 撤回请求
//
// 已在队列中的副本处理前会重新读取发件箱，读不到即丢弃
func (o *LocalOracle) Cancel(ctx context.Context, requestID types.RequestID) error {
	return o.outbox.Delete(ctx, requestID)
}

// Start 启动工作协程并恢复发件箱中的请求
func (o *LocalOracle) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.fulfiller == nil {
		o.mu.Unlock()
		return fmt.Errorf("预言机回调目标未设置")
	}
	if o.cancel != nil {
		o.mu.Unlock()
		return fmt.Errorf("预言机已启动")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()

	for i := 0; i < o.options.Workers; i++ {
		o.wg.Add(1)
		go o.worker(runCtx)
	}

	if err := o.resync(ctx); err != nil {
		o.warnf("恢复在途解密请求失败: %v", err)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := o.resync(runCtx); err != nil {
					o.warnf("扫描发件箱失败: %v", err)
				}
			}
		}
	}()

	o.infof("本地预言机已启动: workers=%d principal=%s", o.options.Workers, o.principal.Hex())
	return nil
}

// Stop 停止工作协程，等待在途处理结束
func (o *LocalOracle) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.wg.Wait()
	o.infof("本地预言机已停止")
}

// resync 将发件箱中不在处理中的请求重新入队
func (o *LocalOracle) resync(ctx context.Context) error {
	requests, err := o.outbox.List(ctx)
	if err != nil {
		return err
	}
	for _, req := range requests {
		o.enqueue(req)
	}
	return nil
}

func (o *LocalOracle) enqueue(req *oracle.DecryptionRequest) {
	o.mu.Lock()
	if _, ok := o.inflight[req.RequestID]; ok {
		o.mu.Unlock()
		return
	}
	o.inflight[req.RequestID] = struct{}{}
	o.mu.Unlock()

	select {
	case o.queue <- req:
		queueDepth.Inc()
	default:
		o.done(req.RequestID)
		o.warnf("解密队列已满，请求 %s 等待下次扫描", req.RequestID)
	}
}

func (o *LocalOracle) done(requestID types.RequestID) {
	o.mu.Lock()
	delete(o.inflight, requestID)
	o.mu.Unlock()
}

func (o *LocalOracle) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-o.queue:
			queueDepth.Dec()
			result := o.process(ctx, req)
			processedTotal.WithLabelValues(result).Inc()
			o.done(req.RequestID)
		}
	}
}

// process 解密、签名并回调，返回结果标签
func (o *LocalOracle) process(ctx context.Context, req *oracle.DecryptionRequest) string {
	if o.options.CallbackDelay > 0 {
		select {
		case <-ctx.Done():
			return "cancelled"
		case <-time.After(o.options.CallbackDelay):
		}
	}

	// 请求可能已被撤回，或同一请求ID已被新的请求覆盖
	current, err := o.outbox.Get(ctx, req.RequestID)
	switch {
	case errors.Is(err, types.ErrUnknownRequest):
		return "withdrawn"
	case err != nil:
		o.warnf("读取解密请求失败，等待重试: request=%s err=%v", req.RequestID, err)
		return "retry"
	}
	req = current

	cleartext, proofBytes, err := o.Decrypt(req)
	if err != nil {
		o.errorf("处理解密请求失败，丢弃: request=%s err=%v", req.RequestID, err)
		o.discard(ctx, req.RequestID)
		return "undecryptable"
	}

	o.mu.Lock()
	fulfiller := o.fulfiller
	o.mu.Unlock()

	err = o.callback(ctx, fulfiller, req.RequestID, cleartext, proofBytes)
	switch {
	case err == nil:
		o.discard(ctx, req.RequestID)
		return "fulfilled"
	case errors.Is(err, types.ErrTransferFailed):
		// 履约已生效，资金进入滞留记录
		o.discard(ctx, req.RequestID)
		return "stranded"
	case errors.Is(err, types.ErrUnknownRequest), errors.Is(err, types.ErrInvalidProof):
		o.discard(ctx, req.RequestID)
		return "rejected"
	default:
		o.warnf("回调履约失败，等待重试: request=%s err=%v", req.RequestID, err)
		return "retry"
	}
}

// callback 调用履约，账本忙碌时短暂等待后重试
func (o *LocalOracle) callback(ctx context.Context, fulfiller oracle.Fulfiller, requestID types.RequestID, cleartext, proofBytes []byte) error {
	for attempt := 0; ; attempt++ {
		err := fulfiller.Fulfill(ctx, o.principal, requestID, cleartext, proofBytes)
		if !errors.Is(err, types.ErrReentrantCall) || attempt >= busyRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyRetryDelay):
		}
	}
}

// Decrypt 解密请求密文并生成门限证明
func (o *LocalOracle) Decrypt(req *oracle.DecryptionRequest) (cleartext, proofBytes []byte, err error) {
	if len(req.Ciphertexts) != 1 {
		return nil, nil, fmt.Errorf("每个请求只支持一个密文，实际 %d 个", len(req.Ciphertexts))
	}
	ciphertext := req.Ciphertexts[0]
	cleartext, err = o.encryption.Decrypt(ciphertext, crypto.FromECDSA(o.keys.EncryptionKey))
	if err != nil {
		return nil, nil, err
	}
	if _, err := types.DecodeAmount(cleartext); err != nil {
		return nil, nil, err
	}
	proofBytes, err = o.signer.Sign(req.RequestID, crypto.Keccak256Hash(ciphertext), cleartext)
	if err != nil {
		return nil, nil, err
	}
	return cleartext, proofBytes, nil
}

func (o *LocalOracle) discard(ctx context.Context, requestID types.RequestID) {
	if err := o.outbox.Delete(context.WithoutCancel(ctx), requestID); err != nil {
		o.warnf("移除解密请求失败: request=%s err=%v", requestID, err)
	}
}

func (o *LocalOracle) infof(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Infof(format, args...)
	}
}

func (o *LocalOracle) warnf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Warnf(format, args...)
	}
}

func (o *LocalOracle) errorf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Errorf(format, args...)
	}
}
