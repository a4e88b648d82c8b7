package protocol

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/confstake/pkg/types"
)

// ============================================================================
//                          Prometheus 监控指标
// ============================================================================

var (
	// operationTotal 协议入口调用次数（按操作和结果分类）
	operationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "confstake",
			Subsystem: "stake",
			Name:      "operation_total",
			Help:      "Total number of protocol operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// operationDuration 协议入口耗时（含等待临界区）
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "confstake",
			Subsystem: "stake",
			Name:      "operation_duration_seconds",
			Help:      "Duration of protocol operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms ~ 1s
		},
		[]string{"operation"},
	)

	// strandedTotal 转账失败导致滞留的提取总数
	strandedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "confstake",
		Subsystem: "stake",
		Name:      "stranded_withdrawals_total",
		Help:      "Total number of withdrawals stranded after a failed transfer",
	})
)

func init() {
	prometheus.MustRegister(
		operationTotal,
		operationDuration,
		strandedTotal,
	)
}

// observe 记录一次入口调用
func observe(operation string, start time.Time, err error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	operationTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// resultLabel 将错误归类为低基数的标签值
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, types.ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, types.ErrStakeNotFound):
		return "stake_not_found"
	case errors.Is(err, types.ErrInvalidCertificate), errors.Is(err, types.ErrCertificateNotFound):
		return "invalid_certificate"
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, types.ErrRedemptionAlreadyPending):
		return "already_pending"
	case errors.Is(err, types.ErrUnknownRequest):
		return "unknown_request"
	case errors.Is(err, types.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, types.ErrInvalidCleartext):
		return "invalid_cleartext"
	case errors.Is(err, types.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, types.ErrReentrantCall):
		return "reentrant"
	case errors.Is(err, types.ErrStrandedNotFound):
		return "stranded_not_found"
	default:
		return "error"
	}
}
