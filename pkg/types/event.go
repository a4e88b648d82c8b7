package types

import (
	"time"

	"github.com/holiman/uint256"
)

// EventType 事件类型
type EventType string

// EventEnvelope 事件信封
//
// 事件总线上发布的统一载体，ID 由 uuid 生成，Sequence 反映调用顺序
type EventEnvelope struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Sequence  uint64      `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// StakeMinted 质押铸造事件，只携带密文句柄，不含明文金额
type StakeMinted struct {
	Staker        Address          `json:"staker"`
	CertificateID CertificateID    `json:"certificate_id"`
	Handle        CiphertextHandle `json:"handle"`
}

// RedemptionRequested 赎回请求事件
type RedemptionRequested struct {
	Beneficiary   Address       `json:"beneficiary"`
	CertificateID CertificateID `json:"certificate_id"`
	RequestID     RequestID     `json:"request_id"`
}

// RedemptionCompleted 赎回完成事件，携带已揭示的金额
type RedemptionCompleted struct {
	Beneficiary   Address       `json:"beneficiary"`
	CertificateID CertificateID `json:"certificate_id"`
	RequestID     RequestID     `json:"request_id"`
	Amount        *uint256.Int  `json:"amount"`
}

// WithdrawalStranded 资金滞留事件
type WithdrawalStranded struct {
	Beneficiary   Address       `json:"beneficiary"`
	CertificateID CertificateID `json:"certificate_id"`
	RequestID     RequestID     `json:"request_id"`
	Amount        *uint256.Int  `json:"amount"`
	Reason        string        `json:"reason"`
}

// WithdrawalRecovered 滞留资金重试成功事件
type WithdrawalRecovered struct {
	Beneficiary   Address       `json:"beneficiary"`
	CertificateID CertificateID `json:"certificate_id"`
	RequestID     RequestID     `json:"request_id"`
	Amount        *uint256.Int  `json:"amount"`
}
