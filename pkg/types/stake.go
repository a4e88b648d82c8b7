package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address 参与方地址（质押人、受益人、预言机、运营方）
type Address = common.Address

// ZeroAddress 零地址，表示"无"
var ZeroAddress = Address{}

// CertificateID 质押凭证标识符
//
// 单调递增、永不复用；0 保留为"无效凭证"
type CertificateID uint64

// Bytes 返回8字节大端编码，用作存储键的一部分
func (id CertificateID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// String 返回十进制表示
func (id CertificateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// CertificateIDFromBytes 从8字节大端编码解析凭证ID
func CertificateIDFromBytes(b []byte) (CertificateID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("凭证ID长度无效: %d", len(b))
	}
	return CertificateID(binary.BigEndian.Uint64(b)), nil
}

// RequestID 解密验证请求标识符
//
// 0 表示"无活跃请求"
type RequestID uint64

// Bytes 返回8字节大端编码
func (id RequestID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// String 返回十进制表示
func (id RequestID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// RequestIDFromBytes 从8字节大端编码解析请求ID
func RequestIDFromBytes(b []byte) (RequestID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("请求ID长度无效: %d", len(b))
	}
	return RequestID(binary.BigEndian.Uint64(b)), nil
}

// HandleLength 密文句柄长度（keccak256）
const HandleLength = 32

// CiphertextHandle 加密值的不透明引用，可以公开
type CiphertextHandle [HandleLength]byte

// IsZero 是否为空句柄
func (h CiphertextHandle) IsZero() bool {
	return h == CiphertextHandle{}
}

// Hex 返回带0x前缀的十六进制表示
func (h CiphertextHandle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String 实现 fmt.Stringer
func (h CiphertextHandle) String() string {
	return h.Hex()
}

// MarshalJSON 以十六进制字符串序列化
func (h CiphertextHandle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON 从十六进制字符串反序列化
func (h *CiphertextHandle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCiphertextHandle(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseCiphertextHandle 解析十六进制句柄（可带0x前缀）
func ParseCiphertextHandle(s string) (CiphertextHandle, error) {
	var h CiphertextHandle
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return h, fmt.Errorf("句柄不是合法的十六进制: %w", err)
	}
	if len(raw) != HandleLength {
		return h, fmt.Errorf("句柄长度无效: %d，期望%d", len(raw), HandleLength)
	}
	copy(h[:], raw)
	return h, nil
}

// BytesToHandle 将字节切片转换为句柄（长度必须为32）
func BytesToHandle(b []byte) (CiphertextHandle, error) {
	var h CiphertextHandle
	if len(b) != HandleLength {
		return h, fmt.Errorf("句柄长度无效: %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// CleartextLength 明文金额编码长度（uint256 大端）
const CleartextLength = 32

// EncodeAmount 将金额编码为32字节大端明文
func EncodeAmount(amount *uint256.Int) []byte {
	b := amount.Bytes32()
	return b[:]
}

// DecodeAmount 从32字节大端明文解码金额
func DecodeAmount(cleartext []byte) (*uint256.Int, error) {
	if len(cleartext) != CleartextLength {
		return nil, fmt.Errorf("%w: 长度 %d，期望 %d", ErrInvalidCleartext, len(cleartext), CleartextLength)
	}
	return new(uint256.Int).SetBytes32(cleartext), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// EncryptedBalance 凭证绑定的加密余额视图
type EncryptedBalance struct {
	CertificateID CertificateID    `json:"certificate_id"`
	Handle        CiphertextHandle `json:"handle"`
	Viewers       []Address        `json:"viewers"`
}

// PendingWithdrawal 待完成的提取记录
//
// 每个在途请求恰好一条；履约成功时删除
type PendingWithdrawal struct {
	RequestID        RequestID        `json:"request_id"`
	Beneficiary      Address          `json:"beneficiary"`
	CertificateID    CertificateID    `json:"certificate_id"`
	Handle           CiphertextHandle `json:"handle"`
	CiphertextDigest common.Hash      `json:"ciphertext_digest"`
	SubmittedAt      int64            `json:"submitted_at"`
}

// StrandedWithdrawal 已验证解密但最终转账失败的提取
//
// 凭证已销毁、待提取记录已删除，只能通过运营重试释放资金
type StrandedWithdrawal struct {
	RequestID     RequestID     `json:"request_id"`
	Beneficiary   Address       `json:"beneficiary"`
	CertificateID CertificateID `json:"certificate_id"`
	Amount        *uint256.Int  `json:"amount"`
	Attempts      uint32        `json:"attempts"`
	LastError     string        `json:"last_error"`
	StrandedAt    int64         `json:"stranded_at"`
}
