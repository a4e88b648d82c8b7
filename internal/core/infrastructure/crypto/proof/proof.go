// Package proof 提供门限签名解密证明
//
// 证明是 k-of-n 个 secp256k1 签名的拼接（每个65字节 r‖s‖v），签名消息为
// keccak256(域分隔符 ‖ 请求ID ‖ 密文摘要 ‖ 明文)。
// 验证时从每个签名恢复签名者地址，去重后统计受信任签名者数量，达到门限即通过。
package proof

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// SignatureLength 单个签名长度
const SignatureLength = crypto.SignatureLength

// domainSeparator 防止签名被挪用到其他消息
var domainSeparator = []byte("confstake/decryption-proof/v1")

// Digest 计算证明签名的消息摘要
func Digest(requestID types.RequestID, ciphertextDigest common.Hash, cleartext []byte) common.Hash {
	return crypto.Keccak256Hash(domainSeparator, requestID.Bytes(), ciphertextDigest.Bytes(), cleartext)
}

// Signer 门限签名者集合（预言机侧）
type Signer struct {
	keys []*ecdsa.PrivateKey
}

// NewSigner 创建签名者集合
func NewSigner(keys ...*ecdsa.PrivateKey) *Signer {
	return &Signer{keys: keys}
}

// Addresses 返回签名者地址
func (s *Signer) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(s.keys))
	for _, key := range s.keys {
		addrs = append(addrs, crypto.PubkeyToAddress(key.PublicKey))
	}
	return addrs
}

// Sign 由全部签名者对解密结果签名，返回拼接后的证明
func (s *Signer) Sign(requestID types.RequestID, ciphertextDigest common.Hash, cleartext []byte) ([]byte, error) {
	digest := Digest(requestID, ciphertextDigest, cleartext)
	proof := make([]byte, 0, len(s.keys)*SignatureLength)
	for i, key := range s.keys {
		sig, err := crypto.Sign(digest.Bytes(), key)
		if err != nil {
			return nil, fmt.Errorf("签名者 %d 签名失败: %w", i, err)
		}
		proof = append(proof, sig...)
	}
	return proof, nil
}

// Verifier 实现 oracle.ProofVerifier
type Verifier struct {
	signers   map[common.Address]struct{}
	threshold int
}

var _ oracle.ProofVerifier = (*Verifier)(nil)

// NewVerifier 创建证明验证器
//
// 参数：
//   - signers: 受信任签名者地址
//   - threshold: 所需不同签名者数量（1 ≤ threshold ≤ len(signers)）
func NewVerifier(signers []common.Address, threshold int) (*Verifier, error) {
	set := make(map[common.Address]struct{}, len(signers))
	for _, signer := range signers {
		set[signer] = struct{}{}
	}
	if threshold < 1 || threshold > len(set) {
		return nil, fmt.Errorf("门限无效: %d，受信任签名者 %d 个", threshold, len(set))
	}
	return &Verifier{signers: set, threshold: threshold}, nil
}

// Verify 验证解密证明
func (v *Verifier) Verify(requestID types.RequestID, ciphertextDigest common.Hash, cleartext, proof []byte) error {
	if len(proof) == 0 || len(proof)%SignatureLength != 0 {
		return fmt.Errorf("%w: 证明长度 %d 不是 %d 的整数倍", types.ErrInvalidProof, len(proof), SignatureLength)
	}

	digest := Digest(requestID, ciphertextDigest, cleartext)
	seen := make(map[common.Address]struct{})

	for offset := 0; offset < len(proof); offset += SignatureLength {
		pub, err := crypto.SigToPub(digest.Bytes(), proof[offset:offset+SignatureLength])
		if err != nil {
			return fmt.Errorf("%w: 第 %d 个签名无法恢复: %v", types.ErrInvalidProof, offset/SignatureLength, err)
		}
		signer := crypto.PubkeyToAddress(*pub)
		if _, ok := v.signers[signer]; !ok {
			return fmt.Errorf("%w: 签名者 %s 不受信任", types.ErrInvalidProof, signer.Hex())
		}
		seen[signer] = struct{}{}
	}

	if len(seen) < v.threshold {
		return fmt.Errorf("%w: 有效签名者不足，需要 %d 个，实际 %d 个", types.ErrInvalidProof, v.threshold, len(seen))
	}
	return nil
}
